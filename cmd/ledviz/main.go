// main.go - wires the audio front-end, render pipeline, and a strip driver

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/generator"
	"github.com/jdubz/pulsegrid/internal/hal"
	"github.com/jdubz/pulsegrid/internal/pipeline"
	"github.com/jdubz/pulsegrid/internal/render"
)

func main() {
	width := flag.Int("width", 4, "logical matrix width")
	height := flag.Int("height", 15, "logical matrix height")
	vertical := flag.Bool("vertical", true, "serpentine vertical wiring (false = row-major horizontal)")
	fps := flag.Int("fps", 60, "frame rate")
	gen := flag.String("generator", "fire", "fire | water | lightning")
	flag.Parse()

	cfg := render.DeviceConfig{
		Width:  *width,
		Height: *height,
		Layout: render.MatrixLayout,
	}
	if *vertical {
		cfg.Orientation = render.Vertical
	} else {
		cfg.Orientation = render.Horizontal
	}
	cfg.Clamp()

	mapper := render.NewMapper(cfg)
	strip := newStrip(cfg, mapper)
	currentStrip = strip
	if err := strip.Begin(); err != nil {
		fmt.Printf("Failed to initialize LED strip: %v\n", err)
		os.Exit(1)
	}
	renderer := render.NewRenderer(mapper, strip)

	clock := hal.NewRealClock()
	drv := newMicDriver()
	mic := audio.NewMic(clock, audio.DefaultParams())
	mic.Attach(drv)
	controller := audio.NewController(mic, clock, audio.DefaultControllerParams())

	pl, err := pipeline.New(cfg, mapper, renderer, 90)
	if err != nil {
		fmt.Printf("Failed to initialize render pipeline: %v\n", err)
		os.Exit(1)
	}

	switch *gen {
	case "water":
		pl.SetGenerator(generator.KindWater)
	case "lightning":
		pl.SetGenerator(generator.KindLightning)
	default:
		pl.SetGenerator(generator.KindFire)
	}

	log.Printf("pulsegrid: %dx%d %s, generator=%s, target %d fps", cfg.Width, cfg.Height, orientationName(cfg.Orientation), *gen, *fps)

	frameInterval := time.Second / time.Duration(*fps)
	dt := float32(frameInterval) / float32(time.Second)

	runLoop(func() {
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctl := controller.Update(dt)
			if err := pl.Render(ctl, dt); err != nil {
				log.Printf("render halted: %v", err)
				return
			}
		}
	})
}

// currentStrip lets the preview build's runLoop recover the concrete strip
// (e.g. to type-assert it to ebiten.Game) without widening newStrip's
// return type away from hal.LedStrip.
var currentStrip hal.LedStrip

func orientationName(o render.Orientation) string {
	if o == render.Vertical {
		return "vertical/serpentine"
	}
	return "horizontal/row-major"
}
