// strip_preview.go - live desktop preview window, the default build
//go:build !headless

package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/jdubz/pulsegrid/internal/hal"
	"github.com/jdubz/pulsegrid/internal/preview"
	"github.com/jdubz/pulsegrid/internal/render"
)

const previewScale = 24

// newStrip returns a strip backed by a resizable ebiten window scaled up
// from the logical grid; build with -tags headless for display-free runs.
func newStrip(cfg render.DeviceConfig, mapper *render.Mapper) hal.LedStrip {
	return preview.NewEbitenStrip(mapper, cfg, previewScale)
}

// runLoop runs loop() on a background goroutine and pumps the ebiten
// window's event loop on the calling (main) goroutine, which ebiten
// requires for any windowing backend.
func runLoop(loop func()) {
	strip, ok := currentStrip.(ebiten.Game)
	if !ok {
		loop()
		return
	}
	go loop()
	if err := ebiten.RunGame(strip); err != nil {
		log.Printf("preview window closed: %v", err)
	}
}
