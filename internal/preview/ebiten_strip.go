// ebiten_strip.go - optional live desktop view of a PixelMatrix
//
// This is a debugging window, not the excluded desktop simulator oracle:
// it has no GIF export and no frame-metrics calculator, just a scaled blit
// of the logical grid.

//go:build !headless

package preview

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"

	"github.com/jdubz/pulsegrid/internal/hal"
	"github.com/jdubz/pulsegrid/internal/render"
)

// EbitenStrip implements hal.LedStrip and renders every presented frame
// into a resizable window via its DeviceConfig's mapper, scaled up with
// nearest-neighbour interpolation so individual LEDs stay legible.
type EbitenStrip struct {
	mapper *render.Mapper
	scale  int

	mu     sync.RWMutex
	pixels []uint32
	small  *image.RGBA
	window *ebiten.Image

	width, height int
}

// NewEbitenStrip constructs a preview window sized to mapper's topology,
// magnified by scale pixels per logical cell.
func NewEbitenStrip(mapper *render.Mapper, cfg render.DeviceConfig, scale int) *EbitenStrip {
	if scale < 1 {
		scale = 1
	}
	return &EbitenStrip{
		mapper: mapper,
		scale:  scale,
		pixels: make([]uint32, mapper.NumLeds()),
		small:  image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
		width:  cfg.Width,
		height: cfg.Height,
	}
}

func (e *EbitenStrip) Begin() error {
	ebiten.SetWindowSize(e.width*e.scale, e.height*e.scale)
	ebiten.SetWindowTitle("pulsegrid preview")
	ebiten.SetWindowResizable(true)
	return nil
}

func (e *EbitenStrip) SetPixel(index int, r, g, b byte) {
	e.SetPixelPacked(index, uint32(r)<<16|uint32(g)<<8|uint32(b))
}

func (e *EbitenStrip) SetPixelPacked(index int, rgb uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.pixels) {
		return
	}
	e.pixels[index] = rgb
}

func (e *EbitenStrip) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.pixels {
		e.pixels[i] = 0
	}
}

func (e *EbitenStrip) SetBrightness(b byte) {}

func (e *EbitenStrip) NumPixels() int { return len(e.pixels) }

// Present folds the physical-index pixel array back through the mapper
// into the small logical-grid image for drawing.
func (e *EbitenStrip) Present() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, rgb := range e.pixels {
		x, y := e.mapper.Coords(i)
		if x < 0 || y < 0 {
			continue
		}
		e.small.Set(x, y, image.NewUniform(packedColor(rgb)).At(0, 0))
	}
	return nil
}

func packedColor(rgb uint32) rgba32 {
	return rgba32{r: byte(rgb >> 16), g: byte(rgb >> 8), b: byte(rgb), a: 255}
}

type rgba32 struct{ r, g, b, a byte }

func (c rgba32) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, uint32(c.a) * 0x101
}

// Draw satisfies ebiten.Game: it upscales the logical grid into screen
// with nearest-neighbour scaling, mirroring the teacher's scaled-blit path.
func (e *EbitenStrip) Draw(screen *ebiten.Image) {
	e.mu.RLock()
	src := e.small
	e.mu.RUnlock()

	bounds := image.Rect(0, 0, e.width*e.scale, e.height*e.scale)
	dst := image.NewRGBA(bounds)
	draw.NearestNeighbor.Scale(dst, bounds, src, src.Bounds(), draw.Over, nil)
	if e.window == nil {
		e.window = ebiten.NewImageFromImage(dst)
	} else {
		e.window.WritePixels(dst.Pix)
	}
	screen.DrawImage(e.window, nil)
}

func (e *EbitenStrip) Update() error { return nil }

func (e *EbitenStrip) Layout(_, _ int) (int, int) {
	return e.width * e.scale, e.height * e.scale
}

var _ hal.LedStrip = (*EbitenStrip)(nil)
var _ ebiten.Game = (*EbitenStrip)(nil)
