// renderer.go - walks a pixel matrix and latches it to a LED strip driver

package render

import (
	"fmt"

	"github.com/jdubz/pulsegrid/internal/hal"
	"github.com/jdubz/pulsegrid/internal/pixel"
)

// Error carries renderer init-failure context, mirroring the rest of the
// codebase's {Operation, Details, Err} pattern.
type Error struct {
	Operation string
	Details   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("render %s failed: %s", e.Operation, e.Details)
}

// Renderer maps a logical pixel matrix to physical LED writes via a Mapper
// and presents the result. Out-of-range mapper results are dropped without
// error, per the wiring contract.
type Renderer struct {
	mapper *Mapper
	strip  hal.LedStrip
}

// NewRenderer binds a renderer to a mapper and strip driver.
func NewRenderer(mapper *Mapper, strip hal.LedStrip) *Renderer {
	return &Renderer{mapper: mapper, strip: strip}
}

// Begin initializes the underlying strip driver.
func (r *Renderer) Begin() error {
	if err := r.strip.Begin(); err != nil {
		return &Error{Operation: "begin", Details: "strip driver init", Err: err}
	}
	return nil
}

// Render walks m in row-major order, resolves each cell's physical index,
// writes it, and presents the frame.
func (r *Renderer) Render(m *pixel.Matrix) error {
	m.Each(func(x, y int, c pixel.RGB) {
		idx := r.mapper.Index(x, y)
		if idx < 0 || idx >= r.strip.NumPixels() {
			return
		}
		r.strip.SetPixel(idx, c.R, c.G, c.B)
	})
	if err := r.strip.Present(); err != nil {
		return &Error{Operation: "present", Details: "strip latch", Err: err}
	}
	return nil
}
