// hue_rotation.go - per-pixel hue shift using go-colorful's HSV conversion

package effect

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/jdubz/pulsegrid/internal/pixel"
)

// HueRotation converts each pixel RGB->HSV, adds HueShift modulo 1, and
// converts back. Saturation-zero pixels remain achromatic since hue is
// irrelevant at S=0. RotationSpeed, if nonzero, auto-advances HueShift each
// frame.
type HueRotation struct {
	HueShift     float32
	RotationSpeed float32
}

// NewHueRotation constructs an effect with the given initial shift and
// auto-rotation speed (shift-units per second).
func NewHueRotation(initialHueShift, rotationSpeed float32) *HueRotation {
	return &HueRotation{HueShift: normalizeHue(initialHueShift), RotationSpeed: rotationSpeed}
}

func (h *HueRotation) Begin(width, height int) {}

func (h *HueRotation) Reset() {
	h.HueShift = 0
}

func (h *HueRotation) Name() string { return "HueRotation" }

func normalizeHue(v float32) float32 {
	v = float32frac(v)
	if v < 0 {
		v += 1
	}
	return v
}

func float32frac(v float32) float32 {
	i := int64(v)
	return v - float32(i)
}

func (h *HueRotation) Apply(m *pixel.Matrix, dt float32) {
	if h.RotationSpeed != 0 {
		h.HueShift = normalizeHue(h.HueShift + h.RotationSpeed*dt)
	}
	shiftDeg := float64(h.HueShift) * 360.0

	m.Each(func(x, y int, c pixel.RGB) {
		if c.R == c.G && c.G == c.B {
			return // achromatic pixel: hue is undefined, leave untouched
		}
		col := colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}
		hue, sat, val := col.Hsv()
		hue = hue + shiftDeg
		for hue >= 360 {
			hue -= 360
		}
		for hue < 0 {
			hue += 360
		}
		out := colorful.Hsv(hue, sat, val)
		r, g, b := out.Clamped().RGB255()
		m.Set(x, y, pixel.RGB{R: r, G: g, B: b})
	})
}
