package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdubz/pulsegrid/internal/pixel"
)

func TestHueRotationLeavesAchromaticPixelsAlone(t *testing.T) {
	m := pixel.NewMatrix(2, 2)
	m.Set(0, 0, pixel.RGB{R: 128, G: 128, B: 128})
	h := NewHueRotation(0.25, 0)
	h.Apply(m, 0.016)
	assert.Equal(t, pixel.RGB{R: 128, G: 128, B: 128}, m.Get(0, 0))
}

func TestHueRotationAutoAdvancesShift(t *testing.T) {
	h := NewHueRotation(0, 0.5)
	m := pixel.NewMatrix(1, 1)
	m.Set(0, 0, pixel.RGB{R: 255, G: 0, B: 0})
	h.Apply(m, 1.0)
	assert.InDelta(t, 0.5, h.HueShift, 0.001)
}

func TestHueRotationWrapsModulo1(t *testing.T) {
	h := NewHueRotation(0.9, 1.0)
	m := pixel.NewMatrix(1, 1)
	m.Set(0, 0, pixel.RGB{R: 255, G: 0, B: 0})
	h.Apply(m, 0.2)
	assert.GreaterOrEqual(t, h.HueShift, float32(0))
	assert.Less(t, h.HueShift, float32(1))
}

func TestNoOpLeavesFrameUnchanged(t *testing.T) {
	m := pixel.NewMatrix(2, 2)
	m.Set(0, 0, pixel.RGB{R: 10, G: 20, B: 30})
	before := m.Get(0, 0)
	var n NoOp
	n.Apply(m, 0.016)
	assert.Equal(t, before, m.Get(0, 0))
}
