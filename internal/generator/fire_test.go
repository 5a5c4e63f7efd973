package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

func newTestFire(t *testing.T) (*Fire, render.DeviceConfig) {
	cfg := render.DeviceConfig{Width: 4, Height: 15, Orientation: render.Vertical, Layout: render.MatrixLayout}
	f := NewFire(DefaultFireParams())
	require.NoError(t, f.Begin(cfg))
	return f, cfg
}

func TestFireSteadyStateBottomRowLit(t *testing.T) {
	f, cfg := newTestFire(t)
	m := pixel.NewMatrix(cfg.Width, cfg.Height)

	everNonZero := false
	litFrames := 0
	const frames = 300
	for i := 0; i < frames; i++ {
		ctl := audio.Control{Energy: 0, Pulse: 0, Phase: 0, RhythmStrength: 0}
		f.Generate(m, ctl, 0.016)
		if f.pool.ActiveCount() > 0 {
			everNonZero = true
		}
		litBottom := false
		for x := 0; x < cfg.Width; x++ {
			c := m.Get(x, cfg.Height-1)
			if c.R > 0 || c.G > 0 || c.B > 0 {
				litBottom = true
				break
			}
		}
		if litBottom {
			litFrames++
		}
	}
	assert.True(t, everNonZero)
	assert.GreaterOrEqual(t, float64(litFrames)/float64(frames), 0.8)
}

func TestFirePixelsStayInBoundsAndPoolBounded(t *testing.T) {
	f, cfg := newTestFire(t)
	m := pixel.NewMatrix(cfg.Width, cfg.Height)
	for i := 0; i < 200; i++ {
		f.Generate(m, audio.Control{Energy: 1, Pulse: 1, RhythmStrength: 1, Phase: float32(i%100) / 100}, 0.016)
		assert.LessOrEqual(t, f.pool.ActiveCount(), f.pool.Capacity())
	}
	m.Each(func(x, y int, c pixel.RGB) {
		assert.GreaterOrEqual(t, int(c.R), 0)
		assert.LessOrEqual(t, int(c.R), 255)
	})
}

func TestFireResetIdempotent(t *testing.T) {
	f, cfg := newTestFire(t)
	m := pixel.NewMatrix(cfg.Width, cfg.Height)
	for i := 0; i < 20; i++ {
		f.Generate(m, audio.Control{Energy: 0.5}, 0.016)
	}
	f.Reset()
	firstActive := f.pool.ActiveCount()
	firstHeat := append([]uint8(nil), f.heat...)
	f.Reset()
	secondActive := f.pool.ActiveCount()
	assert.Equal(t, firstActive, secondActive)
	assert.Equal(t, firstHeat, f.heat)
}

func TestFireNoFrameAccumulationUnderSilence(t *testing.T) {
	f, cfg := newTestFire(t)
	m := pixel.NewMatrix(cfg.Width, cfg.Height)
	f.Generate(m, audio.Control{}, 0.016)
	first := m.ChannelSum()
	for i := 0; i < 30; i++ {
		f.Generate(m, audio.Control{}, 0.016)
	}
	last := m.ChannelSum()
	if first == 0 {
		return
	}
	ratio := float64(last) / float64(first)
	assert.GreaterOrEqual(t, ratio, 0.5)
	assert.LessOrEqual(t, ratio, 1.5)
}
