package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/generator"
	"github.com/jdubz/pulsegrid/internal/hal"
	"github.com/jdubz/pulsegrid/internal/particle"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

const frameDt = float32(0.016)

func advanceFrame(clock *hal.MockClock, ctl *audio.Controller, ms uint32) audio.Control {
	clock.Advance(ms)
	return ctl.Update(frameDt)
}

// S1 - Silence then impulse.
func TestScenarioSilenceThenImpulse(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := audio.NewMic(clock, audio.DefaultParams())
	mic.Attach(drv)
	ctl := audio.NewController(mic, clock, audio.DefaultControllerParams())

	transientCount := 0
	var transientStrength float32

	for ms := 0; ms < 1000; ms += 16 {
		drv.Push(make([]int16, 64))
		out := advanceFrame(clock, ctl, 16)
		if out.Pulse > 0 {
			transientCount++
			transientStrength = out.Pulse
		}
	}

	impulse := []int16{30000}
	drv.Push(impulse)
	out := advanceFrame(clock, ctl, 16)
	if out.Pulse > 0 {
		transientCount++
		transientStrength = out.Pulse
	}

	recoveredWithin500ms := false
	for ms := 0; ms < 1000; ms += 16 {
		drv.Push(make([]int16, 64))
		out = advanceFrame(clock, ctl, 16)
		if out.Pulse > 0 {
			transientCount++
			transientStrength = out.Pulse
		}
		if ms <= 500 && mic.Level() <= 0.02 {
			recoveredWithin500ms = true
		}
	}

	assert.Equal(t, 1, transientCount)
	assert.GreaterOrEqual(t, transientStrength, float32(0.5))
	assert.True(t, recoveredWithin500ms, "level must return to <= 0.02 within 500ms of the impulse")
}

// S2 - 120 BPM click track. Impulses are injected every 500ms (quantized to
// the nearest frame boundary, since frames advance in fixed 16ms steps and
// 500 is not a multiple of 16); after the tracker locks on, the PLL must
// keep beat phase crossing 0 exactly once between adjacent impulses.
func TestScenarioClickTrack120BPM(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := audio.NewMic(clock, audio.DefaultParams())
	mic.Attach(drv)
	ctl := audio.NewController(mic, clock, audio.DefaultControllerParams())

	impulse := []int16{20000}
	quiet := make([]int16, 64)

	var lastOut audio.Control
	var outAt4s audio.Control
	var bpmAt4s float32
	have4sSample := false

	totalMs := uint32(0)
	nextImpulseMs := uint32(0)
	crossingsSinceImpulse := 0
	sawFirstImpulse := false
	lockedCrossingChecks := 0
	var lastPhase float32 = -1

	for totalMs < 10000 {
		samples := quiet
		if totalMs >= nextImpulseMs {
			if sawFirstImpulse && ctl.Active() {
				assert.Equal(t, 1, crossingsSinceImpulse,
					"phase must cross 0 exactly once between adjacent impulses (impulse at %dms)", totalMs)
				lockedCrossingChecks++
			}
			sawFirstImpulse = true
			samples = impulse
			crossingsSinceImpulse = 0
			nextImpulseMs += 500
		}
		drv.Push(samples)
		clock.Advance(16)
		lastOut = ctl.Update(frameDt)
		totalMs += 16

		if lastPhase >= 0 && lastOut.Phase < lastPhase {
			crossingsSinceImpulse++
		}
		lastPhase = lastOut.Phase

		if !have4sSample && totalMs >= 4000 {
			outAt4s = lastOut
			bpmAt4s = ctl.BPM()
			have4sSample = true
		}
	}

	require.True(t, have4sSample)
	assert.GreaterOrEqual(t, outAt4s.RhythmStrength, float32(0.5))
	assert.InDelta(t, 120, bpmAt4s, 5)
	assert.Greater(t, lockedCrossingChecks, 0, "tempo tracker never reported itself locked (Active) during the click track")

	assert.GreaterOrEqual(t, lastOut.Phase, float32(0))
	assert.Less(t, lastOut.Phase, float32(1))
}

func TestPipelineRendersFullFrame(t *testing.T) {
	cfg := render.DeviceConfig{Width: 4, Height: 15, Orientation: render.Vertical, Layout: render.MatrixLayout}
	mapper := render.NewMapper(cfg)
	strip := hal.NewMockStrip(cfg.NumLeds())
	renderer := render.NewRenderer(mapper, strip)
	require.NoError(t, renderer.Begin())

	p, err := New(cfg, mapper, renderer, 30)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Render(audio.Control{Energy: 0.3}, frameDt))
	}
	assert.Equal(t, 5, strip.FrameCount())
	assert.False(t, p.Halted())
}

func TestPipelineSafetyMonitorHalts(t *testing.T) {
	cfg := render.DeviceConfig{Width: 2, Height: 2, Layout: render.MatrixLayout}
	mapper := render.NewMapper(cfg)
	strip := hal.NewMockStrip(cfg.NumLeds())
	renderer := render.NewRenderer(mapper, strip)
	require.NoError(t, renderer.Begin())

	p, err := New(cfg, mapper, renderer, 3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		p.Matrix().Fill(pixel.RGB{R: 255, G: 255, B: 255})
		p.safety.Observe(p.Matrix())
	}
	assert.True(t, p.Halted())
	assert.Error(t, p.Render(audio.Control{}, frameDt))
}

func TestPipelineGeneratorSwitchResetsState(t *testing.T) {
	cfg := render.DeviceConfig{Width: 4, Height: 10, Layout: render.MatrixLayout}
	mapper := render.NewMapper(cfg)
	strip := hal.NewMockStrip(cfg.NumLeds())
	renderer := render.NewRenderer(mapper, strip)
	require.NoError(t, renderer.Begin())

	p, err := New(cfg, mapper, renderer, 1000)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, p.Render(audio.Control{Energy: 1, Pulse: 1, RhythmStrength: 1}, frameDt))
	}
	water := p.generators[generator.KindWater].(*generator.Water)
	require.NotNil(t, water.DebugSpawn(particle.Particle{Intensity: 200, Lifespan: 10}))
	p.SetGenerator(generator.KindWater)
	assert.Equal(t, generator.KindWater, p.ActiveGenerator())
	assert.Equal(t, 0, water.Pool().ActiveCount())
}
