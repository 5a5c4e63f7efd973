package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdubz/pulsegrid/internal/hal"
)

func TestMicLivenessGoesFalseAfterDeadWindow(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)

	drv.Push(make([]int16, 64))
	mic.Update(0.016)
	assert.True(t, mic.IsAlive())

	clock.Advance(300)
	mic.Update(0.016)
	assert.False(t, mic.IsAlive())
}

func TestMicLevelStaysInRange(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)

	samples := make([]int16, 256)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 20000
		} else {
			samples[i] = -20000
		}
	}
	for i := 0; i < 50; i++ {
		drv.Push(samples)
		clock.Advance(16)
		level, transient := mic.Update(0.016)
		assert.GreaterOrEqual(t, level, float32(0))
		assert.LessOrEqual(t, level, float32(1))
		assert.GreaterOrEqual(t, transient, float32(0))
		assert.LessOrEqual(t, transient, float32(1))
	}
}

func TestMicTransientCooldown(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)

	quiet := make([]int16, 128)
	loud := make([]int16, 128)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 30000
		} else {
			loud[i] = -30000
		}
	}

	for i := 0; i < 60; i++ {
		drv.Push(quiet)
		clock.Advance(16)
		mic.Update(0.016)
	}

	var transientFrames []uint32
	for i := 0; i < 10; i++ {
		drv.Push(loud)
		clock.Advance(16)
		_, transient := mic.Update(0.016)
		if transient > 0 {
			transientFrames = append(transientFrames, clock.Millis())
		}
	}

	for i := 1; i < len(transientFrames); i++ {
		gap := transientFrames[i] - transientFrames[i-1]
		assert.GreaterOrEqual(t, gap, uint32(DefaultParams().CooldownMs))
	}
}

func TestMicFastAgcSwitchesTrackingTau(t *testing.T) {
	loud := make([]int16, 128)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 10000
		} else {
			loud[i] = -10000
		}
	}

	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	params := DefaultParams()
	params.FastAgcEnabled = true
	mic := NewMic(clock, params)
	mic.Attach(drv)

	// rawTrackedLevel starts at 0, below FastAgcThreshold: fast AGC must be
	// active from the very first frame.
	drv.Push(loud)
	mic.Update(0.1)
	assert.True(t, mic.InFastAgc())

	clockSlow := hal.NewMockClock()
	drvSlow := hal.NewMockPdmMic()
	paramsSlow := DefaultParams()
	paramsSlow.FastAgcEnabled = false
	micSlow := NewMic(clockSlow, paramsSlow)
	micSlow.Attach(drvSlow)
	drvSlow.Push(loud)
	micSlow.Update(0.1)
	assert.False(t, micSlow.InFastAgc())

	// With the fast (smaller) tau actually threaded into the rawTrackedLevel
	// one-pole filter, the fast-AGC mic must converge toward the input
	// faster than an otherwise-identical mic stuck on the slow 30s tau.
	for i := 0; i < 4; i++ {
		drv.Push(loud)
		clock.Advance(100)
		mic.Update(0.1)

		drvSlow.Push(loud)
		clockSlow.Advance(100)
		micSlow.Update(0.1)
	}
	assert.Greater(t, mic.RawLevel(), micSlow.RawLevel())
}

// TestMicFastAgcUsesShortCalibrationPeriod verifies a mic that stays below
// FastAgcThreshold steps its hardware gain on the 5s fast-AGC period rather
// than waiting out the normal 30s period.
func TestMicFastAgcUsesShortCalibrationPeriod(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	params := DefaultParams()
	params.FastAgcEnabled = true
	mic := NewMic(clock, params)
	mic.Attach(drv)

	silence := make([]int16, 128)
	for i := 0; i < 60; i++ {
		drv.Push(silence)
		clock.Advance(100)
		mic.Update(0.1)
	}

	assert.True(t, mic.InFastAgc())
	assert.Greater(t, mic.HwGain(), DefaultParams().GainMin)
}

func TestMicSilenceDecaysLevel(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)

	loud := make([]int16, 128)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 30000
		} else {
			loud[i] = -30000
		}
	}
	for i := 0; i < 30; i++ {
		drv.Push(loud)
		clock.Advance(16)
		mic.Update(0.016)
	}

	var last float32
	for i := 0; i < 60; i++ {
		drv.Push(make([]int16, 128))
		clock.Advance(16)
		last, _ = mic.Update(0.016)
	}
	assert.LessOrEqual(t, last, float32(0.1))
}
