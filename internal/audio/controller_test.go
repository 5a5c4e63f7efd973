package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdubz/pulsegrid/internal/hal"
)

func pushImpulse(drv *hal.MockPdmMic, amplitude int16) {
	samples := make([]int16, 64)
	samples[0] = amplitude
	drv.Push(samples)
}

func pushSilence(drv *hal.MockPdmMic) {
	drv.Push(make([]int16, 64))
}

func TestControllerPhaseAlwaysInRange(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)
	ctl := NewController(mic, clock, DefaultControllerParams())

	for i := 0; i < 2000; i++ {
		if i%30 == 0 {
			pushImpulse(drv, 20000)
		} else {
			pushSilence(drv)
		}
		clock.Advance(16)
		out := ctl.Update(0.016)
		assert.GreaterOrEqual(t, out.Phase, float32(0))
		assert.Less(t, out.Phase, float32(1))
		assert.GreaterOrEqual(t, out.Energy, float32(0))
		assert.LessOrEqual(t, out.Energy, float32(1))
		assert.GreaterOrEqual(t, out.Pulse, float32(0))
		assert.LessOrEqual(t, out.Pulse, float32(1))
		assert.GreaterOrEqual(t, out.RhythmStrength, float32(0))
		assert.LessOrEqual(t, out.RhythmStrength, float32(1))
	}
}

func TestControllerBeatNumberAdvancesOnLargeDt(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)
	ctl := NewController(mic, clock, DefaultControllerParams())

	before := ctl.BeatNumber()
	pushSilence(drv)
	clock.Advance(1000)
	ctl.Update(1.0)
	assert.GreaterOrEqual(t, ctl.BeatNumber(), before+1)
}

func TestControllerResetIsIdempotent(t *testing.T) {
	clock := hal.NewMockClock()
	drv := hal.NewMockPdmMic()
	mic := NewMic(clock, DefaultParams())
	mic.Attach(drv)
	ctl := NewController(mic, clock, DefaultControllerParams())

	for i := 0; i < 100; i++ {
		pushImpulse(drv, 15000)
		clock.Advance(16)
		ctl.Update(0.016)
	}
	ctl.Reset()
	first := ctl.BPM()
	ctl.Reset()
	second := ctl.BPM()
	assert.Equal(t, first, second)
}
