// controller.go - unified rhythm extraction: autocorrelation tempo tracker + PLL beat phase

package audio

import "github.com/jdubz/pulsegrid/internal/hal"

const (
	bpmMin = 60.0
	bpmMax = 200.0

	autocorrelationPeriodMs = 500
	minHistorySeconds       = 2.0
	assumedFps              = 60.0

	periodicityActiveThreshold = 0.3
	bpmBlendFactor             = 0.2

	pllKp = 0.1
	pllKi = 0.01

	phaseSnapThreshold  = 0.3
	phaseSnapConfidence = 0.4

	confidenceIncrement = 0.1
	confidenceDecrement = 0.05
	confidenceDecayRate = 0.995
	confidenceDecayIdleMs = 2000

	activationThreshold = 0.6
	minBeatsToActivate   = 4
	maxMissedBeats       = 8

	energyBoostOnBeat      = 0.3
	pulseBoostOnBeat       = 1.6
	pulseSuppressOffBeat   = 0.4
)

// ControllerParams are the tunable PI/activation coefficients; per spec.md
// §9 these are defaults, not load-bearing for correctness.
type ControllerParams struct {
	Kp, Ki               float32
	ActivationThreshold  float32
	MinBeatsToActivate   int
	MaxMissedBeats       int
}

func DefaultControllerParams() ControllerParams {
	return ControllerParams{
		Kp:                  pllKp,
		Ki:                  pllKi,
		ActivationThreshold: activationThreshold,
		MinBeatsToActivate:  minBeatsToActivate,
		MaxMissedBeats:      maxMissedBeats,
	}
}

// Controller fuses Mic's level/transient stream into the fused Control
// vector and drives a phase-locked beat oscillator.
type Controller struct {
	mic    *Mic
	clock  hal.SystemTime
	params ControllerParams

	oss ossRing

	bpm           float32
	beatPeriodMs  float32
	phase         float32
	beatNumber    uint64

	periodicityStrength float32
	errorIntegral       float32
	confidence          float32

	lastAutocorrMs    uint32
	haveLastAutocorr  bool
	lastTransientMs   uint32
	haveLastTransient bool

	stableBeats int
	missedBeats int
	active      bool
}

// NewController constructs a controller bound to a mic and clock.
func NewController(mic *Mic, clock hal.SystemTime, params ControllerParams) *Controller {
	return &Controller{
		mic:          mic,
		clock:        clock,
		params:       params,
		bpm:          120,
		beatPeriodMs: 500,
	}
}

// BeatNumber returns the monotonic count of beat-phase wraps observed.
func (c *Controller) BeatNumber() uint64 { return c.beatNumber }

// Confidence returns the smoothed PLL lock confidence in [0,1].
func (c *Controller) Confidence() float32 { return c.confidence }

// Active reports whether enough consecutive stable beats have been seen to
// trust the beat lock for beat-synchronized generator behavior.
func (c *Controller) Active() bool { return c.active }

// BPM returns the current tempo estimate.
func (c *Controller) BPM() float32 { return c.bpm }

// Reset clears all tracked state back to defaults.
func (c *Controller) Reset() {
	c.oss.reset()
	c.bpm = 120
	c.beatPeriodMs = 500
	c.phase = 0
	c.beatNumber = 0
	c.periodicityStrength = 0
	c.errorIntegral = 0
	c.confidence = 0
	c.haveLastAutocorr = false
	c.haveLastTransient = false
	c.stableBeats = 0
	c.missedBeats = 0
	c.active = false
}

// Update runs one frame of rhythm extraction and returns the fused Control.
func (c *Controller) Update(dt float32) Control {
	level, transient := c.mic.Update(dt)
	onset := transient
	c.oss.push(onset)

	nowMs := uint32(0)
	if c.clock != nil {
		nowMs = c.clock.Millis()
	}

	enoughHistory := float32(c.oss.count)/assumedFps >= minHistorySeconds
	if enoughHistory && (!c.haveLastAutocorr || hal.ElapsedMs(nowMs, c.lastAutocorrMs) >= autocorrelationPeriodMs) {
		c.lastAutocorrMs = nowMs
		c.haveLastAutocorr = true
		c.runAutocorrelation()
	}

	beatsCrossed := c.advancePhase(dt)
	for i := uint64(0); i < beatsCrossed; i++ {
		c.beatNumber++
	}

	if transient > 0 {
		c.handleTransient(nowMs)
	} else if c.haveLastTransient && hal.ElapsedMs(nowMs, c.lastTransientMs) > confidenceDecayIdleMs {
		c.confidence *= confidenceDecayRate
	}

	return c.buildControl(level, transient)
}

func (c *Controller) runAutocorrelation() {
	minLag := int(60.0 / bpmMax * assumedFps)
	maxLag := int(60.0 / bpmMin * assumedFps)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= ossBufferSize {
		maxLag = ossBufferSize - 1
	}
	if maxLag <= minLag {
		return
	}

	var signalEnergy float32
	for i := 0; i < c.oss.count; i++ {
		v := c.oss.sample(i)
		signalEnergy += v * v
	}
	signalEnergy /= float32(c.oss.count)
	if signalEnergy <= 1e-9 {
		c.periodicityStrength *= 0.9
		return
	}

	bestLag := minLag
	var bestR float32 = -1
	for lag := minLag; lag <= maxLag; lag++ {
		var r float32
		n := 0
		for i := lag; i < c.oss.count; i++ {
			r += c.oss.sample(i) * c.oss.sample(i-lag)
			n++
		}
		if n > 0 {
			r /= float32(n)
		}
		if r > bestR {
			bestR = r
			bestLag = lag
		}
	}

	strength := clamp01(bestR * 2 / signalEnergy)
	c.periodicityStrength = strength

	if strength > periodicityActiveThreshold {
		newBpm := 60.0 * assumedFps / float32(bestLag)
		c.bpm = c.bpm + bpmBlendFactor*(newBpm-c.bpm)
		c.bpm = clampF(c.bpm, bpmMin, bpmMax)
		c.beatPeriodMs = 60000.0 / c.bpm
	}
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// advancePhase integrates phase and returns how many beats were crossed
// this frame; a large dt can skip multiple beats, which are all counted.
func (c *Controller) advancePhase(dt float32) uint64 {
	inc := (dt * 1000) / c.beatPeriodMs
	c.phase += inc
	var crossed uint64
	for c.phase >= 1.0 {
		c.phase -= 1.0
		crossed++
	}
	return crossed
}

func (c *Controller) handleTransient(nowMs uint32) {
	c.lastTransientMs = nowMs
	c.haveLastTransient = true

	e := c.phase
	if e >= 0.5 {
		e -= 1.0
	}

	if c.periodicityStrength > periodicityActiveThreshold {
		absE := e
		if absE < 0 {
			absE = -absE
		}
		if absE > phaseSnapThreshold && c.confidence < phaseSnapConfidence {
			c.phase = 0
			c.missedBeats++
			c.stableBeats = 0
		} else {
			c.errorIntegral = clampF(c.errorIntegral+e, -5, 5)
			factor := 1 - 0.1*(c.params.Kp*e+c.params.Ki*c.errorIntegral)
			c.beatPeriodMs *= factor
			c.bpm = 60000.0 / c.beatPeriodMs
			c.bpm = clampF(c.bpm, bpmMin, bpmMax)
			c.beatPeriodMs = 60000.0 / c.bpm

			switch {
			case absE < 0.2:
				c.confidence += confidenceIncrement * c.periodicityStrength
				c.stableBeats++
				c.missedBeats = 0
			case absE > 0.4:
				c.confidence -= confidenceDecrement
				c.missedBeats++
				c.stableBeats = 0
			}
			c.confidence = clamp01(c.confidence)
		}
	} else {
		c.phase = 0
		c.missedBeats++
		c.stableBeats = 0
	}

	if c.stableBeats >= c.params.MinBeatsToActivate {
		c.active = true
	}
	if c.missedBeats >= c.params.MaxMissedBeats {
		c.active = false
		c.stableBeats = 0
	}
}

func (c *Controller) buildControl(level, transient float32) Control {
	phaseToPulse := c.phase
	if phaseToPulse > 0.5 {
		phaseToPulse = 1 - phaseToPulse
	}
	phaseToPulse = 1 - phaseToPulse*2 // 1 on-beat, 0 at phase 0.5

	energy := level
	if c.confidence > c.params.ActivationThreshold {
		energy += (0.5 - absF(c.phase-0.5)) * 2 * energyBoostOnBeat * c.confidence
	}
	energy = clamp01(energy)

	dist := absF(c.phase)
	if c.phase > 0.5 {
		dist = 1 - c.phase
	}
	var pulseMod float32
	switch {
	case dist < 0.2:
		pulseMod = pulseBoostOnBeat
	case dist > 0.3:
		pulseMod = pulseSuppressOffBeat
	default:
		t := (dist - 0.2) / 0.1
		pulseMod = pulseBoostOnBeat + t*(pulseSuppressOffBeat-pulseBoostOnBeat)
	}
	pulse := transient * (1 + (pulseMod-1)*c.confidence)
	pulse = clamp01(pulse)

	rhythm := 0.5*c.periodicityStrength + 0.5*c.confidence
	if rhythm < c.params.ActivationThreshold/2 {
		rhythm = 0
	}

	return Control{
		Energy:         energy,
		Pulse:          pulse,
		Phase:          c.phase,
		RhythmStrength: clamp01(rhythm),
		OnsetDensity:   onsetDensity(&c.oss),
		LoudMode:       level > 0.8,
	}
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func onsetDensity(r *ossRing) float32 {
	if r.count == 0 {
		return 0
	}
	var sum float32
	n := r.count
	if n > 64 {
		n = 64
	}
	for i := 0; i < n; i++ {
		if r.sample(i) > 0 {
			sum++
		}
	}
	return sum / float32(n) * assumedFps
}
