// mic.go - adaptive microphone front-end: ISR-style accumulation, AGC, transient detection

package audio

import (
	"sync"

	"github.com/jdubz/pulsegrid/internal/hal"
)

const (
	minDtSeconds = 0.0001
	maxDtSeconds = 0.1000
	micDeadMs    = 250

	minRange = 0.01
	noiseGate = 0.05

	hwCalibPeriodMs   = 30000
	hwTrackingTau     = 30.0
	fastAgcPeriodMs   = 5000
	fastAgcTrackingTau = 5.0

	attackRingSize = 4
)

// Params are the tunable coefficients of the front-end; defaults match the
// original device firmware's AdaptiveMic tuning and are not load-bearing
// for correctness.
type Params struct {
	PeakTau             float32
	ReleaseTau          float32
	HwTarget            float32
	FastAgcEnabled      bool
	FastAgcThreshold    float32
	TransientThreshold  float32
	AttackMultiplier    float32
	AverageTau          float32
	CooldownMs          uint32
	GainMin, GainMax    int
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		PeakTau:            2.0,
		ReleaseTau:         5.0,
		HwTarget:           0.35,
		FastAgcEnabled:     true,
		FastAgcThreshold:   0.15,
		TransientThreshold: 2.813,
		AttackMultiplier:   1.1,
		AverageTau:         0.8,
		CooldownMs:         40,
		GainMin:            0,
		GainMax:            80,
	}
}

// Mic turns a stream of int16 PCM samples into a normalized level, one-shot
// transients, and a liveness flag. The sample-intake side (PushSamples) may
// be invoked from a different goroutine than Update; both sides coordinate
// through mu, the desktop stand-in for a disable-interrupts critical
// section.
type Mic struct {
	params Params
	clock  hal.SystemTime
	drv    hal.PdmMic

	mu          sync.Mutex
	sumAbs      uint64
	numSamples  uint32
	maxAbs      uint16
	zeroCross   uint32
	lastSample  int16
	lastRecvMs  uint32
	haveRecv    bool

	rawTrackedLevel float32
	peakLevel       float32
	valleyLevel     float32
	level           float32
	transient       float32

	lastHwCalibMs   uint32
	fastAgcSinceMs  uint32
	inFastAgc       bool

	attackRing    [attackRingSize]float32
	attackRingPos int
	recentAvg     float32
	prevLevel     float32
	lastTransMs   uint32
	haveLastTrans bool

	gain       int
	gainLocked bool

	isAlive bool
}

// NewMic constructs a front-end bound to a clock; Attach wires it to a
// concrete driver.
func NewMic(clock hal.SystemTime, params Params) *Mic {
	return &Mic{
		params:      params,
		clock:       clock,
		valleyLevel: noiseGate / 2,
		peakLevel:   noiseGate/2 + minRange,
		gain:        params.GainMin,
		isAlive:     false,
	}
}

// Attach installs the ISR-style callback on drv and remembers it for gain
// control. Safe to call once at startup.
func (m *Mic) Attach(drv hal.PdmMic) {
	m.drv = drv
	drv.OnReceive(m.PushSamples)
}

// PushSamples is the callback entry point: the only writer into the shared
// accumulator. No allocation is permitted here.
func (m *Mic) PushSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		abs := int32(s)
		if abs < 0 {
			abs = -abs
		}
		m.sumAbs += uint64(abs)
		if uint16(abs) > m.maxAbs {
			m.maxAbs = uint16(abs)
		}
		if m.haveRecv && sign(s) != sign(m.lastSample) {
			m.zeroCross++
		}
		m.lastSample = s
		m.haveRecv = true
	}
	m.numSamples += uint32(len(samples))
	if m.clock != nil {
		m.lastRecvMs = m.clock.Millis()
	}
}

func sign(v int16) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clampDt(dt float32) float32 {
	if dt < minDtSeconds {
		return minDtSeconds
	}
	if dt > maxDtSeconds {
		return maxDtSeconds
	}
	return dt
}

func onePole(current, target, tau, dt float32) float32 {
	if tau <= 0 {
		return target
	}
	alpha := 1 - expNeg(dt/tau)
	return current + alpha*(target-current)
}

// expNeg is a small-argument approximation of e^-x sufficient for the slow
// tracking taus used here (dt/tau is always << 1 at audio frame rates).
func expNeg(x float32) float32 {
	if x > 5 {
		return 0
	}
	// Fourth-order Taylor series; adequate accuracy for x in [0, ~0.1].
	return 1 - x + x*x/2 - x*x*x/6 + x*x*x*x/24
}

// Update runs the per-frame algorithm and returns the current level and
// transient. dt is elapsed seconds, clamped internally to [1e-4, 0.1].
func (m *Mic) Update(dt float32) (level float32, transient float32) {
	dt = clampDt(dt)

	m.mu.Lock()
	sumAbs := m.sumAbs
	numSamples := m.numSamples
	zeroCross := m.zeroCross
	m.sumAbs, m.numSamples, m.maxAbs, m.zeroCross = 0, 0, 0, 0
	lastRecvMs := m.lastRecvMs
	haveRecv := m.haveRecv
	m.mu.Unlock()

	nowMs := uint32(0)
	if m.clock != nil {
		nowMs = m.clock.Millis()
	}
	if haveRecv && hal.ElapsedMs(nowMs, lastRecvMs) > micDeadMs {
		m.isAlive = false
	} else if haveRecv {
		m.isAlive = true
	}

	var avgAbs float32
	if numSamples > 0 {
		avgAbs = float32(sumAbs) / float32(numSamples)
	}
	normalized := avgAbs / 32768.0
	_ = zeroCross // drained with the accumulator; not used or exposed

	m.rawTrackedLevel = onePole(m.rawTrackedLevel, normalized, m.trackingTau(), dt)

	if normalized > m.peakLevel*1.3 {
		m.peakLevel = normalized
	} else if normalized > m.peakLevel {
		m.peakLevel = onePole(m.peakLevel, normalized, m.params.PeakTau, dt)
	} else {
		m.peakLevel = onePole(m.peakLevel, normalized, m.params.ReleaseTau, dt)
	}

	if normalized < m.valleyLevel {
		m.valleyLevel = normalized
	} else {
		m.valleyLevel = onePole(m.valleyLevel, normalized, m.params.ReleaseTau, dt)
	}
	if m.valleyLevel < noiseGate/2 {
		m.valleyLevel = noiseGate / 2
	}
	if m.peakLevel < m.valleyLevel+minRange {
		m.peakLevel = m.valleyLevel + minRange
	}

	mapped := (normalized - m.valleyLevel) / (m.peakLevel - m.valleyLevel)
	mapped = clamp01(mapped)
	if mapped < noiseGate {
		mapped = 0
	}
	m.level = mapped

	m.runHardwareAgc(nowMs)
	m.runTransientDetector(nowMs, dt)

	return m.level, m.transient
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// trackingTau decides, from the previous frame's rawTrackedLevel, whether
// fast AGC is active this frame and returns the one-pole tau Update should
// track rawTrackedLevel with; it also latches m.inFastAgc so runHardwareAgc
// can pick the matching calibration period without re-deriving the decision.
func (m *Mic) trackingTau() float32 {
	if m.params.FastAgcEnabled && m.rawTrackedLevel < m.params.FastAgcThreshold {
		m.inFastAgc = true
		return fastAgcTrackingTau
	}
	m.inFastAgc = false
	return hwTrackingTau
}

func (m *Mic) runHardwareAgc(nowMs uint32) {
	if m.drv == nil {
		return
	}
	period := uint32(hwCalibPeriodMs)
	if m.inFastAgc {
		period = uint32(fastAgcPeriodMs)
	}

	if hal.ElapsedMs(nowMs, m.lastHwCalibMs) < int32(period) {
		return
	}
	m.lastHwCalibMs = nowMs

	target := m.params.HwTarget
	err := m.rawTrackedLevel - target
	if err > -0.01 && err < 0.01 {
		return
	}
	if m.gainLocked {
		return
	}
	mag := err
	if mag < 0 {
		mag = -mag
	}
	step := 1
	switch {
	case mag > 0.2:
		step = 4
	case mag > 0.1:
		step = 2
	}
	if err > 0 {
		m.gain -= step
	} else {
		m.gain += step
	}
	if m.gain < m.params.GainMin {
		m.gain = m.params.GainMin
	}
	if m.gain > m.params.GainMax {
		m.gain = m.params.GainMax
	}
	m.drv.SetGain(m.gain)
}

// LockGain freezes hardware AGC at g, for deterministic tests.
func (m *Mic) LockGain(g int) {
	m.gain = g
	m.gainLocked = true
	if m.drv != nil {
		m.drv.SetGain(g)
	}
}

// UnlockGain resumes normal hardware AGC stepping.
func (m *Mic) UnlockGain() { m.gainLocked = false }

func (m *Mic) runTransientDetector(nowMs uint32, dt float32) {
	m.recentAvg = onePole(m.recentAvg, m.level, m.params.AverageTau, dt)

	m.attackRing[m.attackRingPos%attackRingSize] = m.level
	m.attackRingPos++

	threshold := m.recentAvg * m.params.TransientThreshold
	cooldownOk := !m.haveLastTrans || hal.ElapsedMs(nowMs, m.lastTransMs) >= int32(m.params.CooldownMs)

	fire := cooldownOk &&
		m.level >= threshold &&
		m.level >= m.prevLevel*m.params.AttackMultiplier &&
		threshold > 0

	if fire {
		m.transient = clamp01(m.level/threshold - 1)
		m.lastTransMs = nowMs
		m.haveLastTrans = true
	} else {
		m.transient = 0
	}
	m.prevLevel = m.level
}

// Level returns the last computed level without re-running Update.
func (m *Mic) Level() float32 { return m.level }

// Transient returns the last computed one-shot transient strength.
func (m *Mic) Transient() float32 { return m.transient }

// IsAlive reports whether the driver has delivered samples within the
// liveness window.
func (m *Mic) IsAlive() bool { return m.isAlive }

// PeakLevel, ValleyLevel, RawLevel, HwGain expose internal trackers for
// diagnostics and tests, mirroring the original firmware's getter surface.
func (m *Mic) PeakLevel() float32   { return m.peakLevel }
func (m *Mic) ValleyLevel() float32 { return m.valleyLevel }
func (m *Mic) RawLevel() float32    { return m.rawTrackedLevel }
func (m *Mic) HwGain() int          { return m.gain }
func (m *Mic) InFastAgc() bool      { return m.inFastAgc }
