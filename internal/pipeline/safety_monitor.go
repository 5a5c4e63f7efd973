// safety_monitor.go - the one fatal condition: sustained full-white output

package pipeline

import "github.com/jdubz/pulsegrid/internal/pixel"

const fullWhiteFractionThreshold = 0.5

// SafetyMonitor tracks consecutive frames where more than half the pixels
// are pure white and halts emission once a configurable limit is reached.
// This exists solely to protect physical hardware from sustained
// full-brightness draw; it is the only condition in the system that is
// allowed to stop rendering outright.
type SafetyMonitor struct {
	limit      int
	consecutive int
	halted     bool
}

// NewSafetyMonitor constructs a monitor that halts after consecutiveLimit
// consecutive violating frames.
func NewSafetyMonitor(consecutiveLimit int) *SafetyMonitor {
	if consecutiveLimit < 1 {
		consecutiveLimit = 1
	}
	return &SafetyMonitor{limit: consecutiveLimit}
}

// Observe inspects one rendered frame and updates the halted state.
func (s *SafetyMonitor) Observe(m *pixel.Matrix) {
	if s.halted {
		return
	}
	if m.FullWhiteFraction() > fullWhiteFractionThreshold {
		s.consecutive++
		if s.consecutive >= s.limit {
			s.halted = true
		}
	} else {
		s.consecutive = 0
	}
}

// Halted reports whether the pipeline must refuse to emit further frames.
func (s *SafetyMonitor) Halted() bool { return s.halted }

// Reset clears the violation streak and un-halts the monitor.
func (s *SafetyMonitor) Reset() {
	s.consecutive = 0
	s.halted = false
}
