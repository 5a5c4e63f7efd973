// clock.go - real-time SystemTime implementation

package hal

import "time"

// RealClock wraps the host's monotonic clock. DisableInterrupts and
// EnableInterrupts have no hardware ISR to gate on a desktop target, so
// they are no-ops here; the sample accumulator's critical section is a
// mutex owned by the caller instead - see internal/audio for the actual lock.
type RealClock struct {
	start time.Time
}

// NewRealClock returns a clock whose epoch is the moment of construction.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

func (c *RealClock) Micros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

func (c *RealClock) DelayMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (c *RealClock) DelayUs(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (c *RealClock) DisableInterrupts() {}
func (c *RealClock) EnableInterrupts()  {}
