// hal.go - capability interfaces the core pipeline depends on but does not own

package hal

import "fmt"

// Error carries operation context for hal-layer failures, mirroring the
// {Operation, Details, Err} shape used across the rest of this codebase.
type Error struct {
	Operation string
	Details   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hal %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("hal %s failed: %s", e.Operation, e.Details)
}

func (e *Error) Unwrap() error { return e.Err }

// SystemTime is the monotonic clock the core reads. Millis wraps at 2^32;
// callers must compare timestamps with signed-difference arithmetic, never
// direct less-than, to survive the wrap.
type SystemTime interface {
	Millis() uint32
	Micros() uint64
	DelayMs(ms uint32)
	DelayUs(us uint32)
	DisableInterrupts()
	EnableInterrupts()
}

// ElapsedMs returns now-then as a signed difference, correct across a
// uint32 millis() wraparound.
func ElapsedMs(now, then uint32) int32 {
	return int32(now - then)
}

// PdmMic is the asynchronous sample source. OnReceive's callback may run on
// a different goroutine than the rest of the core; implementations must not
// allocate inside it.
type PdmMic interface {
	Begin(channels int, sampleRate int) error
	End()
	SetGain(gain int)
	OnReceive(cb func(samples []int16))
	Available() int
	Read(buf []int16) int
}

// LedStrip is the physical (or simulated) output sink. Writes made between
// Present calls are buffered; Present is the only operation that latches
// them to the physical strip.
type LedStrip interface {
	Begin() error
	SetPixel(index int, r, g, b byte)
	SetPixelPacked(index int, rgb uint32)
	Clear()
	SetBrightness(b byte)
	NumPixels() int
	Present() error
}
