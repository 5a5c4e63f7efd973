// headless.go - default capture backend: a quiet PdmMic requiring no hardware

package capture

import (
	"sync"

	"github.com/jdubz/pulsegrid/internal/hal"
)

// Headless satisfies hal.PdmMic without touching any audio hardware. It is
// the default backend when the binary is built without the "portaudio"
// tag; Push lets a host feed it samples from any source (file playback,
// a network socket, a test) without committing to a system audio API.
type Headless struct {
	mu   sync.Mutex
	cb   func([]int16)
	gain int
}

// NewHeadless constructs a driver with no callback installed yet.
func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Begin(channels int, sampleRate int) error { return nil }
func (h *Headless) End()                                     {}

func (h *Headless) SetGain(gain int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gain = gain
}

func (h *Headless) Gain() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gain
}

func (h *Headless) OnReceive(cb func([]int16)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cb = cb
}

func (h *Headless) Available() int  { return 0 }
func (h *Headless) Read([]int16) int { return 0 }

// Push feeds samples into the installed callback, if any.
func (h *Headless) Push(samples []int16) {
	h.mu.Lock()
	cb := h.cb
	h.mu.Unlock()
	if cb != nil {
		cb(samples)
	}
}

var _ hal.PdmMic = (*Headless)(nil)
