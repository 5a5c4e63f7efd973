// portaudio.go - real microphone capture via PortAudio, the desktop stand-in
// for the nRF52 PDM peripheral's ISR.

//go:build portaudio

package capture

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/jdubz/pulsegrid/internal/hal"
)

// PortAudioMic streams int16 samples from the default input device on a
// dedicated read goroutine, forwarding each buffer to the installed
// callback exactly as an ISR would hand off a DMA buffer.
type PortAudioMic struct {
	mu     sync.Mutex
	cb     func([]int16)
	gain   int
	stream *portaudio.Stream
	buf    []int16
	stop   chan struct{}
}

// NewPortAudioMic constructs a driver; Begin opens the underlying stream.
func NewPortAudioMic() *PortAudioMic {
	return &PortAudioMic{stop: make(chan struct{})}
}

func (p *PortAudioMic) Begin(channels int, sampleRate int) error {
	if err := portaudio.Initialize(); err != nil {
		return &hal.Error{Operation: "begin", Details: "portaudio init", Err: err}
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return &hal.Error{Operation: "begin", Details: "enumerate devices", Err: err}
	}
	inputDev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return &hal.Error{Operation: "begin", Details: "default input device", Err: err}
	}
	_ = devices

	const framesPerBuffer = 256
	p.buf = make([]int16, framesPerBuffer*channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inputDev,
			Channels: channels,
			Latency:  inputDev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, p.buf)
	if err != nil {
		return &hal.Error{Operation: "begin", Details: "open stream", Err: err}
	}
	p.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		return &hal.Error{Operation: "begin", Details: "start stream", Err: err}
	}

	go p.readLoop()
	return nil
}

func (p *PortAudioMic) readLoop() {
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		if err := p.stream.Read(); err != nil {
			return
		}
		p.mu.Lock()
		cb := p.cb
		samples := make([]int16, len(p.buf))
		copy(samples, p.buf)
		p.mu.Unlock()
		if cb != nil {
			cb(samples)
		}
	}
}

func (p *PortAudioMic) End() {
	close(p.stop)
	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
	}
	portaudio.Terminate()
}

func (p *PortAudioMic) SetGain(gain int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = gain
	// PortAudio has no standard software-gain control surface; gain here
	// tracks the value the core believes it has set, for parity with the
	// hardware driver's SetGain contract. Real boards with a PGA would
	// forward this to the mixer here.
}

func (p *PortAudioMic) OnReceive(cb func([]int16)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = cb
}

func (p *PortAudioMic) Available() int   { return 0 }
func (p *PortAudioMic) Read([]int16) int { return 0 }

var _ hal.PdmMic = (*PortAudioMic)(nil)
