// common.go - helpers shared by Fire, Water, and Lightling generators

package generator

import (
	"math"
	"math/rand"

	"github.com/jdubz/pulsegrid/internal/pixel"
)

const pi = math.Pi

func cosApprox(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

// No randomness library appears anywhere in the retrieved example pack;
// math/rand is the ordinary standard-library idiom for spawn-chance rolls
// and carries no domain concern a third-party dependency would better
// serve (see DESIGN.md).
type rngSource struct {
	r *rand.Rand
}

func newRngSource(seed int64) *rngSource {
	return &rngSource{r: rand.New(rand.NewSource(seed))}
}

func (s *rngSource) float32() float32 { return s.r.Float32() }
func (s *rngSource) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n)
}

func quantize8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

func saturatingSubU8(a, b uint8) uint8 {
	if int(a)-int(b) < 0 {
		return 0
	}
	return a - b
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

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// phaseToPulse folds a [0,1) beat phase into a triangular [0,1] proximity
// signal that peaks at phase 0 (on the beat) and bottoms out at phase 0.5.
func phaseToPulse(phase float32) float32 {
	d := phase
	if d > 0.5 {
		d = 1 - d
	}
	return 1 - d*2
}

func heightFalloff(y, height int) float32 {
	if height <= 1 {
		return 1
	}
	return 1 - 0.7*float32(y)/float32(height-1)
}

func blendRGB(a, b pixel.RGB, t float32) pixel.RGB {
	return pixel.RGB{
		R: uint8(lerp(float32(a.R), float32(b.R), t)),
		G: uint8(lerp(float32(a.G), float32(b.G), t)),
		B: uint8(lerp(float32(a.B), float32(b.B), t)),
	}
}
