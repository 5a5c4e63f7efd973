// lightning.go - bolt/branch lightning generator over the shared particle substrate

package generator

import (
	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/noise"
	"github.com/jdubz/pulsegrid/internal/particle"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

const (
	lightningPoolCapacity = 32
	maxBoltSamples         = 12
)

// LightningParams holds Lightning's tunables. NewLightning stores them as
// given; no field is range-clamped.
type LightningParams struct {
	FadeRate          uint8
	AudioFadeBias     int8
	BoltChanceBase    float32
	BoltAudioBoost    float32
	BranchChancePct   int
	BranchMinAge      uint16
	BranchMaxAge      uint16
	BranchParticleMin int
	BranchParticleMax int
	OrganicThreshold  float32
}

func DefaultLightningParams() LightningParams {
	return LightningParams{
		FadeRate:          20,
		AudioFadeBias:     -8,
		BoltChanceBase:    0.15,
		BoltAudioBoost:    0.5,
		BranchChancePct:   30,
		BranchMinAge:      2,
		BranchMaxAge:      8,
		BranchParticleMin: 3,
		BranchParticleMax: 5,
		OrganicThreshold:  0.15,
	}
}

// Lightning is the §4.6 generator: a bolt is a Bresenham-sampled line of
// stationary particles sharing one intensity, with a fade-only lifecycle
// and probabilistic branching.
type Lightning struct {
	cfg    render.DeviceConfig
	params LightningParams
	pool   *particle.Pool
	rng    *rngSource

	noiseTime float32
}

func NewLightning(params LightningParams) *Lightning {
	return &Lightning{
		params: params,
		pool:   particle.NewPool(lightningPoolCapacity),
		rng:    newRngSource(0xB017),
	}
}

func (l *Lightning) Kind() Kind   { return KindLightning }
func (l *Lightning) Name() string { return "Lightning" }

func (l *Lightning) Begin(cfg render.DeviceConfig) error {
	cfg.Clamp()
	l.cfg = cfg
	l.Reset()
	return nil
}

func (l *Lightning) Reset() {
	l.pool.Reset()
	l.noiseTime = 0
}

// Pool exposes the particle pool for test assertions.
func (l *Lightning) Pool() *particle.Pool { return l.pool }

func (l *Lightning) Generate(m *pixel.Matrix, ctl audio.Control, dt float32) {
	l.noiseTime += 0.02 + 0.01*ctl.Energy

	l.renderBackdrop(m, ctl)
	l.maybeSpawnBolt(ctl)
	l.updateAndComposite(m)
}

func (l *Lightning) renderBackdrop(m *pixel.Matrix, ctl audio.Control) {
	tension := 1 - phaseToPulse(ctl.Phase) // dips between beats, rises on them (inverted)
	brightness := 0.5 + 0.5*(1-tension)
	sunset := pixel.RGB{R: 200, G: 90, B: 30}
	purple := pixel.RGB{R: 60, G: 20, B: 90}
	deepBlue := pixel.RGB{B: 70}

	for y := 0; y < l.cfg.Height; y++ {
		frac := float32(y) / float32(maxInt(l.cfg.Height-1, 1))
		n := noise.Scalar01(float32(y)*0.2, l.noiseTime, 0)
		var base pixel.RGB
		switch {
		case frac > 0.66:
			base = sunset
		case frac > 0.33:
			base = purple
		default:
			base = deepBlue
		}
		for x := 0; x < l.cfg.Width; x++ {
			m.Set(x, y, blendRGB(pixel.RGB{}, base, brightness*(0.6+0.4*n)))
		}
	}
}

func (l *Lightning) maybeSpawnBolt(ctl audio.Control) {
	musicMode := ctl.RhythmStrength > l.params.OrganicThreshold
	var chance float32
	if musicMode {
		chance = l.params.BoltChanceBase*phaseToPulse(ctl.Phase) + l.params.BoltAudioBoost*ctl.Pulse
	} else {
		chance = l.params.BoltChanceBase * 0.5 * ctl.Energy
	}
	if l.rng.float32() >= chance {
		return
	}
	x0, y0 := l.rng.intn(l.cfg.Width), l.rng.intn(l.cfg.Height)
	x1, y1 := l.rng.intn(l.cfg.Width), l.rng.intn(l.cfg.Height)
	l.SpawnBolt(x0, y0, x1, y1, true)
}

// SpawnBolt draws a Bresenham-sampled line between two endpoints, spawning
// one stationary particle per sample with a shared intensity. allowBranch
// gates whether the bolt's samples carry the Branch flag, letting tests
// force a branchless bolt (scenario S5).
func (l *Lightning) SpawnBolt(x0, y0, x1, y1 int, allowBranch bool) {
	pts := bresenham(x0, y0, x1, y1)
	if len(pts) > maxBoltSamples {
		pts = pts[:maxBoltSamples]
	}
	intensity := uint8(100 + l.rng.intn(156))
	for _, pt := range pts {
		flags := particle.Fade
		if allowBranch {
			flags |= particle.Branch
		}
		l.pool.Spawn(particle.Particle{
			X:         float32(pt.x) + (l.rng.float32()*2-1)*0.3,
			Y:         float32(pt.y) + (l.rng.float32()*2-1)*0.3,
			Intensity: intensity,
			Lifespan:  255,
			Flags:     flags,
		})
	}
}

type point struct{ x, y int }

func bresenham(x0, y0, x1, y1 int) []point {
	var pts []point
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		pts = append(pts, point{x, y})
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return pts
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (l *Lightning) updateAndComposite(m *pixel.Matrix) {
	l.pool.Each(func(_ int, p *particle.Particle) {
		p.Age++
		if p.Age >= p.Lifespan || p.Intensity <= l.params.FadeRate {
			p.Kill()
			return
		}
		p.Intensity = saturatingSubU8(p.Intensity, l.params.FadeRate)

		if p.Flags.Has(particle.Branch) && p.Age >= l.params.BranchMinAge && p.Age <= l.params.BranchMaxAge {
			if l.rng.intn(100) < l.params.BranchChancePct {
				l.spawnBranch(p)
			}
		}

		m.Blend(int(p.X), int(p.Y), lightningPalette(p.Intensity), pixel.MaxBlend)
	})
}

func (l *Lightning) spawnBranch(from *particle.Particle) {
	n := l.params.BranchParticleMin + l.rng.intn(l.params.BranchParticleMax-l.params.BranchParticleMin+1)
	angle := l.rng.float32() * 2 * float32(pi)
	for i := 0; i < n; i++ {
		l.pool.Spawn(particle.Particle{
			X:         from.X + cosApprox(angle)*float32(i),
			Y:         from.Y + cosApprox(angle+float32(pi)/2)*float32(i),
			Intensity: saturatingSubU8(from.Intensity, 40),
			Lifespan:  255,
			Flags:     particle.Fade, // branch particles never themselves carry Branch
		})
	}
}

func lightningPalette(intensity uint8) pixel.RGB {
	// yellow/white/electric-blue palette, brighter at higher intensity
	switch {
	case intensity > 200:
		return pixel.RGB{R: 255, G: 255, B: 255}
	case intensity > 140:
		return pixel.RGB{R: 255, G: 255, B: 120}
	default:
		return pixel.RGB{R: 160, G: 180, B: 255}
	}
}
