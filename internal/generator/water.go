// water.go - flowing-water generator sharing Fire's particle substrate

package generator

import (
	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/noise"
	"github.com/jdubz/pulsegrid/internal/particle"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

const waterPoolCapacity = 30

// WaterParams holds Water's tunables. NewWater stores them as given; no
// field is range-clamped.
type WaterParams struct {
	DropChanceBase   float32
	DropAudioBoost   float32
	WaveDrops        int
	DropVyMin        float32
	DropVyMax        float32
	DropVxSpread     float32
	DropLifespan     uint16
	SplashParticles  int
	SplashIntensity  uint8
	OrganicThreshold float32
}

// DefaultWaterParams returns the reference tuning.
func DefaultWaterParams() WaterParams {
	return WaterParams{
		DropChanceBase:   0.25,
		DropAudioBoost:   0.4,
		WaveDrops:        6,
		DropVyMin:        1.2,
		DropVyMax:        2.4,
		DropVxSpread:     0.3,
		DropLifespan:     40,
		SplashParticles:  6,
		SplashIntensity:  140,
		OrganicThreshold: 0.15,
	}
}

// Water is the §4.5 generator: differs from Fire in backdrop, spawn edge,
// splash particle fate, and palette; all other substrate behavior (shared
// pool, forces, aging) is identical.
type Water struct {
	cfg    render.DeviceConfig
	params WaterParams
	pool   *particle.Pool
	forces particle.Forces
	rng    *rngSource

	noiseTime float32
}

func NewWater(params WaterParams) *Water {
	return &Water{
		params: params,
		pool:   particle.NewPool(waterPoolCapacity),
		forces: particle.Forces{GravityY: 3.2, WindBase: 0, WindVar: 0.2, Drag: 0.99},
		rng:    newRngSource(0x4A7E),
	}
}

func (w *Water) Kind() Kind   { return KindWater }
func (w *Water) Name() string { return "Water" }

func (w *Water) Begin(cfg render.DeviceConfig) error {
	cfg.Clamp()
	w.cfg = cfg
	w.Reset()
	return nil
}

func (w *Water) Reset() {
	w.pool.Reset()
	w.noiseTime = 0
}

// Pool exposes the particle pool for test assertions.
func (w *Water) Pool() *particle.Pool { return w.pool }

// DebugSpawn injects a specific particle directly, bypassing the normal
// spawn-chance roll; used by scenario tests that need a deterministic seed
// particle (e.g. a single falling splash drop).
func (w *Water) DebugSpawn(p particle.Particle) *particle.Particle {
	return w.pool.Spawn(p)
}

func (w *Water) Generate(m *pixel.Matrix, ctl audio.Control, dt float32) {
	musicMode := ctl.RhythmStrength > w.params.OrganicThreshold
	if musicMode {
		w.noiseTime += 0.03 + 0.02*ctl.Energy
	} else {
		w.noiseTime += 0.012 + 0.004*ctl.Energy
	}

	w.renderBackdrop(m)
	w.spawn(ctl, musicMode)
	w.integrateAndComposite(m, dt)
}

func (w *Water) renderBackdrop(m *pixel.Matrix) {
	deepBlue := pixel.RGB{B: 120}
	turquoise := pixel.RGB{G: 140, B: 160}
	cyan := pixel.RGB{G: 200, B: 220}

	for y := 0; y < w.cfg.Height; y++ {
		for x := 0; x < w.cfg.Width; x++ {
			n := noise.Scalar01(float32(x)*0.18, float32(y)*0.18, w.noiseTime)
			colorN := noise.Scalar01(float32(x)*0.12+50, float32(y)*0.12+50, w.noiseTime*0.7)

			var base pixel.RGB
			switch {
			case colorN < 0.33:
				base = deepBlue
			case colorN < 0.66:
				base = turquoise
			default:
				base = cyan
			}
			m.Set(x, y, blendRGB(pixel.RGB{}, base, 0.4+0.6*n))
		}
	}
}

func (w *Water) spawn(ctl audio.Control, musicMode bool) {
	width := w.cfg.Width
	if musicMode {
		p := phaseToPulse(ctl.Phase)
		if ctl.Pulse > 0.6 {
			centerX := width / 2
			for i := 0; i < w.params.WaveDrops; i++ {
				spread := i - w.params.WaveDrops/2
				w.spawnDrop(centerX + spread)
			}
		}
		chance := w.params.DropChanceBase*(0.4+0.6*p) + w.params.DropAudioBoost*ctl.Pulse
		if w.rng.float32() < chance {
			w.spawnDrop(w.rng.intn(width))
		}
	} else {
		chance := w.params.DropChanceBase * 0.5 * ctl.Energy
		if w.rng.float32() < chance {
			w.spawnDrop(w.rng.intn(width))
		}
	}
}

func (w *Water) spawnDrop(x int) {
	w.pool.Spawn(particle.Particle{
		X:         float32(x),
		Y:         0,
		VX:        (w.rng.float32()*2 - 1) * w.params.DropVxSpread,
		VY:        lerp(w.params.DropVyMin, w.params.DropVyMax, w.rng.float32()),
		Intensity: 200,
		Lifespan:  w.params.DropLifespan,
		Flags:     particle.Gravity | particle.Splash,
	})
}

func dropPalette(intensity uint8) pixel.RGB {
	return pixel.RGB{
		R: intensity,
		G: uint8(uint16(intensity) * 3 / 4),
		B: minU8(255, intensity+40),
	}
}

func minU8(a int, b uint8) uint8 {
	if a < int(b) {
		return uint8(a)
	}
	return b
}

func (w *Water) integrateAndComposite(m *pixel.Matrix, dt float32) {
	bottom := float32(w.cfg.Height - 1)
	w.pool.Each(func(_ int, p *particle.Particle) {
		windN := noise.Simplex3D(p.X*0.1, w.noiseTime, 0)
		w.forces.Integrate(p, dt, windN)

		if p.Flags.Has(particle.Splash) && p.Y >= bottom {
			w.spawnSplash(p)
			p.Kill()
			return
		}
		if p.X < 0 || p.X >= float32(w.cfg.Width) || p.Y < 0 || p.Y >= float32(w.cfg.Height) {
			p.Kill()
			return
		}
		m.Blend(int(p.X), int(p.Y), dropPalette(p.Intensity), pixel.MaxBlend)
	})
}

func (w *Water) spawnSplash(impact *particle.Particle) {
	for i := 0; i < w.params.SplashParticles; i++ {
		angle := 2 * float32(pi) * float32(i) / float32(w.params.SplashParticles)
		vx := cosApprox(angle) * 1.2
		vy := -0.6 + -cosApprox(angle)*0.3 // small upward bias
		w.pool.Spawn(particle.Particle{
			X:         impact.X,
			Y:         impact.Y,
			VX:        vx,
			VY:        vy,
			Intensity: w.params.SplashIntensity,
			Lifespan:  12,
			Flags:     particle.Gravity | particle.Fade,
		})
	}
}
