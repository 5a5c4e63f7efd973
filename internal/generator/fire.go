// fire.go - particle-pool fire generator with a diffused heat-buffer backdrop

package generator

import (
	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/noise"
	"github.com/jdubz/pulsegrid/internal/particle"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

const firePoolCapacity = 48

// FireParams holds Fire's tunables. NewFire stores them as given; no field
// is range-clamped.
type FireParams struct {
	BaseCooling       uint8
	AudioCoolingBias  int8
	SparkChanceBase   float32
	SparkAudioBoost   float32
	BurstSparks       int
	SparkVyMin        float32
	SparkVyMax        float32
	SparkVxSpread     float32
	SparkLifespan     uint16
	TrailHeatFactor   float32
	OrganicThreshold  float32
}

// DefaultFireParams returns the reference tuning.
func DefaultFireParams() FireParams {
	return FireParams{
		BaseCooling:      25,
		AudioCoolingBias: -15,
		SparkChanceBase:  0.35,
		SparkAudioBoost:  0.6,
		BurstSparks:      8,
		SparkVyMin:       -3.0,
		SparkVyMax:       -1.5,
		SparkVxSpread:    0.8,
		SparkLifespan:    20,
		TrailHeatFactor:  0.6,
		OrganicThreshold: 0.15,
	}
}

// Fire is the particle-pool-based fire generator from §4.4.
type Fire struct {
	cfg      render.DeviceConfig
	params   FireParams
	heat     []uint8
	heatNext []uint8
	pool     *particle.Pool
	forces   particle.Forces
	rng      *rngSource

	noiseTime    float32
	prevBeat     uint64
	haveBeat     bool
	organicPulse float32
}

// NewFire constructs a fire generator with the given tunables.
func NewFire(params FireParams) *Fire {
	return &Fire{
		params: params,
		pool:   particle.NewPool(firePoolCapacity),
		forces: particle.Forces{GravityY: 0, WindBase: 0, WindVar: 0.6, Drag: 0.96},
		rng:    newRngSource(0xF17E),
	}
}

func (f *Fire) Kind() Kind   { return KindFire }
func (f *Fire) Name() string { return "Fire" }

func (f *Fire) Begin(cfg render.DeviceConfig) error {
	cfg.Clamp()
	f.cfg = cfg
	f.heat = make([]uint8, cfg.Width*cfg.Height)
	f.heatNext = make([]uint8, cfg.Width*cfg.Height)
	f.Reset()
	return nil
}

func (f *Fire) Reset() {
	for i := range f.heat {
		f.heat[i] = 0
	}
	for i := range f.heatNext {
		f.heatNext[i] = 0
	}
	f.pool.Reset()
	f.noiseTime = 0
	f.haveBeat = false
	f.prevBeat = 0
}

func (f *Fire) idx(x, y int) int { return y*f.cfg.Width + x }

func (f *Fire) Generate(m *pixel.Matrix, ctl audio.Control, dt float32) {
	musicMode := ctl.RhythmStrength > f.params.OrganicThreshold

	if musicMode {
		f.noiseTime += 0.04 + 0.03*ctl.Energy
	} else {
		f.noiseTime += 0.015 + 0.005*ctl.Energy
	}

	f.renderBackdrop(m, ctl)
	f.cool(ctl)
	f.spawn(ctl, musicMode)
	f.integrate(dt)
	f.diffuse()
	f.composite(m)
}

func (f *Fire) renderBackdrop(m *pixel.Matrix, ctl audio.Control) {
	pulseFactor := 0.6 + 0.4*phaseToPulse(ctl.Phase)
	for y := 0; y < f.cfg.Height; y++ {
		falloff := heightFalloff(y, f.cfg.Height)
		for x := 0; x < f.cfg.Width; x++ {
			n1 := noise.Scalar01(float32(x)*0.15, float32(y)*0.15, f.noiseTime)
			n2 := noise.Scalar01(float32(x)*0.3, float32(y)*0.3, f.noiseTime*1.3)
			v := (n1*0.7 + n2*0.3) * falloff * pulseFactor
			v = clamp01(v)

			var c pixel.RGB
			frac := float32(y) / float32(maxInt(f.cfg.Height-1, 1))
			switch {
			case frac >= 0.6:
				c = pixel.RGB{R: quantize8(v), G: quantize8(v * 0.45), B: 0}
			default:
				c = pixel.RGB{R: quantize8(v), G: 0, B: 0}
			}
			m.Set(x, y, c)
		}
	}
}

func (f *Fire) cool(ctl audio.Control) {
	base := int(f.params.BaseCooling)
	if ctl.RhythmStrength > f.params.OrganicThreshold {
		mod := int(15 * -cosApprox(ctl.Phase*2*pi))
		base += mod
	}
	if base < 1 {
		base = 1
	}
	for i := range f.heat {
		decay := uint8(f.rng.intn(base) + base/2)
		f.heat[i] = saturatingSubU8(f.heat[i], decay)
	}
}

func (f *Fire) spawn(ctl audio.Control, musicMode bool) {
	w := f.cfg.Width
	bottom := f.cfg.Height - 1
	if bottom < 0 {
		return
	}

	if musicMode {
		p := phaseToPulse(ctl.Phase)
		chance := f.params.SparkChanceBase*(0.5+0.5*p) + f.params.SparkAudioBoost*ctl.Pulse*p
		if f.rng.float32() < chance {
			f.spawnSpark(w/2, bottom)
		}
		if ctl.Pulse > 0.7 {
			for i := 0; i < f.params.BurstSparks; i++ {
				f.spawnSpark(f.rng.intn(w), bottom)
			}
		}
	} else {
		chance := f.params.SparkChanceBase * (0.1 + 0.4*ctl.Energy)
		if f.rng.float32() < chance {
			f.spawnSpark(f.rng.intn(w), bottom)
		}
		if ctl.Pulse > f.params.OrganicThreshold {
			for i := 0; i < f.params.BurstSparks/2; i++ {
				f.spawnSpark(f.rng.intn(w), bottom)
			}
		}
	}
}

func (f *Fire) spawnSpark(x, y int) {
	f.pool.Spawn(particle.Particle{
		X:         float32(x),
		Y:         float32(y),
		VX:        (f.rng.float32()*2 - 1) * f.params.SparkVxSpread,
		VY:        lerp(f.params.SparkVyMin, f.params.SparkVyMax, f.rng.float32()),
		Intensity: 200,
		Lifespan:  f.params.SparkLifespan,
		Flags:     particle.Wind | particle.EmitTrail | particle.Fade,
	})
}

func (f *Fire) integrate(dt float32) {
	f.pool.Each(func(_ int, p *particle.Particle) {
		windN := noise.Simplex3D(p.X*0.2, p.Y*0.2, f.noiseTime)
		f.forces.Integrate(p, dt, windN)
		if p.X < 0 || p.X >= float32(f.cfg.Width) || p.Y < 0 {
			p.Kill()
			return
		}
		if p.Flags.Has(particle.EmitTrail) {
			xi, yi := int(p.X), int(p.Y)
			if xi >= 0 && xi < f.cfg.Width && yi >= 0 && yi < f.cfg.Height {
				i := f.idx(xi, yi)
				deposit := uint8(float32(p.Intensity) * f.params.TrailHeatFactor)
				sum := uint16(f.heat[i]) + uint16(deposit)
				if sum > 255 {
					sum = 255
				}
				f.heat[i] = uint8(sum)
			}
		}
	})
}

func (f *Fire) diffuse() {
	if f.cfg.Height < 2 {
		return
	}
	next := f.heatNext
	for y := 0; y <= f.cfg.Height-2; y++ {
		below := y + 1
		twoBelow := y + 2
		for x := 0; x < f.cfg.Width; x++ {
			sum := uint32(f.heat[f.idx(x, below)])
			weight := uint32(1)
			if twoBelow < f.cfg.Height {
				sum += 2 * uint32(f.heat[f.idx(x, twoBelow)])
				weight += 2
			}
			if x > 0 {
				sum += uint32(f.heat[f.idx(x-1, below)])
				weight++
			}
			if x < f.cfg.Width-1 {
				sum += uint32(f.heat[f.idx(x+1, below)])
				weight++
			}
			avg := sum / weight
			next[f.idx(x, y)] = uint8(float32(avg) * 0.7)
		}
	}
	// Bottom row keeps its cooled-and-spark-deposited value.
	for x := 0; x < f.cfg.Width; x++ {
		next[f.idx(x, f.cfg.Height-1)] = f.heat[f.idx(x, f.cfg.Height-1)]
	}
	f.heat, f.heatNext = f.heatNext, f.heat
}

func firePalette(intensity uint8) pixel.RGB {
	switch {
	case intensity < 85:
		t := float32(intensity) / 85
		return blendRGB(pixel.RGB{}, pixel.RGB{R: 255}, t)
	case intensity < 170:
		t := float32(intensity-85) / 85
		return blendRGB(pixel.RGB{R: 255}, pixel.RGB{R: 255, G: 140}, t)
	default:
		t := float32(intensity-170) / 85
		return blendRGB(pixel.RGB{R: 255, G: 140}, pixel.RGB{R: 255, G: 255, B: 60}, t)
	}
}

func (f *Fire) composite(m *pixel.Matrix) {
	f.pool.Each(func(_ int, p *particle.Particle) {
		xi, yi := int(p.X), int(p.Y)
		m.Blend(xi, yi, firePalette(p.Intensity), pixel.SaturatingAdd)
	})
	for y := 0; y < f.cfg.Height; y++ {
		for x := 0; x < f.cfg.Width; x++ {
			h := f.heat[f.idx(x, y)]
			if h == 0 {
				continue
			}
			m.Blend(x, y, firePalette(h), pixel.MaxBlend)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
