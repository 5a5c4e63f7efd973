// pipeline.go - RenderPipeline: owns generators/effects, binds them to the renderer

package pipeline

import (
	"fmt"

	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/effect"
	"github.com/jdubz/pulsegrid/internal/generator"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

// Error carries pipeline-level init/safety failure context.
type Error struct {
	Operation string
	Details   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("pipeline %s failed: %s", e.Operation, e.Details)
}

// EffectKind selects the active post-processing stage.
type EffectKind int

const (
	EffectNoOp EffectKind = iota
	EffectHueRotation
)

// RenderPipeline owns one instance of each generator and effect, the pixel
// matrix, and the renderer. render() invokes: selected generator ->
// selected effect -> renderer, in strict order.
type RenderPipeline struct {
	cfg render.DeviceConfig

	generators map[generator.Kind]generator.Generator
	activeGen  generator.Kind

	effects    map[EffectKind]effect.Effect
	activeEfx  EffectKind

	matrix   *pixel.Matrix
	renderer *render.Renderer
	safety   *SafetyMonitor
}

// New constructs a pipeline with every generator and effect pre-built and
// reset, bound to cfg and a renderer over mapper/strip.
func New(cfg render.DeviceConfig, mapper *render.Mapper, renderer *render.Renderer, safetyLimit int) (*RenderPipeline, error) {
	cfg.Clamp()

	gens := map[generator.Kind]generator.Generator{
		generator.KindFire:      generator.NewFire(generator.DefaultFireParams()),
		generator.KindWater:     generator.NewWater(generator.DefaultWaterParams()),
		generator.KindLightning: generator.NewLightning(generator.DefaultLightningParams()),
	}
	for k, g := range gens {
		if err := g.Begin(cfg); err != nil {
			return nil, &Error{Operation: "begin generator", Details: k.String(), Err: err}
		}
	}

	efx := map[EffectKind]effect.Effect{
		EffectNoOp:        effect.NoOp{},
		EffectHueRotation: effect.NewHueRotation(0, 0),
	}
	for _, e := range efx {
		e.Begin(cfg.Width, cfg.Height)
	}

	p := &RenderPipeline{
		cfg:        cfg,
		generators: gens,
		activeGen:  generator.KindFire,
		effects:    efx,
		activeEfx:  EffectNoOp,
		matrix:     pixel.NewMatrix(cfg.Width, cfg.Height),
		renderer:   renderer,
		safety:     NewSafetyMonitor(safetyLimit),
	}
	return p, nil
}

// SetGenerator switches the active generator, resetting the newcomer so it
// starts from a clean pool/buffer. Switching is instantaneous; no crossfade.
func (p *RenderPipeline) SetGenerator(k generator.Kind) {
	if k == p.activeGen {
		return
	}
	p.activeGen = k
	p.generators[k].Reset()
}

// SetEffect switches the active post-processing stage, resetting it.
func (p *RenderPipeline) SetEffect(k EffectKind) {
	if k == p.activeEfx {
		return
	}
	p.activeEfx = k
	p.effects[k].Reset()
}

// ActiveGenerator returns the currently selected generator kind.
func (p *RenderPipeline) ActiveGenerator() generator.Kind { return p.activeGen }

// Effect returns the currently active effect, for direct tuning (e.g.
// setting HueRotation's rotation speed).
func (p *RenderPipeline) Effect(k EffectKind) effect.Effect { return p.effects[k] }

// Halted reports whether the hardware safety monitor has tripped.
func (p *RenderPipeline) Halted() bool { return p.safety.Halted() }

// Render runs one frame: generator -> effect -> renderer. If the safety
// monitor is halted, Render refuses to emit and returns without touching
// the strip.
func (p *RenderPipeline) Render(ctl audio.Control, dt float32) error {
	if p.safety.Halted() {
		return &Error{Operation: "render", Details: "safety monitor halted, refusing to emit"}
	}

	gen := p.generators[p.activeGen]
	gen.Generate(p.matrix, ctl, dt)

	efx := p.effects[p.activeEfx]
	efx.Apply(p.matrix, dt)

	p.safety.Observe(p.matrix)
	if p.safety.Halted() {
		return &Error{Operation: "render", Details: "safety monitor tripped this frame"}
	}

	if err := p.renderer.Render(p.matrix); err != nil {
		return &Error{Operation: "render", Details: "renderer present", Err: err}
	}
	return nil
}

// Matrix exposes the pixel matrix for tests and preview backends.
func (p *RenderPipeline) Matrix() *pixel.Matrix { return p.matrix }
