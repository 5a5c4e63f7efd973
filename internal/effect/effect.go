// effect.go - the single-operation post-processing contract

package effect

import "github.com/jdubz/pulsegrid/internal/pixel"

// Effect is applied in place between the generator and the renderer.
type Effect interface {
	Begin(width, height int)
	Apply(m *pixel.Matrix, dt float32)
	Reset()
	Name() string
}
