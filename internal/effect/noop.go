// noop.go - identity effect, so "no effect" needs no conditional in the pipeline

package effect

import "github.com/jdubz/pulsegrid/internal/pixel"

// NoOp passes the frame through unmodified.
type NoOp struct{}

func (NoOp) Begin(width, height int) {}
func (NoOp) Apply(m *pixel.Matrix, dt float32) {}
func (NoOp) Reset() {}
func (NoOp) Name() string { return "NoOp" }
