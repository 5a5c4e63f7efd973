// generator.go - generator interface and tagged-variant selector

package generator

import (
	"github.com/jdubz/pulsegrid/internal/audio"
	"github.com/jdubz/pulsegrid/internal/pixel"
	"github.com/jdubz/pulsegrid/internal/render"
)

// Kind tags which generator variant is active. Generator polymorphism is
// expressed as this small tagged enum rather than an inheritance chain, so
// each variant owns its state and is dispatched by a single switch.
type Kind int

const (
	KindFire Kind = iota
	KindWater
	KindLightning
)

func (k Kind) String() string {
	switch k {
	case KindFire:
		return "Fire"
	case KindWater:
		return "Water"
	case KindLightning:
		return "Lightning"
	default:
		return "Unknown"
	}
}

// Generator is implemented by Fire, Water, and Lightning.
type Generator interface {
	Begin(cfg render.DeviceConfig) error
	Generate(m *pixel.Matrix, ctl audio.Control, dt float32)
	Reset()
	Name() string
	Kind() Kind
}
