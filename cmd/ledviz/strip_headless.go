// strip_headless.go - default strip + run loop, no display window
//go:build headless

package main

import (
	"github.com/jdubz/pulsegrid/internal/hal"
	"github.com/jdubz/pulsegrid/internal/render"
)

// newStrip returns the in-memory mock strip used for CI and server deploys
// with no attached display; build without -tags headless for a live preview.
func newStrip(cfg render.DeviceConfig, _ *render.Mapper) hal.LedStrip {
	return hal.NewMockStrip(cfg.NumLeds())
}

// runLoop just runs loop() on the calling goroutine; there is no window
// event pump to drive in the headless build.
func runLoop(loop func()) {
	loop()
}
