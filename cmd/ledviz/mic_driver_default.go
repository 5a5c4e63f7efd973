// mic_driver_default.go - default headless mic source, no real audio hardware
//go:build !portaudio

package main

import (
	"github.com/jdubz/pulsegrid/internal/capture"
	"github.com/jdubz/pulsegrid/internal/hal"
)

// newMicDriver returns the headless mic source used by default and in CI;
// build with -tags portaudio to capture from a real input device instead.
func newMicDriver() hal.PdmMic {
	return capture.NewHeadless()
}
