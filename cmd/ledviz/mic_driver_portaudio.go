// mic_driver_portaudio.go - real microphone capture, built with -tags portaudio
//go:build portaudio

package main

import (
	"github.com/jdubz/pulsegrid/internal/capture"
	"github.com/jdubz/pulsegrid/internal/hal"
)

// newMicDriver returns a driver that captures from the default system
// input device via PortAudio, the desktop stand-in for the PDM peripheral.
func newMicDriver() hal.PdmMic {
	return capture.NewPortAudioMic()
}
