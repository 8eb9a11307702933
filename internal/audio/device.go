// SPDX-License-Identifier: MIT
package audio

import "time"

// Device describes a PortAudio host device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	IsDefaultInput    bool
}

// Kind describes the device direction.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return "Unknown"
}

// CanRecord reports whether the device can be used for capture.
func (d Device) CanRecord() bool {
	return d.MaxInputChannels > 0
}
