// SPDX-License-Identifier: MIT
package segment

import (
	"fmt"
	"strings"
)

// Mode is the workstation mode driving the segmenter.
type Mode int

const (
	Idle        Mode = iota // input monitored, nothing detected
	Midi                    // live pitch-to-note
	Passthrough             // dry voice passthrough, no detection
	Record                  // live pitch-to-note with the take recorded
)

var modeNames = [...]string{
	Idle:        "IDLE",
	Midi:        "MIDI",
	Passthrough: "VOICE",
	Record:      "RECORD",
}

func (m Mode) String() string {
	if m < Idle || m > Record {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// DetectsPitch reports whether the mode runs pitch detection.
func (m Mode) DetectsPitch() bool {
	return m == Midi || m == Record
}

// Records reports whether the mode accumulates notes into a take.
func (m Mode) Records() bool {
	return m == Record
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == up {
			return Mode(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m < Idle || m > Record {
		return nil, fmt.Errorf("unknown mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
