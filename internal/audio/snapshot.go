// SPDX-License-Identifier: MIT
package audio

import (
	"hummer/internal/segment"
	"hummer/internal/transport"
)

// Snapshot is the engine state after the latest polling tick.
type Snapshot struct {
	segment.Snapshot
	Control

	Level     float64
	Gate      bool
	Frequency float64
	Voiced    bool
	Time      float64
}

// Snapshot returns the state published by the latest tick. It is safe to
// call from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

// Status converts the latest snapshot for the network transports.
func (e *Engine) Status() transport.Status {
	s := e.Snapshot()
	return transport.Status{
		Mode:        s.Mode.String(),
		Scale:       s.Settings.Scale.String(),
		Level:       s.Level,
		Gate:        s.Gate,
		Frequency:   s.Frequency,
		Voiced:      s.Voiced,
		Sounding:    s.Sounding,
		Midi:        s.Midi,
		Note:        s.Note,
		Chord:       s.Chord,
		Cents:       s.Cents,
		Recording:   s.Recording,
		Recorded:    s.Recorded,
		Sensitivity: s.Sensitivity,
		MicBoost:    s.MicBoost,
		Time:        s.Time,
	}
}

var _ transport.StatusProvider = (*Engine)(nil)
