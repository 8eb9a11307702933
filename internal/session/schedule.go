// SPDX-License-Identifier: MIT
package session

import (
	"fmt"

	"hummer/internal/pitch"
	"hummer/internal/scale"
)

// Cue is one scheduled note of a playback plan. Chord holds the harmony
// tones (root included) when harmonization is on.
type Cue struct {
	Time      float64
	Duration  float64
	Lead      int
	Chord     []int
	ChordName string
}

// End returns the time at which the cue releases.
func (c Cue) End() float64 {
	return c.Time + c.Duration
}

// Schedule turns notes into playback cues in the order given. With harmonize
// set every cue also carries the scale triad for its note.
func Schedule(notes []RecordedNote, harmonize bool, sc scale.Type) ([]Cue, error) {
	cues := make([]Cue, 0, len(notes))
	for i, n := range notes {
		midi, err := pitch.ParseNoteName(n.Note)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}

		cue := Cue{Time: n.Time, Duration: n.Duration, Lead: midi}
		if harmonize {
			chord := scale.ChordFor(midi, sc)
			cue.Chord = chord.Notes
			cue.ChordName = chord.Name
		}
		cues = append(cues, cue)
	}
	return cues, nil
}
