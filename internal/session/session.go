// SPDX-License-Identifier: MIT
// Package session models recorded takes: the note list produced by the
// segmenter, the silence compactor used before playback and export, and a
// file-backed vault of saved sessions.
package session

import (
	"slices"
	"time"

	"hummer/internal/scale"

	"github.com/google/uuid"
)

// DefaultBPM is the tempo stamped on sessions when none is configured.
const DefaultBPM = 120

// Session groups the notes of one take with the settings it was played with.
type Session struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Notes      []RecordedNote `json:"notes"`
	AudioFile  string         `json:"audio_file,omitempty"`
	Instrument string         `json:"instrument,omitempty"`
	BPM        int            `json:"bpm"`
	Scale      scale.Type     `json:"scale"`
}

// New creates a session with a fresh ID stamped at the current time. The
// note list is copied.
func New(notes []RecordedNote, sc scale.Type) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Notes:     slices.Clone(notes),
		BPM:       DefaultBPM,
		Scale:     sc,
	}
}

// PlaybackNotes returns the notes in playback order, compacted when
// skipSilences is set.
func (s *Session) PlaybackNotes(skipSilences bool) []RecordedNote {
	if skipSilences {
		return Compact(s.Notes)
	}
	return SortByTime(s.Notes)
}

// Duration is the length of the take in seconds, measured to the end of the
// last note.
func (s *Session) Duration() float64 {
	return Span(s.Notes)
}
