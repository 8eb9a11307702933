// SPDX-License-Identifier: MIT
package session

import (
	"slices"
)

// RecordedNote is one finished note of a take. Time is seconds from the start
// of the recording, Duration is seconds the note was held.
type RecordedNote struct {
	Note     string  `json:"note"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
}

// End returns the time at which the note was released.
func (n RecordedNote) End() float64 {
	return n.Time + n.Duration
}

// SortByTime returns a copy of notes ordered by start time. Notes that start
// together keep their relative order.
func SortByTime(notes []RecordedNote) []RecordedNote {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b RecordedNote) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return out
}

// Span returns the end time of the latest-ending note, or 0 for no notes.
func Span(notes []RecordedNote) float64 {
	var end float64
	for _, n := range notes {
		end = max(end, n.End())
	}
	return end
}
