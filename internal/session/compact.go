// SPDX-License-Identifier: MIT
package session

// MaxGap is the longest silence, in seconds, that Compact leaves between
// two consecutive notes.
const MaxGap = 0.3

// Compact removes dead air from a take. See CompactGap.
func Compact(notes []RecordedNote) []RecordedNote {
	return CompactGap(notes, MaxGap)
}

// CompactGap returns a new note list, sorted by start time, in which the
// first note starts at 0 and every silence longer than maxGap is shortened to
// exactly maxGap. Pitches and durations are untouched and the input is never
// modified. Overlapping notes count as a negative gap and are left as is.
func CompactGap(notes []RecordedNote, maxGap float64) []RecordedNote {
	out := SortByTime(notes)
	if len(out) == 0 {
		return out
	}

	offset := out[0].Time
	lastEnd := 0.0
	for i := range out {
		gap := out[i].Time - offset - lastEnd
		if i > 0 && gap > maxGap {
			offset += gap - maxGap
		}
		out[i].Time -= offset
		lastEnd = out[i].End()
	}
	return out
}
