// SPDX-License-Identifier: MIT
package session

import (
	"testing"

	"hummer/internal/pitch"
	"hummer/internal/scale"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotes() []RecordedNote {
	return []RecordedNote{
		{Note: "E4", Time: 3, Duration: 0.5},
		{Note: "C4", Time: 0.5, Duration: 1},
	}
}

func TestNewSession(t *testing.T) {
	notes := sampleNotes()
	s := New(notes, scale.Minor)

	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, scale.Minor, s.Scale)
	assert.Equal(t, DefaultBPM, s.BPM)
	assert.False(t, s.Timestamp.IsZero())

	notes[0].Note = "changed"
	assert.Equal(t, "E4", s.Notes[0].Note, "session must own its notes")

	assert.NotEqual(t, s.ID, New(nil, scale.Major).ID)
}

func TestPlaybackNotes(t *testing.T) {
	s := New(sampleNotes(), scale.Major)

	raw := s.PlaybackNotes(false)
	require.Len(t, raw, 2)
	assert.Equal(t, []float64{0.5, 3}, times(raw))

	compact := s.PlaybackNotes(true)
	require.Len(t, compact, 2)
	assert.InDeltaSlice(t, []float64{0, 1.3}, times(compact), 1e-9)

	assert.Equal(t, 3.5, s.Duration())
}

func TestSchedule(t *testing.T) {
	notes := []RecordedNote{
		{Note: "C4", Time: 0, Duration: 0.5},
		{Note: "A4", Time: 0.6, Duration: 0.25},
	}

	cues, err := Schedule(notes, true, scale.Major)
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, 60, cues[0].Lead)
	assert.Equal(t, []int{60, 64, 67}, cues[0].Chord)
	assert.Equal(t, "CMaj", cues[0].ChordName)
	assert.Equal(t, 0.5, cues[0].End())

	assert.Equal(t, 69, cues[1].Lead)
	assert.Equal(t, "Amin", cues[1].ChordName)
	assert.Equal(t, 0.6, cues[1].Time)
}

func TestScheduleWithoutHarmony(t *testing.T) {
	cues, err := Schedule([]RecordedNote{{Note: "F#3", Time: 1, Duration: 1}}, false, scale.Blues)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, 54, cues[0].Lead)
	assert.Nil(t, cues[0].Chord)
	assert.Empty(t, cues[0].ChordName)
}

func TestScheduleRejectsBadNames(t *testing.T) {
	_, err := Schedule([]RecordedNote{{Note: "C4"}, {Note: "H2"}}, true, scale.Major)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "note 1")
}

func TestScheduleMatchesNoteNames(t *testing.T) {
	for midi := pitch.MinMidi; midi <= pitch.MaxMidi; midi++ {
		name, ok := pitch.NoteName(midi)
		require.True(t, ok)

		cues, err := Schedule([]RecordedNote{{Note: name}}, false, scale.Chromatic)
		require.NoError(t, err)
		assert.Equal(t, midi, cues[0].Lead, name)
	}
}
