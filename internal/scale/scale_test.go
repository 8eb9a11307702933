// SPDX-License-Identifier: MIT
package scale

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetsInvariant(t *testing.T) {
	for _, typ := range Types() {
		offs := typ.Offsets()
		require.NotEmpty(t, offs, typ.String())
		assert.True(t, sort.IntsAreSorted(offs), "%s offsets not ascending", typ)

		seen := map[int]bool{}
		for _, o := range offs {
			assert.False(t, seen[o], "%s repeats offset %d", typ, o)
			assert.True(t, o >= 0 && o < 12, "%s offset %d out of range", typ, o)
			seen[o] = true
		}
	}

	assert.Len(t, Chromatic.Offsets(), 12)
}

func TestOffsetsReturnsCopy(t *testing.T) {
	offs := Major.Offsets()
	offs[0] = 99
	assert.Equal(t, 0, Major.Offsets()[0])
}

func TestSnap(t *testing.T) {
	tests := []struct {
		desc  string
		midi  int
		scale Type
		want  int
	}{
		{"In scale", 60, Major, 60},
		{"C# ties to C", 61, Major, 60},
		{"D# ties to D", 63, Major, 62},
		{"F# ties to F", 66, Major, 65},
		{"B stays in octave", 71, Pentatonic, 69},
		{"Minor E to D#", 64, Minor, 63},
		{"Blues D to D#", 62, Blues, 63},
		{"Blues E ties to D#", 64, Blues, 63},
		{"Chromatic identity", 61, Chromatic, 61},
		{"Negative midi", -1, Major, -1},
		{"Negative off-scale", -2, Major, -3},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, Snap(tt.midi, tt.scale))
		})
	}
}

func TestSnapProperties(t *testing.T) {
	for _, typ := range Types() {
		members := map[int]bool{}
		for _, o := range typ.Offsets() {
			members[o] = true
		}

		for midi := -24; midi <= 140; midi++ {
			snapped := Snap(midi, typ)
			class, _ := split(snapped)
			assert.True(t, members[class], "%s: Snap(%d) = %d not in scale", typ, midi, snapped)
			assert.Equal(t, snapped, Snap(snapped, typ), "%s: Snap not idempotent for %d", typ, midi)

			_, octIn := split(midi)
			_, octOut := split(snapped)
			assert.Equal(t, octIn, octOut, "%s: Snap(%d) changed octave", typ, midi)
		}
	}
}

func TestChordFor(t *testing.T) {
	tests := []struct {
		desc  string
		midi  int
		scale Type
		notes []int
		name  string
	}{
		{"C major tonic", 60, Major, []int{60, 64, 67}, "CMaj"},
		{"A minor in C major wraps octave", 69, Major, []int{69, 72, 76}, "Amin"},
		{"D minor in C major", 62, Major, []int{62, 65, 69}, "Dmin"},
		{"B diminished labelled minor", 71, Major, []int{71, 74, 77}, "Bmin"},
		{"C minor tonic", 60, Minor, []int{60, 63, 67}, "Cmin"},
		{"Pentatonic skips degrees", 60, Pentatonic, []int{60, 64, 69}, "CMaj"},
		{"Chromatic fixed major", 61, Chromatic, []int{61, 65, 68}, "C#Maj"},
		{"Root outside scale", 61, Major, []int{61}, "C#"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			c := ChordFor(tt.midi, tt.scale)
			assert.Equal(t, tt.notes, c.Notes)
			assert.Equal(t, tt.name, c.Name)
		})
	}
}

func TestChordForSnappedInputAlwaysTriad(t *testing.T) {
	for _, typ := range Types() {
		for midi := 24; midi < 108; midi++ {
			c := ChordFor(Snap(midi, typ), typ)
			require.Len(t, c.Notes, 3, "%s: chord for %d", typ, midi)
			assert.Less(t, c.Notes[0], c.Notes[1])
			assert.Less(t, c.Notes[1], c.Notes[2])
		}
	}
}

func TestParse(t *testing.T) {
	for _, typ := range Types() {
		got, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := Parse(" blues ")
	require.NoError(t, err)
	assert.Equal(t, Blues, got)

	_, err = Parse("lydian")
	assert.ErrorIs(t, err, ErrUnknownScale)
}

func TestTextMarshalling(t *testing.T) {
	type doc struct {
		Scale Type `json:"scale"`
	}

	data, err := json.Marshal(doc{Scale: Pentatonic})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scale":"PENTATONIC"}`, string(data))

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"scale":"minor"}`), &d))
	assert.Equal(t, Minor, d.Scale)

	assert.Error(t, json.Unmarshal([]byte(`{"scale":"dorian"}`), &d))
	_, err = Type(42).MarshalText()
	assert.Error(t, err)
}
