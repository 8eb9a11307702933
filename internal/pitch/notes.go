// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MIDI reference: A4 = 440 Hz = note 69.
const (
	ReferenceFrequency = 440.0
	ReferenceMidi      = 69

	MinMidi = 0
	MaxMidi = 127
)

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteNames is built once so naming a note on the polling loop is free.
var noteNames = func() (names [MaxMidi + 1]string) {
	for m := range names {
		names[m] = pitchClassNames[m%12] + strconv.Itoa(m/12-1)
	}
	return names
}()

// MidiFloat converts a frequency in Hz to a real-valued MIDI note number.
// The integer part names the semitone, the remainder is the bend offset.
func MidiFloat(freq float64) float64 {
	return 12*math.Log2(freq/ReferenceFrequency) + ReferenceMidi
}

// Frequency is the inverse of MidiFloat.
func Frequency(midi float64) float64 {
	return ReferenceFrequency * math.Exp2((midi-ReferenceMidi)/12)
}

// Cents returns the distance of midi from its nearest semitone, in cents.
func Cents(midi float64) float64 {
	return (midi - math.Round(midi)) * 100
}

// PitchClassName returns the sharp-spelled name of midi's pitch class.
func PitchClassName(midi int) string {
	return pitchClassNames[floorMod(midi, 12)]
}

// NoteName returns the scientific pitch name of midi, e.g. 60 -> "C4".
// Notes outside the MIDI range have no name and report false.
func NoteName(midi int) (string, bool) {
	if midi < MinMidi || midi > MaxMidi {
		return "", false
	}
	return noteNames[midi], true
}

// ParseNoteName parses names produced by NoteName ("C#4", "A-1"). Flats
// ("Bb3") are accepted as well.
func ParseNoteName(name string) (int, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}

	letter := strings.ToUpper(name[:1])
	class := -1
	for i, n := range pitchClassNames {
		if n == letter {
			class = i
			break
		}
	}
	if class < 0 {
		return 0, fmt.Errorf("invalid note name %q: unknown pitch class", name)
	}

	rest := name[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		class++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		class--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid note name %q: %w", name, err)
	}

	midi := (octave+1)*12 + class
	if midi < MinMidi || midi > MaxMidi {
		return 0, fmt.Errorf("note %q is outside the MIDI range", name)
	}
	return midi, nil
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
