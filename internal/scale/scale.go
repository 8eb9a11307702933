// SPDX-License-Identifier: MIT
// Package scale snaps detected semitones onto a musical scale and builds the
// harmonizer triad for a scale degree.
package scale

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies a scale. Each type maps to the ascending pitch-class
// offsets (0-11) it contains within an octave.
type Type int

const (
	Major Type = iota
	Minor
	Pentatonic
	Blues
	Chromatic
)

var ErrUnknownScale = errors.New("unknown scale")

var offsets = [...][]int{
	Major:      {0, 2, 4, 5, 7, 9, 11},
	Minor:      {0, 2, 3, 5, 7, 8, 10},
	Pentatonic: {0, 2, 4, 7, 9},
	Blues:      {0, 3, 5, 6, 7, 10},
	Chromatic:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

var names = [...]string{
	Major:      "MAJOR",
	Minor:      "MINOR",
	Pentatonic: "PENTATONIC",
	Blues:      "BLUES",
	Chromatic:  "CHROMATIC",
}

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Types lists every scale in declaration order.
func Types() []Type {
	return []Type{Major, Minor, Pentatonic, Blues, Chromatic}
}

func (t Type) valid() bool {
	return t >= Major && t <= Chromatic
}

// String returns the upper-case scale name, e.g. "MAJOR".
func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return names[t]
}

// Offsets returns a copy of the scale's pitch-class offsets.
func (t Type) Offsets() []int {
	if !t.valid() {
		return nil
	}
	return append([]int(nil), offsets[t]...)
}

// Parse accepts a scale name in any case.
func Parse(s string) (Type, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range names {
		if n == up {
			return Type(i), nil
		}
	}
	return Major, fmt.Errorf("%w: %q", ErrUnknownScale, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScale, int(t))
	}
	return []byte(names[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Snap moves midi to the nearest pitch class of the scale, keeping its
// octave. Distances are measured within the octave (no wrap to the next C);
// on a tie the lower pitch class wins. Chromatic returns midi unchanged.
func Snap(midi int, t Type) int {
	if t == Chromatic || !t.valid() {
		return midi
	}

	class, octave := split(midi)
	scale := offsets[t]
	closest := scale[0]
	for _, off := range scale[1:] {
		if abs(off-class) < abs(closest-class) {
			closest = off
		}
	}
	return octave*12 + closest
}

// Chord is a harmonizer triad: root, scale third, scale fifth.
type Chord struct {
	Notes []int
	Name  string
}

// ChordFor builds the triad stacked on midi's scale degree by walking two
// and four degrees up the scale, carrying the octave when the walk wraps.
// The chord is minor when the third lies 3 semitones above the root.
//
// Chromatic always yields a major triad. A root outside the scale yields the
// root alone, named by its pitch class.
func ChordFor(midi int, t Type) Chord {
	class, octave := split(midi)
	root := pitchClassNames[class]

	if t == Chromatic {
		return Chord{Notes: []int{midi, midi + 4, midi + 7}, Name: root + "Maj"}
	}
	if !t.valid() {
		return Chord{Notes: []int{midi}, Name: root}
	}

	scale := offsets[t]
	degree := -1
	for i, off := range scale {
		if off == class {
			degree = i
			break
		}
	}
	if degree < 0 {
		return Chord{Notes: []int{midi}, Name: root}
	}

	at := func(step int) int {
		idx := degree + step
		return (octave+idx/len(scale))*12 + scale[idx%len(scale)]
	}

	third := (scale[(degree+2)%len(scale)] - class + 12) % 12
	quality := "Maj"
	if third == 3 {
		quality = "min"
	}

	return Chord{
		Notes: []int{midi, at(2), at(4)},
		Name:  root + quality,
	}
}

// split returns midi's pitch class and octave using floor division.
func split(midi int) (class, octave int) {
	class = midi % 12
	octave = midi / 12
	if class < 0 {
		class += 12
		octave--
	}
	return class, octave
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
