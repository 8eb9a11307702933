// SPDX-License-Identifier: MIT
package segment

// EventKind says what a downstream voice should do.
type EventKind int

const (
	NoteOn  EventKind = iota // start Midi on Voice
	Release                  // stop Midi on Voice, or every held key when Midi is AllNotes
	Detune                   // bend Voice by Cents
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case Release:
		return "release"
	case Detune:
		return "detune"
	default:
		return "unknown"
	}
}

// Voice distinguishes the lead line from the harmonizer chord.
type Voice int

const (
	Lead Voice = iota
	Harmony
)

func (v Voice) String() string {
	if v == Harmony {
		return "harmony"
	}
	return "lead"
}

// AllNotes in a Release event releases every key held by the voice.
const AllNotes = -1

// Event is a single decision about what should sound. Note is the name of
// Midi and Chord the harmonizer chord name (Harmony note-ons only). Time is
// the engine clock of the tick that produced the event.
type Event struct {
	Kind  EventKind
	Voice Voice
	Midi  int
	Note  string
	Cents float64
	Chord string
	Time  float64
}

// Sink receives segmenter events. Emit is called on the polling loop and
// must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
