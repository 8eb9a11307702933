// SPDX-License-Identifier: MIT
/*
Package segment turns a stream of per-tick pitch estimates into discrete
note events.

The segmenter is a two-state machine, Silent and Sounding. Every tick it
receives the gate decision and the estimated frequency:

  - gate open with a pitch whose scale-snapped MIDI number differs from the
    last one fires a note-on (and the harmonizer chord when enabled);
  - gate closed, no pitch, or a pitch without a note name releases both
    voices and returns to Silent;
  - while Sounding with bend enabled the cents offset of the raw estimate is
    forwarded every tick without retriggering.

While a take is being recorded each closed note is appended to the take,
unless it was held for less than the minimum note duration.

A Segmenter is owned by a single goroutine (the polling loop). Settings
changes from elsewhere must be handed to that goroutine and applied there.
*/
package segment

import (
	"math"
	"slices"

	"hummer/internal/pitch"
	"hummer/internal/scale"
	"hummer/internal/session"
)

// Defaults for the performance settings.
const (
	DefaultGlide           = 0.05
	DefaultMinNoteDuration = 0.05
)

// Settings is the complete configuration applied to a Segmenter in one go.
type Settings struct {
	Mode      Mode
	Scale     scale.Type
	Harmonize bool
	Bend      bool
	// Glide is the downstream portamento time in seconds. Zero releases
	// every voice before a retrigger, anything else hands over legato.
	Glide float64
	// MinNoteDuration is the shortest note, in seconds, kept in a take.
	MinNoteDuration float64
}

// DefaultSettings returns the settings the workstation starts with.
func DefaultSettings() Settings {
	return Settings{
		Mode:            Idle,
		Scale:           scale.Major,
		Harmonize:       true,
		Bend:            true,
		Glide:           DefaultGlide,
		MinNoteDuration: DefaultMinNoteDuration,
	}
}

// Input is what the polling loop observed on one tick.
type Input struct {
	// Gate is true when the input level is above the sensitivity threshold.
	Gate bool
	// Frequency is the estimated fundamental in Hz, valid when Voiced.
	Frequency float64
	Voiced    bool
	// Now is the engine clock in seconds.
	Now float64
}

// Snapshot is a read-only view of the segmenter state.
type Snapshot struct {
	Mode      Mode
	Sounding  bool
	Midi      int
	Note      string
	Chord     string
	Cents     float64
	Recording bool
	Recorded  int
}

type openNote struct {
	note string
	time float64
}

// Segmenter holds the note state of the polling loop.
type Segmenter struct {
	settings Settings
	sink     Sink

	lastNow  float64
	sounding bool
	lastMidi int
	note     string
	chord    scale.Chord
	cents    float64

	recording   bool
	recordStart float64
	active      openNote
	hasActive   bool
	notes       []session.RecordedNote
}

// New creates a Silent segmenter. A nil sink discards events.
func New(settings Settings, sink Sink) *Segmenter {
	if sink == nil {
		sink = Discard
	}
	return &Segmenter{settings: settings, sink: sink}
}

// Settings returns the settings in effect.
func (s *Segmenter) Settings() Settings {
	return s.settings
}

// Apply replaces the settings. The mode stays Record while a take is
// running; StopRecording ends the take. Turning bend off recentres both
// voices.
func (s *Segmenter) Apply(settings Settings) {
	if s.recording {
		settings.Mode = Record
	}
	if s.settings.Bend && !settings.Bend {
		s.sink.Emit(Event{Kind: Detune, Voice: Lead, Time: s.lastNow})
		s.sink.Emit(Event{Kind: Detune, Voice: Harmony, Time: s.lastNow})
	}
	s.settings = settings
}

// Step advances the state machine by one polling tick.
func (s *Segmenter) Step(in Input) {
	s.lastNow = in.Now
	midiFloat, midi, name, ok := s.detect(in)
	if !ok {
		if s.sounding {
			s.silence(in.Now)
		}
		return
	}

	s.cents = pitch.Cents(midiFloat)
	if s.settings.Bend {
		s.sink.Emit(Event{Kind: Detune, Voice: Lead, Cents: s.cents, Time: in.Now})
		s.sink.Emit(Event{Kind: Detune, Voice: Harmony, Cents: s.cents, Time: in.Now})
	}

	if s.sounding && midi == s.lastMidi {
		return
	}
	s.trigger(midi, name, in.Now)
}

// detect quantizes the tick's estimate. It reports false when the tick
// counts as silence.
func (s *Segmenter) detect(in Input) (float64, int, string, bool) {
	if !in.Gate || !in.Voiced || !s.settings.Mode.DetectsPitch() {
		return 0, 0, "", false
	}
	if !(in.Frequency > 0) || math.IsInf(in.Frequency, 0) {
		return 0, 0, "", false
	}

	midiFloat := pitch.MidiFloat(in.Frequency)
	rounded := math.Round(midiFloat)
	if rounded < pitch.MinMidi-12 || rounded > pitch.MaxMidi+12 {
		return 0, 0, "", false
	}

	midi := scale.Snap(int(rounded), s.settings.Scale)
	name, ok := pitch.NoteName(midi)
	if !ok {
		return 0, 0, "", false
	}
	return midiFloat, midi, name, true
}

func (s *Segmenter) trigger(midi int, name string, now float64) {
	if s.recording {
		s.closeNote(now)
	}

	legato := s.sounding && s.settings.Glide != 0
	if s.sounding && !legato {
		s.releaseAll(now)
	}
	prevMidi, prevChord := s.lastMidi, s.chord

	s.sink.Emit(Event{Kind: NoteOn, Voice: Lead, Midi: midi, Note: name, Time: now})

	s.chord = scale.Chord{}
	if s.settings.Harmonize {
		s.chord = scale.ChordFor(midi, s.settings.Scale)
		for _, tone := range s.chord.Notes {
			if toneName, ok := pitch.NoteName(tone); ok {
				s.sink.Emit(Event{Kind: NoteOn, Voice: Harmony, Midi: tone, Note: toneName, Chord: s.chord.Name, Time: now})
			}
		}
	}

	// With glide the new keys are already sounding when the old ones are
	// let go, so the downstream voice can slide between them.
	if legato {
		s.sink.Emit(Event{Kind: Release, Voice: Lead, Midi: prevMidi, Time: now})
		for _, tone := range prevChord.Notes {
			if !slices.Contains(s.chord.Notes, tone) {
				s.sink.Emit(Event{Kind: Release, Voice: Harmony, Midi: tone, Time: now})
			}
		}
	}

	s.sounding = true
	s.lastMidi = midi
	s.note = name

	if s.recording {
		s.active = openNote{note: name, time: now - s.recordStart}
		s.hasActive = true
	}
}

func (s *Segmenter) silence(now float64) {
	s.releaseAll(now)
	if s.recording {
		s.closeNote(now)
	}
	s.clear()
}

func (s *Segmenter) releaseAll(now float64) {
	s.sink.Emit(Event{Kind: Release, Voice: Lead, Midi: AllNotes, Time: now})
	s.sink.Emit(Event{Kind: Release, Voice: Harmony, Midi: AllNotes, Time: now})
}

func (s *Segmenter) clear() {
	s.sounding = false
	s.lastMidi = 0
	s.note = ""
	s.chord = scale.Chord{}
	s.cents = 0
}

// closeNote ends the open take note at now, keeping it when it was held for
// at least the minimum duration.
func (s *Segmenter) closeNote(now float64) {
	if !s.hasActive {
		return
	}
	s.hasActive = false

	duration := now - s.recordStart - s.active.time
	if duration < s.settings.MinNoteDuration {
		return
	}
	s.notes = append(s.notes, session.RecordedNote{
		Note:     s.active.note,
		Time:     s.active.time,
		Duration: duration,
	})
}

// StartRecording begins a new take at now and switches to Record mode.
// Anything still sounding is released so the take starts from silence.
func (s *Segmenter) StartRecording(now float64) {
	if s.sounding {
		s.releaseAll(now)
		s.clear()
	}
	s.recording = true
	s.recordStart = now
	s.hasActive = false
	s.notes = nil
	s.settings.Mode = Record
}

// StopRecording ends the take at now, closing the note still held, and
// returns the take's notes. The mode drops back to Idle. It returns nil when
// no take is running.
func (s *Segmenter) StopRecording(now float64) []session.RecordedNote {
	if !s.recording {
		return nil
	}
	s.closeNote(now)
	if s.sounding {
		s.releaseAll(now)
		s.clear()
	}

	notes := s.notes
	s.notes = nil
	s.recording = false
	s.settings.Mode = Idle
	return notes
}

// Recording reports whether a take is running.
func (s *Segmenter) Recording() bool {
	return s.recording
}

// Reset stops everything that is sounding and forgets the last note, so the
// next detection triggers afresh. A running take keeps recording; the note
// held at now is closed.
func (s *Segmenter) Reset(now float64) {
	if s.recording {
		s.closeNote(now)
	}
	s.releaseAll(now)
	s.clear()
}

// Snapshot returns the current state.
func (s *Segmenter) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:      s.settings.Mode,
		Sounding:  s.sounding,
		Recording: s.recording,
		Recorded:  len(s.notes),
	}
	if s.sounding {
		snap.Midi = s.lastMidi
		snap.Note = s.note
		snap.Chord = s.chord.Name
		snap.Cents = s.cents
	}
	return snap
}
