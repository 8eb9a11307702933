// SPDX-License-Identifier: MIT
package session

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Resolution is the number of ticks per quarter note in exported files.
const Resolution = 960

// ExportOptions controls how a session is rendered to a MIDI file.
type ExportOptions struct {
	SkipSilences bool
	MaxGap       float64 // Longest silence kept when SkipSilences is set.
	Harmonize    bool
	LeadChannel  uint8
	ChordChannel uint8
	Velocity     uint8
}

// DefaultExportOptions writes lead and chords on channels 1 and 2.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		SkipSilences: true,
		MaxGap:       MaxGap,
		Harmonize:    true,
		LeadChannel:  0,
		ChordChannel: 1,
		Velocity:     100,
	}
}

type timedMsg struct {
	tick uint64
	off  bool
	msg  midi.Message
}

// WriteSMF renders the session as a single-track Standard MIDI File.
func WriteSMF(w io.Writer, s *Session, opts ExportOptions) error {
	bpm := float64(s.BPM)
	if bpm <= 0 {
		bpm = DefaultBPM
	}

	notes := SortByTime(s.Notes)
	if opts.SkipSilences {
		notes = CompactGap(s.Notes, opts.MaxGap)
	}

	cues, err := Schedule(notes, opts.Harmonize, s.Scale)
	if err != nil {
		return fmt.Errorf("failed to schedule session %s: %w", s.ID, err)
	}

	ticks := func(sec float64) uint64 {
		return uint64(math.Round(sec * bpm / 60 * Resolution))
	}

	var msgs []timedMsg
	add := func(ch uint8, key int, start, end uint64) {
		if key < 0 || key > 127 {
			return
		}
		if end <= start {
			end = start + 1
		}
		msgs = append(msgs,
			timedMsg{tick: start, msg: midi.NoteOn(ch, uint8(key), opts.Velocity)},
			timedMsg{tick: end, off: true, msg: midi.NoteOff(ch, uint8(key))},
		)
	}
	for _, c := range cues {
		start, end := ticks(c.Time), ticks(c.End())
		add(opts.LeadChannel, c.Lead, start, end)
		for _, key := range c.Chord {
			add(opts.ChordChannel, key, start, end)
		}
	}

	// Releases go first on a shared tick so a repeated key is not cut short.
	slices.SortStableFunc(msgs, func(a, b timedMsg) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		switch {
		case a.off && !b.off:
			return -1
		case !a.off && b.off:
			return 1
		}
		return 0
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	var last uint64
	for _, m := range msgs {
		tr.Add(uint32(m.tick-last), m.msg)
		last = m.tick
	}
	tr.Close(0)

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(Resolution)
	if err := file.Add(tr); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write midi file: %w", err)
	}
	return nil
}
