// SPDX-License-Identifier: MIT
package midiout

import (
	"cmp"
	"context"
	"slices"
	"time"

	"hummer/internal/log"
	"hummer/internal/segment"
	"hummer/internal/session"
)

type playEvent struct {
	at time.Duration
	ev segment.Event
}

// timeline flattens cues into note events, releases first when they share
// an instant with a note-on.
func timeline(cues []session.Cue) []playEvent {
	var events []playEvent
	add := func(v segment.Voice, key int, c session.Cue) {
		start := time.Duration(c.Time * float64(time.Second))
		end := time.Duration(c.End() * float64(time.Second))
		events = append(events,
			playEvent{at: start, ev: segment.Event{Kind: segment.NoteOn, Voice: v, Midi: key, Chord: c.ChordName, Time: c.Time}},
			playEvent{at: end, ev: segment.Event{Kind: segment.Release, Voice: v, Midi: key, Time: c.End()}},
		)
	}
	for _, c := range cues {
		add(segment.Lead, c.Lead, c)
		for _, key := range c.Chord {
			add(segment.Harmony, key, c)
		}
	}

	slices.SortStableFunc(events, func(a, b playEvent) int {
		if c := cmp.Compare(a.at, b.at); c != 0 {
			return c
		}
		return cmp.Compare(rank(a.ev.Kind), rank(b.ev.Kind))
	})
	return events
}

func rank(k segment.EventKind) int {
	if k == segment.Release {
		return 0
	}
	return 1
}

// Play performs cues on o in real time and returns when the last note has
// been released. Cancelling ctx stops playback and releases everything.
func Play(ctx context.Context, o *Output, cues []session.Cue) error {
	events := timeline(cues)
	log.Infof("MIDI: playing %d cues", len(cues))

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for _, pe := range events {
		if wait := pe.at - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				o.Panic()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			o.Panic()
			return err
		}
		o.Emit(pe.ev)
	}
	return nil
}
