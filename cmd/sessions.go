// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"hummer/internal/config"
	"hummer/internal/log"
	"hummer/internal/midiout"
	"hummer/internal/session"
)

// ResolveSession loads the session whose ID is id or starts with it.
func ResolveSession(store *session.FileStore, id string) (*session.Session, error) {
	s, err := store.Load(id)
	if err == nil || !errors.Is(err, session.ErrNotFound) {
		return s, err
	}

	all, err := store.List()
	if err != nil {
		return nil, err
	}
	var match *session.Session
	for _, s := range all {
		if !strings.HasPrefix(s.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session prefix %q is ambiguous", id)
		}
		match = s
	}
	if match == nil {
		return nil, fmt.Errorf("session %q: %w", id, session.ErrNotFound)
	}
	return match, nil
}

// ListSessions prints the vault, newest first.
func ListSessions(w io.Writer, store *session.FileStore) error {
	all, err := store.List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintf(w, "No sessions in %s\n", store.Dir())
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORDED\tNOTES\tLENGTH\tSCALE\tINSTRUMENT")
	for _, s := range all {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1fs\t%s\t%s\n",
			s.ID, s.Timestamp.Local().Format("2006-01-02 15:04:05"), len(s.Notes),
			s.Duration(), s.Scale, s.Instrument)
	}
	return tw.Flush()
}

// PrintNotes writes one line per note.
func PrintNotes(w io.Writer, notes []session.RecordedNote) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDURATION\tNOTE")
	for _, n := range notes {
		fmt.Fprintf(tw, "%.3f\t%.3f\t%s\n", n.Time, n.Duration, n.Note)
	}
	return tw.Flush()
}

// ShowSession prints a session's header and notes.
func ShowSession(w io.Writer, s *session.Session) error {
	fmt.Fprintf(w, "Session %s\n", s.ID)
	fmt.Fprintf(w, "Recorded %s, %d BPM, scale %s\n", s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.BPM, s.Scale)
	if s.AudioFile != "" {
		fmt.Fprintf(w, "Audio %s\n", s.AudioFile)
	}
	fmt.Fprintln(w)
	return PrintNotes(w, session.SortByTime(s.Notes))
}

// CompactSession prints the notes with gaps longer than maxGap shortened.
func CompactSession(w io.Writer, s *session.Session, maxGap float64) error {
	notes := session.CompactGap(s.Notes, maxGap)
	fmt.Fprintf(w, "Session %s: %.1fs -> %.1fs\n\n", s.ID, s.Duration(), session.Span(notes))
	return PrintNotes(w, notes)
}

// ExportSession writes s as a MIDI file at path, <id>.mid when empty, and
// returns the path written.
func ExportSession(s *session.Session, path string, opts session.ExportOptions) (string, error) {
	if path == "" {
		path = s.ID + ".mid"
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := session.WriteSMF(f, s, opts); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Infof("Export: wrote %s", path)
	return path, nil
}

// PlaySession plays s on the configured MIDI output until it ends or ctx
// is cancelled.
func PlaySession(ctx context.Context, cfg *config.Config, s *session.Session) error {
	notes := session.SortByTime(s.Notes)
	if cfg.Recording.SkipSilences {
		notes = session.CompactGap(s.Notes, cfg.Recording.MaxGap)
	}
	cues, err := session.Schedule(notes, cfg.Perform.Harmonize, s.Scale)
	if err != nil {
		return err
	}
	out, err := midiout.Open(cfg.Midi.OutPort, cfg.MidiOptions())
	if err != nil {
		return err
	}
	defer out.Close()

	log.Infof("Play: %s, %d cues", s.ID, len(cues))
	if err := midiout.Play(ctx, out, cues); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
