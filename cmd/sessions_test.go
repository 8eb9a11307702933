// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hummer/internal/audio"
	"hummer/internal/scale"
	"hummer/internal/session"
	"hummer/internal/tui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
	"gopkg.in/yaml.v3"
)

func newStore(t *testing.T, sessions ...*session.Session) *session.FileStore {
	t.Helper()
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, s := range sessions {
		require.NoError(t, store.Save(s))
	}
	return store
}

func testSession(id string, ts time.Time) *session.Session {
	s := session.New([]session.RecordedNote{
		{Note: "E4", Time: 2.0, Duration: 0.5},
		{Note: "C4", Time: 0, Duration: 0.5},
	}, scale.Major)
	s.ID = id
	s.Timestamp = ts
	return s
}

func TestResolveSession(t *testing.T) {
	now := time.Now()
	store := newStore(t,
		testSession("aaaa-1111", now),
		testSession("aaaa-2222", now.Add(time.Second)),
		testSession("bbbb-3333", now.Add(2*time.Second)),
	)

	t.Run("exact", func(t *testing.T) {
		s, err := ResolveSession(store, "aaaa-2222")
		require.NoError(t, err)
		assert.Equal(t, "aaaa-2222", s.ID)
	})

	t.Run("unique prefix", func(t *testing.T) {
		s, err := ResolveSession(store, "bb")
		require.NoError(t, err)
		assert.Equal(t, "bbbb-3333", s.ID)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := ResolveSession(store, "aaaa")
		assert.ErrorContains(t, err, "ambiguous")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := ResolveSession(store, "cccc")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}

func TestListSessions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		store := newStore(t)
		var buf bytes.Buffer
		require.NoError(t, ListSessions(&buf, store))
		assert.Contains(t, buf.String(), "No sessions in")
	})

	t.Run("newest first", func(t *testing.T) {
		now := time.Now()
		store := newStore(t,
			testSession("older", now),
			testSession("newer", now.Add(time.Minute)),
		)
		var buf bytes.Buffer
		require.NoError(t, ListSessions(&buf, store))

		out := buf.String()
		assert.Contains(t, out, "MAJOR")
		assert.Less(t, bytes.Index(buf.Bytes(), []byte("newer")), bytes.Index(buf.Bytes(), []byte("older")))
	})
}

func TestShowSessionSortsNotes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ShowSession(&buf, testSession("show", time.Now())))

	out := buf.String()
	assert.Contains(t, out, "Session show")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("C4")), bytes.Index(buf.Bytes(), []byte("E4")))
}

func TestCompactSession(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CompactSession(&buf, testSession("gap", time.Now()), 0.3))

	// The 1.5s silence between C4 and E4 shrinks to 0.3s.
	assert.Contains(t, buf.String(), "2.5s -> 1.3s")
	assert.Contains(t, buf.String(), "0.800")
}

func TestExportSession(t *testing.T) {
	s := testSession("export", time.Now())
	path := filepath.Join(t.TempDir(), "take.mid")

	opts := session.DefaultExportOptions()
	opts.Harmonize = false
	written, err := ExportSession(s, path, opts)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	file, err := smf.ReadFrom(f)
	require.NoError(t, err)
	assert.NotEmpty(t, file.Tracks)
}

func TestExportSessionBadPath(t *testing.T) {
	_, err := ExportSession(testSession("x", time.Now()), filepath.Join(t.TempDir(), "missing", "x.mid"), session.DefaultExportOptions())
	assert.Error(t, err)
}

func TestWriteSelection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSelection(&buf, tui.Selection{
		Device:     audio.Device{ID: 3, Name: "Interface"},
		SampleRate: 48000,
	}))

	var got struct {
		Audio struct {
			InputDevice int     `yaml:"input_device"`
			SampleRate  float64 `yaml:"sample_rate"`
		} `yaml:"audio"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got.Audio.InputDevice)
	assert.Equal(t, 48000.0, got.Audio.SampleRate)
}

func TestWritePorts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePorts(&buf, nil))
	assert.Contains(t, buf.String(), "(none)")

	buf.Reset()
	require.NoError(t, writePorts(&buf, []string{"Synth A", "Synth B"}))
	assert.Contains(t, buf.String(), "[1] Synth B")
}
