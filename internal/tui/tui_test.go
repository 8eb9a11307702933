// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hummer/internal/audio"
	"hummer/internal/scale"
	"hummer/internal/segment"
	"hummer/internal/session"
)

type fakeEngine struct {
	snap      audio.Snapshot
	control   audio.Control
	applied   int
	recording bool
	resets    int
}

func (f *fakeEngine) Snapshot() audio.Snapshot { return f.snap }
func (f *fakeEngine) Control() audio.Control   { return f.control }
func (f *fakeEngine) Apply(c audio.Control) {
	f.control = c
	f.applied++
}
func (f *fakeEngine) StartRecording(string) error {
	f.recording = true
	return nil
}
func (f *fakeEngine) StopRecording() (*session.Session, error) {
	f.recording = false
	return &session.Session{ID: "abc", Notes: make([]session.RecordedNote, 2)}, nil
}
func (f *fakeEngine) Recording() bool { return f.recording }
func (f *fakeEngine) Reset()          { f.resets++ }

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, keys ...string) (tea.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(keyMsg(k))
	}
	return m, cmd
}

func TestMonitorSettingsKeys(t *testing.T) {
	eng := &fakeEngine{control: audio.Control{
		Settings:    segment.DefaultSettings(),
		Sensitivity: 0.02,
		MicBoost:    3,
	}}
	m := NewMonitorModel(eng)

	press(t, m, "m")
	assert.Equal(t, segment.Midi, eng.control.Settings.Mode)
	press(t, m, "m", "m")
	assert.Equal(t, segment.Idle, eng.control.Settings.Mode)

	press(t, m, "s")
	assert.Equal(t, scale.Minor, eng.control.Settings.Scale)
	eng.control.Settings.Scale = scale.Chromatic
	press(t, m, "s")
	assert.Equal(t, scale.Major, eng.control.Settings.Scale)

	press(t, m, "h", "b")
	assert.False(t, eng.control.Settings.Harmonize)
	assert.False(t, eng.control.Settings.Bend)

	press(t, m, "+")
	assert.InDelta(t, 0.015, eng.control.Sensitivity, 1e-9)
	press(t, m, "-", "-")
	assert.InDelta(t, 0.025, eng.control.Sensitivity, 1e-9)
	press(t, m, "]")
	assert.InDelta(t, 3.5, eng.control.MicBoost, 1e-9)
	press(t, m, "[")
	assert.InDelta(t, 3.0, eng.control.MicBoost, 1e-9)

	applied := eng.applied
	press(t, m, "z")
	assert.Equal(t, applied, eng.applied, "unbound keys change nothing")
}

func TestMonitorRecordAndReset(t *testing.T) {
	eng := &fakeEngine{}
	var model tea.Model = NewMonitorModel(eng)

	model, cmd := press(t, model, "r")
	require.NotNil(t, cmd)
	model, _ = model.Update(cmd())
	assert.True(t, eng.recording)
	assert.Contains(t, model.View(), "Recording")

	model, cmd = press(t, model, "r")
	require.NotNil(t, cmd)
	model, _ = model.Update(cmd())
	assert.False(t, eng.recording)
	assert.Contains(t, model.View(), "Saved session abc (2 notes)")

	model, _ = press(t, model, "x")
	assert.Equal(t, 1, eng.resets)
	assert.Contains(t, model.View(), "All notes released")

	model, _ = model.Update(errMsg{errors.New("no input")})
	assert.Contains(t, model.View(), "Error: no input")
}

func TestMonitorQuit(t *testing.T) {
	_, cmd := press(t, NewMonitorModel(&fakeEngine{}), "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestMonitorView(t *testing.T) {
	eng := &fakeEngine{}
	var model tea.Model = NewMonitorModel(eng)
	assert.Contains(t, model.View(), "--")

	eng.snap = audio.Snapshot{
		Snapshot: segment.Snapshot{
			Mode: segment.Record, Sounding: true, Midi: 69, Note: "A4",
			Chord: "Amin", Cents: 12, Recording: true, Recorded: 3,
		},
		Control:   audio.Control{Settings: segment.DefaultSettings(), Sensitivity: 0.01, MicBoost: 2},
		Level:     0.2,
		Gate:      true,
		Voiced:    true,
		Frequency: 443,
	}
	model, cmd := model.Update(tickMsg{})
	require.NotNil(t, cmd, "ticks keep the refresh going")

	view := model.View()
	for _, want := range []string{"A4", "Amin", "REC 3", "RECORD", "MAJOR", "443.0 Hz", "+12.0", "Boost 2.0x"} {
		assert.Contains(t, view, want)
	}
}

func TestCentsMeter(t *testing.T) {
	mid := meterWidth / 2
	assert.Equal(t, mid, runeIndex(centsMeter(0, true), '●'))
	assert.Equal(t, meterWidth, runeIndex(centsMeter(50, true), '●'))
	assert.Equal(t, 0, runeIndex(centsMeter(-80, true), '●'))
	assert.Equal(t, -1, runeIndex(centsMeter(10, false), '●'))
	assert.Equal(t, mid, runeIndex(centsMeter(10, false), '|'))
}

func runeIndex(s string, r rune) int {
	for i, c := range []rune(s) {
		if c == r {
			return i
		}
	}
	return -1
}

func testDevices() ([]audio.Device, error) {
	return []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 48000, IsDefaultInput: true},
		{ID: 2, Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
	}, nil
}

func TestDeviceListSelection(t *testing.T) {
	var model tea.Model = NewDeviceListModel(testDevices)
	assert.Equal(t, "Initializing...", model.View())

	model, _ = model.Update(model.Init()())
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m := model.(DeviceListModel)
	assert.Equal(t, 1, m.selectedIndex, "default input is preselected")
	assert.Contains(t, model.View(), "USB Mic")

	model, _ = press(t, model, "k")
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ListScreen, model.(DeviceListModel).activeScreen)
	assert.Contains(t, model.View(), "Speakers has no inputs")

	model, _ = press(t, model, "j", "j")
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(DeviceListModel)
	require.Equal(t, ConfigScreen, m.activeScreen)
	assert.Equal(t, 96000.0, sampleRates[m.sampleRateIndex])
	assert.Contains(t, model.View(), "Configure Device: Interface")

	model, _ = press(t, model, "k")
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	sel, ok := model.(DeviceListModel).Selection()
	require.True(t, ok)
	assert.Equal(t, "Interface", sel.Device.Name)
	assert.Equal(t, 88200.0, sel.SampleRate)
}

func TestDeviceListError(t *testing.T) {
	var model tea.Model = NewDeviceListModel(func() ([]audio.Device, error) {
		return nil, errors.New("no host")
	})
	model, _ = model.Update(model.Init()())
	assert.Contains(t, model.View(), "Error: no host")

	_, ok := model.(DeviceListModel).Selection()
	assert.False(t, ok)
}
