// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"hummer/internal/audio"
	"hummer/internal/scale"
	"hummer/internal/segment"
	"hummer/internal/session"
)

// RefreshInterval is how often the monitor redraws.
const RefreshInterval = 50 * time.Millisecond

const (
	meterWidth       = 30
	sensitivityStep  = 0.005
	boostStep        = 0.5
	selectableScales = int(scale.Chromatic) + 1
)

// Controller is the part of the engine the monitor drives.
type Controller interface {
	Snapshot() audio.Snapshot
	Control() audio.Control
	Apply(audio.Control)
	StartRecording(filename string) error
	StopRecording() (*session.Session, error)
	Recording() bool
	Reset()
}

type monitorKeys struct {
	Mode        key.Binding
	Scale       key.Binding
	Harmonize   key.Binding
	Bend        key.Binding
	Record      key.Binding
	Reset       key.Binding
	Sensitivity key.Binding
	Insensitive key.Binding
	BoostUp     key.Binding
	BoostDown   key.Binding
	Quit        key.Binding
}

func (k monitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Mode, k.Scale, k.Record, k.Reset, k.Quit}
}

func (k monitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Mode, k.Scale, k.Harmonize, k.Bend},
		{k.Record, k.Reset},
		{k.Sensitivity, k.Insensitive, k.BoostUp, k.BoostDown},
		{k.Quit},
	}
}

var defaultKeys = monitorKeys{
	Mode:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
	Scale:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scale")),
	Harmonize:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "harmonizer")),
	Bend:        key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bend")),
	Record:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record/stop")),
	Reset:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop all")),
	Sensitivity: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more sensitive")),
	Insensitive: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "less sensitive")),
	BoostUp:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "boost up")),
	BoostDown:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "boost down")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

type sessionMsg struct {
	session *session.Session
	err     error
}

type statusMsg string

// MonitorModel shows the engine state live and maps keys to control
// changes.
type MonitorModel struct {
	engine Controller
	keys   monitorKeys
	help   help.Model

	snap   audio.Snapshot
	status string
	err    error
	width  int
}

// NewMonitorModel creates a monitor for engine.
func NewMonitorModel(engine Controller) MonitorModel {
	return MonitorModel{
		engine: engine,
		keys:   defaultKeys,
		help:   help.New(),
		snap:   engine.Snapshot(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh ticker.
func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

// Update handles keys and refresh ticks.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.engine.Snapshot()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case sessionMsg:
		m.err = msg.err
		if msg.session != nil {
			m.status = fmt.Sprintf("Saved session %s (%d notes)", msg.session.ID, len(msg.session.Notes))
		}

	case statusMsg:
		m.status = string(msg)

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m MonitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.engine.Control()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Record):
		return m, m.toggleRecording()

	case key.Matches(msg, m.keys.Reset):
		m.engine.Reset()
		m.status = "All notes released"
		return m, nil

	case key.Matches(msg, m.keys.Mode):
		c.Settings.Mode = nextMode(c.Settings.Mode)
	case key.Matches(msg, m.keys.Scale):
		c.Settings.Scale = scale.Type((int(c.Settings.Scale) + 1) % selectableScales)
	case key.Matches(msg, m.keys.Harmonize):
		c.Settings.Harmonize = !c.Settings.Harmonize
	case key.Matches(msg, m.keys.Bend):
		c.Settings.Bend = !c.Settings.Bend
	case key.Matches(msg, m.keys.Sensitivity):
		c.Sensitivity -= sensitivityStep
	case key.Matches(msg, m.keys.Insensitive):
		c.Sensitivity += sensitivityStep
	case key.Matches(msg, m.keys.BoostUp):
		c.MicBoost += boostStep
	case key.Matches(msg, m.keys.BoostDown):
		c.MicBoost -= boostStep
	default:
		return m, nil
	}
	m.engine.Apply(c)
	return m, nil
}

// nextMode cycles through the modes a performer picks by hand. Record is
// entered through the record key instead.
func nextMode(mode segment.Mode) segment.Mode {
	switch mode {
	case segment.Idle:
		return segment.Midi
	case segment.Midi:
		return segment.Passthrough
	default:
		return segment.Idle
	}
}

func (m MonitorModel) toggleRecording() tea.Cmd {
	engine := m.engine
	if engine.Recording() {
		return func() tea.Msg {
			s, err := engine.StopRecording()
			return sessionMsg{session: s, err: err}
		}
	}
	return func() tea.Msg {
		if err := engine.StartRecording(""); err != nil {
			return errMsg{err}
		}
		return statusMsg("Recording")
	}
}

// View renders the monitor.
func (m MonitorModel) View() string {
	var sb strings.Builder
	s := m.snap

	sb.WriteString(titleStyle.Render("hummer"))
	if s.Recording {
		sb.WriteString(" ")
		sb.WriteString(recStyle.Render(fmt.Sprintf("REC %d", s.Recorded)))
	}
	sb.WriteString("\n\n")

	note, chord := "--", ""
	if s.Sounding {
		note, chord = s.Note, s.Chord
	}
	sb.WriteString(noteStyle.Render(note))
	sb.WriteString(infoStyle.Render(chord))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Cents  %s %+5.1f\n", centsMeter(s.Cents, s.Sounding), s.Cents)
	fmt.Fprintf(&sb, "Level  %s %.3f\n", levelMeter(s.Level, s.Sensitivity), s.Level)
	if s.Voiced {
		fmt.Fprintf(&sb, "Pitch  %.1f Hz\n", s.Frequency)
	} else {
		sb.WriteString(dimStyle.Render("Pitch  -"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Mode %s  Scale %s  Harmonizer %s  Bend %s\n",
		highlightStyle.Render(s.Mode.String()),
		highlightStyle.Render(s.Settings.Scale.String()),
		onOff(s.Settings.Harmonize), onOff(s.Settings.Bend))
	fmt.Fprintf(&sb, "Sensitivity %.3f  Boost %.1fx\n", s.Sensitivity, s.MicBoost)

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	} else if m.status != "" {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(m.status))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func onOff(v bool) string {
	if v {
		return highlightStyle.Render("on")
	}
	return dimStyle.Render("off")
}

// centsMeter draws the deviation from the note centre, -50 to +50 cents.
func centsMeter(cents float64, sounding bool) string {
	cells := []rune(strings.Repeat("·", meterWidth+1))
	mid := meterWidth / 2
	cells[mid] = '|'
	if sounding {
		pos := mid + int(math.Round(cents/50*float64(mid)))
		pos = min(max(pos, 0), meterWidth)
		cells[pos] = '●'
	}
	return string(cells)
}

// levelMeter draws the input level with the gate threshold marked.
func levelMeter(level, sensitivity float64) string {
	fill := min(int(math.Round(level*meterWidth*4)), meterWidth)
	mark := min(int(math.Round(sensitivity*meterWidth*4)), meterWidth-1)
	cells := []rune(strings.Repeat(" ", meterWidth))
	for i := range fill {
		cells[i] = '█'
	}
	if cells[mark] == ' ' {
		cells[mark] = '¦'
	}
	bar := string(cells)
	if level > sensitivity {
		return highlightStyle.Render(bar)
	}
	return dimStyle.Render(bar)
}

// StartMonitorUI runs the monitor until the user quits.
func StartMonitorUI(engine Controller) error {
	p := tea.NewProgram(NewMonitorModel(engine), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
