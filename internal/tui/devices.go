// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hummer/internal/audio"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

var sampleRates = []float64{22050, 44100, 48000, 88200, 96000}

// Selection is the device and rate picked in the device list.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

// DeviceListModel lists host devices and lets the user pick an input and
// its sample rate.
type DeviceListModel struct {
	load          func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
	notice        string

	sampleRateIndex int
	selection       *Selection
}

// NewDeviceListModel creates a device list reading from load.
func NewDeviceListModel(load func() ([]audio.Device, error)) DeviceListModel {
	return DeviceListModel{
		load:         load,
		activeScreen: ListScreen,
	}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// Init fetches the devices.
func (m DeviceListModel) Init() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		devices, err := load()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Selection returns what the user picked, if anything.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.IsDefaultInput {
				m.selectedIndex = i
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
		if m.activeScreen == ListScreen {
			return m.updateList(msg)
		}
		return m.updateConfig(msg)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DeviceListModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
		if len(m.devices) == 0 {
			break
		}
		device := m.devices[m.selectedIndex]
		if !device.CanRecord() {
			m.notice = fmt.Sprintf("%s has no inputs", device.Name)
			break
		}
		m.notice = ""
		m.activeScreen = ConfigScreen
		m.sampleRateIndex = 0
		for i, rate := range sampleRates {
			if rate == device.DefaultSampleRate {
				m.sampleRateIndex = i
				break
			}
		}
	}
	m.refresh()
	return m, nil
}

func (m DeviceListModel) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
		m.activeScreen = ListScreen
	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.sampleRateIndex > 0 {
			m.sampleRateIndex--
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.sampleRateIndex < len(sampleRates)-1 {
			m.sampleRateIndex++
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
		m.selection = &Selection{
			Device:     m.devices[m.selectedIndex],
			SampleRate: sampleRates[m.sampleRateIndex],
		}
		return m, tea.Quit
	}
	m.refresh()
	return m, nil
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// View renders the UI
func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Change Value • Enter: Use • Esc: Back • q: Quit")
	}
	if m.notice != "" {
		help = errorStyle.Render(m.notice) + "\n" + help
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := ""
		if device.IsDefaultInput {
			marker = " *"
		}
		info := fmt.Sprintf("[%d] %s (%s)%s\n", device.ID, device.Name, device.Kind(), marker)
		info += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			info = highlightStyle.Render(info)
		case !device.CanRecord():
			info = dimStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	sb.WriteString("Sample Rate:\n")
	for i, rate := range sampleRates {
		cursor := " "
		if i == m.sampleRateIndex {
			cursor = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", cursor, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// StartDeviceListUI runs the device picker and returns the selection, if
// the user made one.
func StartDeviceListUI(load func() ([]audio.Device, error)) (Selection, bool, error) {
	p := tea.NewProgram(NewDeviceListModel(load), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok := final.(DeviceListModel).Selection()
	return sel, ok, nil
}
