// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"hummer/internal/audio"
	"hummer/internal/midiout"
	"hummer/internal/tui"

	"gopkg.in/yaml.v3"
)

// ListHardware writes the audio devices followed by the MIDI out ports.
func ListHardware(w io.Writer) error {
	if err := audio.ListDevices(w); err != nil {
		return err
	}
	ports, err := midiout.Ports()
	if err != nil {
		fmt.Fprintf(w, "MIDI out ports unavailable: %v\n", err)
		return nil
	}
	return writePorts(w, ports)
}

func writePorts(w io.Writer, ports []string) error {
	fmt.Fprintf(w, "MIDI Out Ports\n\n")
	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "    (none)")
		return err
	}
	for i, p := range ports {
		if _, err := fmt.Fprintf(w, "[%d] %s\n", i, p); err != nil {
			return err
		}
	}
	return nil
}

type audioSection struct {
	Audio struct {
		InputDevice int     `yaml:"input_device"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"audio"`
}

// WriteSelection writes sel as the audio section of a config file.
func WriteSelection(w io.Writer, sel tui.Selection) error {
	var out audioSection
	out.Audio.InputDevice = sel.Device.ID
	out.Audio.SampleRate = sel.SampleRate
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	return enc.Close()
}

// PickDevice runs the interactive device picker and prints the chosen
// settings for pasting into the config file.
func PickDevice(w io.Writer) error {
	sel, ok, err := tui.StartDeviceListUI(audio.HostDevices)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	fmt.Fprintf(w, "# %s\n", sel.Device.Name)
	return WriteSelection(w, sel)
}
