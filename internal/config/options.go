// SPDX-License-Identifier: MIT
package config

import (
	"hummer/internal/log"
	"hummer/internal/midiout"
	"hummer/internal/pitch"
	"hummer/internal/scale"
	"hummer/internal/segment"
	"hummer/internal/session"
)

// Level returns the log level selected by LogLevel, or Debug when Debug is
// set.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// PitchOptions converts the detect section to estimator options.
func (c *Config) PitchOptions() (pitch.Options, error) {
	method, err := pitch.ParseMethod(c.Detect.Method)
	if err != nil {
		return pitch.Options{}, err
	}
	return pitch.Options{
		RemoveDC:            c.Detect.RemoveDC,
		SilenceRMS:          c.Detect.SilenceRMS,
		CenterClip:          c.Detect.CenterClip,
		MinCorrelationRatio: c.Detect.MinCorrelationRatio,
		Method:              method,
	}, nil
}

// Settings converts the perform section to segmenter settings.
func (c *Config) Settings() (segment.Settings, error) {
	mode, err := segment.ParseMode(c.Perform.Mode)
	if err != nil {
		return segment.Settings{}, err
	}
	sc, err := scale.Parse(c.Perform.Scale)
	if err != nil {
		return segment.Settings{}, err
	}
	return segment.Settings{
		Mode:            mode,
		Scale:           sc,
		Harmonize:       c.Perform.Harmonize,
		Bend:            c.Perform.Bend,
		Glide:           c.Perform.Glide,
		MinNoteDuration: c.Perform.MinNoteDuration,
	}, nil
}

// MidiOptions converts the midi section to output options.
func (c *Config) MidiOptions() midiout.Options {
	return midiout.Options{
		LeadChannel:    uint8(c.Midi.LeadChannel),
		HarmonyChannel: uint8(c.Midi.HarmonyChannel),
		Velocity:       uint8(c.Midi.Velocity),
		BendRange:      c.Midi.BendRange,
	}
}

// ExportOptions converts the recording and midi sections to MIDI file
// export options.
func (c *Config) ExportOptions() session.ExportOptions {
	return session.ExportOptions{
		SkipSilences: c.Recording.SkipSilences,
		MaxGap:       c.Recording.MaxGap,
		Harmonize:    c.Perform.Harmonize,
		LeadChannel:  uint8(c.Midi.LeadChannel),
		ChordChannel: uint8(c.Midi.HarmonyChannel),
		Velocity:     uint8(c.Midi.Velocity),
	}
}
