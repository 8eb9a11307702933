// SPDX-License-Identifier: MIT
// Package midiout drives an external synthesizer over MIDI: live segmenter
// events become note-on, note-off and pitch-bend messages, and saved
// sessions can be played back in real time.
package midiout

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"hummer/internal/log"
	"hummer/internal/segment"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// SendFunc delivers one MIDI message to a port.
type SendFunc func(msg midi.Message) error

// Options configures channels and message values.
type Options struct {
	LeadChannel    uint8
	HarmonyChannel uint8
	Velocity       uint8
	// BendRange is the synth's pitch-bend range in semitones.
	BendRange float64
}

// DefaultOptions sends the lead on channel 1 and the chord on channel 2.
func DefaultOptions() Options {
	return Options{
		LeadChannel:    0,
		HarmonyChannel: 1,
		Velocity:       100,
		BendRange:      2,
	}
}

// Output is a segment.Sink that turns events into MIDI messages. It keeps
// track of the keys each voice holds so "release all" only sends the
// note-offs that are needed.
type Output struct {
	mu       sync.Mutex
	send     SendFunc
	opts     Options
	held     [2][128]bool
	lastBend [2]int16
	failed   bool
	closer   func() error
}

// New creates an Output writing through send.
func New(send SendFunc, opts Options) *Output {
	if opts.BendRange <= 0 {
		opts.BendRange = DefaultOptions().BendRange
	}
	return &Output{send: send, opts: opts}
}

// Open connects to the first output port whose name contains port (case
// insensitive), or the first port available when port is empty.
func Open(port string, opts Options) (*Output, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to list MIDI outputs: %w", err)
	}

	var found drivers.Out
	for _, out := range outs {
		if port == "" || strings.Contains(strings.ToLower(out.String()), strings.ToLower(port)) {
			found = out
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI output %q not found", port)
	}

	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", found.String(), err)
	}
	send, err := midi.SendTo(found)
	if err != nil {
		found.Close()
		drv.Close()
		return nil, fmt.Errorf("send to %q: %w", found.String(), err)
	}

	o := New(send, opts)
	o.closer = func() error {
		found.Close()
		return drv.Close()
	}
	log.Infof("MIDI: connected to %s", found.String())
	return o, nil
}

// Ports lists the names of the MIDI output ports.
func Ports() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()

	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list MIDI outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names, nil
}

func (o *Output) channel(v segment.Voice) uint8 {
	if v == segment.Harmony {
		return o.opts.HarmonyChannel
	}
	return o.opts.LeadChannel
}

// Emit implements segment.Sink.
func (o *Output) Emit(ev segment.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	voice := 0
	if ev.Voice == segment.Harmony {
		voice = 1
	}
	ch := o.channel(ev.Voice)

	switch ev.Kind {
	case segment.NoteOn:
		if ev.Midi < 0 || ev.Midi > 127 {
			return
		}
		o.write(midi.NoteOn(ch, uint8(ev.Midi), o.opts.Velocity))
		o.held[voice][ev.Midi] = true

	case segment.Release:
		if ev.Midi == segment.AllNotes {
			for key := range o.held[voice] {
				if o.held[voice][key] {
					o.write(midi.NoteOff(ch, uint8(key)))
					o.held[voice][key] = false
				}
			}
			return
		}
		if ev.Midi >= 0 && ev.Midi <= 127 && o.held[voice][ev.Midi] {
			o.write(midi.NoteOff(ch, uint8(ev.Midi)))
			o.held[voice][ev.Midi] = false
		}

	case segment.Detune:
		value := BendValue(ev.Cents, o.opts.BendRange)
		if value == o.lastBend[voice] {
			return
		}
		o.write(midi.Pitchbend(ch, value))
		o.lastBend[voice] = value
	}
}

func (o *Output) write(msg midi.Message) {
	if err := o.send(msg); err != nil {
		// Logged once per failure streak; the polling loop must not stall.
		if !o.failed {
			log.Warnf("MIDI: send failed: %v", err)
		}
		o.failed = true
		return
	}
	o.failed = false
}

// Held reports whether key is currently held by voice.
func (o *Output) Held(v segment.Voice, key int) bool {
	if key < 0 || key > 127 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	voice := 0
	if v == segment.Harmony {
		voice = 1
	}
	return o.held[voice][key]
}

// Panic releases every held key and centres the pitch bend on both voices.
func (o *Output) Panic() {
	for _, v := range []segment.Voice{segment.Lead, segment.Harmony} {
		o.Emit(segment.Event{Kind: segment.Release, Voice: v, Midi: segment.AllNotes})
		o.Emit(segment.Event{Kind: segment.Detune, Voice: v})
	}
}

// Close silences the synth and closes the port opened by Open.
func (o *Output) Close() error {
	o.Panic()
	if o.closer != nil {
		return o.closer()
	}
	return nil
}

// BendValue converts a cents offset to a 14-bit signed pitch-bend value for
// a synth with the given bend range in semitones.
func BendValue(cents, rangeSemitones float64) int16 {
	if rangeSemitones <= 0 {
		return 0
	}
	v := math.Round(cents / 100 / rangeSemitones * 8192)
	return int16(max(-8192, min(8191, v)))
}
