// SPDX-License-Identifier: MIT

// Package transport carries engine state to the outside world: segment
// events and status snapshots out, control messages in.
package transport

import (
	"encoding/json"
	"fmt"

	"hummer/internal/segment"
)

// Transport defines a generic interface for sending events or state.
// Implementations should be thread-safe and must not block the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// Status is the engine state published to observers.
type Status struct {
	Mode        string  `json:"mode"`
	Scale       string  `json:"scale"`
	Level       float64 `json:"level"`
	Gate        bool    `json:"gate"`
	Frequency   float64 `json:"frequency"`
	Voiced      bool    `json:"voiced"`
	Sounding    bool    `json:"sounding"`
	Midi        int     `json:"midi"`
	Note        string  `json:"note,omitempty"`
	Chord       string  `json:"chord,omitempty"`
	Cents       float64 `json:"cents"`
	Recording   bool    `json:"recording"`
	Recorded    int     `json:"recorded"`
	Sensitivity float64 `json:"sensitivity"`
	MicBoost    float64 `json:"mic_boost"`
	Time        float64 `json:"time"`
}

// StatusProvider returns the most recent engine status. It is called from
// publisher goroutines and must be safe for concurrent use.
type StatusProvider interface {
	Status() Status
}

// StatusFunc adapts a function to StatusProvider.
type StatusFunc func() Status

// Status calls f.
func (f StatusFunc) Status() Status { return f() }

// EventMessage is the wire form of a segment event.
type EventMessage struct {
	Type  string  `json:"type"`
	Kind  string  `json:"kind"`
	Voice string  `json:"voice"`
	Midi  int     `json:"midi"`
	Note  string  `json:"note,omitempty"`
	Chord string  `json:"chord,omitempty"`
	Cents float64 `json:"cents,omitempty"`
	Time  float64 `json:"time"`
}

// NewEventMessage converts ev to its wire form.
func NewEventMessage(ev segment.Event) EventMessage {
	return EventMessage{
		Type:  "event",
		Kind:  ev.Kind.String(),
		Voice: ev.Voice.String(),
		Midi:  ev.Midi,
		Note:  ev.Note,
		Chord: ev.Chord,
		Cents: ev.Cents,
		Time:  ev.Time,
	}
}

// EventSink forwards segment events to a Transport. Detune events are
// forwarded only when Detune is set, they arrive on every sounding tick.
type EventSink struct {
	Transport Transport
	Detune    bool
}

// Emit sends ev. Transport errors are dropped; the segmenter has no way to
// react to them.
func (s EventSink) Emit(ev segment.Event) {
	if ev.Kind == segment.Detune && !s.Detune {
		return
	}
	_ = s.Transport.Send(NewEventMessage(ev))
}

var _ segment.Sink = EventSink{}

// Control message types.
const (
	ControlSettings = "settings"
	ControlRecord   = "record"
	ControlStop     = "stop"
	ControlReset    = "reset"
)

// ControlMessage is an inbound request from a client. Settings fields are
// optional; only the ones present are changed.
type ControlMessage struct {
	Type        string   `json:"type"`
	Mode        *string  `json:"mode,omitempty"`
	Scale       *string  `json:"scale,omitempty"`
	Harmonize   *bool    `json:"harmonize,omitempty"`
	Bend        *bool    `json:"bend,omitempty"`
	Glide       *float64 `json:"glide,omitempty"`
	Sensitivity *float64 `json:"sensitivity,omitempty"`
	MicBoost    *float64 `json:"mic_boost,omitempty"`
}

// ParseControl decodes a control message. A missing type means settings.
func ParseControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("decode control message: %w", err)
	}
	switch msg.Type {
	case "":
		msg.Type = ControlSettings
	case ControlSettings, ControlRecord, ControlStop, ControlReset:
	default:
		return ControlMessage{}, fmt.Errorf("unknown control message type %q", msg.Type)
	}
	return msg, nil
}

// ControlHandler receives decoded control messages.
type ControlHandler func(ControlMessage)
