// SPDX-License-Identifier: MIT
package audio

import (
	"hummer/internal/config"
	"hummer/internal/log"
	"hummer/internal/scale"
	"hummer/internal/segment"
	"hummer/internal/transport"
)

// Control is everything a user can change while the engine runs. It is
// handed to the polling loop as a whole.
type Control struct {
	Settings segment.Settings
	// Sensitivity is the boosted RMS level that opens the gate.
	Sensitivity float64
	// MicBoost multiplies the input before the level is measured.
	MicBoost float64
}

// clamped keeps the gate values inside their supported ranges.
func (c Control) clamped() Control {
	c.Sensitivity = min(max(c.Sensitivity, config.MinSensitivity), config.MaxSensitivity)
	c.MicBoost = min(max(c.MicBoost, config.MinMicBoost), config.MaxMicBoost)
	return c
}

// Apply queues c for the polling loop. Only the latest queued control
// matters, so a full queue drops its oldest entry.
func (e *Engine) Apply(c Control) {
	c = c.clamped()
	e.desired.Store(&c)
	for {
		select {
		case e.controls <- c:
			return
		default:
		}
		select {
		case <-e.controls:
		default:
		}
	}
}

// Control returns the most recently requested control, which may not have
// reached the loop yet.
func (e *Engine) Control() Control {
	return *e.desired.Load()
}

// SetSensitivity changes the gate threshold.
func (e *Engine) SetSensitivity(v float64) {
	c := e.Control()
	c.Sensitivity = v
	e.Apply(c)
}

// SetMicBoost changes the input gain.
func (e *Engine) SetMicBoost(v float64) {
	c := e.Control()
	c.MicBoost = v
	e.Apply(c)
}

// drainControls applies every queued control. e.mu must be held.
func (e *Engine) drainControls() {
	for {
		select {
		case c := <-e.controls:
			e.segmenter.Apply(c.Settings)
			c.Settings = e.segmenter.Settings()
			e.control = c
			log.Debugf("Engine: Applied mode=%s scale=%s sensitivity=%.3f boost=%.1f",
				c.Settings.Mode, c.Settings.Scale, c.Sensitivity, c.MicBoost)
		default:
			return
		}
	}
}

// HandleControl acts on a message from a remote client.
func (e *Engine) HandleControl(msg transport.ControlMessage) error {
	switch msg.Type {
	case transport.ControlRecord:
		return e.StartRecording("")
	case transport.ControlStop:
		_, err := e.StopRecording()
		return err
	case transport.ControlReset:
		e.Reset()
		return nil
	}

	c := e.Control()
	if msg.Mode != nil {
		mode, err := segment.ParseMode(*msg.Mode)
		if err != nil {
			return err
		}
		c.Settings.Mode = mode
	}
	if msg.Scale != nil {
		sc, err := scale.Parse(*msg.Scale)
		if err != nil {
			return err
		}
		c.Settings.Scale = sc
	}
	if msg.Harmonize != nil {
		c.Settings.Harmonize = *msg.Harmonize
	}
	if msg.Bend != nil {
		c.Settings.Bend = *msg.Bend
	}
	if msg.Glide != nil {
		c.Settings.Glide = max(*msg.Glide, 0)
	}
	if msg.Sensitivity != nil {
		c.Sensitivity = *msg.Sensitivity
	}
	if msg.MicBoost != nil {
		c.MicBoost = *msg.MicBoost
	}
	e.Apply(c)
	return nil
}

// Reset releases everything sounding, the "stop all" of the performer.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.segmenter.Reset(e.now())
}
