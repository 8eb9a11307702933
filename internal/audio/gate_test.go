// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"hummer/internal/scale"
	"hummer/internal/segment"
	"hummer/internal/transport"
)

func TestControlClamped(t *testing.T) {
	tests := []struct {
		desc                string
		sensitivity, boost  float64
		wantSens, wantBoost float64
	}{
		{"In range", 0.2, 4, 0.2, 4},
		{"Below min", -0.1, 0, 0, 0.1},
		{"Above max", 1.5, 50, 1, 20},
		{"Boundaries", 0, 0.1, 0, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			c := Control{Sensitivity: tt.sensitivity, MicBoost: tt.boost}.clamped()
			if c.Sensitivity != tt.wantSens || c.MicBoost != tt.wantBoost {
				t.Errorf("clamped = %v/%v, want %v/%v", c.Sensitivity, c.MicBoost, tt.wantSens, tt.wantBoost)
			}
		})
	}
}

func TestApplyReachesLoopOnTick(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(t))

	c := e.Control()
	c.Settings.Scale = scale.Minor
	c.Settings.Harmonize = false
	e.Apply(c)

	if got := e.Control().Settings.Scale; got != scale.Minor {
		t.Errorf("Control().Scale = %v, want MINOR right away", got)
	}
	if got := e.Snapshot().Settings.Scale; got != scale.Major {
		t.Errorf("Snapshot scale = %v before the tick, want MAJOR", got)
	}

	e.tick(1)
	snap := e.Snapshot()
	if snap.Settings.Scale != scale.Minor || snap.Settings.Harmonize {
		t.Errorf("after tick settings = %+v", snap.Settings)
	}
}

func TestApplyNeverBlocks(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(t))

	for i := 0; i < controlBuffer*3; i++ {
		e.SetSensitivity(float64(i) / 100)
	}
	e.SetMicBoost(50)
	e.tick(1)

	snap := e.Snapshot()
	want := float64(controlBuffer*3-1) / 100
	if snap.Sensitivity != want {
		t.Errorf("Sensitivity = %v, want latest %v", snap.Sensitivity, want)
	}
	if snap.MicBoost != 20 {
		t.Errorf("MicBoost = %v, want clamped 20", snap.MicBoost)
	}
}

func TestApplyModeDuringTake(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(t))
	if err := e.StartRecording(""); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	c := e.Control()
	c.Settings.Mode = segment.Passthrough
	e.Apply(c)
	e.tick(1)

	if mode := e.Snapshot().Mode; mode != segment.Record {
		t.Errorf("Mode = %v during a take, want RECORD", mode)
	}
}

func ptr[T any](v T) *T { return &v }

func TestHandleControlSettings(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(t))

	err := e.HandleControl(transport.ControlMessage{
		Type:        transport.ControlSettings,
		Mode:        ptr("voice"),
		Scale:       ptr("blues"),
		Bend:        ptr(false),
		Glide:       ptr(-1.0),
		Sensitivity: ptr(0.3),
	})
	if err != nil {
		t.Fatalf("HandleControl: %v", err)
	}

	c := e.Control()
	if c.Settings.Mode != segment.Passthrough || c.Settings.Scale != scale.Blues {
		t.Errorf("mode/scale = %v/%v", c.Settings.Mode, c.Settings.Scale)
	}
	if c.Settings.Bend || !c.Settings.Harmonize {
		t.Errorf("bend/harmonize = %v/%v, want false/true", c.Settings.Bend, c.Settings.Harmonize)
	}
	if c.Settings.Glide != 0 {
		t.Errorf("Glide = %v, want 0", c.Settings.Glide)
	}
	if c.Sensitivity != 0.3 || c.MicBoost != 1 {
		t.Errorf("sensitivity/boost = %v/%v", c.Sensitivity, c.MicBoost)
	}

	for _, msg := range []transport.ControlMessage{
		{Type: transport.ControlSettings, Mode: ptr("karaoke")},
		{Type: transport.ControlSettings, Scale: ptr("lydian")},
	} {
		if err := e.HandleControl(msg); err == nil {
			t.Errorf("HandleControl(%+v) should fail", msg)
		}
	}
}

func TestHandleControlTake(t *testing.T) {
	e, rec := newTestEngine(t, testConfig(t))
	saver := &memSaver{}
	e.SetSessionSaver(saver)

	if err := e.HandleControl(transport.ControlMessage{Type: transport.ControlRecord}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !e.Recording() {
		t.Fatal("not recording after record message")
	}

	feed(e, tone(440, 0.5))
	e.tick(e.now())
	rec.Reset()
	if err := e.HandleControl(transport.ControlMessage{Type: transport.ControlReset}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n := len(rec.Snapshot()); n != 2 {
		t.Errorf("reset emitted %d events, want 2 releases", n)
	}

	if err := e.HandleControl(transport.ControlMessage{Type: transport.ControlStop}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if e.Recording() {
		t.Error("still recording after stop message")
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d sessions, want 1", len(saver.saved))
	}
}
