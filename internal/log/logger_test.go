// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GetLevel()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(prev)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debugf("Engine: %d", 1)
	Infof("Engine: %d", 2)
	Warnf("Engine: %d", 3)
	Errorf("Engine: %d", 4)

	out := buf.String()
	if strings.Contains(out, "Engine: 1") || strings.Contains(out, "Engine: 2") {
		t.Errorf("messages below WARN were written:\n%s", out)
	}
	if !strings.Contains(out, "[WARN]  Engine: 3") {
		t.Errorf("missing warning:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] Engine: 4") {
		t.Errorf("missing error:\n%s", out)
	}
}

func TestEnabled(t *testing.T) {
	capture(t, LevelInfo)

	if Enabled(LevelDebug) {
		t.Error("debug should be disabled at INFO")
	}
	if !Enabled(LevelInfo) || !Enabled(LevelError) {
		t.Error("INFO and above should be enabled at INFO")
	}
}

func TestLevelString(t *testing.T) {
	if LevelDebug.String() != "DEBUG" || LogLevel(42).String() != "UNKNOWN" {
		t.Error("unexpected level names")
	}
}
