// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"hummer/internal/pitch"
)

// Core configuration constants that define the boundaries and defaults
// for the transcription engine.
const (
	// Audio capture
	DefaultDeviceID        = MinDeviceID // System default input
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultChannels        = 1           // Mono
	DefaultPollInterval    = 30 * time.Millisecond

	// Pitch detection
	DefaultDetectMethod = "direct"
	DefaultFrameSize    = pitch.DefaultFrameSize // Samples per estimate, ~93ms at 44.1kHz

	// Performance
	DefaultMode        = "MIDI"
	DefaultScale       = "MAJOR"
	DefaultSensitivity = 0.015 // Boosted RMS needed to open the gate
	DefaultMicBoost    = 3.0

	// Recording
	DefaultOutputDir  = "./recordings"
	DefaultSessionDir = "./sessions"
	DefaultBitDepth   = 16
	DefaultBPM        = 120

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MinFrameSize    = 64
	MaxFrameSize    = 1 << 15

	MinSensitivity = 0.0
	MaxSensitivity = 1.0
	MinMicBoost    = 0.1
	MaxMicBoost    = 20.0
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to run instead of the engine (e.g. "list").
	Audio     AudioConfig     `yaml:"audio"`
	Detect    DetectConfig    `yaml:"detect"`
	Perform   PerformConfig   `yaml:"perform"`
	Recording RecordingConfig `yaml:"recording"`
	Midi      MidiConfig      `yaml:"midi"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64       `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // PortAudio callback size.
	InputChannels   int           `yaml:"input_channels"`    // Channels captured; the first one is analysed.
	LowLatency      bool          `yaml:"low_latency"`       // Request low latency from the device.
	PollInterval    time.Duration `yaml:"poll_interval"`     // Cadence of the detection loop.
}

// DetectConfig holds pitch estimator settings.
type DetectConfig struct {
	Method              string  `yaml:"method"`                // "direct" or "fft".
	FrameSize           int     `yaml:"frame_size"`            // Samples per estimate.
	RemoveDC            bool    `yaml:"remove_dc"`             // Subtract the frame mean first.
	SilenceRMS          float64 `yaml:"silence_rms"`           // Frames quieter than this have no pitch.
	CenterClip          float64 `yaml:"center_clip"`           // Normalised clip level, 0 disables.
	MinCorrelationRatio float64 `yaml:"min_correlation_ratio"` // Peak quality gate, 0 disables.
}

// PerformConfig holds the live performance settings.
type PerformConfig struct {
	Mode            string  `yaml:"mode"`              // IDLE, MIDI, VOICE or RECORD.
	Scale           string  `yaml:"scale"`             // MAJOR, MINOR, PENTATONIC, BLUES or CHROMATIC.
	Harmonize       bool    `yaml:"harmonize"`         // Play the scale triad under the lead.
	Bend            bool    `yaml:"bend"`              // Forward pitch deviation as pitch bend.
	Glide           float64 `yaml:"glide"`             // Portamento seconds; 0 releases before each note.
	Sensitivity     float64 `yaml:"sensitivity"`       // Gate threshold on boosted RMS.
	MicBoost        float64 `yaml:"mic_boost"`         // Input gain applied before the gate.
	MinNoteDuration float64 `yaml:"min_note_duration"` // Shorter recorded notes are dropped.
}

// RecordingConfig holds take recording settings.
type RecordingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Start a take as soon as the engine runs.
	OutputDir    string  `yaml:"output_dir"`    // Directory for the WAV of each take.
	SessionDir   string  `yaml:"session_dir"`   // Directory of the session vault.
	BitDepth     int     `yaml:"bit_depth"`     // WAV bit depth (16 or 24).
	SkipSilences bool    `yaml:"skip_silences"` // Compact gaps on playback and export.
	MaxGap       float64 `yaml:"max_gap"`       // Longest gap kept by compaction, seconds.
	BPM          int     `yaml:"bpm"`           // Tempo stamped on sessions.
	Instrument   string  `yaml:"instrument"`    // Instrument label stamped on sessions.
}

// MidiConfig holds MIDI output settings.
type MidiConfig struct {
	Enabled        bool    `yaml:"enabled"`
	OutPort        string  `yaml:"out_port"` // Substring of the port name; empty picks the first.
	LeadChannel    int     `yaml:"lead_channel"`
	HarmonyChannel int     `yaml:"harmony_channel"`
	Velocity       int     `yaml:"velocity"`
	BendRange      float64 `yaml:"bend_range"` // Synth pitch-bend range in semitones.
}

// TransportConfig holds settings related to sending engine state over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send snapshot packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port (e.g. "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between packets.
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve the event WebSocket.
	WSAddress        string        `yaml:"ws_address"`         // Listen address (e.g. ":8080").
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			LowLatency:      false,
			PollInterval:    DefaultPollInterval,
		},
		Detect: DetectConfig{
			Method:              DefaultDetectMethod,
			FrameSize:           DefaultFrameSize,
			RemoveDC:            true,
			SilenceRMS:          0.01,
			CenterClip:          0.2,
			MinCorrelationRatio: 0.3,
		},
		Perform: PerformConfig{
			Mode:            DefaultMode,
			Scale:           DefaultScale,
			Harmonize:       true,
			Bend:            true,
			Glide:           0.05,
			Sensitivity:     DefaultSensitivity,
			MicBoost:        DefaultMicBoost,
			MinNoteDuration: 0.05,
		},
		Recording: RecordingConfig{
			Enabled:      false,
			OutputDir:    DefaultOutputDir,
			SessionDir:   DefaultSessionDir,
			BitDepth:     DefaultBitDepth,
			SkipSilences: true,
			MaxGap:       0.3,
			BPM:          DefaultBPM,
		},
		Midi: MidiConfig{
			Enabled:        false,
			LeadChannel:    0,
			HarmonyChannel: 1,
			Velocity:       100,
			BendRange:      2,
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
			WSEnabled:        false,
			WSAddress:        ":8080",
		},
	}
}
