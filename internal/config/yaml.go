// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hummer/internal/log"
	"hummer/internal/pitch"
	"hummer/internal/scale"
	"hummer/internal/segment"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "config.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty it looks for DefaultPath and falls back to built-in defaults when
// that does not exist. Environment variable overrides are applied last, then
// the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and returns all problems found.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		errs = append(errs, fmt.Errorf("log_level %q is not a level", c.LogLevel))
	}

	a := c.Audio
	check(a.InputDevice >= MinDeviceID, "audio.input_device must be >= %d", MinDeviceID)
	check(a.SampleRate >= MinSampleRate && a.SampleRate <= MaxSampleRate,
		"audio.sample_rate %.0f outside %d-%d Hz", a.SampleRate, MinSampleRate, MaxSampleRate)
	check(a.FramesPerBuffer > 0 && a.FramesPerBuffer <= MaxBufferFrames,
		"audio.frames_per_buffer must be in 1-%d", MaxBufferFrames)
	check(a.InputChannels > 0, "audio.input_channels must be positive")
	check(a.PollInterval > 0, "audio.poll_interval must be positive")

	d := c.Detect
	if _, err := pitch.ParseMethod(d.Method); err != nil {
		errs = append(errs, fmt.Errorf("detect.method: %w", err))
	}
	check(d.FrameSize >= MinFrameSize && d.FrameSize <= MaxFrameSize,
		"detect.frame_size must be in %d-%d", MinFrameSize, MaxFrameSize)
	check(d.SilenceRMS >= 0, "detect.silence_rms must not be negative")
	check(d.CenterClip >= 0 && d.CenterClip < 1, "detect.center_clip must be in [0, 1)")
	check(d.MinCorrelationRatio >= 0 && d.MinCorrelationRatio <= 1, "detect.min_correlation_ratio must be in [0, 1]")

	p := c.Perform
	if _, err := segment.ParseMode(p.Mode); err != nil {
		errs = append(errs, fmt.Errorf("perform.mode: %w", err))
	}
	if _, err := scale.Parse(p.Scale); err != nil {
		errs = append(errs, fmt.Errorf("perform.scale: %w", err))
	}
	check(p.Glide >= 0, "perform.glide must not be negative")
	check(p.MinNoteDuration >= 0, "perform.min_note_duration must not be negative")

	r := c.Recording
	check(r.BitDepth == 16 || r.BitDepth == 24, "recording.bit_depth must be 16 or 24")
	check(r.MaxGap >= 0, "recording.max_gap must not be negative")
	check(r.BPM > 0, "recording.bpm must be positive")

	m := c.Midi
	check(m.LeadChannel >= 0 && m.LeadChannel <= 15, "midi.lead_channel must be in 0-15")
	check(m.HarmonyChannel >= 0 && m.HarmonyChannel <= 15, "midi.harmony_channel must be in 0-15")
	check(m.Velocity >= 1 && m.Velocity <= 127, "midi.velocity must be in 1-127")
	check(m.BendRange > 0, "midi.bend_range must be positive")

	t := c.Transport
	if t.UDPEnabled {
		check(strings.Contains(t.UDPTargetAddress, ":"),
			"transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		check(t.UDPSendInterval > 0, "transport.udp_send_interval must be positive when UDP is enabled")
	}
	if t.WSEnabled {
		check(strings.Contains(t.WSAddress, ":"), "transport.ws_address %q appears invalid (missing port?)", t.WSAddress)
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparsable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Infof("Config: overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Infof("Config: overriding log_level from env: %s", val)
	}

	// ENV_INPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
			log.Infof("Config: overriding audio.input_device from env: %d", iVal)
		}
	}

	// ENV_SCALE
	if val, ok := os.LookupEnv("ENV_SCALE"); ok {
		cfg.Perform.Scale = val
		log.Infof("Config: overriding perform.scale from env: %s", val)
	}
	// ENV_SENSITIVITY
	if val, ok := os.LookupEnv("ENV_SENSITIVITY"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Perform.Sensitivity = fVal
			log.Infof("Config: overriding perform.sensitivity from env: %v", fVal)
		}
	}

	// ENV_MIDI_{...}

	// ENV_MIDI_ENABLED
	if val, ok := os.LookupEnv("ENV_MIDI_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Midi.Enabled = bVal
			log.Infof("Config: overriding midi.enabled from env: %v", bVal)
		}
	}
	// ENV_MIDI_OUT_PORT
	if val, ok := os.LookupEnv("ENV_MIDI_OUT_PORT"); ok {
		cfg.Midi.OutPort = val
		log.Infof("Config: overriding midi.out_port from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Infof("Config: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Infof("Config: overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Infof("Config: overriding transport.udp_send_interval from env: %s", dur)
		}
	}

	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
		cfg.Transport.WSEnabled = true
		log.Infof("Config: overriding transport.ws_address from env: %s", val)
	}
}
