// SPDX-License-Identifier: MIT
/*
Package audio runs the live transcription engine:
- Audio capture using PortAudio into pre-allocated buffers
- A frame slot handing the newest samples to the polling loop
- A fixed-cadence loop that gates on input level, estimates pitch and
  steps the note segmenter
- WAV recording of the take alongside the note list

Thread Safety:
- The capture callback only copies samples and, while recording, writes
  the WAV take
- Control changes reach the loop through a buffered channel
- The latest state is published through an atomic pointer
*/
package audio

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"hummer/internal/config"
	"hummer/internal/log"
	"hummer/internal/pitch"
	"hummer/internal/segment"
)

// controlBuffer is how many control changes may queue between ticks.
const controlBuffer = 16

type Engine struct {
	// Core configuration and state.
	config *config.Config
	clock  func() float64 // Engine time in seconds.

	// Audio input handling.
	inputBuffer  []float32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	slot         *FrameSlot

	// Detection, owned by the polling loop.
	estimator *pitch.Estimator
	frame     []float64

	// mu guards the segmenter and the applied control.
	mu        sync.Mutex
	segmenter *segment.Segmenter
	control   Control
	controls  chan Control
	desired   atomic.Pointer[Control]
	snapshot  atomic.Pointer[Snapshot]
	running   atomic.Bool

	recorder
}

// NewEngine creates an engine capturing from the configured input device.
// PortAudio must be initialized. Events from the segmenter go to sink.
func NewEngine(cfg *config.Config, sink segment.Sink) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Audio.InputChannels {
		return nil, fmt.Errorf("device %q has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Audio.InputChannels)
	}

	e, err := newEngine(cfg, sink)
	if err != nil {
		return nil, err
	}
	e.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}
	log.Infof("Engine: Input device %q, latency %s", inputDevice.Name, e.inputLatency)
	return e, nil
}

// newEngine builds everything but the capture device.
func newEngine(cfg *config.Config, sink segment.Sink) (*Engine, error) {
	opts, err := cfg.PitchOptions()
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	estimator, err := pitch.NewEstimator(cfg.Detect.FrameSize, opts)
	if err != nil {
		return nil, fmt.Errorf("pitch estimator: %w", err)
	}

	control := Control{
		Settings:    settings,
		Sensitivity: cfg.Perform.Sensitivity,
		MicBoost:    cfg.Perform.MicBoost,
	}.clamped()

	start := time.Now()
	e := &Engine{
		config:      cfg,
		clock:       func() float64 { return time.Since(start).Seconds() },
		inputBuffer: make([]float32, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		slot:        NewFrameSlot(cfg.Detect.FrameSize),
		estimator:   estimator,
		frame:       make([]float64, cfg.Detect.FrameSize),
		segmenter:   segment.New(settings, sink),
		control:     control,
		controls:    make(chan Control, controlBuffer),
	}
	e.desired.Store(&control)
	e.snapshot.Store(&Snapshot{Snapshot: e.segmenter.Snapshot(), Control: control})
	return e, nil
}

// now is the engine clock in seconds.
func (e *Engine) now() float64 {
	return e.clock()
}

func (e *Engine) StartInputStream() error {
	if e.inputDevice == nil {
		return fmt.Errorf("no input device")
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}

	log.Infof("Engine: Capturing %d channel(s) at %.0f Hz", e.config.Audio.InputChannels, e.config.Audio.SampleRate)
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// processInputStream is the capture callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No analysis here, the polling loop does that
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	e.slot.Write(e.inputBuffer[:n], e.config.Audio.InputChannels)
	e.writeTake(e.inputBuffer[:n])
}

// Run polls the frame slot every PollInterval until ctx is done. Whatever
// is sounding is released on return.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	defer e.running.Store(false)

	interval := e.config.Audio.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Engine: Polling every %s", interval)
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.segmenter.Reset(e.now())
			e.mu.Unlock()
			log.Infof("Engine: Polling stopped")
			return nil
		case <-ticker.C:
			e.tick(e.now())
		}
	}
}

// tick runs one polling step at engine time now.
func (e *Engine) tick(now float64) {
	e.mu.Lock()
	e.drainControls()
	c := e.control
	e.mu.Unlock()

	n, _ := e.slot.Read(e.frame)
	samples := e.frame[:n]
	level := pitch.Level(samples, c.MicBoost)
	gate := level > c.Sensitivity

	var (
		freq   float64
		voiced bool
	)
	if gate && c.Settings.Mode.DetectsPitch() && n == len(e.frame) {
		freq, voiced = e.estimator.Estimate(pitch.Frame{Samples: samples, SampleRate: e.config.Audio.SampleRate})
	}

	e.mu.Lock()
	e.segmenter.Step(segment.Input{Gate: gate, Frequency: freq, Voiced: voiced, Now: now})
	seg := e.segmenter.Snapshot()
	e.mu.Unlock()

	e.snapshot.Store(&Snapshot{
		Snapshot:  seg,
		Control:   c,
		Level:     level,
		Gate:      gate,
		Frequency: freq,
		Voiced:    voiced,
		Time:      now,
	})
}

// Close stops the take and the input stream.
func (e *Engine) Close() error {
	if e.Recording() {
		if _, err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
