// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"hummer/internal/config"
	"hummer/internal/log"
	"hummer/internal/session"
)

// ErrAlreadyRecording is returned when a take is started twice.
var ErrAlreadyRecording = errors.New("already recording")

// SessionSaver stores finished takes.
type SessionSaver interface {
	Save(s *session.Session) error
}

// recorder writes the WAV of a take from the capture callback.
type recorder struct {
	isRecording atomic.Bool
	recMu       sync.Mutex // Serializes callback writes with open/close.
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	sampleMax   float64
	audioFile   string

	saver SessionSaver
}

// SetSessionSaver makes StopRecording save every finished take.
func (e *Engine) SetSessionSaver(s SessionSaver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saver = s
}

// takeFilename names a WAV take after the current time.
func takeFilename(dir string, t time.Time) string {
	return filepath.Join(dir, "take-"+t.Format("20060102-150405")+".wav")
}

// StartRecording begins a take. The segmenter switches to Record mode and
// the input is written to filename as WAV; an empty filename writes a
// timestamped file in the configured output directory unless recording is
// disabled, in which case only notes are kept.
func (e *Engine) StartRecording(filename string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.segmenter.Recording() {
		return ErrAlreadyRecording
	}

	if filename == "" && e.config.Recording.Enabled {
		if err := os.MkdirAll(e.config.Recording.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		filename = takeFilename(e.config.Recording.OutputDir, time.Now())
	}
	if filename != "" {
		if err := e.openTake(filename); err != nil {
			return err
		}
	}

	e.segmenter.StartRecording(e.now())
	e.control.Settings = e.segmenter.Settings()
	c := e.control
	e.desired.Store(&c)
	log.Infof("Engine: Recording started %s", filename)
	return nil
}

func (e *Engine) openTake(filename string) error {
	bitDepth := e.config.Recording.BitDepth
	if bitDepth <= 0 {
		bitDepth = config.DefaultBitDepth
	}
	channels := e.config.Audio.InputChannels

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()
	e.outputFile = file
	e.audioFile = filename
	e.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate), bitDepth, channels, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*channels),
		SourceBitDepth: bitDepth,
	}
	e.sampleMax = float64(int(1)<<(bitDepth-1) - 1)
	e.isRecording.Store(true)
	return nil
}

// writeTake appends captured samples to the WAV take.
func (e *Engine) writeTake(in []float32) {
	if !e.isRecording.Load() {
		return
	}
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.wavEncoder == nil {
		return
	}

	n := min(len(in), cap(e.sampleBuf.Data))
	e.sampleBuf.Data = e.sampleBuf.Data[:n]
	for i, sample := range in[:n] {
		v := float64(sample)
		v = min(max(v, -1), 1)
		e.sampleBuf.Data[i] = int(v * e.sampleMax)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		log.Errorf("Engine: Error writing WAV take: %v", err)
	}
}

func (e *Engine) closeTake() (string, error) {
	e.isRecording.Store(false)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	filename := e.audioFile
	e.audioFile = ""
	var errs []error
	if e.wavEncoder != nil {
		errs = append(errs, e.wavEncoder.Close())
		e.wavEncoder = nil
	}
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		e.outputFile = nil
	}
	return filename, errors.Join(errs...)
}

// StopRecording ends the take and returns it as a session, saved when a
// SessionSaver is set. It returns nil when no take is running. A WAV take
// that fails to close still yields the saved notes, with AudioFile cleared
// and the close error returned alongside.
func (e *Engine) StopRecording() (*session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.segmenter.Recording() {
		return nil, nil
	}

	notes := e.segmenter.StopRecording(e.now())
	e.control.Settings = e.segmenter.Settings()
	c := e.control
	e.desired.Store(&c)

	var errs []error
	audioFile, err := e.closeTake()
	if err != nil {
		log.Errorf("Engine: Error closing WAV take %s: %v", audioFile, err)
		errs = append(errs, fmt.Errorf("close WAV take: %w", err))
		audioFile = ""
	}

	s := session.New(notes, e.control.Settings.Scale)
	s.AudioFile = audioFile
	s.Instrument = e.config.Recording.Instrument
	if e.config.Recording.BPM > 0 {
		s.BPM = e.config.Recording.BPM
	}
	log.Infof("Engine: Recording stopped, %d notes", len(s.Notes))

	if e.saver != nil {
		if err := e.saver.Save(s); err != nil {
			errs = append(errs, fmt.Errorf("save session: %w", err))
		}
	}
	return s, errors.Join(errs...)
}

// Recording reports whether a take is running.
func (e *Engine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.segmenter.Recording()
}
