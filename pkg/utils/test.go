// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport interface for testing. Every
// payload is kept in arrival order.
type MockTransport struct {
	mu       sync.Mutex
	Payloads []any
	Closed   bool
}

// Send stores the payload for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payloads = append(m.Payloads, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Len returns the number of payloads received so far.
func (m *MockTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads)
}

// Recorder collects values passed to Emit, so it satisfies any sink
// interface of the form Emit(T).
type Recorder[T any] struct {
	mu     sync.Mutex
	Events []T
}

// Emit records ev.
func (r *Recorder[T]) Emit(ev T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
}

// Snapshot returns a copy of everything recorded so far.
func (r *Recorder[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.Events))
	copy(out, r.Events)
	return out
}

// Reset drops all recorded values.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = r.Events[:0]
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics,
// peaking below full scale.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2) * 0.9
	}
	return buffer
}

// GenerateSineWave returns a pure tone of the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// ToFloat32 interleaves samples into a channels-wide float32 buffer, the
// format the capture callback delivers. Every channel carries the same
// signal, clipped to [-1, 1].
func ToFloat32(samples []float64, channels int) []float32 {
	channels = max(channels, 1)
	out := make([]float32, len(samples)*channels)
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = float32(v)
		}
	}
	return out
}
