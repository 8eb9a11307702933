// SPDX-License-Identifier: MIT
package audio

import "sync"

// FrameSlot keeps the most recent samples of the analysed channel. The
// capture callback writes, the polling loop reads; the lock is held only
// for a copy.
type FrameSlot struct {
	mu      sync.Mutex
	ring    []float64
	pos     int    // next write index
	written uint64 // samples written since creation
}

// NewFrameSlot returns a slot holding the last size samples.
func NewFrameSlot(size int) *FrameSlot {
	return &FrameSlot{ring: make([]float64, size)}
}

// Size returns the slot capacity.
func (f *FrameSlot) Size() int {
	return len(f.ring)
}

// Write appends the first channel of the interleaved buffer in.
func (f *FrameSlot) Write(in []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	f.mu.Lock()
	n := len(f.ring)
	for i := 0; i < len(in); i += channels {
		f.ring[f.pos] = float64(in[i])
		f.pos++
		if f.pos == n {
			f.pos = 0
		}
		f.written++
	}
	f.mu.Unlock()
}

// Read copies the newest samples, oldest first, into dst and returns how
// many were copied along with the total written so far. Fewer than
// len(dst) samples are returned until the slot has filled.
func (f *FrameSlot) Read(dst []float64) (int, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	size := len(f.ring)
	n := min(len(dst), size)
	if f.written < uint64(n) {
		n = int(f.written)
	}
	start := f.pos - n
	if start < 0 {
		start += size
	}
	copied := copy(dst[:n], f.ring[start:])
	copy(dst[copied:n], f.ring)
	return n, f.written
}
