// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"

	"hummer/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// correlationWorkspace holds pre-allocated buffers for one correlation.
type correlationWorkspace struct {
	padded   []float64    // ...for the zero-padded input sequence
	spectrum []complex128 // ...for the forward transform (power spectrum in place)
	lags     []float64    // ...for the inverse transform (all padded lags)
}

// Correlator computes the linear autocorrelation of a real frame through the
// Wiener-Khinchin relation: the inverse transform of the power spectrum of a
// zero-padded copy of the frame. The result matches the direct lag sum
//
//	r[k] = sum(x[i] * x[i+k]) for i in 0..n-k-1
//
// up to floating point rounding, in O(n log n) rather than O(n²).
//
// A Correlator is not safe for concurrent use; each polling loop owns one.
type Correlator struct {
	frameSize int
	fftSize   int
	fftObj    *fourier.FFT
	workspace correlationWorkspace
}

// NewCorrelator pre-allocates a correlator for frames of up to frameSize
// samples. The transform length is the next power of two that avoids
// circular wrap-around.
func NewCorrelator(frameSize int) (*Correlator, error) {
	if frameSize < 2 {
		return nil, fmt.Errorf("correlator frame size must be at least 2, got %d", frameSize)
	}

	fftSize := bitint.PaddedLength(frameSize)
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("correlator transform size must be a power of 2, got %d", fftSize)
	}

	return &Correlator{
		frameSize: frameSize,
		fftSize:   fftSize,
		fftObj:    fourier.NewFFT(fftSize),
		workspace: correlationWorkspace{
			padded:   make([]float64, fftSize),
			spectrum: make([]complex128, fftSize/2+1),
			lags:     make([]float64, fftSize),
		},
	}, nil
}

// FrameSize returns the largest frame the correlator accepts.
func (c *Correlator) FrameSize() int {
	return c.frameSize
}

// Autocorrelate writes r[0..len(frame)-1] into dst, which must be at least
// len(frame) long. The frame must not exceed FrameSize. No allocations are
// made after construction.
func (c *Correlator) Autocorrelate(dst, frame []float64) error {
	n := len(frame)
	if n > c.frameSize {
		return fmt.Errorf("frame of %d samples exceeds correlator size %d", n, c.frameSize)
	}
	if len(dst) < n {
		return fmt.Errorf("destination holds %d lags, need %d", len(dst), n)
	}

	ws := &c.workspace
	copy(ws.padded, frame)
	for i := n; i < c.fftSize; i++ {
		ws.padded[i] = 0
	}

	c.fftObj.Coefficients(ws.spectrum, ws.padded)
	for i, v := range ws.spectrum {
		re, im := real(v), imag(v)
		ws.spectrum[i] = complex(re*re+im*im, 0)
	}
	c.fftObj.Sequence(ws.lags, ws.spectrum)

	// gonum's inverse transform is unnormalised.
	scale := 1 / float64(c.fftSize)
	for k := 0; k < n; k++ {
		dst[k] = ws.lags[k] * scale
	}

	return nil
}
