// SPDX-License-Identifier: MIT
/*
Package pitch implements single-frame fundamental frequency estimation for a
monophonic signal, plus the frequency/MIDI/note-name conversions that go with
it.

The estimator is autocorrelation based:

 1. optional DC removal (frame mean subtracted)
 2. RMS silence gate
 3. peak normalisation
 4. center-clipped autocorrelation over every lag
 5. skip the falling edge of the zero-lag peak
 6. take the strongest remaining lag
 7. optional quality gate on maxval / r[0]
 8. parabolic interpolation around the peak
 9. frequency = sample rate / refined lag

Estimation never fails loudly. Silent, noisy or unreliable frames simply
report no pitch.
*/
package pitch

import (
	"errors"
	"fmt"
	"math"

	"hummer/internal/fft"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Method selects how the autocorrelation sequence is computed.
type Method int

const (
	Direct Method = iota // O(n²) lag loop
	FFT                  // zero-padded FFT, O(n log n)
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case Direct:
		return "direct"
	case FFT:
		return "fft"
	default:
		return "unknown"
	}
}

// ParseMethod converts a configuration name into a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "direct":
		return Direct, nil
	case "fft":
		return FFT, nil
	default:
		return Direct, fmt.Errorf("unknown correlation method %q", s)
	}
}

// Defaults for the estimator. The quality ratio of 0.3 is the canonical gate;
// a ratio of 0 gives the permissive variant that accepts any peak.
const (
	DefaultSilenceRMS          = 0.01
	DefaultCenterClip          = 0.2
	DefaultMinCorrelationRatio = 0.3

	// DefaultFrameSize keeps tones down to 80 Hz within 1% at 48kHz. The
	// unnormalised correlation pulls the peak toward shorter lags, and
	// shorter frames make that bias visible below ~90 Hz.
	DefaultFrameSize = 4096

	// MaxFrameSize bounds the workspace an Estimator will pre-allocate.
	MaxFrameSize = 1 << 15

	// peakEpsilon is the smallest absolute peak treated as signal.
	peakEpsilon = 1e-12
)

var (
	ErrInvalidFrameSize = errors.New("pitch: frame size must be at least 4 samples")
	ErrFrameTooLarge    = fmt.Errorf("pitch: frame size exceeds %d samples", MaxFrameSize)
)

// Frame is one block of normalised [-1, 1] samples and the rate they were
// captured at.
type Frame struct {
	Samples    []float64
	SampleRate float64
}

// Options selects the estimator variant.
type Options struct {
	RemoveDC            bool    // Subtract the frame mean before analysis.
	SilenceRMS          float64 // Frames with RMS below this are silent.
	CenterClip          float64 // Normalised magnitudes below this correlate as zero (0 disables).
	MinCorrelationRatio float64 // Reject peaks with maxval/r[0] below this (0 disables).
	Method              Method  // How the correlation sequence is computed.
}

// DefaultOptions returns the canonical estimator configuration.
func DefaultOptions() Options {
	return Options{
		RemoveDC:            true,
		SilenceRMS:          DefaultSilenceRMS,
		CenterClip:          DefaultCenterClip,
		MinCorrelationRatio: DefaultMinCorrelationRatio,
		Method:              Direct,
	}
}

// Estimator runs the frame analysis with pre-allocated buffers. It keeps no
// state between frames; the same frame always yields the same estimate.
// An Estimator must not be shared between goroutines.
type Estimator struct {
	opts       Options
	frameSize  int
	work       []float64 // conditioned copy of the frame
	corr       []float64 // correlation per lag
	correlator *fft.Correlator
}

// NewEstimator allocates an estimator for frames of up to frameSize samples.
func NewEstimator(frameSize int, opts Options) (*Estimator, error) {
	if frameSize < 4 {
		return nil, ErrInvalidFrameSize
	}
	if frameSize > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	e := &Estimator{
		opts:      opts,
		frameSize: frameSize,
		work:      make([]float64, frameSize),
		corr:      make([]float64, frameSize),
	}

	if opts.Method == FFT {
		c, err := fft.NewCorrelator(frameSize)
		if err != nil {
			return nil, fmt.Errorf("pitch: %w", err)
		}
		e.correlator = c
	}

	return e, nil
}

// Options returns the configuration the estimator was built with.
func (e *Estimator) Options() Options {
	return e.opts
}

// Estimate is a convenience wrapper that analyses a single frame with
// DefaultOptions. Polling loops should hold an Estimator instead.
func Estimate(frame Frame) (float64, bool) {
	e, err := NewEstimator(max(len(frame.Samples), 4), DefaultOptions())
	if err != nil {
		return 0, false
	}
	return e.Estimate(frame)
}

// Estimate returns the fundamental frequency of the frame in Hz, or false
// when the frame is silent, unvoiced or too noisy to trust. Frames longer
// than the estimator's size are truncated. The caller's samples are not
// modified.
func (e *Estimator) Estimate(frame Frame) (float64, bool) {
	if frame.SampleRate <= 0 {
		return 0, false
	}

	n := min(len(frame.Samples), e.frameSize)
	if n < 4 {
		return 0, false
	}
	x := e.work[:n]
	copy(x, frame.Samples[:n])

	// 1. DC offset.
	if e.opts.RemoveDC {
		floats.AddConst(-stat.Mean(x, nil), x)
	}

	// 2. Silence gate.
	rms := math.Sqrt(floats.Dot(x, x) / float64(n))
	if rms < e.opts.SilenceRMS {
		return 0, false
	}

	// 3. Peak normalisation.
	peak := math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
	if peak < peakEpsilon {
		return 0, false
	}
	floats.Scale(1/peak, x)

	// 4. Center clipping, then correlation. Clipping each sample once is
	// equivalent to clipping both factors of every product.
	if clip := e.opts.CenterClip; clip > 0 {
		for i, v := range x {
			if math.Abs(v) < clip {
				x[i] = 0
			}
		}
	}

	corr := e.corr[:n]
	if e.correlator != nil {
		if err := e.correlator.Autocorrelate(corr, x); err != nil {
			return 0, false
		}
	} else {
		autocorrelate(corr, x)
	}

	return e.pickPeak(corr, frame.SampleRate)
}

// pickPeak runs steps 5-9 over a correlation sequence.
func (e *Estimator) pickPeak(corr []float64, sampleRate float64) (float64, bool) {
	n := len(corr)

	// 5. Walk down the zero-lag peak.
	d := 0
	for d+1 < n && corr[d] > corr[d+1] {
		d++
	}

	// 6. Strongest lag after the falling edge.
	maxval, maxpos := -1.0, -1
	for i := d; i < n; i++ {
		if corr[i] > maxval {
			maxval = corr[i]
			maxpos = i
		}
	}

	// 7. Quality gate.
	if maxpos <= 0 || corr[0] <= 0 {
		return 0, false
	}
	if ratio := e.opts.MinCorrelationRatio; ratio > 0 && maxval/corr[0] < ratio {
		return 0, false
	}

	// 8. Parabolic interpolation.
	t0 := float64(maxpos)
	if maxpos < n-1 {
		x1, x2, x3 := corr[maxpos-1], corr[maxpos], corr[maxpos+1]
		a := (x1 + x3 - 2*x2) / 2
		b := (x3 - x1) / 2
		if a != 0 {
			t0 -= b / (2 * a)
		}
	}

	// 9. Frequency.
	if t0 <= 0 {
		return 0, false
	}
	return sampleRate / t0, true
}

// autocorrelate is the direct lag sum r[k] = sum(x[i] * x[i+k]).
func autocorrelate(dst, x []float64) {
	n := len(x)
	for lag := 0; lag < n; lag++ {
		dst[lag] = floats.Dot(x[:n-lag], x[lag:])
	}
}

// Level returns the RMS of samples after multiplying them by boost. It is
// the quantity the input gate compares against the sensitivity threshold.
func Level(samples []float64, boost float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Abs(boost) * math.Sqrt(floats.Dot(samples, samples)/float64(len(samples)))
}
