// Package dsp provides onset-strength analysis for beat detection.
//
// The pipeline is a standard spectral-flux detector: short-time Fourier
// frames, log-compressed magnitudes, half-wave rectified first difference.
// It is deliberately small - the phase tracker in pkg/beat corrects errors
// every beat, so a full dynamic-programming beat tracker is not needed.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analysis frame geometry. 2048/512 at 22.05kHz gives ~23ms frames,
// the same resolution the original detector ran at.
const (
	DefaultWindowSize = 2048
	DefaultHopSize    = 512
)

// Estimator converts raw audio samples into an onset-strength curve and
// discrete onset events. It holds only parameters and scratch buffers;
// Strength and Detect are pure functions of their input.
type Estimator struct {
	SampleRate int
	WindowSize int
	HopSize    int

	fft    *fourier.FFT
	window []float64 // Hann coefficients

	// Scratch, reused across frames to avoid per-frame allocation.
	frame []float64
	coeff []complex128
}

// NewEstimator creates an estimator for the given sample rate with
// default frame geometry.
func NewEstimator(sampleRate int) *Estimator {
	return NewEstimatorWithFrames(sampleRate, DefaultWindowSize, DefaultHopSize)
}

// NewEstimatorWithFrames creates an estimator with explicit window and hop
// sizes. Window must be positive; hop must be in (0, window].
func NewEstimatorWithFrames(sampleRate, windowSize, hopSize int) *Estimator {
	win := make([]float64, windowSize)
	for i := range win {
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(windowSize))
	}
	return &Estimator{
		SampleRate: sampleRate,
		WindowSize: windowSize,
		HopSize:    hopSize,
		fft:        fourier.NewFFT(windowSize),
		window:     win,
		frame:      make([]float64, windowSize),
		coeff:      make([]complex128, windowSize/2+1),
	}
}

// FrameRate returns analysis frames per second.
func (e *Estimator) FrameRate() float64 {
	return float64(e.SampleRate) / float64(e.HopSize)
}

// FrameTime returns the time in seconds of the given frame index.
func (e *Estimator) FrameTime(frame int) float64 {
	return float64(frame) * float64(e.HopSize) / float64(e.SampleRate)
}

// FramesToTime converts onset frame indices to seconds.
func (e *Estimator) FramesToTime(frames []int) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = e.FrameTime(f)
	}
	return times
}

// NumFrames returns the number of analysis frames for n samples.
func (e *Estimator) NumFrames(n int) int {
	if n < e.WindowSize {
		if n == 0 {
			return 0
		}
		return 1
	}
	return 1 + (n-e.WindowSize)/e.HopSize
}

// Strength computes the onset-strength curve for the given samples:
// one value per analysis frame, zero on silence. Never fails; input
// shorter than one window is zero-padded.
func (e *Estimator) Strength(samples []float64) []float64 {
	numFrames := e.NumFrames(len(samples))
	if numFrames == 0 {
		return nil
	}

	curve := make([]float64, numFrames)
	prev := make([]float64, e.WindowSize/2+1)
	mag := make([]float64, e.WindowSize/2+1)

	for f := 0; f < numFrames; f++ {
		start := f * e.HopSize
		for i := 0; i < e.WindowSize; i++ {
			if start+i < len(samples) {
				e.frame[i] = samples[start+i] * e.window[i]
			} else {
				e.frame[i] = 0
			}
		}

		e.fft.Coefficients(e.coeff, e.frame)
		for i, c := range e.coeff {
			// Log compression flattens loudness differences so the flux
			// responds to spectral change rather than absolute level.
			mag[i] = math.Log1p(cmplxAbs(c))
		}

		var flux float64
		for i := range mag {
			if d := mag[i] - prev[i]; d > 0 {
				flux += d
			}
		}
		if f == 0 {
			flux = 0
		}
		curve[f] = flux

		prev, mag = mag, prev
	}
	return curve
}

// Peak-picking parameters: a frame is an onset when it is the local max
// over +-localContext frames, clears the trailing mean by deltaRatio of
// the curve peak, and is at least minGapFrames past the previous onset.
const (
	localContext = 3
	trailingMean = 10
	deltaRatio   = 0.05
	minGapFrames = 3
)

// Detect picks onset peaks from a strength curve and returns their frame
// indices in order. A silent (all-zero) curve yields no onsets.
func (e *Estimator) Detect(curve []float64) []int {
	var peak float64
	for _, v := range curve {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return nil
	}
	delta := deltaRatio * peak

	var onsets []int
	lastOnset := -minGapFrames - 1
	for i := range curve {
		if i-lastOnset <= minGapFrames {
			continue
		}
		if !isLocalMax(curve, i) {
			continue
		}
		lo := i - trailingMean
		if lo < 0 {
			lo = 0
		}
		var mean float64
		for j := lo; j <= i; j++ {
			mean += curve[j]
		}
		mean /= float64(i - lo + 1)
		if curve[i] > mean+delta {
			onsets = append(onsets, i)
			lastOnset = i
		}
	}
	return onsets
}

func isLocalMax(curve []float64, i int) bool {
	lo := i - localContext
	if lo < 0 {
		lo = 0
	}
	hi := i + localContext
	if hi >= len(curve) {
		hi = len(curve) - 1
	}
	for j := lo; j <= hi; j++ {
		if curve[j] > curve[i] {
			return false
		}
	}
	return curve[i] > 0
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
