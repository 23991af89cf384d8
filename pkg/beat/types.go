// Package beat provides real-time beat tracking and tempo estimation.
//
// The Tracker maintains a rolling audio window, fires beats from onset
// evidence or phase prediction, and refines its period estimate from the
// observed inter-beat intervals. Offline analysis of whole clips lives in
// AnalyzeClip.
package beat

import (
	"errors"
	"fmt"
	"time"
)

// BeatKind distinguishes how a beat was fired.
type BeatKind string

const (
	// Detected means onset evidence in the audio triggered the beat.
	Detected BeatKind = "detected"

	// Predicted means the phase model fired the beat to cover a gap
	// in detection (quiet passage, missed onset).
	Predicted BeatKind = "predicted"
)

// Event is a single fired beat. Index increases monotonically per run.
type Event struct {
	Time  time.Time
	Kind  BeatKind
	Index int
}

// Reporting band for tempo estimates. Raw estimates outside this band are
// folded back in by repeated doubling/halving (octave-error correction).
const (
	MinBPM = 80.0
	MaxBPM = 200.0

	// FallbackBPM is used when analysis yields nothing usable.
	FallbackBPM = 117.0
)

// TempoEstimate pairs a BPM with its beat period in seconds.
type TempoEstimate struct {
	BPM        float64
	BeatPeriod float64 // 60 / BPM
}

// NewTempoEstimate builds a TempoEstimate from a BPM, folding it into the
// reporting band first.
func NewTempoEstimate(bpm float64) TempoEstimate {
	bpm = NormalizeBPM(bpm)
	return TempoEstimate{BPM: bpm, BeatPeriod: 60.0 / bpm}
}

// NormalizeBPM folds a raw tempo estimate into [MinBPM, MaxBPM] by
// repeated doubling/halving. Idempotent; non-positive input maps to
// FallbackBPM.
func NormalizeBPM(bpm float64) float64 {
	if bpm <= 0 {
		return FallbackBPM
	}
	for bpm < MinBPM {
		bpm *= 2
	}
	for bpm > MaxBPM {
		bpm /= 2
	}
	return bpm
}

// ErrDecreasingTimeline is returned for beat times that go backwards.
var ErrDecreasingTimeline = errors.New("beat: timeline is not non-decreasing")

// Timeline is an ordered, immutable sequence of beat times in seconds.
type Timeline []float64

// NewTimeline validates beat times. Empty input falls back to a single
// beat at 0.0 (detection failed upstream); decreasing input is rejected
// outright, never silently reordered.
func NewTimeline(times []float64) (Timeline, error) {
	if len(times) == 0 {
		return Timeline{0.0}, nil
	}
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			return nil, fmt.Errorf("%w: beat %d at %.3fs follows %.3fs",
				ErrDecreasingTimeline, i, times[i], times[i-1])
		}
	}
	out := make(Timeline, len(times))
	copy(out, times)
	return out, nil
}

// Len returns the total beat count N.
func (t Timeline) Len() int { return len(t) }

// Duration returns the time of the last beat.
func (t Timeline) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1]
}
