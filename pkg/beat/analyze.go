package beat

import (
	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/dsp"
)

// AnalyzeClip runs whole-track beat analysis: onset strength over the
// full clip, tempo by autocorrelation folded into the reporting band,
// and a beat grid snapped to onset peaks.
//
// This is the one explicit analysis step for offline routines; the
// results are created once per run and read-only thereafter. Detection
// failure falls back to FallbackBPM and a single beat at 0.0 rather
// than an error - a clip with no usable beats still produces a routine.
func AnalyzeClip(samples []float64, sampleRate int) (TempoEstimate, Timeline) {
	est := dsp.NewEstimator(sampleRate)
	curve := est.Strength(samples)

	raw := est.TempoFromCurve(curve, FallbackBPM)
	if raw <= 0 {
		log.Warn("beat analysis failed, using fallback tempo", "bpm", FallbackBPM)
		return NewTempoEstimate(FallbackBPM), Timeline{0.0}
	}
	tempo := NewTempoEstimate(raw)

	times := est.BeatGrid(curve, tempo.BPM)
	timeline, err := NewTimeline(times)
	if err != nil {
		// Grid times are generated in order; a decreasing grid means the
		// snap radius collapsed two beats. Fall back rather than fail.
		log.Warn("beat grid unusable, using fallback timeline", "err", err)
		timeline = Timeline{0.0}
	}

	log.Info("clip analyzed",
		"bpm", tempo.BPM,
		"beats", timeline.Len(),
		"duration_s", timeline.Duration())
	return tempo, timeline
}
