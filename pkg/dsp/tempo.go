package dsp

import "math"

// Tempo search band in BPM. Wider than the reporting band on purpose:
// octave folding in pkg/beat maps estimates back into [80, 200].
const (
	tempoSearchMin = 30.0
	tempoSearchMax = 300.0
)

// TempoFromCurve estimates the tempo of an onset-strength curve in BPM.
// The estimate is the autocorrelation peak over the search band, weighted
// by a log-normal prior centered on seedBPM so the tracker stays near its
// last estimate instead of jumping octaves between updates.
//
// Returns 0 when the curve is too short or silent; callers keep their
// previous estimate in that case.
func (e *Estimator) TempoFromCurve(curve []float64, seedBPM float64) float64 {
	if len(curve) < 8 {
		return 0
	}
	var total float64
	for _, v := range curve {
		total += v
	}
	if total <= 0 {
		return 0
	}
	if seedBPM <= 0 {
		seedBPM = 120
	}

	frameRate := e.FrameRate()
	minLag := int(frameRate * 60.0 / tempoSearchMax)
	maxLag := int(frameRate * 60.0 / tempoSearchMin)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(curve) {
		maxLag = len(curve) - 1
	}
	if maxLag < minLag {
		return 0
	}

	bestBPM, bestScore := 0.0, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		var ac float64
		for i := 0; i+lag < len(curve); i++ {
			ac += curve[i] * curve[i+lag]
		}
		bpm := frameRate * 60.0 / float64(lag)

		// Log-normal prior, one octave of standard deviation.
		d := math.Log2(bpm / seedBPM)
		score := ac * math.Exp(-0.5*d*d)
		if score > bestScore {
			bestScore = score
			bestBPM = bpm
		}
	}
	return bestBPM
}

// BeatGrid lays a period-spaced beat grid over an onset-strength curve.
// The grid phase is chosen to maximize onset energy at the grid points,
// then each grid point snaps to the strongest nearby curve frame. Returns
// beat times in seconds; nil when the curve carries no energy.
func (e *Estimator) BeatGrid(curve []float64, bpm float64) []float64 {
	if bpm <= 0 || len(curve) == 0 {
		return nil
	}
	var peak float64
	for _, v := range curve {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return nil
	}

	periodFrames := e.FrameRate() * 60.0 / bpm
	if periodFrames < 1 {
		return nil
	}

	// Best phase in [0, period).
	bestPhase, bestScore := 0, math.Inf(-1)
	for phase := 0; phase < int(periodFrames); phase++ {
		var score float64
		for t := float64(phase); t < float64(len(curve)); t += periodFrames {
			score += curve[int(t)]
		}
		if score > bestScore {
			bestScore = score
			bestPhase = phase
		}
	}

	snap := int(periodFrames / 4)
	var times []float64
	for t := float64(bestPhase); t < float64(len(curve)); t += periodFrames {
		f := snapToMax(curve, int(t), snap)
		times = append(times, e.FrameTime(f))
	}
	return times
}

// snapToMax returns the index of the largest curve value within +-radius
// of center.
func snapToMax(curve []float64, center, radius int) int {
	best := center
	lo, hi := center-radius, center+radius
	if lo < 0 {
		lo = 0
	}
	if hi >= len(curve) {
		hi = len(curve) - 1
	}
	for i := lo; i <= hi; i++ {
		if curve[i] > curve[best] {
			best = i
		}
	}
	return best
}
