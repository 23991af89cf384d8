package beat

import (
	"time"

	"github.com/teslashibe/go-groove/internal/config"
	"github.com/teslashibe/go-groove/pkg/dsp"
)

// TrackerOptions configures a Tracker. Zero values take the defaults
// noted on each field. The tolerance and interval constants were chosen
// empirically; treat them as tunables, not physical constants.
type TrackerOptions struct {
	SampleRate     int     // analysis rate in Hz (default 22050)
	BufferDuration float64 // rolling window in seconds (default 5)
	ChunkDuration  float64 // expected chunk length in seconds (default 0.1)
	StartBPM       float64 // initial period seed (default 120)

	// PredictionTolerance is the window after the predicted instant in
	// which a predicted beat may still fire (default 150ms).
	PredictionTolerance time.Duration

	// MinBeatInterval is the minimum spacing between fired beats,
	// suppressing double triggers (default 0, disabled).
	MinBeatInterval time.Duration

	Clock     Clock
	Estimator *dsp.Estimator
}

func (o *TrackerOptions) fillDefaults() {
	if o.SampleRate == 0 {
		o.SampleRate = config.DefaultSampleRate
	}
	if o.BufferDuration == 0 {
		o.BufferDuration = config.DefaultBufferDuration
	}
	if o.ChunkDuration == 0 {
		o.ChunkDuration = config.DefaultChunkDuration
	}
	if o.StartBPM == 0 {
		o.StartBPM = 120
	}
	if o.PredictionTolerance == 0 {
		o.PredictionTolerance = 150 * time.Millisecond
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Estimator == nil {
		o.Estimator = dsp.NewEstimator(o.SampleRate)
	}
}

// historySize bounds the beat-time history used for period refinement.
const historySize = 8

// Tracker maintains a running estimate of beat period and phase. For each
// audio chunk it decides whether a beat fires now, either from onset
// evidence or from phase prediction. All state is owned by the single
// goroutine calling Process.
type Tracker struct {
	opts TrackerOptions

	window *rollingWindow

	beatPeriod    float64 // seconds between beats
	lastBeat      time.Time
	history       []time.Time // last historySize fired beats
	nextPredicted time.Time
	hasPrediction bool

	lastBPM   float64 // seed for EstimateBPM, separate from phase state
	beatCount int
}

// NewTracker creates a tracker with the given options.
func NewTracker(opts TrackerOptions) *Tracker {
	opts.fillDefaults()
	size := int(float64(opts.SampleRate) * opts.BufferDuration)
	return &Tracker{
		opts:       opts,
		window:     newRollingWindow(size),
		beatPeriod: 60.0 / opts.StartBPM,
		lastBPM:    opts.StartBPM,
	}
}

// Process ingests one audio chunk and reports whether a beat fired and
// how. Detection is preferred over prediction in the reported kind when
// both coincide: onset evidence is authoritative, prediction exists only
// to cover silence and missed onsets.
func (t *Tracker) Process(chunk []float64) (bool, BeatKind) {
	t.window.push(chunk)
	now := t.opts.Clock.Now()

	// One spacing gate for both candidate kinds. Predicted fires were
	// once exempt, which let them stack up at the chunk cadence.
	if !t.lastBeat.IsZero() && now.Sub(t.lastBeat) <= t.opts.MinBeatInterval {
		return false, ""
	}

	// A predicted beat fires at the first chunk at or after its instant,
	// never early. Early firings would enter the history as short
	// intervals and drag the period estimate toward the chunk cadence.
	predicted := false
	if t.hasPrediction && !now.Before(t.nextPredicted) {
		predicted = now.Sub(t.nextPredicted) < t.opts.PredictionTolerance
	}

	detected := t.detectRecentOnset()

	if !detected && !predicted {
		return false, ""
	}

	t.fire(now)
	if detected {
		return true, Detected
	}
	return true, Predicted
}

// detectRecentOnset runs the onset estimator over the rolling window and
// reports whether an onset landed in the trailing ~2 chunks.
func (t *Tracker) detectRecentOnset() bool {
	est := t.opts.Estimator
	curve := est.Strength(t.window.samples())
	onsets := est.Detect(curve)
	if len(onsets) == 0 {
		return false
	}

	// Only onsets in the trailing two chunks count as "now"; older ones
	// were either already fired on or missed for good.
	tail := int(2 * t.opts.ChunkDuration * est.FrameRate())
	if tail < 1 {
		tail = 1
	}
	cutoff := len(curve) - 1 - tail
	for _, f := range onsets {
		if f > cutoff {
			return true
		}
	}
	return false
}

// fire records a beat at now: bounded history append, period refinement
// from the mean inter-beat interval, next-beat prediction.
func (t *Tracker) fire(now time.Time) {
	t.lastBeat = now
	t.beatCount++
	t.history = append(t.history, now)
	if len(t.history) > historySize {
		t.history = t.history[1:]
	}

	if len(t.history) >= 2 {
		var sum float64
		for i := 1; i < len(t.history); i++ {
			sum += t.history[i].Sub(t.history[i-1]).Seconds()
		}
		t.beatPeriod = sum / float64(len(t.history)-1)
	}

	t.nextPredicted = now.Add(time.Duration(t.beatPeriod * float64(time.Second)))
	t.hasPrediction = true
}

// BeatPeriod returns the current period estimate in seconds.
func (t *Tracker) BeatPeriod() float64 { return t.beatPeriod }

// BeatCount returns the number of beats fired so far.
func (t *Tracker) BeatCount() int { return t.beatCount }

// Tempo returns the tempo implied by the tracked beat period.
func (t *Tracker) Tempo() TempoEstimate {
	if t.beatPeriod <= 0 {
		return NewTempoEstimate(t.lastBPM)
	}
	return NewTempoEstimate(60.0 / t.beatPeriod)
}

// EstimateBPM runs an independent full-buffer tempo estimate seeded with
// the last known BPM and folds it into the reporting band. It never
// mutates the phase-tracking state; the result is for display and
// telemetry only.
func (t *Tracker) EstimateBPM() float64 {
	curve := t.opts.Estimator.Strength(t.window.samples())
	raw := t.opts.Estimator.TempoFromCurve(curve, t.lastBPM)
	if raw <= 0 {
		return t.lastBPM
	}
	t.lastBPM = NormalizeBPM(raw)
	return t.lastBPM
}
