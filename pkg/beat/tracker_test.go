package beat

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-groove/internal/config"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) SleepUntil(ctx context.Context, t time.Time) error {
	if t.After(c.now) {
		c.now = t
	}
	return ctx.Err()
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

const (
	testRate  = 8000
	testChunk = 0.1
)

// clickChunks synthesizes n chunks of audio with a 10ms tone burst at
// every interval.
func clickChunks(n int, interval float64) [][]float64 {
	size := int(testRate * testChunk)
	burst := testRate / 100
	chunks := make([][]float64, n)
	for c := range chunks {
		chunk := make([]float64, size)
		for i := range chunk {
			abs := float64(c*size+i) / testRate
			sinceClick := math.Mod(abs, interval)
			if abs >= interval && sinceClick*testRate < float64(burst) {
				k := sinceClick * testRate
				chunk[i] = (1 - k/float64(burst)) * math.Sin(2*math.Pi*1500*k/testRate)
			}
		}
		chunks[c] = chunk
	}
	return chunks
}

func silentChunks(n int) [][]float64 {
	size := int(testRate * testChunk)
	chunks := make([][]float64, n)
	for c := range chunks {
		chunks[c] = make([]float64, size)
	}
	return chunks
}

func newTestTracker(clock Clock) *Tracker {
	return NewTracker(TrackerOptions{
		SampleRate:      testRate,
		ChunkDuration:   testChunk,
		StartBPM:        120,
		MinBeatInterval: 300 * time.Millisecond,
		Clock:           clock,
	})
}

func feed(t *Tracker, clock *fakeClock, chunks [][]float64) []Event {
	var events []Event
	for _, chunk := range chunks {
		clock.advance(time.Duration(testChunk * float64(time.Second)))
		if fired, kind := t.Process(chunk); fired {
			events = append(events, Event{Time: clock.Now(), Kind: kind, Index: t.BeatCount()})
		}
	}
	return events
}

func TestTracker_SilenceFiresNothing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	events := feed(tr, clock, silentChunks(50))
	if len(events) != 0 {
		t.Errorf("beats on silence: got %d, want 0", len(events))
	}
	if tr.BeatCount() != 0 {
		t.Errorf("BeatCount: got %d, want 0", tr.BeatCount())
	}
}

func TestTracker_LocksOntoClickTrack(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	// 6 seconds of clicks at 120 BPM.
	events := feed(tr, clock, clickChunks(60, 0.5))
	if len(events) < 5 {
		t.Fatalf("beats: got %d, want at least 5", len(events))
	}

	if p := tr.BeatPeriod(); math.Abs(p-0.5) > 0.15 {
		t.Errorf("BeatPeriod: got %.3fs, want 0.5±0.15", p)
	}
	tempo := tr.Tempo()
	if tempo.BPM < MinBPM || tempo.BPM > MaxBPM {
		t.Errorf("Tempo: %.1f BPM outside reporting band", tempo.BPM)
	}
}

func TestTracker_MinIntervalSuppressesDoubleFires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	events := feed(tr, clock, clickChunks(60, 0.5))
	for i := 1; i < len(events); i++ {
		gap := events[i].Time.Sub(events[i-1].Time)
		if gap <= 300*time.Millisecond {
			t.Errorf("beats %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestTracker_PredictsThroughSilence(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	if events := feed(tr, clock, clickChunks(60, 0.5)); len(events) < 5 {
		t.Fatalf("no lock before silence: %d beats", len(events))
	}

	// Track goes quiet; the phase model should keep the pulse alive.
	events := feed(tr, clock, silentChunks(20))
	predicted := 0
	for _, ev := range events {
		if ev.Kind == Predicted {
			predicted++
		}
	}
	if predicted == 0 {
		t.Error("no predicted beats during silence")
	}
	for _, ev := range events {
		if ev.Kind == Detected {
			t.Errorf("detected beat at %v during silence", ev.Time)
		}
	}
}

func TestTracker_PeriodHoldsThroughSilence(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	if events := feed(tr, clock, clickChunks(60, 0.5)); len(events) < 5 {
		t.Fatalf("no lock before silence: %d beats", len(events))
	}

	// A long quiet stretch runs on predictions alone. The period must
	// hold near the locked value, not shrink toward the chunk cadence,
	// and fired beats keep their minimum spacing.
	events := feed(tr, clock, silentChunks(40))
	if p := tr.BeatPeriod(); math.Abs(p-0.5) > 0.15 {
		t.Errorf("BeatPeriod after silence: got %.3fs, want 0.5±0.15", p)
	}
	for i := 1; i < len(events); i++ {
		gap := events[i].Time.Sub(events[i-1].Time)
		if gap <= 300*time.Millisecond {
			t.Errorf("beats %d and %d only %v apart during silence", i-1, i, gap)
		}
	}
}

func TestTracker_EstimateBPM(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	feed(tr, clock, clickChunks(60, 0.5))
	bpm := tr.EstimateBPM()
	if math.Abs(bpm-120) > 15 {
		t.Errorf("EstimateBPM: got %.1f, want 120±15", bpm)
	}

	// The estimate is telemetry only; phase state must be untouched.
	period := tr.BeatPeriod()
	tr.EstimateBPM()
	if tr.BeatPeriod() != period {
		t.Errorf("EstimateBPM changed BeatPeriod: %v -> %v", period, tr.BeatPeriod())
	}
}

func TestTracker_EstimateBPMOnSilenceKeepsSeed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := newTestTracker(clock)

	feed(tr, clock, silentChunks(10))
	if bpm := tr.EstimateBPM(); bpm != 120 {
		t.Errorf("EstimateBPM on silence: got %.1f, want seed 120", bpm)
	}
}

func TestTrackerOptions_Defaults(t *testing.T) {
	tr := NewTracker(TrackerOptions{})
	if tr.opts.SampleRate != config.DefaultSampleRate {
		t.Errorf("SampleRate: got %d, want %d", tr.opts.SampleRate, config.DefaultSampleRate)
	}
	if tr.opts.BufferDuration != config.DefaultBufferDuration {
		t.Errorf("BufferDuration: got %v, want %v", tr.opts.BufferDuration, config.DefaultBufferDuration)
	}
	if tr.opts.ChunkDuration != config.DefaultChunkDuration {
		t.Errorf("ChunkDuration: got %v, want %v", tr.opts.ChunkDuration, config.DefaultChunkDuration)
	}
	want := int(config.DefaultSampleRate * config.DefaultBufferDuration)
	if got := len(tr.window.samples()); got != want {
		t.Errorf("window size: got %d, want %d", got, want)
	}
}

func TestRollingWindow(t *testing.T) {
	w := newRollingWindow(4)
	w.push([]float64{1, 2})
	want := []float64{0, 0, 1, 2}
	for i, v := range w.samples() {
		if v != want[i] {
			t.Fatalf("after first push: got %v, want %v", w.samples(), want)
		}
	}

	w.push([]float64{3, 4, 5})
	want = []float64{2, 3, 4, 5}
	for i, v := range w.samples() {
		if v != want[i] {
			t.Fatalf("after second push: got %v, want %v", w.samples(), want)
		}
	}

	// Oversized chunk keeps only its tail.
	w.push([]float64{6, 7, 8, 9, 10})
	want = []float64{7, 8, 9, 10}
	for i, v := range w.samples() {
		if v != want[i] {
			t.Fatalf("after oversized push: got %v, want %v", w.samples(), want)
		}
	}
}

func TestSystemClock_SleepUntilPast(t *testing.T) {
	clock := SystemClock{}
	start := time.Now()
	if err := clock.SleepUntil(context.Background(), start.Add(-time.Second)); err != nil {
		t.Errorf("past instant: got %v, want nil", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("past instant should return immediately")
	}
}

func TestSystemClock_SleepUntilCancelled(t *testing.T) {
	clock := SystemClock{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := clock.SleepUntil(ctx, time.Now().Add(time.Hour))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
