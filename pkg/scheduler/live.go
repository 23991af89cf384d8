package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/actuator"
	"github.com/teslashibe/go-groove/pkg/audio"
	"github.com/teslashibe/go-groove/pkg/beat"
	"github.com/teslashibe/go-groove/pkg/choreo"
)

// tempoReportInterval is how many ingestion chunks pass between
// autocorrelation tempo estimates. At 0.1s chunks this is roughly
// every two seconds.
const tempoReportInterval = 20

type liveJob struct {
	move      choreo.Move
	duration  time.Duration
	beatIndex int
}

// RunLive couples the tracker to the actuator in real time: audio
// chunks feed the tracker, every BeatsPerMove-th beat dispatches the
// next move in the plan's pattern, and moves run on a small worker pool
// so a slow actuator never stalls beat detection. When every worker is
// busy the beat's move is dropped, not queued; a stale move is worse
// than no move.
func (s *Scheduler) RunLive(ctx context.Context, stream audio.Stream, tracker *beat.Tracker, plan *SequencePlan) Status {
	if len(plan.Pattern) == 0 {
		return faulted(fmt.Errorf("scheduler: live plan has no pattern"))
	}
	if err := plan.Validate(s.catalog); err != nil {
		return faulted(err)
	}
	stride := plan.BeatsPerMove
	if stride <= 0 {
		stride = s.opts.BeatsPerMove
	}

	s.beginRun("live")
	if err := s.preflight(ctx); err != nil {
		return s.finish(err)
	}

	if err := s.act.SetMode(ctx, actuator.ModeDance1); err != nil {
		return s.finish(err)
	}
	if err := s.sleep(ctx, s.opts.ModeSettleDelay); err != nil {
		return s.finish(err)
	}
	s.setState(StateRunning)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	turnState := &choreo.TurnState{}
	jobs := make(chan liveJob, s.opts.DispatchWorkers)

	var (
		wg       sync.WaitGroup
		fatalErr error
		fatal    sync.Once
	)
	fail := func(err error) {
		fatal.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	for w := 0; w < s.opts.DispatchWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for job := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				log.Debug("dispatch", "worker", worker, "move", job.move.Name,
					"beat", job.beatIndex, "duration", job.duration)
				err := job.move.Run(runCtx, s.act, job.duration, turnState)
				if err == nil {
					continue
				}
				if errors.Is(err, actuator.ErrLinkLost) || errors.Is(err, actuator.ErrNotConnected) {
					fail(err)
					continue
				}
				// Transient actuator errors skip the move only.
				log.Warn("move failed", "move", job.move.Name, "error", err)
			}
		}(w)
	}

	err := s.ingest(runCtx, stream, tracker, plan, stride, jobs)
	close(jobs)
	wg.Wait()

	// A worker's link-loss cancellation surfaces from ingest as a
	// context error; report the underlying cause instead.
	if fatalErr != nil {
		err = fatalErr
	}

	if err == nil && s.opts.AutoBalance {
		err = turnState.Correct(ctx, s.act, s.opts.BalanceSpeed)
	}
	return s.finish(err)
}

// ingest drives the tracker from the stream until the stream ends or
// the context is cancelled. Returns nil on clean end of stream.
func (s *Scheduler) ingest(ctx context.Context, stream audio.Stream, tracker *beat.Tracker, plan *SequencePlan, stride int, jobs chan<- liveJob) error {
	chunkSize := int(float64(stream.SampleRate()) * s.opts.ChunkDuration)
	if chunkSize <= 0 {
		return fmt.Errorf("scheduler: stream sample rate %d yields empty chunks", stream.SampleRate())
	}

	moveIndex := 0
	chunks := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		chunk, err := stream.Read(chunkSize)
		if len(chunk) > 0 {
			fired, kind := tracker.Process(chunk)
			if fired {
				count := tracker.BeatCount()
				s.publish("beat", beat.Event{
					Time:  s.clock.Now(),
					Kind:  kind,
					Index: count,
				})
				if count%stride == 0 {
					s.dispatchBeat(tracker, plan, stride, count, &moveIndex, jobs)
				}
			}
			chunks++
			if chunks%tempoReportInterval == 0 {
				bpm := tracker.EstimateBPM()
				if bpm > 0 {
					log.Debug("tempo", "bpm", bpm, "period_s", tracker.BeatPeriod())
					s.publish("tempo", map[string]any{"bpm": bpm, "period_s": tracker.BeatPeriod()})
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("stream ended", "chunks", chunks, "beats", tracker.BeatCount())
				return nil
			}
			return err
		}
	}
}

// dispatchBeat hands the next pattern move to the worker pool without
// blocking the ingestion loop.
func (s *Scheduler) dispatchBeat(tracker *beat.Tracker, plan *SequencePlan, stride, beatIndex int, moveIndex *int, jobs chan<- liveJob) {
	name := plan.Pattern[*moveIndex%len(plan.Pattern)]
	*moveIndex++
	move, _ := s.catalog.Get(name)

	// Shaved below the full beat span so the robot settles before the
	// next dispatch lands.
	duration := time.Duration(tracker.BeatPeriod() *
		float64(stride) * s.opts.BobDurationRatio * float64(time.Second))

	select {
	case jobs <- liveJob{move: move, duration: duration, beatIndex: beatIndex}:
		s.publish("move", map[string]any{"name": name, "beat": beatIndex})
	default:
		log.Warn("move dropped, workers saturated", "move", name, "beat", beatIndex)
		if s.History != nil {
			s.History.RecordAnomaly(s.runID, "move_dropped", name, time.Now())
		}
	}
}
