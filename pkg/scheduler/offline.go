package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/actuator"
	"github.com/teslashibe/go-groove/pkg/beat"
	"github.com/teslashibe/go-groove/pkg/choreo"
)

// RunOffline executes a sectioned routine against a precomputed beat
// timeline: the timeline is partitioned into one beat range per section
// plan, each section runs its moves at its own intensity in the mode the
// mapper assigns to its beat range, with a posture reset between
// sections. Strictly sequential: one move (including its recovery
// pause) completes before the next begins.
func (s *Scheduler) RunOffline(ctx context.Context, timeline beat.Timeline, tempo beat.TempoEstimate, plan *SequencePlan) Status {
	if len(plan.Sections) == 0 {
		return faulted(fmt.Errorf("scheduler: offline plan has no sections"))
	}
	if err := plan.Validate(s.catalog); err != nil {
		return faulted(err)
	}

	s.beginRun("offline")
	if err := s.preflight(ctx); err != nil {
		return s.finish(err)
	}

	mapper := choreo.NewMapper(timeline, tempo)
	mapper.Anomalies = anomalySink{s}
	sections := mapper.Partition(len(plan.Sections))

	// Each move spans two beats, the original routine's alignment.
	moveDuration := time.Duration(tempo.BeatPeriod * 2 * float64(time.Second))
	log.Info("offline routine",
		"total_beats", mapper.TotalBeats(),
		"sections", len(sections),
		"move_duration", moveDuration)

	turnState := &choreo.TurnState{}
	for i, secPlan := range plan.Sections {
		if err := s.performSection(ctx, secPlan, sections[i], moveDuration, turnState); err != nil {
			return s.finish(err)
		}
	}

	if s.opts.AutoBalance {
		if err := turnState.Correct(ctx, s.act, s.opts.BalanceSpeed); err != nil {
			return s.finish(err)
		}
	}
	return s.finish(nil)
}

// performSection runs one labeled block: mode switch with settle delay,
// the section's moves with recovery pauses, then a posture reset.
func (s *Scheduler) performSection(ctx context.Context, plan SectionPlan, section choreo.Section, moveDuration time.Duration, turnState *choreo.TurnState) error {
	s.setState(StateRunning)
	log.Info("section starting",
		"section", plan.Name,
		"beats", fmt.Sprintf("[%d-%d)", section.StartBeat, section.EndBeat),
		"window_s", fmt.Sprintf("%.2f-%.2f", section.StartTime, section.EndTime),
		"mode", string(section.Mode),
		"intensity", plan.Intensity)
	s.publish("section", map[string]any{
		"name": plan.Name, "mode": string(section.Mode), "intensity": plan.Intensity,
	})

	if err := s.act.SetMode(ctx, section.Mode); err != nil {
		return err
	}
	if err := s.sleep(ctx, s.opts.ModeSettleDelay); err != nil {
		return err
	}

	moves := plan.Moves()
	mover := intensityMover{Mover: s.act, scale: plan.Intensity}
	for i, name := range moves {
		if !s.act.IsConnected() {
			return fmt.Errorf("%w: during section %q at move %d/%d",
				actuator.ErrLinkLost, plan.Name, i+1, len(moves))
		}
		move, _ := s.catalog.Get(name)
		log.Debug("move", "section", plan.Name, "index", i+1, "of", len(moves), "name", name)
		s.publish("move", map[string]any{"name": name, "section": plan.Name})

		if err := move.Run(ctx, mover, moveDuration, turnState); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.opts.MovePause); err != nil {
			return err
		}
	}

	if err := s.act.ResetPosture(ctx); err != nil {
		return err
	}
	return s.sleep(ctx, s.opts.SectionPause)
}

// RunTimed executes a cyclic move sequence against the wall-clock beat
// times of a precomputed timeline, striding by BeatsPerMove: wait until
// the beat is due, run the next move for the full beat span, repeat.
// Used when the track plays alongside the routine and moves must land
// on audible beats.
func (s *Scheduler) RunTimed(ctx context.Context, timeline beat.Timeline, tempo beat.TempoEstimate, plan *SequencePlan) Status {
	if len(plan.Pattern) == 0 {
		return faulted(fmt.Errorf("scheduler: timed plan has no pattern"))
	}
	if err := plan.Validate(s.catalog); err != nil {
		return faulted(err)
	}
	stride := plan.BeatsPerMove
	if stride <= 0 {
		stride = s.opts.BeatsPerMove
	}

	s.beginRun("timed")
	if err := s.preflight(ctx); err != nil {
		return s.finish(err)
	}
	s.setState(StateRunning)

	moveDuration := time.Duration(tempo.BeatPeriod * float64(stride) * float64(time.Second))
	turnState := &choreo.TurnState{}
	start := s.clock.Now()
	moveIndex := 0

	for i, beatTime := range timeline {
		if i%stride != 0 {
			continue
		}
		due := start.Add(time.Duration(beatTime * float64(time.Second)))
		if err := s.clock.SleepUntil(ctx, due); err != nil {
			return s.finish(err)
		}
		if !s.act.IsConnected() {
			return s.finish(fmt.Errorf("%w: at beat %d", actuator.ErrLinkLost, i))
		}

		name := plan.Pattern[moveIndex%len(plan.Pattern)]
		moveIndex++
		move, _ := s.catalog.Get(name)
		log.Info("move on beat", "beat", i, "at_s", beatTime, "name", name)
		s.publish("move", map[string]any{"name": name, "beat": i})

		if err := move.Run(ctx, s.act, moveDuration, turnState); err != nil {
			return s.finish(err)
		}
	}

	if s.opts.AutoBalance {
		if err := turnState.Correct(ctx, s.act, s.opts.BalanceSpeed); err != nil {
			return s.finish(err)
		}
	}
	return s.finish(nil)
}
