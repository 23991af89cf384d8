// Package scheduler turns beat events into precisely timed movement
// commands: it orchestrates the actuator link, the move catalog, the
// song-structure mapper, and turn-balance correction for both offline
// (whole-track) and live (microphone) runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-groove/internal/config"
	"github.com/teslashibe/go-groove/internal/history"
	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/actuator"
	"github.com/teslashibe/go-groove/pkg/beat"
	"github.com/teslashibe/go-groove/pkg/choreo"
)

// EventSink receives scheduler events (beat fired, move dispatched,
// section change, state change) for live feeds. A nil sink is safe.
type EventSink interface {
	PublishEvent(kind string, payload any)
}

// Options tunes a scheduler. Zero values take the defaults noted on
// each field; all delays come from the original routine's timings.
type Options struct {
	ConnectTimeout  time.Duration // agent link + first telemetry bound (default 10s)
	StabilizeDelay  time.Duration // after initial stand mode (default 2s)
	ModeSettleDelay time.Duration // after each mode switch (default 1s)
	MovePause       time.Duration // mechanical recovery between moves (default 200ms)
	SectionPause    time.Duration // after per-section posture reset (default 500ms)

	// BeatsPerMove is the beat stride between dispatched moves (default 2).
	BeatsPerMove int

	// ChunkDuration is the live ingestion chunk length in seconds
	// (default 0.1).
	ChunkDuration float64

	// BobDurationRatio is the fraction of the beat span a live move
	// fills, leaving headroom before the next dispatch (default 0.8).
	BobDurationRatio float64

	// AutoBalance corrects accumulated turn drift at section ends and
	// at the end of a run.
	AutoBalance bool

	// BalanceSpeed is the turn speed used for drift correction
	// (default 0.4).
	BalanceSpeed float64

	// DispatchWorkers is the live-mode move executor pool size
	// (default 2): two moves may be in flight relative to the agent's
	// physical limits, and the agent's command interface absorbs the
	// overlap.
	DispatchWorkers int

	// Battery thresholds in percent (defaults 20 warn, 10 abort).
	LowBatteryWarn  float64
	CriticalBattery float64
}

func (o *Options) fillDefaults() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.StabilizeDelay == 0 {
		o.StabilizeDelay = 2 * time.Second
	}
	if o.ModeSettleDelay == 0 {
		o.ModeSettleDelay = time.Second
	}
	if o.MovePause == 0 {
		o.MovePause = 200 * time.Millisecond
	}
	if o.SectionPause == 0 {
		o.SectionPause = 500 * time.Millisecond
	}
	if o.BeatsPerMove == 0 {
		o.BeatsPerMove = 2
	}
	if o.ChunkDuration == 0 {
		o.ChunkDuration = config.DefaultChunkDuration
	}
	if o.BobDurationRatio == 0 {
		o.BobDurationRatio = 0.8
	}
	if o.BalanceSpeed == 0 {
		o.BalanceSpeed = 0.4
	}
	if o.DispatchWorkers == 0 {
		o.DispatchWorkers = 2
	}
	if o.LowBatteryWarn == 0 {
		o.LowBatteryWarn = 20
	}
	if o.CriticalBattery == 0 {
		o.CriticalBattery = 10
	}
}

// Scheduler coordinates one run at a time against a single actuator.
type Scheduler struct {
	act     actuator.Actuator
	catalog *choreo.Catalog
	clock   beat.Clock
	opts    Options

	// Optional collaborators.
	History *history.Store
	Events  EventSink

	mu    sync.Mutex
	state State
	runID string
}

// New creates a scheduler.
func New(act actuator.Actuator, catalog *choreo.Catalog, opts Options) *Scheduler {
	opts.fillDefaults()
	return &Scheduler{
		act:     act,
		catalog: catalog,
		clock:   beat.SystemClock{},
		opts:    opts,
		state:   StateIdle,
	}
}

// SetClock replaces the wall clock (tests).
func (s *Scheduler) SetClock(c beat.Clock) { s.clock = c }

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID returns the current (or last) run's ID.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	log.Debug("scheduler state", "state", string(st))
	s.publish("state", map[string]any{"state": string(st)})
}

func (s *Scheduler) publish(kind string, payload any) {
	if s.Events != nil {
		s.Events.PublishEvent(kind, payload)
	}
}

// beginRun stamps a fresh run ID and opens the history record.
func (s *Scheduler) beginRun(mode string) {
	id := uuid.NewString()
	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()

	if err := s.History.StartRun(id, mode, time.Now()); err != nil {
		log.Warn("failed to record run start", "err", err)
	}
	log.Info("run starting", "run_id", id, "mode", mode)
}

// endRun closes the history record and reports the terminal status.
func (s *Scheduler) endRun(status Status) Status {
	if err := s.History.FinishRun(s.RunID(), string(status.Outcome), status.String(), time.Now()); err != nil {
		log.Warn("failed to record run finish", "err", err)
	}
	log.Info("run finished", "run_id", s.RunID(), "status", status.String())
	s.publish("run_finished", map[string]any{"run_id": s.RunID(), "status": status.String()})
	return status
}

// preflight brings the link up and verifies the agent is fit to dance:
// bounded connect, bounded first-telemetry wait, battery checks, stand
// mode, stabilize delay.
func (s *Scheduler) preflight(ctx context.Context) error {
	s.setState(StateConnecting)
	connectCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	err := s.act.Connect(connectCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrConnectionTimeout, err)
	}

	s.setState(StateAwaitingTelemetry)
	tel, err := s.awaitTelemetry(ctx)
	if err != nil {
		return err
	}
	if !tel.HasBattery {
		return ErrTelemetryMissingField
	}
	log.Info("battery level", "percent", tel.BatteryPercent)
	if tel.BatteryPercent < s.opts.CriticalBattery {
		return fmt.Errorf("%w: %.1f%%", ErrCriticalPower, tel.BatteryPercent)
	}
	if tel.BatteryPercent < s.opts.LowBatteryWarn {
		log.Warn("battery low, routine may be interrupted", "percent", tel.BatteryPercent)
	}

	if err := s.act.SetMode(ctx, actuator.ModeStand); err != nil {
		return err
	}
	if err := s.sleep(ctx, s.opts.StabilizeDelay); err != nil {
		return err
	}
	s.setState(StateArmed)
	return nil
}

// awaitTelemetry polls until telemetry arrives or the bound expires.
func (s *Scheduler) awaitTelemetry(ctx context.Context) (actuator.Telemetry, error) {
	deadline := s.clock.Now().Add(s.opts.ConnectTimeout)
	for {
		tel, err := s.act.Telemetry(ctx)
		if err == nil {
			return tel, nil
		}
		if ctx.Err() != nil {
			return actuator.Telemetry{}, ctx.Err()
		}
		if s.clock.Now().After(deadline) {
			return actuator.Telemetry{}, fmt.Errorf("%w: %v", ErrTelemetryUnavailable, err)
		}
		if err := s.sleep(ctx, 100*time.Millisecond); err != nil {
			return actuator.Telemetry{}, err
		}
	}
}

// drain is the one fault-handling guarantee the scheduler owns: every
// run, regardless of outcome, attempts one best-effort posture reset,
// walk mode, and disconnect. Cleanup failures are recorded but never
// escalate.
func (s *Scheduler) drain() {
	s.setState(StateDraining)

	// Fresh context: the run's context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.act.IsConnected() {
		if err := s.act.ResetPosture(ctx); err != nil {
			log.Warn("posture reset failed during drain", "err", err)
		}
		if err := s.act.SetMode(ctx, actuator.ModeWalk); err != nil {
			log.Warn("mode reset failed during drain", "err", err)
		}
	}
	if err := s.act.Disconnect(); err != nil {
		log.Warn("disconnect failed during drain", "err", err)
	}
	s.setState(StateDisconnected)
}

// finish maps a run error to its terminal status and drains.
func (s *Scheduler) finish(err error) Status {
	s.drain()
	switch {
	case err == nil:
		return s.endRun(completed())
	case errors.Is(err, context.Canceled):
		return s.endRun(cancelled())
	default:
		return s.endRun(faulted(err))
	}
}

// sleep waits using the scheduler clock, honoring cancellation.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return s.clock.SleepUntil(ctx, s.clock.Now().Add(d))
}

// intensityMover scales command speeds by a section's intensity before
// they reach the actuator.
type intensityMover struct {
	actuator.Mover
	scale float64
}

func (m intensityMover) Execute(ctx context.Context, p actuator.Primitive, speed float64, durationMS float64) error {
	return m.Mover.Execute(ctx, p, speed*m.scale, durationMS)
}

// anomalySink adapts the history store to choreo.AnomalyRecorder,
// tagging anomalies with the current run.
type anomalySink struct {
	s *Scheduler
}

func (a anomalySink) RecordAnomaly(kind, detail string) {
	if err := a.s.History.RecordAnomaly(a.s.RunID(), kind, detail, time.Now()); err != nil {
		log.Warn("failed to record anomaly", "kind", kind, "err", err)
	}
	a.s.publish("anomaly", map[string]any{"kind": kind, "detail": detail})
}
