// Package choreo provides the dance-move catalog, song-structure mapping,
// and turn-balance accounting for beat-synchronized routines.
package choreo

import (
	"context"
	"time"

	"github.com/teslashibe/go-groove/pkg/actuator"
)

// Direction of a turning step.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// Step is one sub-movement of a dance move. Each kind carries only the
// data needed to invoke the actuator; TurnRate reports the signed heading
// drift per second the step introduces (negative = left, positive =
// right, zero for non-turning steps).
type Step interface {
	Name() string
	TurnRate() float64
	Apply(ctx context.Context, m actuator.Mover, durationMS float64) error
}

// SpeedStep runs a named primitive at a fixed speed.
type SpeedStep struct {
	StepName  string
	Primitive actuator.Primitive
	Speed     float64
}

func (s SpeedStep) Name() string      { return s.StepName }
func (s SpeedStep) TurnRate() float64 { return 0 }

func (s SpeedStep) Apply(ctx context.Context, m actuator.Mover, durationMS float64) error {
	return m.Execute(ctx, s.Primitive, s.Speed, durationMS)
}

// PoseStep holds a static body pose.
type PoseStep struct {
	StepName string
	Target   actuator.PoseTarget
}

func (s PoseStep) Name() string      { return s.StepName }
func (s PoseStep) TurnRate() float64 { return 0 }

func (s PoseStep) Apply(ctx context.Context, m actuator.Mover, durationMS float64) error {
	return m.Pose(ctx, s.Target, durationMS)
}

// TurnStep rotates in place. Its turn rate is the signed speed.
type TurnStep struct {
	StepName  string
	Direction Direction
	Speed     float64
}

func (s TurnStep) Name() string { return s.StepName }

func (s TurnStep) TurnRate() float64 {
	if s.Direction == Right {
		return s.Speed
	}
	return -s.Speed
}

func (s TurnStep) Apply(ctx context.Context, m actuator.Mover, durationMS float64) error {
	p := actuator.TurnLeft
	if s.Direction == Right {
		p = actuator.TurnRight
	}
	return m.Execute(ctx, p, s.Speed, durationMS)
}

// WaitStep holds still for its slot.
type WaitStep struct {
	StepName string
}

func (s WaitStep) Name() string      { return s.StepName }
func (s WaitStep) TurnRate() float64 { return 0 }

func (s WaitStep) Apply(ctx context.Context, m actuator.Mover, durationMS float64) error {
	timer := time.NewTimer(time.Duration(durationMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Move is an ordered sequence of steps sharing one total duration.
type Move struct {
	Name        string
	Description string
	Steps       []Step
}

// Run executes the move over the given duration, dividing it equally
// across steps. Drift from turning steps is accumulated into turnState
// after each step completes. Zero-step moves and non-positive durations
// are no-ops.
func (m Move) Run(ctx context.Context, mover actuator.Mover, duration time.Duration, turnState *TurnState) error {
	if duration <= 0 || len(m.Steps) == 0 {
		return nil
	}
	stepMS := float64(duration.Milliseconds()) / float64(len(m.Steps))
	stepS := stepMS / 1000.0
	for _, step := range m.Steps {
		if err := step.Apply(ctx, mover, stepMS); err != nil {
			return err
		}
		if turnState != nil && step.TurnRate() != 0 {
			turnState.Accumulate(step.TurnRate(), stepS)
		}
	}
	return nil
}
