// Package actuator provides interfaces and implementations for quadruped
// motion control.
//
// The package defines small, focused interfaces that can be composed as
// needed. Consumers should depend only on the interfaces they actually
// use: the scheduler takes the full Actuator, a dance move needs only
// Mover.
package actuator

import "context"

// Mode is a locomotion/choreography mode of the quadruped.
type Mode string

const (
	ModeStand  Mode = "stand"
	ModeWalk   Mode = "walk"
	ModeDance1 Mode = "dance1"
	ModeDance2 Mode = "dance2"
)

// Primitive names a motion primitive the agent executes directly.
type Primitive string

const (
	LookUp     Primitive = "look_up"
	LookDown   Primitive = "look_down"
	LeanLeft   Primitive = "lean_left"
	LeanRight  Primitive = "lean_right"
	TwistLeft  Primitive = "twist_left"
	TwistRight Primitive = "twist_right"
	ExtendUp   Primitive = "extend_up"
	SquatDown  Primitive = "squat_down"
	TurnLeft   Primitive = "turn_left"
	TurnRight  Primitive = "turn_right"
)

// PoseTarget is a static body pose: signed fractions of the agent's
// range on each axis.
type PoseTarget struct {
	Lean   float64 `json:"lean"`
	Twist  float64 `json:"twist"`
	Look   float64 `json:"look"`
	Extend float64 `json:"extend"`
}

// Telemetry is the agent's reported state. HasBattery is false when the
// state payload arrived without battery data.
type Telemetry struct {
	BatteryPercent float64
	HasBattery     bool
}

// Link provides connection lifecycle control.
type Link interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Disconnect() error
}

// ModeSetter switches the agent's locomotion mode.
type ModeSetter interface {
	SetMode(ctx context.Context, mode Mode) error
}

// Mover executes motion primitives. Execute and Pose block for the full
// command duration; non-blocking dispatch is the caller's concern.
type Mover interface {
	Execute(ctx context.Context, p Primitive, speed float64, durationMS float64) error
	Pose(ctx context.Context, target PoseTarget, durationMS float64) error
}

// PostureResetter returns the agent to its neutral posture.
type PostureResetter interface {
	ResetPosture(ctx context.Context) error
}

// TelemetrySource reports agent telemetry.
type TelemetrySource interface {
	Telemetry(ctx context.Context) (Telemetry, error)
}

// Actuator is the composite interface for full agent control.
type Actuator interface {
	Link
	ModeSetter
	Mover
	PostureResetter
	TelemetrySource
}

// Ensure implementations satisfy Actuator.
var (
	_ Actuator = (*HTTPActuator)(nil)
	_ Actuator = (*DryRun)(nil)
)
