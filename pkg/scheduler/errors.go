package scheduler

import "errors"

// Sentinel errors for run faults. Link loss mid-run surfaces as
// actuator.ErrLinkLost wrapped in the terminal status.
var (
	// ErrConnectionTimeout is returned when the agent link does not come
	// up within the configured bound.
	ErrConnectionTimeout = errors.New("scheduler: connection timeout")

	// ErrTelemetryUnavailable is returned when no telemetry arrives
	// within the configured bound after connecting.
	ErrTelemetryUnavailable = errors.New("scheduler: telemetry unavailable")

	// ErrTelemetryMissingField is returned when telemetry arrives
	// without battery data; the run aborts rather than dance blind.
	ErrTelemetryMissingField = errors.New("scheduler: telemetry missing battery field")

	// ErrCriticalPower aborts a run before any motion starts.
	ErrCriticalPower = errors.New("scheduler: battery critically low")

	// ErrUnknownMove is returned when a plan names a move the catalog
	// does not have.
	ErrUnknownMove = errors.New("scheduler: unknown move")
)
