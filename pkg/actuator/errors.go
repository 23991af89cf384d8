package actuator

import "errors"

// Sentinel errors for common link conditions.
var (
	// ErrNotConnected is returned when a command is issued before Connect.
	ErrNotConnected = errors.New("actuator: not connected")

	// ErrLinkLost is returned when the agent stops responding mid-run.
	ErrLinkLost = errors.New("actuator: link lost")

	// ErrNoTelemetry is returned when the agent state is unavailable.
	ErrNoTelemetry = errors.New("actuator: telemetry unavailable")
)
