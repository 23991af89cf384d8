package scheduler

// State is the scheduler's position in its run lifecycle. Running is
// re-entered per section (offline) or per beat loop iteration (live);
// Draining is entered on success, cancellation, or fault, and always
// attempts a best-effort posture reset.
type State string

const (
	StateIdle              State = "idle"
	StateConnecting        State = "connecting"
	StateAwaitingTelemetry State = "awaiting_telemetry"
	StateArmed             State = "armed"
	StateRunning           State = "running"
	StateDraining          State = "draining"
	StateDisconnected      State = "disconnected"
)

// Outcome is a run's terminal result.
type Outcome string

const (
	Completed Outcome = "completed"
	Cancelled Outcome = "cancelled"
	Faulted   Outcome = "faulted"
)

// Status is the terminal status of a scheduling run. Reason is non-nil
// only for Faulted.
type Status struct {
	Outcome Outcome
	Reason  error
}

func completed() Status { return Status{Outcome: Completed} }
func cancelled() Status { return Status{Outcome: Cancelled} }

func faulted(err error) Status { return Status{Outcome: Faulted, Reason: err} }

// String renders the status for logs and history records.
func (s Status) String() string {
	if s.Outcome == Faulted && s.Reason != nil {
		return string(s.Outcome) + ": " + s.Reason.Error()
	}
	return string(s.Outcome)
}
