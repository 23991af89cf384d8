package choreo

import (
	"context"
	"math"
	"sync"

	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/actuator"
)

// balanceEpsilon is the residual drift below which no correction is
// issued.
const balanceEpsilon = 1e-6

// TurnState tracks cumulative heading drift from executed turning steps.
// Updates are serialized internally: in live mode several moves can be
// in flight at once, each accumulating from its own goroutine.
type TurnState struct {
	mu      sync.Mutex
	balance float64
}

// Accumulate adds rate*seconds of drift.
func (t *TurnState) Accumulate(rate, seconds float64) {
	t.mu.Lock()
	t.balance += rate * seconds
	t.mu.Unlock()
}

// Balance returns the current accumulated drift.
func (t *TurnState) Balance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}

// Correct issues a single turn opposite the accumulated drift and resets
// the balance to exactly zero. No-op when the drift is within epsilon or
// balanceSpeed is not positive. Over any run where every turning step is
// tracked, this returns the agent to its original heading by
// construction.
func (t *TurnState) Correct(ctx context.Context, mover actuator.Mover, balanceSpeed float64) error {
	if balanceSpeed <= 0 {
		return nil
	}

	t.mu.Lock()
	balance := t.balance
	t.mu.Unlock()

	if math.Abs(balance) <= balanceEpsilon {
		return nil
	}

	durationS := math.Abs(balance) / balanceSpeed
	p := actuator.TurnRight
	if balance > 0 {
		// Positive balance is accumulated right bias: unwind left.
		p = actuator.TurnLeft
	}
	log.Debug("correcting turn drift",
		"balance", balance, "primitive", string(p), "duration_s", durationS)

	if err := mover.Execute(ctx, p, balanceSpeed, durationS*1000); err != nil {
		return err
	}

	t.mu.Lock()
	t.balance = 0
	t.mu.Unlock()
	return nil
}
