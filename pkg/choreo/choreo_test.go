package choreo

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-groove/pkg/actuator"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// mockMover records all commands for testing.
type mockMover struct {
	mu    sync.Mutex
	execs []struct {
		primitive  actuator.Primitive
		speed      float64
		durationMS float64
	}
	poses []struct {
		target     actuator.PoseTarget
		durationMS float64
	}
	failWith error
}

func (m *mockMover) Execute(ctx context.Context, p actuator.Primitive, speed, durationMS float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.execs = append(m.execs, struct {
		primitive  actuator.Primitive
		speed      float64
		durationMS float64
	}{p, speed, durationMS})
	return nil
}

func (m *mockMover) Pose(ctx context.Context, target actuator.PoseTarget, durationMS float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.poses = append(m.poses, struct {
		target     actuator.PoseTarget
		durationMS float64
	}{target, durationMS})
	return nil
}

func (m *mockMover) execCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.execs)
}

func TestMove_SplitsDurationEqually(t *testing.T) {
	mock := &mockMover{}
	move := Move{Name: "test", Steps: []Step{
		SpeedStep{StepName: "a", Primitive: actuator.LookUp, Speed: 0.5},
		SpeedStep{StepName: "b", Primitive: actuator.LookDown, Speed: 0.5},
		SpeedStep{StepName: "c", Primitive: actuator.LeanLeft, Speed: 0.5},
	}}

	if err := move.Run(context.Background(), mock, 900*time.Millisecond, nil); err != nil {
		t.Fatal(err)
	}
	if len(mock.execs) != 3 {
		t.Fatalf("exec count: got %d, want 3", len(mock.execs))
	}
	for i, e := range mock.execs {
		if !floatEquals(e.durationMS, 300) {
			t.Errorf("step %d duration: got %v, want 300", i, e.durationMS)
		}
	}
}

func TestMove_ZeroStepsAndZeroDurationAreNoOps(t *testing.T) {
	mock := &mockMover{}
	empty := Move{Name: "empty"}
	if err := empty.Run(context.Background(), mock, time.Second, nil); err != nil {
		t.Fatal(err)
	}
	move := Move{Name: "m", Steps: []Step{SpeedStep{StepName: "a", Primitive: actuator.LookUp, Speed: 0.5}}}
	if err := move.Run(context.Background(), mock, 0, nil); err != nil {
		t.Fatal(err)
	}
	if mock.execCount() != 0 {
		t.Errorf("exec count: got %d, want 0", mock.execCount())
	}
}

func TestMove_StopsOnStepError(t *testing.T) {
	wantErr := errors.New("actuator gone")
	mock := &mockMover{failWith: wantErr}
	move := Move{Name: "m", Steps: []Step{
		SpeedStep{StepName: "a", Primitive: actuator.LookUp, Speed: 0.5},
		SpeedStep{StepName: "b", Primitive: actuator.LookDown, Speed: 0.5},
	}}
	if err := move.Run(context.Background(), mock, time.Second, nil); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestMove_AccumulatesTurnDrift(t *testing.T) {
	mock := &mockMover{}
	state := &TurnState{}
	move := Move{Name: "turn_right", Steps: []Step{
		TurnStep{StepName: "r", Direction: Right, Speed: 0.4},
	}}

	// One step over 2s: drift = 0.4 * 2.
	if err := move.Run(context.Background(), mock, 2*time.Second, state); err != nil {
		t.Fatal(err)
	}
	if !floatEquals(state.Balance(), 0.8) {
		t.Errorf("balance: got %v, want 0.8", state.Balance())
	}

	// Opposite turn cancels.
	left := Move{Name: "turn_left", Steps: []Step{
		TurnStep{StepName: "l", Direction: Left, Speed: 0.4},
	}}
	if err := left.Run(context.Background(), mock, 2*time.Second, state); err != nil {
		t.Fatal(err)
	}
	if !floatEquals(state.Balance(), 0) {
		t.Errorf("balance after opposite turn: got %v, want 0", state.Balance())
	}
}

func TestTurnStep_SignedRate(t *testing.T) {
	right := TurnStep{StepName: "r", Direction: Right, Speed: 0.4}
	if !floatEquals(right.TurnRate(), 0.4) {
		t.Errorf("right rate: got %v, want 0.4", right.TurnRate())
	}
	left := TurnStep{StepName: "l", Direction: Left, Speed: 0.4}
	if !floatEquals(left.TurnRate(), -0.4) {
		t.Errorf("left rate: got %v, want -0.4", left.TurnRate())
	}
}

func TestCorrect_IssuesOppositeTurnAndResets(t *testing.T) {
	mock := &mockMover{}
	state := &TurnState{}
	state.Accumulate(0.4, 3) // 1.2 of right bias

	if err := state.Correct(context.Background(), mock, 0.4); err != nil {
		t.Fatal(err)
	}
	if len(mock.execs) != 1 {
		t.Fatalf("exec count: got %d, want 1", len(mock.execs))
	}
	e := mock.execs[0]
	if e.primitive != actuator.TurnLeft {
		t.Errorf("primitive: got %v, want TurnLeft", e.primitive)
	}
	if !floatEquals(e.durationMS, 3000) {
		t.Errorf("duration: got %v, want 3000 (1.2 / 0.4)", e.durationMS)
	}
	if !floatEquals(state.Balance(), 0) {
		t.Errorf("balance after correction: got %v, want 0", state.Balance())
	}
}

func TestCorrect_NoOpWithinEpsilon(t *testing.T) {
	mock := &mockMover{}
	state := &TurnState{}
	state.Accumulate(1e-9, 0.5)

	if err := state.Correct(context.Background(), mock, 0.4); err != nil {
		t.Fatal(err)
	}
	if mock.execCount() != 0 {
		t.Errorf("exec count: got %d, want 0", mock.execCount())
	}
}

func TestCorrect_NoOpWithoutSpeed(t *testing.T) {
	mock := &mockMover{}
	state := &TurnState{}
	state.Accumulate(0.4, 2)

	if err := state.Correct(context.Background(), mock, 0); err != nil {
		t.Fatal(err)
	}
	if mock.execCount() != 0 {
		t.Errorf("exec count: got %d, want 0", mock.execCount())
	}
	if floatEquals(state.Balance(), 0) {
		t.Error("balance should survive a skipped correction")
	}
}

func TestCorrect_KeepsBalanceOnFailure(t *testing.T) {
	wantErr := errors.New("link down")
	mock := &mockMover{failWith: wantErr}
	state := &TurnState{}
	state.Accumulate(0.4, 2)

	if err := state.Correct(context.Background(), mock, 0.4); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if floatEquals(state.Balance(), 0) {
		t.Error("balance must not reset when the correction never ran")
	}
}

func TestTurnState_ConcurrentAccumulate(t *testing.T) {
	state := &TurnState{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				state.Accumulate(0.1, 0.1)
			}
		}()
	}
	wg.Wait()
	if math.Abs(state.Balance()-10) > 1e-6 {
		t.Errorf("balance: got %v, want 10", state.Balance())
	}
}
