package actuator

import (
	"context"
	"sync"
	"time"
)

// DryRunCommand records one command issued to a DryRun actuator.
type DryRunCommand struct {
	Primitive  Primitive
	Speed      float64
	DurationMS float64
	Pose       *PoseTarget
	Mode       Mode
}

// DryRun is an actuator that records commands instead of moving anything.
// With Realtime set it also sleeps out command durations, so scheduling
// behaves as it would against a real agent. Safe for concurrent use -
// live mode can have several moves in flight.
type DryRun struct {
	// Realtime makes Execute/Pose block for their stated duration.
	Realtime bool

	// Battery is the telemetry reading to report. Defaults to full.
	Battery float64

	// FailAfter injects a link fault: commands beyond this count return
	// ErrLinkLost. Zero disables injection.
	FailAfter int

	mu        sync.Mutex
	connected bool
	commands  []DryRunCommand
	modes     []Mode
	resets    int
}

// NewDryRun creates a dry-run actuator with a full battery.
func NewDryRun() *DryRun {
	return &DryRun{Battery: 100}
}

func (d *DryRun) Connect(ctx context.Context) error {
	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	return nil
}

func (d *DryRun) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *DryRun) Disconnect() error {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	return nil
}

func (d *DryRun) SetMode(ctx context.Context, mode Mode) error {
	d.mu.Lock()
	d.modes = append(d.modes, mode)
	d.mu.Unlock()
	return nil
}

func (d *DryRun) Execute(ctx context.Context, p Primitive, speed float64, durationMS float64) error {
	if err := d.record(DryRunCommand{Primitive: p, Speed: speed, DurationMS: durationMS}); err != nil {
		return err
	}
	return d.hold(ctx, durationMS)
}

func (d *DryRun) Pose(ctx context.Context, target PoseTarget, durationMS float64) error {
	t := target
	if err := d.record(DryRunCommand{Pose: &t, DurationMS: durationMS}); err != nil {
		return err
	}
	return d.hold(ctx, durationMS)
}

func (d *DryRun) ResetPosture(ctx context.Context) error {
	d.mu.Lock()
	d.resets++
	d.mu.Unlock()
	return nil
}

func (d *DryRun) Telemetry(ctx context.Context) (Telemetry, error) {
	if !d.IsConnected() {
		return Telemetry{}, ErrNotConnected
	}
	return Telemetry{BatteryPercent: d.Battery, HasBattery: true}, nil
}

// Commands returns a copy of all recorded move/pose commands.
func (d *DryRun) Commands() []DryRunCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DryRunCommand, len(d.commands))
	copy(out, d.commands)
	return out
}

// Modes returns the mode switches in order.
func (d *DryRun) Modes() []Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Mode, len(d.modes))
	copy(out, d.modes)
	return out
}

// Resets returns the number of posture resets issued.
func (d *DryRun) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

func (d *DryRun) record(cmd DryRunCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.FailAfter > 0 && len(d.commands) >= d.FailAfter {
		d.connected = false
		return ErrLinkLost
	}
	d.commands = append(d.commands, cmd)
	return nil
}

func (d *DryRun) hold(ctx context.Context, durationMS float64) error {
	if !d.Realtime {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(durationMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
