package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-groove/internal/httpc"
)

// httpClient is shared by all HTTPActuator instances. The bridge daemon
// answers fast or not at all, so the short default timeout is right.
var httpClient = httpc.Default

// HTTPActuator drives a quadruped through its bridge daemon's HTTP API.
// The bridge accepts a command immediately and executes it for the given
// duration; Execute and Pose hold the caller for that duration so move
// steps stay back-to-back.
type HTTPActuator struct {
	BaseURL string

	connected atomic.Bool
}

// NewHTTPActuator creates an actuator talking to the bridge at baseURL.
func NewHTTPActuator(baseURL string) *HTTPActuator {
	return &HTTPActuator{BaseURL: baseURL}
}

// Connect verifies the bridge is reachable.
func (a *HTTPActuator) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/api/state", nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("actuator: bridge unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("actuator: bridge returned status %d", resp.StatusCode)
	}
	a.connected.Store(true)
	return nil
}

// IsConnected reports whether the link is up.
func (a *HTTPActuator) IsConnected() bool {
	return a.connected.Load()
}

// Disconnect drops the link.
func (a *HTTPActuator) Disconnect() error {
	a.connected.Store(false)
	return nil
}

// SetMode switches the agent's locomotion mode.
func (a *HTTPActuator) SetMode(ctx context.Context, mode Mode) error {
	return a.post(ctx, "/api/mode", map[string]any{"mode": string(mode)})
}

// Execute runs a motion primitive and blocks for its duration.
func (a *HTTPActuator) Execute(ctx context.Context, p Primitive, speed float64, durationMS float64) error {
	start := time.Now()
	err := a.post(ctx, "/api/move", map[string]any{
		"primitive":   string(p),
		"speed":       speed,
		"duration_ms": durationMS,
	})
	if err != nil {
		return err
	}
	return holdRemaining(ctx, start, durationMS)
}

// Pose moves the agent into a static pose and blocks for the duration.
func (a *HTTPActuator) Pose(ctx context.Context, target PoseTarget, durationMS float64) error {
	start := time.Now()
	err := a.post(ctx, "/api/pose", map[string]any{
		"target":      target,
		"duration_ms": durationMS,
	})
	if err != nil {
		return err
	}
	return holdRemaining(ctx, start, durationMS)
}

// ResetPosture returns the agent to neutral.
func (a *HTTPActuator) ResetPosture(ctx context.Context) error {
	return a.post(ctx, "/api/reset", map[string]any{})
}

// Telemetry fetches the agent state. A reachable bridge without battery
// data yields HasBattery=false rather than an error.
func (a *HTTPActuator) Telemetry(ctx context.Context) (Telemetry, error) {
	if !a.connected.Load() {
		return Telemetry{}, ErrNotConnected
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/api/state", nil)
	if err != nil {
		return Telemetry{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Telemetry{}, fmt.Errorf("%w: %v", ErrNoTelemetry, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Telemetry{}, fmt.Errorf("%w: status %d", ErrNoTelemetry, resp.StatusCode)
	}

	var state struct {
		BatteryPercent *float64 `json:"battery_percent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return Telemetry{}, fmt.Errorf("actuator: failed to decode state: %w", err)
	}
	if state.BatteryPercent == nil {
		return Telemetry{HasBattery: false}, nil
	}
	return Telemetry{BatteryPercent: *state.BatteryPercent, HasBattery: true}, nil
}

// post marshals payload and sends it to the bridge API. A transport
// failure after a successful Connect reports the link as lost.
func (a *HTTPActuator) post(ctx context.Context, path string, payload map[string]any) error {
	if !a.connected.Load() {
		return ErrNotConnected
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("actuator: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		a.connected.Store(false)
		return fmt.Errorf("%w: %v", ErrLinkLost, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("actuator: %s returned status %d", path, resp.StatusCode)
	}
	return nil
}

// holdRemaining sleeps out the rest of a command's duration, so a slow
// POST does not stretch the step beyond its slot.
func holdRemaining(ctx context.Context, start time.Time, durationMS float64) error {
	remaining := time.Duration(durationMS)*time.Millisecond - time.Since(start)
	if remaining <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
