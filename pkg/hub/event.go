// Package hub fans run events out to websocket watchers using the
// channel-based broadcast pattern: one goroutine owns the client set,
// slow clients are dropped rather than allowed to stall the feed.
package hub

import "time"

// Event is the envelope every feed message travels in. Payload is
// kind-specific: beat events carry a beat.Event, state changes carry
// the state name, tempo reports carry bpm and period.
type Event struct {
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}
