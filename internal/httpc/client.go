// Package httpc builds HTTP clients with timeouts suited to talking to
// a robot bridge daemon on a local network. Use these instead of
// http.DefaultClient, which never times out.
package httpc

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a whole request. Bridge endpoints answer in
	// milliseconds on a healthy link, so anything slower is a dead link.
	DefaultTimeout = 2 * time.Second

	dialTimeout     = 1 * time.Second
	keepAlive       = 30 * time.Second
	idleConnTimeout = 90 * time.Second
)

// New returns a client with the given overall timeout and connection
// pooling sized for a single bridge host.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: keepAlive,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     idleConnTimeout,
		},
	}
}

// Default is a shared client using DefaultTimeout.
var Default = New(DefaultTimeout)
