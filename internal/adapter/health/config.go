package health

import (
	"net/http"
	"time"

	"github.com/latticerpc/core/internal/util"
)

const (
	// DefaultProbeTimeout bounds the wait for either a terminal response or
	// the first long-poll ping, before any armeria-lphc advertisement has
	// been seen.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultSteadyInterval is how long a context waits between probes once
	// an endpoint is healthy and not long-polling.
	DefaultSteadyInterval = 10 * time.Second

	userAgent = "latticerpc-healthprobe/1"
)

// ProbeConfig configures the per-endpoint probe driver (spec.md §4.I).
type ProbeConfig struct {
	// Method is the HTTP method used for the probe request. Defaults to GET.
	Method string
	// Path is the request path. Defaults to "/".
	Path string
	// AltPort overrides the endpoint's service port for the probe request,
	// if non-zero.
	AltPort int
	// Timeout bounds the initial wait for a terminal response or first
	// long-poll ping.
	Timeout time.Duration
	// Interval is the steady-state wait between probes while healthy and
	// not long-polling.
	Interval time.Duration
	// Backoff yields the wait between retries after a failed probe.
	Backoff util.Backoff
}

// DefaultProbeConfig returns a ProbeConfig with the package defaults.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Method:   http.MethodGet,
		Path:     "/",
		Timeout:  DefaultProbeTimeout,
		Interval: DefaultSteadyInterval,
		Backoff:  util.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 0.25),
	}
}

func (c ProbeConfig) withDefaults() ProbeConfig {
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultProbeTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultSteadyInterval
	}
	if c.Backoff == nil {
		c.Backoff = util.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 0.25)
	}
	return c
}
