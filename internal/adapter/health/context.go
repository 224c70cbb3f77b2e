// Package health implements the Health Check Context (spec.md §4.I): a
// per-endpoint probe driver with long-poll ping support.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/latticerpc/core/internal/core/domain"
)

// Logger is the narrow slice of *logger.StyledLogger this package needs,
// kept as an interface so health has no import-time dependency on the
// logging adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Handle identifies a listener registered via Subscribe, for Unsubscribe.
type Handle uint64

// HealthCheckContext drives the probe loop for a single endpoint: issuing
// requests, classifying terminal responses, running the long-poll ping
// watchdog when the server advertises it, and publishing a coalesced health
// value to subscribers. Its retry/backoff/classify structure is grounded on
// the teacher's health.client.go; refcounting exists because the same
// context is shared across overlapping candidate sets in a
// HealthCheckedEndpointGroup rollover (spec.md §4.J).
type HealthCheckContext struct {
	endpoint *domain.Endpoint
	cfg      ProbeConfig
	client   *http.Client
	log      Logger

	health    atomic.Float64
	coalescer valueCoalescer

	listenersMu sync.Mutex
	listeners   map[Handle]func(domain.HealthCheckResult)
	nextHandle  Handle

	refcount atomic.Int32

	recoveryMu sync.Mutex
	recovery   RecoveryCallback

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewHealthCheckContext builds a context for endpoint. The loop does not run
// until StartChecking is called.
func NewHealthCheckContext(endpoint *domain.Endpoint, cfg ProbeConfig, client *http.Client, log Logger) *HealthCheckContext {
	return &HealthCheckContext{
		endpoint:  endpoint,
		cfg:       cfg.withDefaults(),
		client:    client,
		log:       log,
		listeners: make(map[Handle]func(domain.HealthCheckResult)),
		done:      make(chan struct{}),
	}
}

var _ domain.HealthChecker = (*HealthCheckContext)(nil)

// Retain increments the context's reference count and returns the new
// value. A HealthCheckedEndpointGroup calls this when a rolling candidate
// set starts referencing an already-existing context (spec.md §4.J).
func (c *HealthCheckContext) Retain() int32 {
	return c.refcount.Add(1)
}

// Release decrements the reference count and returns the new value; the
// caller destroys the context once it reaches zero.
func (c *HealthCheckContext) Release() int32 {
	return c.refcount.Add(-1)
}

// Health returns the most recently published health value in [0,1].
func (c *HealthCheckContext) Health() float64 {
	return c.health.Load()
}

// Status is a convenience view of Health for logging.
func (c *HealthCheckContext) Status() domain.EndpointStatus {
	return domain.StatusForHealth(c.Health())
}

// Subscribe registers fn to receive coalesced HealthCheckResult updates.
func (c *HealthCheckContext) Subscribe(fn func(domain.HealthCheckResult)) Handle {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.nextHandle++
	h := c.nextHandle
	c.listeners[h] = fn
	return h
}

// Unsubscribe removes a listener registered via Subscribe.
func (c *HealthCheckContext) Unsubscribe(h Handle) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.listeners, h)
}

// SetRecoveryCallback registers a callback invoked when the endpoint
// transitions from unhealthy/degraded to healthy (health reaching 1.0).
func (c *HealthCheckContext) SetRecoveryCallback(cb RecoveryCallback) {
	c.recoveryMu.Lock()
	defer c.recoveryMu.Unlock()
	c.recovery = cb
}

// Check performs a single probe attempt outside the running loop, per the
// domain.HealthChecker contract.
func (c *HealthCheckContext) Check(ctx context.Context, endpoint *domain.Endpoint) (domain.HealthCheckResult, error) {
	result := c.probeOnce(ctx)
	if result.Error != nil {
		return result, result.Error
	}
	return result, nil
}

// StartChecking launches the probe loop in the background. Calling it more
// than once has no additional effect.
func (c *HealthCheckContext) StartChecking(ctx context.Context) error {
	c.startOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		go c.run(loopCtx)
	})
	return nil
}

// StopChecking cancels the probe loop and waits for it to exit. Idempotent.
func (c *HealthCheckContext) StopChecking(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		} else {
			close(c.done)
		}
	})
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *HealthCheckContext) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		result := c.probeOnce(ctx)
		if ctx.Err() != nil {
			// The outer context closed while the probe was in flight; don't
			// publish a spurious failure on shutdown.
			return
		}
		c.record(result)

		var wait time.Duration
		if result.Health >= 1.0 {
			attempt = 0
			wait = c.cfg.Interval
		} else {
			attempt++
			wait = c.cfg.Backoff.Duration(attempt)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (c *HealthCheckContext) record(result domain.HealthCheckResult) {
	previous := c.health.Swap(result.Health)
	if !c.coalescer.changed(result.Health) {
		return
	}
	c.broadcast(result)

	if previous < 1.0 && result.Health >= 1.0 {
		c.notifyRecovered()
	}
}

func (c *HealthCheckContext) notifyRecovered() {
	c.recoveryMu.Lock()
	cb := c.recovery
	c.recoveryMu.Unlock()
	if cb == nil {
		return
	}
	if err := cb.OnEndpointRecovered(context.Background(), c.endpoint); err != nil && c.log != nil {
		c.log.Warn("recovery callback failed", "endpoint", c.endpoint.String(), "error", err)
	}
}

func (c *HealthCheckContext) broadcast(result domain.HealthCheckResult) {
	c.listenersMu.Lock()
	fns := make([]func(domain.HealthCheckResult), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(result)
	}
}

// probeOnce issues a single probe request and, if the server advertises
// long-polling via armeria-lphc, blocks for the duration of that session.
func (c *HealthCheckContext) probeOnce(ctx context.Context) domain.HealthCheckResult {
	start := time.Now()
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := newLongPollSession()
	reqCtx = httptrace.WithClientTrace(reqCtx, session.trace())
	go session.watch(reqCtx, cancel, c.cfg.Timeout)

	req, err := http.NewRequestWithContext(reqCtx, c.cfg.Method, c.probeURL(), http.NoBody)
	if err != nil {
		return c.transportFailure(err, time.Since(start))
	}
	injectProbeHeaders(req)

	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return c.transportFailure(err, latency)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return terminalResult(resp, latency)
}

func terminalResult(resp *http.Response, latency time.Duration) domain.HealthCheckResult {
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return domain.HealthCheckResult{Health: 1.0, Latency: latency, StatusCode: resp.StatusCode}
	}
	return domain.HealthCheckResult{
		Health:     0.0,
		Latency:    latency,
		StatusCode: resp.StatusCode,
		ErrorType:  domain.ErrorTypeHTTPError,
		Error:      fmt.Errorf("probe returned HTTP %d", resp.StatusCode),
	}
}

func (c *HealthCheckContext) transportFailure(err error, latency time.Duration) domain.HealthCheckResult {
	return domain.HealthCheckResult{
		Health:    0.0,
		Error:     err,
		ErrorType: classifyError(err),
		Latency:   latency,
	}
}

// classifyError determines the type of error that occurred during probing.
func classifyError(err error) domain.HealthCheckErrorType {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrorTypeTimeout
		}
		return domain.ErrorTypeNetwork
	}
	return domain.ErrorTypeNetwork
}

// probeURL builds scheme://host[:port]/path, honoring AltPort when set.
func (c *HealthCheckContext) probeURL() string {
	port := c.endpoint.Port
	if c.cfg.AltPort != 0 {
		port = c.cfg.AltPort
	}
	host := formatHostPort(c.endpoint.Host, c.endpoint.HostType, port)
	path := c.cfg.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", c.endpoint.Scheme, host, path)
}

func formatHostPort(host string, hostType domain.HostType, port int) string {
	if hostType == domain.HostTypeIPv6 && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	if port == 0 {
		return host
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func injectProbeHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Cache-Control", "no-cache")
}
