// Package breaker implements the circuit breaker engine: a sliding-window
// event counter, a four-state breaker state machine driven by it, a keyed
// mapping with bounded-LRU eviction, and a rule evaluator that classifies a
// completed call before it reaches the counter.
package breaker

import "time"

// Config holds one breaker's tunables. Zero values are replaced by
// NewConfig's defaults rather than left inert, so a Config built with only
// a couple of fields set still behaves sanely.
type Config struct {
	// Name identifies the breaker in logs and listener callbacks.
	Name string

	// FailureRateThreshold is the failure/total ratio, in (0,1], at or
	// above which CLOSED transitions to OPEN.
	FailureRateThreshold float64

	// MinimumRequestThreshold is the smallest total event count a counter
	// must reach before the rate threshold is even consulted.
	MinimumRequestThreshold int64

	// CircuitOpenWindow is how long the breaker stays OPEN before a single
	// trial request is admitted (transition to HALF_OPEN).
	CircuitOpenWindow time.Duration

	// TrialRequestInterval bounds how often HALF_OPEN admits a new trial;
	// a single trial may be in flight per interval.
	TrialRequestInterval time.Duration

	// CounterSlidingWindow is the bucket ring's total covered span.
	CounterSlidingWindow time.Duration

	// CounterUpdateInterval is the bucket width, and the cadence at which
	// CLOSED->OPEN is evaluated.
	CounterUpdateInterval time.Duration

	// Now returns monotonic nanoseconds; overridable for deterministic
	// tests. Defaults to time.Now().UnixNano().
	Now func() int64
}

const (
	DefaultFailureRateThreshold    = 0.5
	DefaultMinimumRequestThreshold = 10
	DefaultCircuitOpenWindow       = 10 * time.Second
	DefaultTrialRequestInterval    = 3 * time.Second
	DefaultCounterSlidingWindow    = 20 * time.Second
	DefaultCounterUpdateInterval   = time.Second
)

// NewConfig returns a Config with spec-default tunables and the given name.
func NewConfig(name string) Config {
	return Config{
		Name:                    name,
		FailureRateThreshold:    DefaultFailureRateThreshold,
		MinimumRequestThreshold: DefaultMinimumRequestThreshold,
		CircuitOpenWindow:       DefaultCircuitOpenWindow,
		TrialRequestInterval:    DefaultTrialRequestInterval,
		CounterSlidingWindow:    DefaultCounterSlidingWindow,
		CounterUpdateInterval:   DefaultCounterUpdateInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = DefaultFailureRateThreshold
	}
	if c.CircuitOpenWindow <= 0 {
		c.CircuitOpenWindow = DefaultCircuitOpenWindow
	}
	if c.TrialRequestInterval <= 0 {
		c.TrialRequestInterval = DefaultTrialRequestInterval
	}
	if c.CounterSlidingWindow <= 0 {
		c.CounterSlidingWindow = DefaultCounterSlidingWindow
	}
	if c.CounterUpdateInterval <= 0 {
		c.CounterUpdateInterval = DefaultCounterUpdateInterval
	}
	if c.Now == nil {
		c.Now = func() int64 { return time.Now().UnixNano() }
	}
	return c
}
