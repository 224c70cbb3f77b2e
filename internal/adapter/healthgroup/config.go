// Package healthgroup implements the Health-Checked Endpoint Group
// (spec.md §4.J): a composition over an inner Group that probes a
// candidate subset of its endpoints and republishes only the healthy
// ones.
package healthgroup

import (
	"net/http"
	"time"

	"github.com/latticerpc/core/internal/adapter/health"
	"github.com/latticerpc/core/internal/core/domain"
)

// Strategy selects which endpoints of an inner snapshot are probed.
type Strategy int

const (
	// StrategyAll probes every endpoint in the snapshot.
	StrategyAll Strategy = iota
	// StrategyPartialCount probes a stable subset bounded by MaxCount. The
	// subset is recomputed only when the inner group publishes a new
	// snapshot; a probed endpoint turning unhealthy does not by itself add
	// another endpoint to it.
	StrategyPartialCount
	// StrategyPartialRatio is StrategyPartialCount with the bound
	// expressed as a fraction of the snapshot's size.
	StrategyPartialRatio
)

// DefaultHealthyThreshold is the minimum health value (§4.J) for an
// endpoint to appear in the published healthy set.
const DefaultHealthyThreshold = 0.5

// Config configures a Group (spec.md §4.J).
type Config struct {
	Strategy Strategy

	// MaxCount bounds the candidate set's size under StrategyPartialCount.
	MaxCount int
	// MaxRatio bounds the candidate set's size under StrategyPartialRatio,
	// in (0,1].
	MaxRatio float64

	// HealthyThreshold is the minimum health value required for an
	// endpoint to appear in the published healthy set. Zero uses
	// DefaultHealthyThreshold.
	HealthyThreshold float64

	// SelectionTimeout bounds WhenReady (spec.md §4.F/§4.J item 5).
	SelectionTimeout time.Duration

	// Probe is the per-endpoint probe configuration (spec.md §4.I).
	Probe health.ProbeConfig

	// Client issues the probe requests; NewClientFactory().Client() if nil.
	Client *http.Client

	// Logger receives probe lifecycle diagnostics; health.Logger is
	// satisfied by *logger.StyledLogger.
	Logger health.Logger
}

func (c Config) withDefaults() Config {
	if c.HealthyThreshold <= 0 {
		c.HealthyThreshold = DefaultHealthyThreshold
	}
	if c.SelectionTimeout <= 0 {
		c.SelectionTimeout = 3 * time.Second
	}
	if c.Client == nil {
		c.Client = health.NewClientFactory().Client()
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	return c
}

// Validate reports a ConfigError for mutually-exclusive or out-of-range
// settings (spec.md §7 ConfigError, §4.J item 2's mutual-exclusion rule).
func (c Config) Validate() error {
	if c.Strategy == StrategyPartialCount && c.MaxCount <= 0 {
		return domain.NewConfigError("MaxCount", c.MaxCount, "must be > 0 for StrategyPartialCount")
	}
	if c.Strategy == StrategyPartialRatio && (c.MaxRatio <= 0 || c.MaxRatio > 1) {
		return domain.NewConfigError("MaxRatio", c.MaxRatio, "must be in (0,1] for StrategyPartialRatio")
	}
	if c.MaxCount > 0 && c.MaxRatio > 0 {
		return domain.NewConfigError("MaxCount/MaxRatio", nil, "setting both MaxCount and MaxRatio is not allowed")
	}
	if c.HealthyThreshold < 0 || c.HealthyThreshold > 1 {
		return domain.NewConfigError("HealthyThreshold", c.HealthyThreshold, "must be in [0,1]")
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

var _ health.Logger = noopLogger{}
