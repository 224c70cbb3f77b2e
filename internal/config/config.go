package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/latticerpc/core/internal/adapter/balancer"
	"github.com/latticerpc/core/internal/adapter/breaker"
	"github.com/latticerpc/core/internal/adapter/health"
)

const (
	DefaultFileWriteDelay = 150 * time.Millisecond // Small delay to ensure file write is complete

	envPrefix = "LATTICE"
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			PrettyLogs: true,
		},
		Breaker: BreakerConfig{
			FailureRateThreshold:    breaker.DefaultFailureRateThreshold,
			MinimumRequestThreshold: breaker.DefaultMinimumRequestThreshold,
			CircuitOpenWindow:       breaker.DefaultCircuitOpenWindow,
			TrialRequestInterval:    breaker.DefaultTrialRequestInterval,
			CounterSlidingWindow:    breaker.DefaultCounterSlidingWindow,
			CounterUpdateInterval:   breaker.DefaultCounterUpdateInterval,
		},
		Discovery: DiscoveryConfig{
			Static: StaticDiscoveryConfig{
				Endpoints: []EndpointConfig{
					{
						Name:   "local",
						Scheme: "http",
						Host:   "localhost",
						Port:   8080,
					},
				},
			},
			Dns: DnsDiscoveryConfig{
				Ndots:          1,
				QueryTimeout:   2 * time.Second,
				ResolveTimeout: 5 * time.Second,
				MinTTL:         5 * time.Second,
				NegativeTTL:    10 * time.Second,
			},
		},
		HealthCheck: HealthCheckConfig{
			Method:      "GET",
			Path:        "/health",
			Timeout:     health.DefaultProbeTimeout,
			Interval:    health.DefaultSteadyInterval,
			BackoffBase: time.Second,
			BackoffMax:  30 * time.Second,
		},
		Selector: SelectorConfig{
			Strategy: "round_robin",
		},
	}
}

// Load loads configuration from file and environment variables, following
// the teacher's name/path/prefix conventions. onConfigChange, if non-nil, is
// invoked (debounced) whenever the config file changes on disk.
func Load(onConfigChange func()) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv(envPrefix + "_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	viper.WatchConfig()

	if onConfigChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return // ignore multiple rapid-fire changes
			}
			lastReload = now

			// looks like on windows this event is triggered before the
			// file is fully written
			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}
	return cfg, nil
}

// Validate checks that cfg's values are internally consistent.
func (c *Config) Validate() error {
	if c.Breaker.FailureRateThreshold <= 0 || c.Breaker.FailureRateThreshold > 1 {
		return fmt.Errorf("breaker.failure_rate_threshold must be in (0,1], got %v", c.Breaker.FailureRateThreshold)
	}
	switch c.Selector.Strategy {
	case "", balancer.StrategyRoundRobin, balancer.StrategyRandom, balancer.StrategyWeightedRoundRobin,
		balancer.StrategyPriority, balancer.StrategyLeastConnections:
	default:
		return fmt.Errorf("selector.strategy %q is not a recognised strategy", c.Selector.Strategy)
	}
	for _, ep := range c.Discovery.Static.Endpoints {
		if ep.Host == "" {
			return fmt.Errorf("discovery.static.endpoints: endpoint %q has an empty host", ep.Name)
		}
	}
	return nil
}
