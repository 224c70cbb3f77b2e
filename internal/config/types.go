package config

import "time"

// Config holds all configuration for the resilience/discovery subsystem.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	HealthCheck HealthCheckConfig `yaml:"health_check"`
	Selector    SelectorConfig    `yaml:"selector"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogDir     string `yaml:"log_dir"`
	PrettyLogs bool   `yaml:"pretty_logs"`
	FileOutput bool   `yaml:"file_output"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// BreakerConfig mirrors breaker.Config (spec.md §4.A-B) for YAML/env loading.
type BreakerConfig struct {
	FailureRateThreshold    float64       `yaml:"failure_rate_threshold"`
	MinimumRequestThreshold int64         `yaml:"minimum_request_threshold"`
	CircuitOpenWindow       time.Duration `yaml:"circuit_open_window"`
	TrialRequestInterval    time.Duration `yaml:"trial_request_interval"`
	CounterSlidingWindow    time.Duration `yaml:"counter_sliding_window"`
	CounterUpdateInterval   time.Duration `yaml:"counter_update_interval"`
}

// DiscoveryConfig holds endpoint discovery configuration: a static list plus
// DNS-backed groups (spec.md §4.E-G).
type DiscoveryConfig struct {
	Static StaticDiscoveryConfig `yaml:"static"`
	Dns    DnsDiscoveryConfig    `yaml:"dns"`
}

// StaticDiscoveryConfig holds a fixed endpoint list, the simplest EndpointGroup
// source (spec.md §4.E).
type StaticDiscoveryConfig struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig describes one statically configured endpoint.
type EndpointConfig struct {
	Name     string         `yaml:"name"`
	Scheme   string         `yaml:"scheme"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	Priority int            `yaml:"priority"`
	Weight   int            `yaml:"weight"`
	Attrs    map[string]any `yaml:"attrs"`
}

// DnsDiscoveryConfig configures the DNS-backed resolver (spec.md §4.G).
type DnsDiscoveryConfig struct {
	Nameservers    []string      `yaml:"nameservers"`
	SearchDomains  []string      `yaml:"search_domains"`
	Ndots          int           `yaml:"ndots"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`
	MinTTL         time.Duration `yaml:"min_ttl"`
	NegativeTTL    time.Duration `yaml:"negative_ttl"`
	RefreshJitter  float64       `yaml:"refresh_jitter"`
}

// HealthCheckConfig configures the HealthCheckContext probe loop (spec.md
// §4.I) for endpoints that opt into active probing.
type HealthCheckConfig struct {
	Method         string        `yaml:"method"`
	Path           string        `yaml:"path"`
	AltPort        int           `yaml:"alt_port"`
	Timeout        time.Duration `yaml:"timeout"`
	Interval       time.Duration `yaml:"interval"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	MaxUnhealthy   int           `yaml:"max_unhealthy"`
	MaxUnhealthyPc float64       `yaml:"max_unhealthy_ratio"`
}

// SelectorConfig picks the default EndpointSelector strategy (spec.md §4.H).
type SelectorConfig struct {
	Strategy string `yaml:"strategy"`
}
