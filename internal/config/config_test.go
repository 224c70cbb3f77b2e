package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/latticerpc/core/internal/adapter/breaker"
	"github.com/latticerpc/core/internal/adapter/health"
)

func TestDefaultConfig_Breaker(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, breaker.DefaultFailureRateThreshold, cfg.Breaker.FailureRateThreshold)
	assert.Equal(t, int64(breaker.DefaultMinimumRequestThreshold), cfg.Breaker.MinimumRequestThreshold)
	assert.Equal(t, breaker.DefaultCircuitOpenWindow, cfg.Breaker.CircuitOpenWindow)
	assert.Equal(t, breaker.DefaultTrialRequestInterval, cfg.Breaker.TrialRequestInterval)
}

func TestDefaultConfig_HealthCheck(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "GET", cfg.HealthCheck.Method)
	assert.Equal(t, health.DefaultProbeTimeout, cfg.HealthCheck.Timeout)
	assert.Equal(t, health.DefaultSteadyInterval, cfg.HealthCheck.Interval)
}

func TestDefaultConfig_Discovery(t *testing.T) {
	cfg := DefaultConfig()

	if assert.Len(t, cfg.Discovery.Static.Endpoints, 1) {
		assert.Equal(t, "local", cfg.Discovery.Static.Endpoints[0].Name)
		assert.NotEmpty(t, cfg.Discovery.Static.Endpoints[0].Host)
	}
	assert.Greater(t, cfg.Discovery.Dns.QueryTimeout.Seconds(), 0.0)
}

func TestDefaultConfig_Selector(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "round_robin", cfg.Selector.Strategy)
}

func TestConfig_Validate_DefaultIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate_RejectsBadFailureRateThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Breaker.FailureRateThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg.Breaker.FailureRateThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsUnknownSelectorStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Selector.Strategy = "not-a-real-strategy"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsEndpointWithoutHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Discovery.Static.Endpoints = []EndpointConfig{{Name: "broken"}}
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_WithoutFile(t *testing.T) {
	cfg, err := Load(nil)
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
