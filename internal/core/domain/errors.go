package domain

import (
	"fmt"
	"time"
)

// FailFastError is returned when a circuit breaker was OPEN (or FORCED_OPEN)
// at decision time and the call was rejected without attempting the network.
type FailFastError struct {
	BreakerName string
	State       string
}

func (e *FailFastError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s: failing fast", e.BreakerName, e.State)
}

func NewFailFastError(breakerName, state string) *FailFastError {
	return &FailFastError{BreakerName: breakerName, State: state}
}

// UnprocessedError wraps a transport-layer failure that never reached the
// point of a classifiable success/failure outcome - e.g. the call was
// cancelled before a response arrived. Unprocessed outcomes must not move a
// circuit breaker's bucket ring.
type UnprocessedError struct {
	Err    error
	Reason string
}

func (e *UnprocessedError) Error() string {
	return fmt.Sprintf("unprocessed: %s: %v", e.Reason, e.Err)
}

func (e *UnprocessedError) Unwrap() error {
	return e.Err
}

func NewUnprocessedError(reason string, err error) *UnprocessedError {
	return &UnprocessedError{Reason: reason, Err: err}
}

// EndpointSelectionTimeoutError is returned when no endpoint became ready
// before the caller's deadline.
type EndpointSelectionTimeoutError struct {
	GroupName string
	Waited    time.Duration
}

func (e *EndpointSelectionTimeoutError) Error() string {
	return fmt.Sprintf("endpoint selection for group %q timed out after %v", e.GroupName, e.Waited)
}

func NewEndpointSelectionTimeoutError(groupName string, waited time.Duration) *EndpointSelectionTimeoutError {
	return &EndpointSelectionTimeoutError{GroupName: groupName, Waited: waited}
}

// ResolutionFailureError wraps a DNS-backed group's failure to resolve an
// authority.
type ResolutionFailureError struct {
	Err        error
	Authority  string
	RecordType string
}

func (e *ResolutionFailureError) Error() string {
	return fmt.Sprintf("resolution of %s record %q failed: %v", e.RecordType, e.Authority, e.Err)
}

func (e *ResolutionFailureError) Unwrap() error {
	return e.Err
}

func NewResolutionFailureError(authority, recordType string, err error) *ResolutionFailureError {
	return &ResolutionFailureError{Authority: authority, RecordType: recordType, Err: err}
}

// ProbeFailureError wraps a health-check probe's failure against a specific
// endpoint, preserving enough context for log-noise-suppressed reporting.
type ProbeFailureError struct {
	Err                 error
	EndpointAuthority   string
	CheckType           string
	StatusCode          int
	Latency             time.Duration
	ConsecutiveFailures int
}

func (e *ProbeFailureError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("probe %s failed for %s: HTTP %d after %v (failures: %d): %v",
			e.CheckType, e.EndpointAuthority, e.StatusCode, e.Latency, e.ConsecutiveFailures, e.Err)
	}
	return fmt.Sprintf("probe %s failed for %s: %v after %v (failures: %d)",
		e.CheckType, e.EndpointAuthority, e.Err, e.Latency, e.ConsecutiveFailures)
}

func (e *ProbeFailureError) Unwrap() error {
	return e.Err
}

func NewProbeFailureError(endpoint *Endpoint, checkType string, statusCode int, latency time.Duration, consecutiveFailures int, err error) *ProbeFailureError {
	return &ProbeFailureError{
		EndpointAuthority:   endpoint.String(),
		CheckType:           checkType,
		StatusCode:          statusCode,
		Latency:             latency,
		ConsecutiveFailures: consecutiveFailures,
		Err:                 err,
	}
}

// ConfigError reports an invalid configuration value discovered at load or
// hot-reload time.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s=%v: %s", e.Field, e.Value, e.Reason)
}

func NewConfigError(field string, value interface{}, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}
