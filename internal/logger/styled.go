// internal/logger/styled.go
package logger

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/latticerpc/core/internal/core/domain"
)

// StyledLogger wraps slog.Logger with colour-aware formatting methods for the
// endpoint and health vocabulary used across the adapters.
type StyledLogger struct {
	logger *slog.Logger
}

// NewStyledLogger creates a new styled logger over an existing slog.Logger.
func NewStyledLogger(logger *slog.Logger) *StyledLogger {
	return &StyledLogger{logger: logger}
}

// NewWithTheme creates both a regular logger and a styled logger from cfg.
func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	base, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return base, NewStyledLogger(base), cleanup, nil
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.FgGray.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithEndpoint(msg string, endpoint string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.FgCyan.Sprint(endpoint))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) WarnWithEndpoint(msg string, endpoint string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.FgCyan.Sprint(endpoint))
	sl.logger.Warn(styledMsg, args...)
}

func (sl *StyledLogger) ErrorWithEndpoint(msg string, endpoint string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.FgCyan.Sprint(endpoint))
	sl.logger.Error(styledMsg, args...)
}

// InfoHealthStatus logs an endpoint's current status, coloured by its
// domain.EndpointStatus value: the three values domain.StatusForHealth can
// produce, and StatusUnknown.
func (sl *StyledLogger) InfoHealthStatus(msg string, name string, status domain.EndpointStatus, args ...any) {
	var color pterm.Color
	var statusText string

	switch status {
	case domain.StatusHealthy:
		color = pterm.FgGreen
		statusText = "healthy"
	case domain.StatusDegraded:
		color = pterm.FgYellow
		statusText = "degraded"
	case domain.StatusUnhealthy:
		color = pterm.FgRed
		statusText = "unhealthy"
	default:
		color = pterm.FgGray
		statusText = "unknown"
	}

	styledMsg := fmt.Sprintf("%s %s is %s", msg, pterm.FgCyan.Sprint(name), color.Sprint(statusText))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithHealthStats(msg string, healthy, degraded, unhealthy int, args ...any) {
	allArgs := make([]any, 0, len(args)+6)
	allArgs = append(allArgs, args...)
	allArgs = append(allArgs,
		"healthy", pterm.FgGreen.Sprint(healthy),
		"degraded", pterm.FgYellow.Sprint(degraded),
		"unhealthy", pterm.FgRed.Sprint(unhealthy),
	)
	sl.logger.Info(msg, allArgs...)
}

// GetUnderlying returns the underlying slog.Logger for cases where direct access is needed.
func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

// WithAttrs creates a new StyledLogger with additional structured attributes.
func (sl *StyledLogger) WithAttrs(attrs ...slog.Attr) *StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	return &StyledLogger{logger: sl.logger.With(args...)}
}

// With creates a new StyledLogger with additional key-value pairs.
func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{logger: sl.logger.With(args...)}
}
