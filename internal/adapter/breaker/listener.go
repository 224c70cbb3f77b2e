package breaker

import "github.com/latticerpc/core/internal/core/domain"

// NoopListener discards every callback. Useful as a default when a caller
// does not want breaker lifecycle events.
type NoopListener struct{}

func (NoopListener) OnInitialized(string, State)                 {}
func (NoopListener) OnStateChanged(string, State)                 {}
func (NoopListener) OnEventCountUpdated(string, domain.EventCount) {}
func (NoopListener) OnRequestRejected(string)                      {}

// LoggingListener logs every callback through a Logger, for breakers built
// without a richer external metrics sink.
type LoggingListener struct {
	log Logger
}

func NewLoggingListener(log Logger) *LoggingListener {
	return &LoggingListener{log: log}
}

func (l *LoggingListener) OnInitialized(name string, state State) {
	l.log.Warn("breaker initialized", "breaker", name, "state", state.String())
}

func (l *LoggingListener) OnStateChanged(name string, newState State) {
	l.log.Warn("breaker state changed", "breaker", name, "state", newState.String())
}

func (l *LoggingListener) OnEventCountUpdated(name string, count domain.EventCount) {
	// Deliberately not logged at Warn level - this fires on every call and
	// would drown the log; callers that want counter telemetry should wire
	// a dedicated metrics Listener instead.
}

func (l *LoggingListener) OnRequestRejected(name string) {
	l.log.Warn("breaker rejected request", "breaker", name)
}
