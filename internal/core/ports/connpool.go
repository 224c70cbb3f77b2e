package ports

// ConnectionPoolListener reports connection-pool lifecycle events to an
// external metrics collector, keyed by {remote, local, protocol} (spec.md
// §4.K, §6). The core's only implementation is connpool.Broadcaster, which
// forwards each event to the listeners attached to it.
type ConnectionPoolListener interface {
	ConnectionOpen(protocol, remote, local string, attrs map[string]string)
	ConnectionClosed(protocol, remote, local string, attrs map[string]string)
}
