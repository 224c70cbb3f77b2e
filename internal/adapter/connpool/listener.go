// Package connpool provides a narrow connection-pool listener hook
// (spec.md §4.K) and a small broadcaster so more than one external
// collector can be wired to the same pool events.
package connpool

import "github.com/latticerpc/core/internal/core/ports"

// Broadcaster fans out connection-pool events to every attached
// ports.ConnectionPoolListener, the same narrow-hook shape as
// ports.StatsCollector.RecordConnection in the teacher's stats package,
// generalized from a single stats sink to any number of external
// collaborators.
type Broadcaster struct {
	listeners []ports.ConnectionPoolListener
}

// NewBroadcaster builds a Broadcaster over the given listeners. Any of
// them may be nil-safe collaborators; Broadcaster does not check for nil
// itself, since ports.ConnectionPoolListener has no meaningful zero value.
func NewBroadcaster(listeners ...ports.ConnectionPoolListener) *Broadcaster {
	return &Broadcaster{listeners: listeners}
}

// Attach registers an additional listener after construction.
func (b *Broadcaster) Attach(l ports.ConnectionPoolListener) {
	b.listeners = append(b.listeners, l)
}

func (b *Broadcaster) ConnectionOpen(protocol, remote, local string, attrs map[string]string) {
	for _, l := range b.listeners {
		l.ConnectionOpen(protocol, remote, local, attrs)
	}
}

func (b *Broadcaster) ConnectionClosed(protocol, remote, local string, attrs map[string]string) {
	for _, l := range b.listeners {
		l.ConnectionClosed(protocol, remote, local, attrs)
	}
}

var _ ports.ConnectionPoolListener = (*Broadcaster)(nil)
