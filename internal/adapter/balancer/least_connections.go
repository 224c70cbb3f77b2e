package balancer

import (
	"context"
	"sync"
	"time"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
	"github.com/latticerpc/core/internal/core/ports"
)

// LeastConnectionsSelector prefers whichever endpoint currently has the
// fewest open connections, as reported through IncrementConnections/
// DecrementConnections, which the caller invokes as connections open and
// close. The counts are kept in the selector's own bookkeeping instead of
// an external stats collector.
type LeastConnectionsSelector struct {
	group group.Group

	mu    sync.Mutex
	conns map[string]int64
}

func NewLeastConnectionsSelector(g group.Group) *LeastConnectionsSelector {
	return &LeastConnectionsSelector{group: g, conns: make(map[string]int64)}
}

func (l *LeastConnectionsSelector) IncrementConnections(ep *domain.Endpoint) {
	l.mu.Lock()
	l.conns[ep.Key()]++
	l.mu.Unlock()
}

func (l *LeastConnectionsSelector) DecrementConnections(ep *domain.Endpoint) {
	l.mu.Lock()
	if l.conns[ep.Key()] > 0 {
		l.conns[ep.Key()]--
	}
	l.mu.Unlock()
}

func (l *LeastConnectionsSelector) pick(snapshot []*domain.Endpoint) *domain.Endpoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	best := snapshot[0]
	bestCount := l.conns[best.Key()]
	for _, ep := range snapshot[1:] {
		if c := l.conns[ep.Key()]; c < bestCount {
			best = ep
			bestCount = c
		}
	}
	return best
}

func (l *LeastConnectionsSelector) SelectNow(ctx context.Context) (*domain.Endpoint, bool) {
	snap := l.group.Snapshot()
	if len(snap) == 0 {
		return nil, false
	}
	return l.pick(snap), true
}

func (l *LeastConnectionsSelector) Select(ctx context.Context, deadline time.Time) (*domain.Endpoint, error) {
	return awaitSelection(ctx, deadline, l.group, l.pick)
}

var _ ports.EndpointSelector = (*LeastConnectionsSelector)(nil)
