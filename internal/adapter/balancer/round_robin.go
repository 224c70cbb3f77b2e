package balancer

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
	"github.com/latticerpc/core/internal/core/ports"
)

// RoundRobinSelector cycles through a group's current snapshot in order.
type RoundRobinSelector struct {
	group   group.Group
	counter atomic.Uint64
}

func NewRoundRobinSelector(g group.Group) *RoundRobinSelector {
	return &RoundRobinSelector{group: g}
}

func (r *RoundRobinSelector) pick(snapshot []*domain.Endpoint) *domain.Endpoint {
	idx := r.counter.Add(1) - 1
	return snapshot[idx%uint64(len(snapshot))]
}

func (r *RoundRobinSelector) SelectNow(ctx context.Context) (*domain.Endpoint, bool) {
	snap := r.group.Snapshot()
	if len(snap) == 0 {
		return nil, false
	}
	return r.pick(snap), true
}

func (r *RoundRobinSelector) Select(ctx context.Context, deadline time.Time) (*domain.Endpoint, error) {
	return awaitSelection(ctx, deadline, r.group, r.pick)
}

var _ ports.EndpointSelector = (*RoundRobinSelector)(nil)
