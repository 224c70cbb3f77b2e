package balancer

import (
	"context"
	"math/rand"
	"time"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
	"github.com/latticerpc/core/internal/core/ports"
)

// RandomSelector picks a uniformly random endpoint from the current
// snapshot on every call - the simplest of the reference strategies named
// in spec.md §4.H.
type RandomSelector struct {
	group group.Group
}

func NewRandomSelector(g group.Group) *RandomSelector {
	return &RandomSelector{group: g}
}

func (r *RandomSelector) pick(snapshot []*domain.Endpoint) *domain.Endpoint {
	return snapshot[rand.Intn(len(snapshot))]
}

func (r *RandomSelector) SelectNow(ctx context.Context) (*domain.Endpoint, bool) {
	snap := r.group.Snapshot()
	if len(snap) == 0 {
		return nil, false
	}
	return r.pick(snap), true
}

func (r *RandomSelector) Select(ctx context.Context, deadline time.Time) (*domain.Endpoint, error) {
	return awaitSelection(ctx, deadline, r.group, r.pick)
}

var _ ports.EndpointSelector = (*RandomSelector)(nil)
