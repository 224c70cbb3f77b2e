package balancer

import (
	"context"
	"sync"
	"time"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
	"github.com/latticerpc/core/internal/core/ports"
)

// wrrState tracks one endpoint's running weight across calls, keyed by
// domain.Endpoint.Key() so it survives snapshot churn as long as the
// endpoint itself persists.
type wrrState struct {
	effective int
	current   int
}

// WeightedRoundRobinSelector implements the smooth weighted round-robin
// algorithm (each call picks the endpoint with the highest current weight,
// then reduces it by the total weight; every endpoint's current weight is
// incremented by its effective weight first), giving higher-weight
// endpoints proportionally more selections without bursty runs.
type WeightedRoundRobinSelector struct {
	group group.Group

	mu    sync.Mutex
	state map[string]*wrrState
}

func NewWeightedRoundRobinSelector(g group.Group) *WeightedRoundRobinSelector {
	return &WeightedRoundRobinSelector{group: g, state: make(map[string]*wrrState)}
}

func (w *WeightedRoundRobinSelector) pick(snapshot []*domain.Endpoint) *domain.Endpoint {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(snapshot))
	total := 0
	var best *domain.Endpoint
	var bestState *wrrState

	for _, ep := range snapshot {
		key := ep.Key()
		seen[key] = true
		st, ok := w.state[key]
		if !ok {
			st = &wrrState{effective: ep.Weight}
			w.state[key] = st
		}
		st.current += st.effective
		total += st.effective
		if best == nil || st.current > bestState.current {
			best = ep
			bestState = st
		}
	}

	// Drop state for endpoints no longer present so the map doesn't grow
	// unbounded across a long-lived selector's lifetime.
	for key := range w.state {
		if !seen[key] {
			delete(w.state, key)
		}
	}

	if bestState != nil {
		bestState.current -= total
	}
	return best
}

func (w *WeightedRoundRobinSelector) SelectNow(ctx context.Context) (*domain.Endpoint, bool) {
	snap := w.group.Snapshot()
	if len(snap) == 0 {
		return nil, false
	}
	return w.pick(snap), true
}

func (w *WeightedRoundRobinSelector) Select(ctx context.Context, deadline time.Time) (*domain.Endpoint, error) {
	return awaitSelection(ctx, deadline, w.group, w.pick)
}

var _ ports.EndpointSelector = (*WeightedRoundRobinSelector)(nil)
