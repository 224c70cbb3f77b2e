package balancer

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/atomic"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
	"github.com/latticerpc/core/internal/core/ports"
)

// PriorityAttribute is the Endpoint attribute key carrying an endpoint's
// priority tier. Lower values are preferred; an endpoint without the
// attribute is treated as priority 0 (highest).
const PriorityAttribute = "priority"

// PrioritySelector always prefers the lowest-priority tier present in the
// snapshot, round-robining within that tier, and only falling through to
// the next tier when the preferred one is empty.
type PrioritySelector struct {
	group   group.Group
	counter atomic.Uint64
}

func NewPrioritySelector(g group.Group) *PrioritySelector {
	return &PrioritySelector{group: g}
}

func endpointPriority(ep *domain.Endpoint) int {
	v, ok := ep.Attributes[PriorityAttribute]
	if !ok {
		return 0
	}
	p, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return p
}

func (p *PrioritySelector) pick(snapshot []*domain.Endpoint) *domain.Endpoint {
	best := snapshot[0]
	bestPriority := endpointPriority(best)
	tier := []*domain.Endpoint{best}

	for _, ep := range snapshot[1:] {
		pr := endpointPriority(ep)
		switch {
		case pr < bestPriority:
			bestPriority = pr
			tier = []*domain.Endpoint{ep}
		case pr == bestPriority:
			tier = append(tier, ep)
		}
	}

	idx := p.counter.Add(1) - 1
	return tier[idx%uint64(len(tier))]
}

func (p *PrioritySelector) SelectNow(ctx context.Context) (*domain.Endpoint, bool) {
	snap := p.group.Snapshot()
	if len(snap) == 0 {
		return nil, false
	}
	return p.pick(snap), true
}

func (p *PrioritySelector) Select(ctx context.Context, deadline time.Time) (*domain.Endpoint, error) {
	return awaitSelection(ctx, deadline, p.group, p.pick)
}

var _ ports.EndpointSelector = (*PrioritySelector)(nil)
