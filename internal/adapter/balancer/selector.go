// Package balancer implements the Endpoint Selector component (spec.md
// §4.H): concrete selection strategies over an adapter/group.Group. Every
// strategy implements ports.EndpointSelector; ring-hash, sticky sessions,
// and slow-start ramp-up are documented extension points conforming to the
// same interface, not shipped here (spec.md's Non-goals carry only random
// and weighted-round-robin as reference strategies alongside the teacher's
// round-robin/priority/least-connections).
package balancer

import (
	"context"
	"time"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
)

// selectNowFunc picks an endpoint from a non-empty snapshot. It never sees
// an empty slice - callers guard that case before invoking it.
type selectNowFunc func(snapshot []*domain.Endpoint) *domain.Endpoint

// awaitSelection implements the common Select(ctx, deadline) shape shared
// by every strategy (spec.md §4.H): try selectNow against the current
// snapshot; if the group is empty, subscribe and wait for the next
// snapshot or the deadline, whichever comes first.
func awaitSelection(ctx context.Context, deadline time.Time, grp group.Group, pick selectNowFunc) (*domain.Endpoint, error) {
	if snap := grp.Snapshot(); len(snap) > 0 {
		return pick(snap), nil
	}

	resultCh := make(chan []*domain.Endpoint, 1)
	handle := grp.Subscribe(func(snap []*domain.Endpoint) {
		select {
		case resultCh <- snap:
		default:
		}
	})
	defer grp.Unsubscribe(handle)

	// A snapshot may have landed between the initial check and Subscribe;
	// check once more before waiting.
	if snap := grp.Snapshot(); len(snap) > 0 {
		return pick(snap), nil
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case snap := <-resultCh:
		if len(snap) == 0 {
			return nil, nil
		}
		return pick(snap), nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
