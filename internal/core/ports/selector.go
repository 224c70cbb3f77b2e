// Package ports declares the external interfaces this subsystem exposes to
// and consumes from its surrounding framework (spec.md §6): the endpoint
// selector contract, the circuit breaker API, and the connection-pool
// listener hook. None of these are implemented here - they are the seams
// the adapter packages satisfy or call through.
package ports

import (
	"context"
	"time"

	"github.com/latticerpc/core/internal/core/domain"
)

// EndpointSelector is a pluggable selection strategy over an endpoint
// group (spec.md §4.H). SelectNow never blocks; Select honors the
// underlying group's WhenReady and the caller's deadline.
type EndpointSelector interface {
	// SelectNow returns an endpoint immediately if one is available, or
	// (nil, false) if the group currently has nothing to offer.
	SelectNow(ctx context.Context) (*domain.Endpoint, bool)

	// Select returns immediately if SelectNow succeeds; otherwise it
	// waits for the next group snapshot update or deadline, whichever
	// comes first. A nil result past the deadline is not an error - the
	// caller translates it into a EndpointSelectionTimeoutError.
	Select(ctx context.Context, deadline time.Time) (*domain.Endpoint, error)
}
