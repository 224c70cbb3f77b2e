package balancer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerpc/core/internal/core/domain"
)

func TestLeastConnectionsSelector_PrefersFewestConnections(t *testing.T) {
	a := ep("a", 1)
	b := ep("b", 2)
	g := staticGroup(a, b)
	defer g.Close()

	s := NewLeastConnectionsSelector(g)
	s.IncrementConnections(a)
	s.IncrementConnections(a)
	s.IncrementConnections(b)

	e, ok := s.SelectNow(context.Background())
	require.True(t, ok)
	assert.Equal(t, "b", e.Host)
}

func TestLeastConnectionsSelector_DecrementRebalances(t *testing.T) {
	a := ep("a", 1)
	b := ep("b", 2)
	g := staticGroup(a, b)
	defer g.Close()

	s := NewLeastConnectionsSelector(g)
	s.IncrementConnections(a)
	s.IncrementConnections(b)
	s.IncrementConnections(b)
	s.DecrementConnections(b)
	s.DecrementConnections(b)

	e, ok := s.SelectNow(context.Background())
	require.True(t, ok)
	assert.Equal(t, "b", e.Host)
}

func TestLeastConnectionsSelector_DecrementNeverGoesNegative(t *testing.T) {
	a := ep("a", 1)
	g := staticGroup(a)
	defer g.Close()

	s := NewLeastConnectionsSelector(g)
	s.DecrementConnections(a)
	s.DecrementConnections(a)

	s.mu.Lock()
	count := s.conns[a.Key()]
	s.mu.Unlock()
	assert.Zero(t, count)
}

func TestLeastConnectionsSelector_NewEndpointsStartAtZero(t *testing.T) {
	a := ep("a", 1)
	g := staticGroup(a)
	defer g.Close()

	s := NewLeastConnectionsSelector(g)
	s.IncrementConnections(a)
	s.IncrementConnections(a)

	b := ep("b", 2)
	g.SetEndpoints([]*domain.Endpoint{a, b})

	e, ok := s.SelectNow(context.Background())
	require.True(t, ok)
	assert.Equal(t, "b", e.Host, "an endpoint never incremented should be preferred over one with open connections")
}
