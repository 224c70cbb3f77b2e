package balancer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerpc/core/internal/core/domain"
)

func TestWeightedRoundRobinSelector_ProportionalToWeight(t *testing.T) {
	heavy := ep("heavy", 1).WithWeight(3)
	light := ep("light", 2).WithWeight(1)
	g := staticGroup(heavy, light)
	defer g.Close()

	s := NewWeightedRoundRobinSelector(g)

	counts := map[string]int{}
	for i := 0; i < 8; i++ {
		e, ok := s.SelectNow(context.Background())
		require.True(t, ok)
		counts[e.Host]++
	}
	assert.Equal(t, 6, counts["heavy"])
	assert.Equal(t, 2, counts["light"])
}

func TestWeightedRoundRobinSelector_NeverBurstsTheHeaviestEndpoint(t *testing.T) {
	heavy := ep("heavy", 1).WithWeight(5)
	light := ep("light", 2).WithWeight(1)
	g := staticGroup(heavy, light)
	defer g.Close()

	s := NewWeightedRoundRobinSelector(g)

	run := 0
	prev := ""
	for i := 0; i < 12; i++ {
		e, _ := s.SelectNow(context.Background())
		if e.Host == prev {
			run++
			assert.LessOrEqual(t, run, 2, "smooth weighted round robin should not produce long unbroken runs")
		} else {
			run = 0
		}
		prev = e.Host
	}
}

func TestWeightedRoundRobinSelector_DropsStaleState(t *testing.T) {
	g := staticGroup(ep("a", 1))
	defer g.Close()

	s := NewWeightedRoundRobinSelector(g)
	_, _ = s.SelectNow(context.Background())
	assert.Len(t, s.state, 1)

	g.SetEndpoints([]*domain.Endpoint{ep("b", 2)})
	_, _ = s.SelectNow(context.Background())
	assert.Len(t, s.state, 1, "state for the endpoint no longer in the snapshot should be garbage collected")
}
