package balancer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrioritySelector_PrefersLowestTier(t *testing.T) {
	primary := ep("primary", 1).WithAttribute(PriorityAttribute, "0")
	secondary := ep("secondary", 2).WithAttribute(PriorityAttribute, "1")
	g := staticGroup(secondary, primary)
	defer g.Close()

	s := NewPrioritySelector(g)
	for i := 0; i < 4; i++ {
		e, ok := s.SelectNow(context.Background())
		require.True(t, ok)
		assert.Equal(t, "primary", e.Host)
	}
}

func TestPrioritySelector_RoundRobinsWithinTier(t *testing.T) {
	a := ep("a", 1).WithAttribute(PriorityAttribute, "0")
	b := ep("b", 2).WithAttribute(PriorityAttribute, "0")
	g := staticGroup(a, b)
	defer g.Close()

	s := NewPrioritySelector(g)
	var hosts []string
	for i := 0; i < 4; i++ {
		e, _ := s.SelectNow(context.Background())
		hosts = append(hosts, e.Host)
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, hosts)
}

func TestPrioritySelector_FallsThroughWhenTierEmpty(t *testing.T) {
	fallback := ep("fallback", 1).WithAttribute(PriorityAttribute, "1")
	g := staticGroup(fallback)
	defer g.Close()

	s := NewPrioritySelector(g)
	e, ok := s.SelectNow(context.Background())
	require.True(t, ok)
	assert.Equal(t, "fallback", e.Host)
}

func TestPrioritySelector_MissingAttributeDefaultsToZero(t *testing.T) {
	noAttr := ep("default", 1)
	lower := ep("lower", 2).WithAttribute(PriorityAttribute, "5")
	g := staticGroup(noAttr, lower)
	defer g.Close()

	s := NewPrioritySelector(g)
	e, ok := s.SelectNow(context.Background())
	require.True(t, ok)
	assert.Equal(t, "default", e.Host)
}
