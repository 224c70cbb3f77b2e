package balancer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSelector_PicksFromSnapshot(t *testing.T) {
	g := staticGroup(ep("a", 1), ep("b", 2), ep("c", 3))
	defer g.Close()

	s := NewRandomSelector(g)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		e, ok := s.SelectNow(context.Background())
		require.True(t, ok)
		seen[e.Host] = true
	}
	assert.True(t, len(seen) > 1, "expected randomness to spread across endpoints over 100 draws")
}

func TestRandomSelector_SelectNowEmptyGroup(t *testing.T) {
	g := staticGroup()
	defer g.Close()

	s := NewRandomSelector(g)
	e, ok := s.SelectNow(context.Background())
	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestRandomSelector_SelectTimesOutEmpty(t *testing.T) {
	g := staticGroup()
	defer g.Close()

	s := NewRandomSelector(g)
	e, err := s.Select(context.Background(), time.Now().Add(20*time.Millisecond))
	assert.NoError(t, err)
	assert.Nil(t, e)
}
