package balancer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
)

func ep(host string, port int) *domain.Endpoint {
	return domain.NewEndpoint(domain.HostTypeHostname, host, port)
}

func staticGroup(endpoints ...*domain.Endpoint) *group.DynamicEndpointGroup {
	g := group.NewDynamicEndpointGroup(time.Second)
	g.SetEndpoints(endpoints)
	return g
}

func TestRoundRobinSelector_CyclesInOrder(t *testing.T) {
	g := staticGroup(ep("a", 1), ep("b", 2), ep("c", 3))
	defer g.Close()

	s := NewRoundRobinSelector(g)

	var hosts []string
	for i := 0; i < 6; i++ {
		e, ok := s.SelectNow(context.Background())
		require.True(t, ok)
		hosts = append(hosts, e.Host)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, hosts)
}

func TestRoundRobinSelector_SelectNowEmptyGroup(t *testing.T) {
	g := group.NewDynamicEndpointGroup(time.Second)
	defer g.Close()

	s := NewRoundRobinSelector(g)
	e, ok := s.SelectNow(context.Background())
	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestRoundRobinSelector_SelectWaitsForSnapshot(t *testing.T) {
	g := group.NewDynamicEndpointGroup(time.Second)
	defer g.Close()

	s := NewRoundRobinSelector(g)

	resultCh := make(chan *domain.Endpoint, 1)
	go func() {
		e, err := s.Select(context.Background(), time.Now().Add(time.Second))
		assert.NoError(t, err)
		resultCh <- e
	}()

	time.Sleep(10 * time.Millisecond)
	g.SetEndpoints([]*domain.Endpoint{ep("late", 1)})

	select {
	case e := <-resultCh:
		require.NotNil(t, e)
		assert.Equal(t, "late", e.Host)
	case <-time.After(time.Second):
		t.Fatal("Select did not resolve after an endpoint arrived")
	}
}

func TestRoundRobinSelector_SelectTimesOutEmpty(t *testing.T) {
	g := group.NewDynamicEndpointGroup(time.Second)
	defer g.Close()

	s := NewRoundRobinSelector(g)
	e, err := s.Select(context.Background(), time.Now().Add(20*time.Millisecond))
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestRoundRobinSelector_SelectRespectsContextCancellation(t *testing.T) {
	g := group.NewDynamicEndpointGroup(time.Second)
	defer g.Close()

	s := NewRoundRobinSelector(g)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := s.Select(ctx, time.Now().Add(time.Second))
	assert.Error(t, err)
	assert.Nil(t, e)
}
