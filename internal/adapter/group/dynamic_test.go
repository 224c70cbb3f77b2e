package group

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticerpc/core/internal/core/domain"
)

func ep(host string, port int) *domain.Endpoint {
	return domain.NewEndpoint(domain.HostTypeHostname, host, port)
}

func TestDynamicEndpointGroup_SetEndpointsNotifiesOnChange(t *testing.T) {
	g := NewDynamicEndpointGroup(50 * time.Millisecond)
	defer g.Close()

	var mu sync.Mutex
	var seen [][]*domain.Endpoint
	g.Subscribe(func(snap []*domain.Endpoint) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	g.SetEndpoints([]*domain.Endpoint{ep("a", 1)})
	g.SetEndpoints([]*domain.Endpoint{ep("a", 1)}) // identical set, no notification
	g.SetEndpoints([]*domain.Endpoint{ep("a", 1), ep("b", 2)})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2, "unchanged snapshot must not trigger a second notification")
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 2)
}

func TestDynamicEndpointGroup_WhenReadyOnNonEmpty(t *testing.T) {
	g := NewDynamicEndpointGroup(time.Second)
	defer g.Close()

	done := make(chan struct{})
	go func() {
		<-g.WhenReady()
		close(done)
	}()

	g.SetEndpoints([]*domain.Endpoint{ep("a", 1)})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("whenReady did not fire promptly on first non-empty snapshot")
	}
}

func TestDynamicEndpointGroup_WhenReadyTimesOutEmpty(t *testing.T) {
	g := NewDynamicEndpointGroup(20 * time.Millisecond)
	defer g.Close()

	select {
	case <-g.WhenReady():
	case <-time.After(time.Second):
		t.Fatal("whenReady did not fire after the selection timeout elapsed")
	}
	assert.Empty(t, g.Snapshot())
}

func TestDynamicEndpointGroup_CloseIsIdempotent(t *testing.T) {
	g := NewDynamicEndpointGroup(time.Second)
	assert.NoError(t, g.Close())
	assert.NoError(t, g.Close())
}

func TestOrElse_FallsBackWhenPrimaryEmpty(t *testing.T) {
	primary := NewDynamicEndpointGroup(time.Second)
	fallback := NewDynamicEndpointGroup(time.Second)
	defer primary.Close()
	defer fallback.Close()

	fallback.SetEndpoints([]*domain.Endpoint{ep("fallback", 1)})

	composite := OrElse(primary, fallback)
	defer composite.Close()

	assert.Len(t, composite.Snapshot(), 1)

	primary.SetEndpoints([]*domain.Endpoint{ep("primary", 1)})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "primary", composite.Snapshot()[0].Host)
}
