package group

import (
	"sync"
	"time"

	"github.com/latticerpc/core/internal/core/domain"
)

// DynamicEndpointGroup holds a mutable endpoint list behind a mutex.
// SetEndpoints atomically replaces the contents and, if the snapshot
// actually changed, fires every subscriber with the new snapshot (spec.md
// §4.F). Grounded on StaticEndpointRepository's copy-on-read snapshot
// discipline, generalized from a config-file-backed repository into a
// general-purpose observable set.
type DynamicEndpointGroup struct {
	mu        sync.RWMutex
	endpoints []*domain.Endpoint
	listeners map[Handle]Listener
	nextID    Handle

	selectionTimeout time.Duration
	ready            chan struct{}
	readyOnce        sync.Once
	readyTimer       *time.Timer

	closeOnce sync.Once
	closed    bool
}

// NewDynamicEndpointGroup builds an empty group. selectionTimeout <= 0
// uses DefaultSelectionTimeout.
func NewDynamicEndpointGroup(selectionTimeout time.Duration) *DynamicEndpointGroup {
	if selectionTimeout <= 0 {
		selectionTimeout = DefaultSelectionTimeout
	}
	g := &DynamicEndpointGroup{
		listeners:        make(map[Handle]Listener),
		selectionTimeout: selectionTimeout,
		ready:            make(chan struct{}),
	}
	g.readyTimer = time.AfterFunc(selectionTimeout, func() {
		g.readyOnce.Do(func() { close(g.ready) })
	})
	return g
}

// SetEndpoints atomically replaces the group's contents. Listeners are
// notified only if the new list actually differs from the old one
// (order-independent comparison, spec.md §4.F). The first time the list
// becomes non-empty, WhenReady is completed immediately, ahead of the
// selection timeout.
func (g *DynamicEndpointGroup) SetEndpoints(endpoints []*domain.Endpoint) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	unchanged := domain.EndpointsEqual(g.endpoints, endpoints)
	if !unchanged {
		g.endpoints = endpoints
	}
	listeners := make([]Listener, 0, len(g.listeners))
	for _, l := range g.listeners {
		listeners = append(listeners, l)
	}
	g.mu.Unlock()

	if unchanged {
		return
	}

	if len(endpoints) > 0 {
		g.readyOnce.Do(func() {
			g.readyTimer.Stop()
			close(g.ready)
		})
	}

	for _, l := range listeners {
		l(endpoints)
	}
}

func (g *DynamicEndpointGroup) Snapshot() []*domain.Endpoint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.endpoints
}

func (g *DynamicEndpointGroup) WhenReady() <-chan struct{} {
	return g.ready
}

func (g *DynamicEndpointGroup) Subscribe(l Listener) Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	h := g.nextID
	g.listeners[h] = l
	return h
}

func (g *DynamicEndpointGroup) Unsubscribe(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.listeners, h)
}

func (g *DynamicEndpointGroup) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.listeners = nil
		g.mu.Unlock()
		g.readyTimer.Stop()
		g.readyOnce.Do(func() { close(g.ready) })
	})
	return nil
}

var _ Group = (*DynamicEndpointGroup)(nil)
