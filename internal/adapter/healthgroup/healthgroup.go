package healthgroup

import (
	"context"
	"sync"
	"time"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/adapter/health"
	"github.com/latticerpc/core/internal/core/domain"
)

// entry binds a HealthCheckContext to the endpoint it probes and the
// bookkeeping a Group needs to drive rollovers: has this context reported
// at least one health value since the caller started waiting on it.
type entry struct {
	ctx      *health.HealthCheckContext
	endpoint *domain.Endpoint
	handle   health.Handle
	reported bool
}

// Group composes a health-checking layer over an inner Group (spec.md
// §4.J): it applies a candidate-selection strategy to each inner
// snapshot, probes the candidate subset via HealthCheckContexts, and
// republishes only the endpoints whose last reported health clears
// HealthyThreshold. Grounded on group.DynamicEndpointGroup's
// mutex-guarded snapshot/subscribe shape and health.HealthCheckContext's
// refcounted probe driver.
type Group struct {
	inner       group.Group
	innerHandle group.Handle
	cfg         Config

	mu        sync.Mutex
	snapshot  []*domain.Endpoint
	published map[string]*entry // currently published generation, keyed by Endpoint.Key()

	pending         map[string]*entry // in-flight rollover generation, nil when none
	pendingWait     int               // remaining brand-new contexts in pending that haven't reported
	pendingSnapshot []*domain.Endpoint

	listenersMu sync.Mutex
	listeners   map[group.Handle]group.Listener
	nextID      group.Handle

	publishedSnap []*domain.Endpoint // last notified snapshot, for change detection

	ready        chan struct{}
	readyOnce    sync.Once
	readyTimer   *time.Timer
	initialWait  int
	initialKeys  map[string]bool

	closeOnce sync.Once
	closed    bool
}

// New builds a Group over inner using cfg, returning a ConfigError if cfg
// is invalid (spec.md §7).
func New(inner group.Group, cfg Config) (*Group, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Group{
		inner:     inner,
		cfg:       cfg,
		published: make(map[string]*entry),
		listeners: make(map[group.Handle]group.Listener),
		ready:     make(chan struct{}),
	}
	g.readyTimer = time.AfterFunc(cfg.SelectionTimeout, func() {
		g.readyOnce.Do(func() { close(g.ready) })
	})

	g.innerHandle = inner.Subscribe(g.onInnerSnapshot)
	g.onInnerSnapshot(inner.Snapshot())
	return g, nil
}

func (g *Group) Snapshot() []*domain.Endpoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.publishedSnap
}

func (g *Group) WhenReady() <-chan struct{} {
	return g.ready
}

func (g *Group) Subscribe(l group.Listener) group.Handle {
	g.listenersMu.Lock()
	defer g.listenersMu.Unlock()
	g.nextID++
	h := g.nextID
	g.listeners[h] = l
	return h
}

func (g *Group) Unsubscribe(h group.Handle) {
	g.listenersMu.Lock()
	defer g.listenersMu.Unlock()
	delete(g.listeners, h)
}

// Close stops every probe loop this group owns, regardless of refcount,
// unsubscribes from the inner group, and cancels the selection timer.
func (g *Group) Close() error {
	g.closeOnce.Do(func() {
		g.inner.Unsubscribe(g.innerHandle)
		g.readyTimer.Stop()
		g.readyOnce.Do(func() { close(g.ready) })

		g.mu.Lock()
		all := make([]*entry, 0, len(g.published)+len(g.pending))
		for _, e := range g.published {
			all = append(all, e)
		}
		for _, e := range g.pending {
			all = append(all, e)
		}
		g.closed = true
		g.mu.Unlock()

		for _, e := range all {
			_ = e.ctx.StopChecking(context.Background())
		}

		g.listenersMu.Lock()
		g.listeners = nil
		g.listenersMu.Unlock()
	})
	return nil
}

var _ group.Group = (*Group)(nil)

func (g *Group) onInnerSnapshot(snap []*domain.Endpoint) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.snapshot = snap

	candidates := g.selectCandidates(snap)
	var toStop []*entry
	g.beginRollover(candidates, snap, &toStop)
	g.mu.Unlock()

	stopEntries(toStop)
}

// beginRollover computes the next generation's entries, reusing contexts
// already referenced by the currently published generation and creating
// one for every newly-selected endpoint. If nothing is new, the swap
// happens immediately; otherwise it waits for every new context's first
// report (spec.md §4.J items 3 and 6). Must be called with g.mu held; any
// context whose refcount reaches zero is appended to toStop rather than
// stopped here, since StopChecking must never run while g.mu is held (a
// context's own in-flight probe callback may be blocked waiting on the
// same lock).
func (g *Group) beginRollover(candidates []*domain.Endpoint, snap []*domain.Endpoint, toStop *[]*entry) {
	next := make(map[string]*entry, len(candidates))
	newWait := 0

	for _, ep := range candidates {
		key := ep.Key()
		// A key already present in the in-flight pending generation keeps
		// its existing entry untouched - it is already Retain()'d for this
		// generation, whether that reference came from the published
		// generation or from a fresh context.
		if existing, ok := g.pending[key]; ok {
			next[key] = existing
			if !existing.reported {
				newWait++
			}
			continue
		}
		if existing, ok := g.published[key]; ok {
			existing.ctx.Retain()
			next[key] = &entry{ctx: existing.ctx, endpoint: ep, handle: existing.handle, reported: true}
			continue
		}

		e := &entry{endpoint: ep, reported: false}
		e.ctx = health.NewHealthCheckContext(ep, g.cfg.Probe, g.cfg.Client, g.cfg.Logger)
		e.ctx.Retain()
		e.handle = e.ctx.Subscribe(func(domain.HealthCheckResult) { g.onHealthUpdate(key) })
		_ = e.ctx.StartChecking(context.Background())
		next[key] = e
		newWait++
	}

	if g.initialKeys == nil {
		g.initialKeys = make(map[string]bool, len(candidates))
		for key := range next {
			g.initialKeys[key] = true
		}
		g.initialWait = len(next)
		if g.initialWait == 0 {
			g.readyOnce.Do(func() { g.readyTimer.Stop(); close(g.ready) })
		}
	}

	// Release anything from a superseded pending generation that didn't
	// make it into next.
	for key, e := range g.pending {
		if _, ok := next[key]; !ok {
			g.releaseEntry(e, toStop)
		}
	}

	g.pending = next
	g.pendingWait = newWait
	g.pendingSnapshot = snap

	if newWait == 0 {
		g.swap(toStop)
	}
}

func (g *Group) onHealthUpdate(key string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}

	if e, ok := g.pending[key]; ok && !e.reported {
		e.reported = true
		g.pendingWait--
	}

	var toStop []*entry
	swapped := false
	if g.pending != nil && g.pendingWait <= 0 {
		g.swap(&toStop)
		swapped = true
	}

	if !swapped {
		g.recomputeLocked()
	}
	g.mu.Unlock()

	stopEntries(toStop)
}

// swap atomically replaces the published generation with the pending one.
// The retiring generation's reference to every context it held is
// released unconditionally - a context an endpoint carries forward into
// the new generation was already Retain()'d for that generation in
// beginRollover, so refcount still equals exactly the number of live
// context-groups referencing it (spec.md §4.J item 6). Must be called
// with g.mu held.
func (g *Group) swap(toStop *[]*entry) {
	for _, e := range g.published {
		g.releaseEntry(e, toStop)
	}
	g.published = g.pending
	g.pending = nil
	g.pendingWait = 0
	g.snapshot = g.pendingSnapshot

	g.maybeFireInitialReady()
	g.recomputeLocked()
}

func stopEntries(entries []*entry) {
	for _, e := range entries {
		_ = e.ctx.StopChecking(context.Background())
	}
}

func (g *Group) maybeFireInitialReady() {
	if g.initialKeys == nil {
		return
	}
	for key := range g.initialKeys {
		if e, ok := g.published[key]; !ok || !e.reported {
			return
		}
	}
	g.readyOnce.Do(func() { g.readyTimer.Stop(); close(g.ready) })
}

// releaseEntry drops this generation's reference to e's context. A context
// whose refcount reaches zero is appended to *toStop rather than stopped
// here; the caller must invoke stopEntries(*toStop) only after releasing
// g.mu, since StopChecking blocks on the context's probe loop exiting and
// that loop's own health-update callback needs g.mu to proceed.
func (g *Group) releaseEntry(e *entry, toStop *[]*entry) {
	if e.ctx.Release() <= 0 {
		*toStop = append(*toStop, e)
	}
}

// recomputeLocked rebuilds the published snapshot from g.snapshot
// filtered to published contexts clearing HealthyThreshold (spec.md
// §4.J item 4), preserving g.snapshot's order. Must be called with
// g.mu held.
func (g *Group) recomputeLocked() {
	healthy := make([]*domain.Endpoint, 0, len(g.snapshot))
	for _, ep := range g.snapshot {
		e, ok := g.published[ep.Key()]
		if !ok {
			continue
		}
		if e.ctx.Health() >= g.cfg.HealthyThreshold {
			healthy = append(healthy, ep)
		}
	}

	if domain.EndpointsEqual(g.publishedSnap, healthy) {
		return
	}
	g.publishedSnap = healthy

	g.listenersMu.Lock()
	listeners := make([]group.Listener, 0, len(g.listeners))
	for _, l := range g.listeners {
		listeners = append(listeners, l)
	}
	g.listenersMu.Unlock()

	for _, l := range listeners {
		l(healthy)
	}
}

// selectCandidates applies cfg.Strategy to snap, using the currently
// published generation's membership to keep StrategyPartial* selections
// stable across snapshots that don't add or remove many endpoints.
func (g *Group) selectCandidates(snap []*domain.Endpoint) []*domain.Endpoint {
	if g.cfg.Strategy == StrategyAll || len(snap) == 0 {
		return snap
	}

	limit := g.partialLimit(len(snap))
	if limit >= len(snap) {
		return snap
	}

	kept := make([]*domain.Endpoint, 0, limit)
	rest := make([]*domain.Endpoint, 0, len(snap))
	for _, ep := range snap {
		if _, ok := g.published[ep.Key()]; ok && len(kept) < limit {
			kept = append(kept, ep)
		} else {
			rest = append(rest, ep)
		}
	}
	for _, ep := range rest {
		if len(kept) >= limit {
			break
		}
		kept = append(kept, ep)
	}
	return kept
}

func (g *Group) partialLimit(total int) int {
	switch g.cfg.Strategy {
	case StrategyPartialCount:
		if g.cfg.MaxCount < total {
			return g.cfg.MaxCount
		}
		return total
	case StrategyPartialRatio:
		n := int(g.cfg.MaxRatio * float64(total))
		if n < 1 {
			n = 1
		}
		if n > total {
			n = total
		}
		return n
	default:
		return total
	}
}
