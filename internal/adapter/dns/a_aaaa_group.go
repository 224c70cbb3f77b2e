package dns

import (
	"context"
	"net"
	"sync"
	"time"

	miekgdns "github.com/miekg/dns"
	"go.uber.org/multierr"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
)

// AddressFamily selects which record types an AAAAGroup queries and how a
// host's mixed IPv4/IPv6 results are ordered in the published snapshot
// (spec.md §4.G).
type AddressFamily int

const (
	IPv4Only AddressFamily = iota
	IPv6Only
	IPv4Preferred
	IPv6Preferred
)

// AAAAGroup resolves a hostname's A/AAAA records into an endpoint group,
// re-refreshing on a TTL-driven schedule. It embeds DynamicEndpointGroup
// for the observable snapshot/subscribe machinery and drives it with a
// background refresh loop (spec.md §4.E-G).
type AAAAGroup struct {
	*group.DynamicEndpointGroup

	resolver *Resolver
	host     string
	port     int
	family   AddressFamily

	failures int

	mu      sync.Mutex
	lastErr error

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// LastError returns the most recent full-resolution failure (both families
// empty or erroring), or nil once a later pass has succeeded.
func (g *AAAAGroup) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// NewAAAAGroup starts resolving host:port against resolver, publishing
// results as they arrive. Call Close to stop the refresh loop.
func NewAAAAGroup(resolver *Resolver, host string, port int, family AddressFamily, selectionTimeout time.Duration) *AAAAGroup {
	g := &AAAAGroup{
		DynamicEndpointGroup: group.NewDynamicEndpointGroup(selectionTimeout),
		resolver:             resolver,
		host:                 host,
		port:                 port,
		family:               family,
		stopCh:               make(chan struct{}),
	}
	g.wg.Add(1)
	go g.run()
	return g
}

func (g *AAAAGroup) run() {
	defer g.wg.Done()
	for {
		endpoints, ttl, ok := g.refreshOnce()
		if ok {
			g.SetEndpoints(endpoints)
		}

		select {
		case <-g.stopCh:
			return
		case <-time.After(ttl):
		}
	}
}

// refreshOnce performs one A/AAAA resolution pass, returning the resolved
// endpoints (possibly empty on full failure), the delay before the next
// pass, and whether a publish should occur at all (a transport error that
// produced nothing new still reschedules without republishing an empty
// set over a previously healthy one, per spec.md §4.G partial-success
// semantics: a timed-out family simply contributes nothing).
func (g *AAAAGroup) refreshOnce() ([]*domain.Endpoint, time.Duration, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), g.resolver.cfg.WholeTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var aMsg, aaaaMsg *miekgdns.Msg
	var aErr, aaaaErr error

	queryA := g.family != IPv6Only
	queryAAAA := g.family != IPv4Only

	if queryA {
		wg.Add(1)
		go func() {
			defer wg.Done()
			aMsg, aErr = g.resolver.Query(ctx, g.host, miekgdns.TypeA)
		}()
	}
	if queryAAAA {
		wg.Add(1)
		go func() {
			defer wg.Done()
			aaaaMsg, aaaaErr = g.resolver.Query(ctx, g.host, miekgdns.TypeAAAA)
		}()
	}
	wg.Wait()

	v4, ttl4 := g.extractA(aMsg)
	v6, ttl6 := g.extractAAAA(aaaaMsg)

	if len(v4) == 0 && len(v6) == 0 {
		g.failures++
		combined := multierr.Append(aErr, aaaaErr)
		g.mu.Lock()
		g.lastErr = domain.NewResolutionFailureError(g.host, "A/AAAA", combined)
		g.mu.Unlock()

		delay := g.resolver.cfg.NegativeTTL
		if g.resolver.cfg.Backoff != nil {
			delay = g.resolver.cfg.Backoff.Duration(g.failures)
		}
		return nil, delay, false
	}
	g.failures = 0
	g.mu.Lock()
	g.lastErr = nil
	g.mu.Unlock()

	endpoints := g.order(v4, v6)
	ttl := shortestPositive(ttl4, ttl6, g.resolver.cfg.MinPositiveTTL)
	return endpoints, ttl, true
}

func (g *AAAAGroup) order(v4, v6 []*domain.Endpoint) []*domain.Endpoint {
	switch g.family {
	case IPv4Only:
		return v4
	case IPv6Only:
		return v6
	case IPv6Preferred:
		return append(append([]*domain.Endpoint{}, v6...), v4...)
	default: // IPv4Preferred and unset
		return append(append([]*domain.Endpoint{}, v4...), v6...)
	}
}

// extractA reads A records from msg.Answer. CNAME chasing is left to the
// configured recursive nameserver (RecursionDesired is always set); the
// DefaultCNAMEHopLimit documents the bound a caller-supplied authoritative
// chain walker should honor if one is ever plugged in ahead of this group.
func (g *AAAAGroup) extractA(msg *miekgdns.Msg) ([]*domain.Endpoint, time.Duration) {
	if msg == nil {
		return nil, 0
	}
	var out []*domain.Endpoint
	ttl := time.Duration(0)
	for _, rr := range msg.Answer {
		a, ok := rr.(*miekgdns.A)
		if !ok || a.A == nil {
			continue
		}
		out = append(out, domain.NewEndpoint(domain.HostTypeHostname, g.host, g.port).WithIPAddr(a.A.String()))
		ttl = shortestPositive(ttl, time.Duration(rr.Header().Ttl)*time.Second, 0)
	}
	return out, ttl
}

func (g *AAAAGroup) extractAAAA(msg *miekgdns.Msg) ([]*domain.Endpoint, time.Duration) {
	if msg == nil {
		return nil, 0
	}
	var out []*domain.Endpoint
	ttl := time.Duration(0)
	for _, rr := range msg.Answer {
		aaaa, ok := rr.(*miekgdns.AAAA)
		if !ok || aaaa.AAAA == nil {
			continue
		}
		ip := normalizeIPv6(aaaa.AAAA)
		out = append(out, domain.NewEndpoint(domain.HostTypeHostname, g.host, g.port).WithIPAddr(ip))
		ttl = shortestPositive(ttl, time.Duration(rr.Header().Ttl)*time.Second, 0)
	}
	return out, ttl
}

// normalizeIPv6 collapses an IPv4-mapped (::ffff:a.b.c.d) or
// IPv4-compatible (0::a.b.c.d, excluding ::0 and ::1) IPv6 address down to
// its IPv4 form (spec.md §4.G).
func normalizeIPv6(ip net.IP) string {
	ip16 := ip.To16()
	if ip16 == nil {
		return ip.String()
	}
	for _, b := range ip16[:10] {
		if b != 0 {
			return ip.String()
		}
	}
	lastPair := ip16[10] == 0xff && ip16[11] == 0xff // v4-mapped
	allZero := ip16[10] == 0 && ip16[11] == 0        // v4-compatible
	if !lastPair && !allZero {
		return ip.String()
	}
	v4 := net.IPv4(ip16[12], ip16[13], ip16[14], ip16[15])
	if allZero && (v4.Equal(net.IPv4zero) || v4.Equal(net.IPv4(0, 0, 0, 1))) {
		// ::0 and ::1 are the IPv6 unspecified/loopback addresses, not
		// genuine IPv4-compatible addresses.
		return ip.String()
	}
	return v4.String()
}

func shortestPositive(current, candidate, floor time.Duration) time.Duration {
	if candidate <= 0 {
		if current > 0 {
			return current
		}
		return floor
	}
	if current <= 0 || candidate < current {
		current = candidate
	}
	if current < floor {
		return floor
	}
	return current
}

// Close stops the refresh loop and releases the underlying group.
func (g *AAAAGroup) Close() error {
	g.stopOnce.Do(func() { close(g.stopCh) })
	g.wg.Wait()
	return g.DynamicEndpointGroup.Close()
}
