package dns

import (
	"context"
	"strconv"
	"sync"
	"time"

	miekgdns "github.com/miekg/dns"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
)

// SRVGroup resolves a service name's SRV records into an endpoint group.
// Priority is decoded but, per spec.md §4.G, not used for selection at
// this layer; weight feeds Endpoint.Weight for a downstream weighted
// selector to use.
type SRVGroup struct {
	*group.DynamicEndpointGroup

	resolver *Resolver
	name     string

	failures int
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSRVGroup starts resolving name's SRV records against resolver.
func NewSRVGroup(resolver *Resolver, name string, selectionTimeout time.Duration) *SRVGroup {
	g := &SRVGroup{
		DynamicEndpointGroup: group.NewDynamicEndpointGroup(selectionTimeout),
		resolver:             resolver,
		name:                 name,
		stopCh:               make(chan struct{}),
	}
	g.wg.Add(1)
	go g.run()
	return g
}

func (g *SRVGroup) run() {
	defer g.wg.Done()
	for {
		endpoints, ttl := g.refreshOnce()
		g.SetEndpoints(endpoints)

		select {
		case <-g.stopCh:
			return
		case <-time.After(ttl):
		}
	}
}

func (g *SRVGroup) refreshOnce() ([]*domain.Endpoint, time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), g.resolver.cfg.WholeTimeout)
	defer cancel()

	msg, err := g.resolver.Query(ctx, g.name, miekgdns.TypeSRV)
	if err != nil || msg == nil {
		g.failures++
		delay := g.resolver.cfg.NegativeTTL
		if g.resolver.cfg.Backoff != nil {
			delay = g.resolver.cfg.Backoff.Duration(g.failures)
		}
		return nil, delay
	}

	var endpoints []*domain.Endpoint
	ttl := time.Duration(0)
	for _, rr := range msg.Answer {
		srv, ok := rr.(*miekgdns.SRV)
		if !ok || srv.Target == "" || srv.Port == 0 {
			continue
		}
		target := trimTrailingDot(srv.Target)
		endpoints = append(endpoints,
			domain.NewEndpoint(domain.HostTypeHostname, target, int(srv.Port)).
				WithWeight(int(srv.Weight)).
				WithAttribute("dns.srv.priority", strconv.Itoa(int(srv.Priority))))
		ttl = shortestPositive(ttl, time.Duration(rr.Header().Ttl)*time.Second, g.resolver.cfg.MinPositiveTTL)
	}

	if len(endpoints) == 0 {
		g.failures++
		delay := g.resolver.cfg.NegativeTTL
		if g.resolver.cfg.Backoff != nil {
			delay = g.resolver.cfg.Backoff.Duration(g.failures)
		}
		return nil, delay
	}
	g.failures = 0
	if ttl <= 0 {
		ttl = g.resolver.cfg.MinPositiveTTL
	}
	return endpoints, ttl
}

// Close stops the refresh loop and releases the underlying group.
func (g *SRVGroup) Close() error {
	g.stopOnce.Do(func() { close(g.stopCh) })
	g.wg.Wait()
	return g.DynamicEndpointGroup.Close()
}

func trimTrailingDot(name string) string {
	if len(name) > 0 && name[len(name)-1] == '.' {
		return name[:len(name)-1]
	}
	return name
}

