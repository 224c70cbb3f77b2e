package dns

import (
	"context"
	"sync"
	"time"

	miekgdns "github.com/miekg/dns"

	"github.com/latticerpc/core/internal/adapter/group"
	"github.com/latticerpc/core/internal/core/domain"
)

// TXTParser decodes one TXT record's concatenated character-strings into
// an Endpoint. Returning ok=false silently drops the record (spec.md
// §4.G) — malformed encodings are the caller's problem to detect, not
// this group's.
type TXTParser func(segments []string) (endpoint *domain.Endpoint, ok bool)

// TXTGroup resolves a name's TXT records into an endpoint group using a
// caller-supplied parser, since TXT content has no fixed schema.
type TXTGroup struct {
	*group.DynamicEndpointGroup

	resolver *Resolver
	name     string
	parse    TXTParser

	failures int
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTXTGroup starts resolving name's TXT records against resolver,
// decoding each record with parse.
func NewTXTGroup(resolver *Resolver, name string, parse TXTParser, selectionTimeout time.Duration) *TXTGroup {
	g := &TXTGroup{
		DynamicEndpointGroup: group.NewDynamicEndpointGroup(selectionTimeout),
		resolver:             resolver,
		name:                 name,
		parse:                parse,
		stopCh:               make(chan struct{}),
	}
	g.wg.Add(1)
	go g.run()
	return g
}

func (g *TXTGroup) run() {
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

func (g *TXTGroup) refreshOnce() ([]*domain.Endpoint, time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), g.resolver.cfg.WholeTimeout)
	defer cancel()

	msg, err := g.resolver.Query(ctx, g.name, miekgdns.TypeTXT)
	if err != nil || msg == nil {
		return g.scheduleFailure()
	}

	var endpoints []*domain.Endpoint
	ttl := time.Duration(0)
	for _, rr := range msg.Answer {
		txt, ok := rr.(*miekgdns.TXT)
		if !ok || len(txt.Txt) == 0 {
			continue
		}
		ep, ok := g.parse(txt.Txt)
		if !ok || ep == nil {
			continue
		}
		endpoints = append(endpoints, ep)
		ttl = shortestPositive(ttl, time.Duration(rr.Header().Ttl)*time.Second, g.resolver.cfg.MinPositiveTTL)
	}

	if len(endpoints) == 0 {
		return g.scheduleFailure()
	}
	g.failures = 0
	if ttl <= 0 {
		ttl = g.resolver.cfg.MinPositiveTTL
	}
	return endpoints, ttl
}

func (g *TXTGroup) scheduleFailure() ([]*domain.Endpoint, time.Duration) {
	g.failures++
	delay := g.resolver.cfg.NegativeTTL
	if g.resolver.cfg.Backoff != nil {
		delay = g.resolver.cfg.Backoff.Duration(g.failures)
	}
	return nil, delay
}

// Close stops the refresh loop and releases the underlying group.
func (g *TXTGroup) Close() error {
	g.stopOnce.Do(func() { close(g.stopCh) })
	g.wg.Wait()
	return g.DynamicEndpointGroup.Close()
}
