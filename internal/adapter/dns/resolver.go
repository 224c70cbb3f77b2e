package dns

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	miekgdns "github.com/miekg/dns"
)

// Resolver issues DNS queries against ResolverConfig's nameservers,
// honoring the search-domain/ndots rule and per-attempt/whole-operation
// timeouts (spec.md §4.G). It is the common skeleton every group variant
// (A/AAAA, SRV, TXT) drives.
type Resolver struct {
	cfg    ResolverConfig
	client *miekgdns.Client
}

// NewResolver builds a Resolver from cfg, filling in any zero-valued
// tunables with their defaults.
func NewResolver(cfg ResolverConfig) *Resolver {
	cfg = cfg.withDefaults()
	return &Resolver{
		cfg:    cfg,
		client: &miekgdns.Client{Timeout: cfg.PerAttemptTimeout},
	}
}

// Query resolves name/qtype, trying each search-domain candidate in order
// until one returns a successful, non-NXDOMAIN answer, bounded overall by
// WholeTimeout. Concurrent identical queries are coalesced and successful
// answers are cached when cfg.Cache is set.
func (r *Resolver) Query(ctx context.Context, name string, qtype uint16) (*miekgdns.Msg, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WholeTimeout)
	defer cancel()

	key := cacheKey(name, qtype)
	if r.cfg.Cache == nil {
		msg, _, err := r.queryUncached(ctx, name, qtype)
		return msg, err
	}
	return r.cfg.Cache.Resolve(key, func() (*miekgdns.Msg, time.Duration, error) {
		return r.queryUncached(ctx, name, qtype)
	})
}

func (r *Resolver) queryUncached(ctx context.Context, name string, qtype uint16) (*miekgdns.Msg, time.Duration, error) {
	var lastErr error
	for _, candidate := range r.candidateNames(name) {
		msg, err := r.querySearchName(ctx, candidate, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		if msg.Rcode == miekgdns.RcodeNameError {
			lastErr = fmt.Errorf("%s: NXDOMAIN", candidate)
			continue
		}
		if msg.Rcode != miekgdns.RcodeSuccess {
			lastErr = fmt.Errorf("%s: rcode %s", candidate, miekgdns.RcodeToString[msg.Rcode])
			continue
		}
		return msg, answerTTL(msg, r.cfg.MinPositiveTTL), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s: no nameservers configured", name)
	}
	return nil, 0, lastErr
}

// candidateNames returns name's search-domain expansions in query order,
// per the ndots rule: fewer than Ndots dots tries the search domains
// first, else the name is tried as-is first.
func (r *Resolver) candidateNames(name string) []string {
	fqdn := miekgdns.Fqdn(name)
	dots := strings.Count(strings.TrimSuffix(name, "."), ".")

	if dots >= r.cfg.Ndots || len(r.cfg.SearchDomains) == 0 {
		names := []string{fqdn}
		for _, sd := range r.cfg.SearchDomains {
			names = append(names, miekgdns.Fqdn(name+"."+sd))
		}
		return names
	}

	names := make([]string, 0, len(r.cfg.SearchDomains)+1)
	for _, sd := range r.cfg.SearchDomains {
		names = append(names, miekgdns.Fqdn(name+"."+sd))
	}
	return append(names, fqdn)
}

func (r *Resolver) querySearchName(ctx context.Context, fqdn string, qtype uint16) (*miekgdns.Msg, error) {
	msg := new(miekgdns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.cfg.Nameservers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, serverAddr(server))
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s: no reachable nameserver", fqdn)
	}
	return nil, lastErr
}

func serverAddr(server string) string {
	if _, _, err := splitHostPort(server); err == nil {
		return server
	}
	return server + ":53"
}

func splitHostPort(server string) (string, string, error) {
	idx := strings.LastIndex(server, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("no port")
	}
	return server[:idx], server[idx+1:], nil
}

// answerTTL returns the shortest positive TTL among msg's answer records,
// floored at min.
func answerTTL(msg *miekgdns.Msg, min time.Duration) time.Duration {
	shortest := time.Duration(0)
	for _, rr := range msg.Answer {
		ttl := time.Duration(rr.Header().Ttl) * time.Second
		if ttl <= 0 {
			continue
		}
		if shortest == 0 || ttl < shortest {
			shortest = ttl
		}
	}
	if shortest < min {
		return min
	}
	return shortest
}

func cacheKey(name string, qtype uint16) string {
	return strconv.Itoa(int(qtype)) + ":" + strings.ToLower(name)
}
