// Package dns implements the DNS-backed groups (spec.md §4.G): a shared
// resolver skeleton plus A/AAAA, SRV, and TXT endpoint groups layered over
// internal/adapter/group.DynamicEndpointGroup.
package dns

import (
	"time"

	"github.com/latticerpc/core/internal/util"
)

const (
	DefaultPerAttemptTimeout = 2 * time.Second
	DefaultWholeTimeout      = 5 * time.Second
	DefaultNdots             = 1
	DefaultMinPositiveTTL    = 5 * time.Second
	DefaultNegativeTTL       = 60 * time.Second
	DefaultCNAMEHopLimit     = 16
)

// ResolverConfig holds the tunables common to every DNS-backed group
// (spec.md §4.G): recursive server list, search-domain/ndots handling,
// per-attempt and whole-operation timeouts, retry backoff, and cache TTL
// floors.
type ResolverConfig struct {
	// Nameservers are recursive server addresses ("host:port"); port
	// defaults to 53 if omitted.
	Nameservers []string

	// SearchDomains and Ndots implement the resolv.conf-style search rule:
	// a name with fewer than Ndots dots is tried with each search domain
	// appended, in order, before being tried as-is; a name with Ndots or
	// more dots is tried as-is first.
	SearchDomains []string
	Ndots         int

	// PerAttemptTimeout bounds a single query to a single nameserver.
	// WholeTimeout bounds the entire operation across retries and must be
	// >= PerAttemptTimeout.
	PerAttemptTimeout time.Duration
	WholeTimeout      time.Duration

	// Backoff yields the retry delay between refresh attempts after a
	// full failure; it resets on any successful non-empty response.
	Backoff util.Backoff

	// MinPositiveTTL floors the refresh interval computed from a
	// successful answer's TTL, so a misconfigured zero-TTL record can't
	// cause a refresh storm.
	MinPositiveTTL time.Duration

	// NegativeTTL is the refresh delay after an NXDOMAIN or
	// empty-for-all-families response when Backoff is nil. withDefaults
	// always installs a Backoff, so for a Resolver built with NewResolver
	// the groups take that delay from Backoff and NegativeTTL has no effect.
	NegativeTTL time.Duration

	// Cache coalesces and caches resolved answers; nil disables caching.
	Cache Cache
}

func (c ResolverConfig) withDefaults() ResolverConfig {
	if c.PerAttemptTimeout <= 0 {
		c.PerAttemptTimeout = DefaultPerAttemptTimeout
	}
	if c.WholeTimeout <= 0 || c.WholeTimeout < c.PerAttemptTimeout {
		c.WholeTimeout = DefaultWholeTimeout
		if c.WholeTimeout < c.PerAttemptTimeout {
			c.WholeTimeout = c.PerAttemptTimeout
		}
	}
	if c.Ndots <= 0 {
		c.Ndots = DefaultNdots
	}
	if c.MinPositiveTTL <= 0 {
		c.MinPositiveTTL = DefaultMinPositiveTTL
	}
	if c.NegativeTTL <= 0 {
		c.NegativeTTL = DefaultNegativeTTL
	}
	if c.Backoff == nil {
		c.Backoff = util.NewExponentialBackoff(time.Second, 30*time.Second, 0.2)
	}
	return c
}
