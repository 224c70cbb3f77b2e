package breaker

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KeyMode selects which request dimensions contribute to a breaker key
// (spec.md §4.C). Unspecified dimensions contribute "" (null) to the key.
type KeyMode int

const (
	PerService KeyMode = iota
	PerMethod
	PerHost
	PerPath
	PerHostMethod
	PerHostPath
	PerMethodPath
	PerHostMethodPath
)

// Key derives the mapping key for a (host, method, path) triplet under the
// configured KeyMode.
func (m KeyMode) Key(host, method, path string) string {
	switch m {
	case PerMethod:
		return "m:" + method
	case PerHost:
		return "h:" + host
	case PerPath:
		return "p:" + path
	case PerHostMethod:
		return join("h", host, "m", method)
	case PerHostPath:
		return join("h", host, "p", path)
	case PerMethodPath:
		return join("m", method, "p", path)
	case PerHostMethodPath:
		return join("h", host, "m", method, "p", path)
	default:
		return "svc"
	}
}

func join(parts ...string) string {
	var b strings.Builder
	for i := 0; i < len(parts); i += 2 {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(parts[i])
		b.WriteByte(':')
		b.WriteString(parts[i+1])
	}
	return b.String()
}

const (
	DefaultMappingCapacity = 256
	DefaultIdleExpiry       = time.Hour
)

// Factory builds a new Breaker for a key that has never been seen before.
type Factory func(key string) *Breaker

// entry pairs a breaker with the last time it was touched, for idle expiry.
type entry struct {
	breaker  *Breaker
	lastUsed time.Time
}

// Mapping is a bounded, idle-expiring cache from key -> Breaker (spec.md
// §4.C). Lookup creates a breaker on first miss via factory.
type Mapping struct {
	mu         sync.Mutex
	cache      *lru.Cache[string, *entry]
	factory    Factory
	idleExpiry time.Duration
	now        func() time.Time
}

// NewMapping builds a Mapping with the given capacity (<=0 uses
// DefaultMappingCapacity) and idle expiry (<=0 uses DefaultIdleExpiry).
func NewMapping(capacity int, idleExpiry time.Duration, factory Factory) (*Mapping, error) {
	if capacity <= 0 {
		capacity = DefaultMappingCapacity
	}
	if idleExpiry <= 0 {
		idleExpiry = DefaultIdleExpiry
	}
	cache, err := lru.New[string, *entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Mapping{
		cache:      cache,
		factory:    factory,
		idleExpiry: idleExpiry,
		now:        time.Now,
	}, nil
}

// Get returns the breaker for key, creating it via the factory on first
// miss, and evicting it if it has sat idle past idleExpiry.
func (m *Mapping) Get(key string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.cache.Get(key); ok {
		if m.now().Sub(e.lastUsed) > m.idleExpiry {
			m.cache.Remove(key)
		} else {
			e.lastUsed = m.now()
			return e.breaker
		}
	}

	b := m.factory(key)
	m.cache.Add(key, &entry{breaker: b, lastUsed: m.now()})
	return b
}

// Len reports the number of live mapping entries.
func (m *Mapping) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Len()
}
