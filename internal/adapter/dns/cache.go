package dns

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	miekgdns "github.com/miekg/dns"
	"golang.org/x/sync/singleflight"
)

// Cache coalesces duplicate in-flight queries and caches successful
// answers. Failed lookups (NXDOMAIN included) are not cached, so this layer
// holds no negative entries; the retry after a failure is scheduled by each
// group's refresh loop.
type Cache interface {
	// Resolve returns key's cached answer if still fresh. Otherwise fn is
	// called at most once across all concurrent callers racing for the
	// same key; a successful result is cached for the ttl fn returns.
	Resolve(key string, fn func() (*miekgdns.Msg, time.Duration, error)) (*miekgdns.Msg, error)
}

type cachedAnswer struct {
	msg       *miekgdns.Msg
	expiresAt time.Time
}

// LRUCache is the default Cache, backed by a bounded LRU and a
// golang.org/x/sync/singleflight.Group for coalescing, grounded on the
// pack's own DNS-adjacent resolvers that pair an LRU answer cache with a
// single-flight layer in front of the wire query.
type LRUCache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, cachedAnswer]
	group singleflight.Group
}

// NewLRUCache builds a cache holding up to size distinct query keys.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = 512
	}
	inner, _ := lru.New[string, cachedAnswer](size)
	return &LRUCache{inner: inner}
}

func (c *LRUCache) get(key string) (*miekgdns.Msg, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.inner.Remove(key)
		return nil, false
	}
	return entry.msg, true
}

func (c *LRUCache) set(key string, msg *miekgdns.Msg, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(key, cachedAnswer{msg: msg, expiresAt: time.Now().Add(ttl)})
}

func (c *LRUCache) Resolve(key string, fn func() (*miekgdns.Msg, time.Duration, error)) (*miekgdns.Msg, error) {
	if msg, ok := c.get(key); ok {
		return msg, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if msg, ok := c.get(key); ok {
			return msg, nil
		}
		msg, ttl, err := fn()
		if err != nil {
			return nil, err
		}
		c.set(key, msg, ttl)
		return msg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*miekgdns.Msg), nil
}

var _ Cache = (*LRUCache)(nil)
