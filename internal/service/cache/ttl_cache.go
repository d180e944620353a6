package cache

import (
	"sync"
	"time"
)

type item struct {
	b       []byte
	expires time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expires.IsZero() && now.After(it.expires)
}

// TTLCache is an in-process BytesCache for single-replica deployments.
type TTLCache struct {
	mu    sync.Mutex
	items map[string]item
}

func NewTTLCache() *TTLCache {
	return &TTLCache{items: make(map[string]item)}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if it.expired(now) {
		delete(c.items, key)
		return nil, false, nil
	}
	return it.b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = item{b: value, expires: exp}
	c.prune()
	c.mu.Unlock()
	return nil
}

// prune drops a bounded number of expired entries per write so the map
// cannot grow without reads ever evicting.
func (c *TTLCache) prune() {
	now := time.Now()
	scanned := 0
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
		if scanned++; scanned >= 16 {
			return
		}
	}
}
