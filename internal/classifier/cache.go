package classifier

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	result   model.ClassificationResult
	storedAt time.Time
}

// Cache holds classification results for a bounded time. Expiry is judged
// by the injected clock, so an entry past its TTL is never returned even if
// the backing store has not evicted it yet.
type Cache struct {
	items *gocache.Cache
	ttl   time.Duration
	clock Clock
}

// NewCache creates a cache. A nil clock means the wall clock.
func NewCache(ttl time.Duration, clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{
		items: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns a cached result for in, if fresh.
func (c *Cache) Get(in Input) (model.ClassificationResult, bool) {
	key := in.Hash()
	v, ok := c.items.Get(key)
	if !ok {
		return model.ClassificationResult{}, false
	}
	e := v.(cacheEntry)
	if c.clock.Now().Sub(e.storedAt) >= c.ttl {
		c.items.Delete(key)
		return model.ClassificationResult{}, false
	}
	res := e.result
	res.Reasoning = append([]string(nil), e.result.Reasoning...)
	return res, true
}

// Set stores a result for in.
func (c *Cache) Set(in Input, res model.ClassificationResult) {
	c.items.Set(in.Hash(), cacheEntry{result: res, storedAt: c.clock.Now()}, gocache.DefaultExpiration)
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
