package search

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize bounds the number of cached responses.
const DefaultCacheSize = 256

type cacheEntry struct {
	resp   Response
	stored time.Time
}

// Cache memoizes successful responses of another client for a fixed TTL.
// Failed searches are never cached.
type Cache struct {
	client Client
	ttl    time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	entries map[uint64]cacheEntry
}

// NewCache wraps client. A non-positive max selects DefaultCacheSize.
func NewCache(client Client, ttl time.Duration, max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		max:     max,
		now:     time.Now,
		entries: make(map[uint64]cacheEntry),
	}
}

// Search returns a cached response when one is fresh, otherwise it asks the
// wrapped client.
func (c *Cache) Search(ctx context.Context, req Request) (Response, error) {
	key := requestKey(req)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Sub(entry.stored) < c.ttl {
		c.mu.Unlock()
		return cloneResponse(entry.resp), nil
	}
	c.mu.Unlock()

	resp, err := c.client.Search(ctx, req)
	if err != nil {
		return Response{}, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{resp: cloneResponse(resp), stored: c.now()}
	c.mu.Unlock()

	return resp, nil
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest drops the least recently stored entry. Callers hold mu.
func (c *Cache) evictOldest() {
	var (
		oldestKey uint64
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.stored.Before(oldest) {
			oldestKey, oldest, found = k, e.stored, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func requestKey(req Request) uint64 {
	d := xxhash.New()
	d.WriteString(req.Query)
	d.WriteString("\x00")
	d.WriteString(strconv.Itoa(req.Count))
	if req.NeedSummary {
		d.WriteString("\x00s")
	}
	return d.Sum64()
}

func cloneResponse(r Response) Response {
	r.Items = append([]Item(nil), r.Items...)
	return r
}
