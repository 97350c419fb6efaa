package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// MemoryCache is the in-process prediction cache. Entries expire after the
// TTL; when the cache is full, the oldest-inserted entry is evicted first.
// Reads do not refresh an entry's position, so eviction order is pure
// insertion order, not recency of use.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = oldest inserted
	capacity int
	ttl      time.Duration
}

type memoryEntry struct {
	fingerprint string
	result      *domain.EnsembleResult
	insertedAt  time.Time
}

// NewMemoryCache creates an in-memory prediction cache.
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &MemoryCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Get returns the cached result for a fingerprint, or nil, nil on miss.
// Expired entries are removed on read.
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*domain.EnsembleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	entry := elem.Value.(*memoryEntry)
	if time.Since(entry.insertedAt) > c.ttl {
		c.removeLocked(elem)
		return nil, nil
	}
	return entry.result, nil
}

// Put stores a result. Re-inserting an existing fingerprint refreshes its
// insertion time and moves it to the back of the eviction queue.
func (c *MemoryCache) Put(ctx context.Context, fingerprint string, result *domain.EnsembleResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[fingerprint]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.result = result
		entry.insertedAt = time.Now()
		c.order.MoveToBack(elem)
		return nil
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	elem := c.order.PushBack(&memoryEntry{
		fingerprint: fingerprint,
		result:      result,
		insertedAt:  time.Now(),
	})
	c.entries[fingerprint] = elem
	return nil
}

// Ping always succeeds for the in-memory cache.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close clears the cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// Stats returns the current size and capacity.
func (c *MemoryCache) Stats() (size int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len(), c.capacity
}

func (c *MemoryCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	delete(c.entries, entry.fingerprint)
	c.order.Remove(elem)
}
