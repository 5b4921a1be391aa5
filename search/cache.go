package search

import (
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Freer takes back ownership of a request.
type Freer interface {
	Free(s *Search)
}

// CacheStats is a snapshot of cache activity.
type CacheStats struct {
	Allocated   uint64 // requests handed out by Alloc
	Reused      uint64 // of which came from the free list
	Freed       uint64
	DoubleFrees uint64 // Free calls for requests that were not outstanding
	Outstanding int
}

// Cache recycles Search values. Every Alloc assigns a fresh ID, and the cache
// tracks outstanding IDs so a second Free of the same request is detected and
// ignored. It is safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	free        []*Search
	outstanding *roaring64.Bitmap
	nextID      uint64
	stats       CacheStats
	logger      *slog.Logger
}

// NewCache creates an empty cache. A nil logger discards log output.
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		outstanding: roaring64.New(),
		logger:      logger.With("component", "search_cache"),
	}
}

// Alloc returns a cleared request owned by the caller until Free.
func (c *Cache) Alloc() *Search {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	var s *Search
	if n := len(c.free); n > 0 {
		s = c.free[n-1]
		c.free[n-1] = nil
		c.free = c.free[:n-1]
		c.stats.Reused++
	} else {
		s = &Search{}
	}
	s.reset(id)

	c.outstanding.Add(id)
	c.stats.Allocated++
	return s
}

// Free returns s to the cache. Freeing nil or a request that is not
// outstanding is a no-op; the latter is logged and counted.
func (c *Cache) Free(s *Search) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.outstanding.CheckedRemove(s.ID) {
		c.stats.DoubleFrees++
		c.logger.Warn("free of request that is not outstanding", "id", s.ID, "tag", s.Tag)
		return
	}
	c.stats.Freed++
	c.free = append(c.free, s)
}

// Outstanding returns the number of requests allocated and not yet freed.
func (c *Cache) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.outstanding.GetCardinality())
}

// IsOutstanding reports whether the request with id is currently allocated.
func (c *Cache) IsOutstanding(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding.Contains(id)
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stats
	st.Outstanding = int(c.outstanding.GetCardinality())
	return st
}
