package rowsource

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// DefaultTTL is how long fetched rows are served from memory.
const DefaultTTL = 30 * time.Second

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	CacheLookup(datasource string, hit bool)
}

// Cached is a read-through cache in front of a Source, keyed by
// datasource. Rows are shared between callers and must not be mutated.
type Cached struct {
	src      Source
	cache    *gocache.Cache
	ttl      time.Duration
	observer CacheObserver
}

var _ Source = (*Cached)(nil)

// NewCached wraps src. A ttl of zero disables caching.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{
		src:   src,
		cache: gocache.New(ttl, 2*ttl+time.Minute),
		ttl:   ttl,
	}
}

// Observe registers o to be told about hits and misses.
func (c *Cached) Observe(o CacheObserver) { c.observer = o }

// Rows returns cached rows or fetches and caches them. Errors are not
// cached.
func (c *Cached) Rows(ctx context.Context, datasource string) ([]selector.Row, error) {
	if c.ttl <= 0 {
		return c.src.Rows(ctx, datasource)
	}

	if value, found := c.cache.Get(datasource); found {
		if rows, ok := value.([]selector.Row); ok {
			c.observe(datasource, true)
			log.Debug(log.CatCache, "cache hit", "datasource", datasource)
			return rows, nil
		}
		log.Error(log.CatCache, "wrong type assertion when getting value", "datasource", datasource)
	}

	c.observe(datasource, false)
	rows, err := c.src.Rows(ctx, datasource)
	if err != nil {
		return nil, err
	}
	c.cache.Set(datasource, rows, c.ttl)
	return rows, nil
}

// Invalidate drops the named datasources, or everything when none are given.
func (c *Cached) Invalidate(datasources ...string) {
	if len(datasources) == 0 {
		c.cache.Flush()
		return
	}
	for _, ds := range datasources {
		c.cache.Delete(ds)
	}
}

func (c *Cached) observe(datasource string, hit bool) {
	if c.observer != nil {
		c.observer.CacheLookup(datasource, hit)
	}
}
