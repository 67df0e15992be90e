package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/chxio/chgo/internal/hash"
	"github.com/chxio/chgo/registry"
)

// Resolver issues a DESCRIBE TABLE (or equivalent) call against a single
// endpoint and returns the table's columns in declared order. Cache is
// transport-agnostic: callers inject how resolution actually happens.
type Resolver func(ctx context.Context, endpoint, table string) ([]registry.ColumnDescriptor, error)

// Cache resolves and caches TableSchema by (endpoint, table), guaranteeing
// at most one in-flight resolution per key. A failed resolution is never
// cached; a successful one is pinned until explicitly invalidated.
type Cache struct {
	resolve Resolver

	group singleflight.Group

	mu      sync.RWMutex
	entries map[uint64]TableSchema
}

// NewCache returns a Cache that resolves misses via resolve.
func NewCache(resolve Resolver) *Cache {
	return &Cache{resolve: resolve, entries: make(map[uint64]TableSchema)}
}

func normalizedKey(endpoint, table string) (string, uint64) {
	norm := strings.ToLower(strings.TrimSuffix(endpoint, "/")) + "|" + strings.ToLower(table)

	return norm, hash.Key(norm)
}

// Resolve returns the cached TableSchema for (endpoint, table), resolving
// it via the injected Resolver on a cache miss. Concurrent callers for the
// same key share a single in-flight resolution.
func (c *Cache) Resolve(ctx context.Context, endpoint, table string) (TableSchema, error) {
	norm, key := normalizedKey(endpoint, table)

	c.mu.RLock()
	if s, ok := c.entries[key]; ok {
		c.mu.RUnlock()

		return s, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(norm, func() (any, error) {
		// Re-check under the singleflight key: another caller may have
		// populated the entry while this one was waiting to be scheduled.
		c.mu.RLock()
		if s, ok := c.entries[key]; ok {
			c.mu.RUnlock()

			return s, nil
		}
		c.mu.RUnlock()

		cols, err := c.resolve(ctx, endpoint, table)
		if err != nil {
			return TableSchema{}, err
		}

		s := NewTableSchema(table, cols)

		c.mu.Lock()
		c.entries[key] = s
		c.mu.Unlock()

		return s, nil
	})
	if err != nil {
		return TableSchema{}, err
	}

	s, ok := v.(TableSchema)
	if !ok {
		return TableSchema{}, fmt.Errorf("schema cache: unexpected resolver result type %T", v)
	}

	return s, nil
}

// Invalidate drops the cached entry for (endpoint, table), if any. The
// next Resolve call re-issues the underlying lookup.
func (c *Cache) Invalidate(endpoint, table string) {
	_, key := normalizedKey(endpoint, table)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateOnError inspects err for a server-reported schema-drift code
// (see errs.ServerError.SchemaDrift) and invalidates the entry if so. It
// returns whether an invalidation occurred, so callers can decide to
// retry the operation against the freshly resolved schema.
func (c *Cache) InvalidateOnError(endpoint, table string, err error) bool {
	type schemaDrifter interface{ SchemaDrift() bool }

	var sd schemaDrifter

	for e := err; e != nil; {
		if d, ok := e.(schemaDrifter); ok { //nolint:errorlint
			sd = d

			break
		}

		unwrapper, ok := e.(interface{ Unwrap() error }) //nolint:errorlint
		if !ok {
			break
		}

		e = unwrapper.Unwrap()
	}

	if sd == nil || !sd.SchemaDrift() {
		return false
	}

	c.Invalidate(endpoint, table)

	return true
}
