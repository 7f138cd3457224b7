package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// Invalidatable is anything that can be marked stale.
type Invalidatable interface {
	Invalidate()
}

// Cache maps query keys to queries and implements core.Invalidator.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Invalidatable
	counts  map[string]int
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]Invalidatable),
		counts:  make(map[string]int),
	}
}

// Register binds a query to key, replacing any previous one.
func (c *Cache) Register(key string, q Invalidatable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.TrimSpace(key)] = q
}

// Invalidate marks the query under key stale. Unknown keys are a no-op.
func (c *Cache) Invalidate(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	c.mu.Lock()
	c.counts[key]++
	q := c.entries[key]
	c.mu.Unlock()

	if q != nil {
		q.Invalidate()
	}
	return nil
}

// Invalidations returns how often key was invalidated.
func (c *Cache) Invalidations(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[strings.TrimSpace(key)]
}

// Keys returns the registered keys.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invalidator matches core.Invalidator without importing core.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Multi fans one invalidation out to every member and joins their errors.
type Multi []Invalidator

func (m Multi) Invalidate(ctx context.Context, key string) error {
	var errs []error
	for _, inv := range m {
		if inv == nil {
			continue
		}
		if err := inv.Invalidate(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
