package cache

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads the value of a query.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Query holds one fetched value. A stale or invalidated query refetches on
// the next read.
type Query[T any] struct {
	fetch FetchFunc[T]
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	value     T
	fetched   bool
	stale     bool
	fetchedAt time.Time
	listeners []func(T)
}

// NewQuery creates a query. A zero ttl means the value never expires on its own.
func NewQuery[T any](fetch FetchFunc[T], ttl time.Duration) *Query[T] {
	return &Query[T]{fetch: fetch, ttl: ttl, now: time.Now}
}

// OnRefetch registers a listener called with every freshly fetched value.
func (q *Query[T]) OnRefetch(fn func(T)) {
	q.mu.Lock()
	q.listeners = append(q.listeners, fn)
	q.mu.Unlock()
}

// Get returns the cached value, refetching it when needed.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	q.mu.Lock()
	if q.fetched && !q.stale && !q.expired() {
		v := q.value
		q.mu.Unlock()
		return v, nil
	}
	q.mu.Unlock()
	return q.Refetch(ctx)
}

// Peek returns the cached value without fetching.
func (q *Query[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.value, q.fetched
}

// Invalidate marks the value stale.
func (q *Query[T]) Invalidate() {
	q.mu.Lock()
	q.stale = true
	q.mu.Unlock()
}

// Stale reports whether the next Get refetches.
func (q *Query[T]) Stale() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.fetched || q.stale || q.expired()
}

// FetchedAt returns the time of the last successful fetch.
func (q *Query[T]) FetchedAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fetchedAt
}

// Refetch loads the value unconditionally.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	v, err := q.fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	q.mu.Lock()
	q.value = v
	q.fetched = true
	q.stale = false
	q.fetchedAt = q.now()
	listeners := append([]func(T){}, q.listeners...)
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
	return v, nil
}

func (q *Query[T]) expired() bool {
	return q.ttl > 0 && q.now().Sub(q.fetchedAt) > q.ttl
}
