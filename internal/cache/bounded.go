// Package cache provides small bounded maps with a clear-entirely-on-overflow
// eviction policy. Clearing on overflow discards useful entries along with
// stale ones; that only costs recomputation, never a wrong result, and keeps
// the hot path to a single map lookup. Callers wanting LRU or TTL semantics
// can wrap their own store behind the same Get/Put/Clear surface.
package cache

import "sync"

// Bounded is a mutex-guarded map that empties itself completely when an
// insert would exceed its limit. Safe for concurrent use.
type Bounded[K comparable, V any] struct {
	mu      sync.Mutex
	limit   int
	items   map[K]V
	onEvict func(K, V)
}

// NewBounded creates a bounded map holding at most limit entries. A limit
// below one is treated as one.
func NewBounded[K comparable, V any](limit int) *Bounded[K, V] {
	if limit < 1 {
		limit = 1
	}
	return &Bounded[K, V]{
		limit: limit,
		items: make(map[K]V),
	}
}

// NewBoundedWithEvict creates a bounded map that calls onEvict for every
// entry dropped by Clear or an overflow sweep. Used to release native image
// buffers held as values.
func NewBoundedWithEvict[K comparable, V any](limit int, onEvict func(K, V)) *Bounded[K, V] {
	b := NewBounded[K, V](limit)
	b.onEvict = onEvict
	return b
}

// Get returns the value stored under k.
func (b *Bounded[K, V]) Get(k K) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.items[k]
	return v, ok
}

// GetWith runs fn on the stored value while the lock is held, so a caller
// can copy out of a value that a concurrent overflow sweep might release.
func (b *Bounded[K, V]) GetWith(k K, fn func(V)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.items[k]
	if ok {
		fn(v)
	}
	return ok
}

// Put stores v under k, clearing the whole map first when it is full.
// Overwriting an existing key never triggers the sweep.
func (b *Bounded[K, V]) Put(k K, v V) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.items[k]; !exists && len(b.items) >= b.limit {
		b.clearLocked()
	}
	b.items[k] = v
}

// Clear empties the map.
func (b *Bounded[K, V]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

// Len returns the current entry count.
func (b *Bounded[K, V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Limit returns the configured capacity.
func (b *Bounded[K, V]) Limit() int {
	return b.limit
}

func (b *Bounded[K, V]) clearLocked() {
	if b.onEvict != nil {
		for k, v := range b.items {
			b.onEvict(k, v)
		}
	}
	b.items = make(map[K]V)
}
