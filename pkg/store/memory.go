package store

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/skydeck/flightcache/pkg/cachekey"
)

// Memory is the in-process cache tier. It uses a hash map for O(1) lookups
// and a doubly-linked list for O(1) strict-LRU ordering: every Get and Set
// moves the key to the most-recently-used end, and when an insert would
// exceed capacity the least-recently-used key is evicted first, so the
// entry cap is never exceeded.
//
// Memory performs no I/O; the context parameters exist for interface
// symmetry with the other tiers.
type Memory struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List // front = most recently used
	bytes    int64
	opts     *memoryOptions
	onEvict  func(key string, entry *Entry)
}

// NewMemory creates the in-process tier.
//
//	m := store.NewMemory(
//	    store.WithMaxEntries(1000),
//	    store.WithMaxBytes(64 << 20),
//	)
func NewMemory(opts ...MemoryOption) *Memory {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Memory{
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		opts:     o,
	}
}

// SetEvictCallback registers a callback fired for every entry removed by
// LRU eviction or expiry sweeps (not by explicit Delete/Clear).
func (m *Memory) SetEvictCallback(fn func(key string, entry *Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Name implements Store.
func (m *Memory) Name() string { return "memory" }

// Available implements Store. The memory tier is always available.
func (m *Memory) Available() bool { return true }

// Get implements Store. Expired entries are returned as-is; the manager
// owns the freshness decision.
func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}

	m.eviction.MoveToFront(elem)
	entry := elem.Value.(*Entry)
	entry.Touch(time.Now())
	return entry, nil
}

// Has implements Store. Unlike Get it does not refresh recency order.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok, nil
}

// Set implements Store. Replaces any existing entry for key; when at
// capacity the LRU entry is evicted before insertion.
func (m *Memory) Set(_ context.Context, key string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		old := elem.Value.(*Entry)
		m.bytes += entry.Metadata.Size - old.Metadata.Size
		elem.Value = entry
		m.eviction.MoveToFront(elem)
		return nil
	}

	if m.opts.maxEntries > 0 {
		for len(m.items) >= m.opts.maxEntries {
			m.evictOldest()
		}
	}
	if m.opts.maxBytes > 0 {
		for m.bytes+entry.Metadata.Size > m.opts.maxBytes && m.eviction.Len() > 0 {
			m.evictOldest()
		}
	}

	m.items[key] = m.eviction.PushFront(entry)
	m.bytes += entry.Metadata.Size
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return false, nil
	}
	m.remove(elem, false)
	return true, nil
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pattern == "" {
		n := len(m.items)
		m.items = make(map[string]*list.Element)
		m.eviction.Init()
		m.bytes = 0
		return n, nil
	}

	var removed int
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if cachekey.Match(elem.Value.(*Entry).Key, pattern) {
			m.remove(elem, false)
			removed++
		}
		elem = prev
	}
	return removed, nil
}

// Keys implements Store.
func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		if pattern == "" || cachekey.Match(key, pattern) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Size implements Store.
func (m *Memory) Size(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes, nil
}

// Len implements Store.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

// PruneExpired implements Pruner: it sweeps every entry past its hard TTL.
func (m *Memory) PruneExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var removed int
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*Entry).Expired(now) {
			m.remove(elem, true)
			removed++
		}
		elem = prev
	}
	return removed, nil
}

// Close implements Store. The memory tier holds no external resources.
func (m *Memory) Close() error { return nil }

// evictOldest removes the LRU entry. Caller must hold the mutex.
func (m *Memory) evictOldest() {
	if elem := m.eviction.Back(); elem != nil {
		m.remove(elem, true)
	}
}

// remove unlinks an element. Caller must hold the mutex.
func (m *Memory) remove(elem *list.Element, evicted bool) {
	entry := elem.Value.(*Entry)
	m.eviction.Remove(elem)
	delete(m.items, entry.Key)
	m.bytes -= entry.Metadata.Size

	if evicted && m.onEvict != nil {
		m.onEvict(entry.Key, entry)
	}
}

var _ Store = (*Memory)(nil)
var _ Pruner = (*Memory)(nil)
