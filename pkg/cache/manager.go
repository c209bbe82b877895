package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/skydeck/flightcache/pkg/cachekey"
	"github.com/skydeck/flightcache/pkg/logger"
	"github.com/skydeck/flightcache/pkg/payload"
	"github.com/skydeck/flightcache/pkg/store"
	"github.com/skydeck/flightcache/pkg/strategy"
)

// Manager is the tiered cache facade. All reads and writes go through it;
// the tier adapters are never exposed directly.
type Manager struct {
	opts       *managerOptions
	log        *slog.Logger
	memory     *store.Memory
	remote     *store.Redis
	disk       *store.Disk
	tiers      []store.Store
	strategies *strategy.Table
	collector  *Collector
	events     *eventBus
	cron       *cron.Cron
	group      singleflight.Group
	closed     atomic.Bool
}

// New builds a manager from the given options. The memory tier always
// exists; the remote tier requires WithRemote and the durable tier
// requires WithPersistence.
func New(opts ...Option) (*Manager, error) {
	o := defaultManagerOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.evictionPolicy != EvictLRU {
		return nil, errors.Join(ErrUnsupportedEvictionPolicy,
			errors.New(string(o.evictionPolicy)))
	}

	m := &Manager{
		opts:       o,
		log:        o.log,
		strategies: o.strategies,
		collector:  NewCollector(),
		events:     newEventBus(),
	}

	m.memory = store.NewMemory(
		store.WithMaxEntries(o.maxEntries),
		store.WithMaxBytes(o.maxSize),
	)
	m.memory.SetEvictCallback(func(key string, _ *store.Entry) {
		m.events.emit(Event{Type: EventEvict, Key: key, Tier: m.memory.Name(), At: time.Now()})
	})
	m.tiers = []store.Store{m.memory}

	if o.remote != nil {
		m.remote = store.NewRedis(o.remote, store.WithNamespace(o.namespace))
		m.tiers = append(m.tiers, m.remote)
	}

	if o.persistDir != "" {
		disk, err := store.NewDisk(o.persistDir,
			store.WithDiskLogger(o.log),
			store.WithDiskCompression(o.compression),
			store.WithDiskCompressionThreshold(o.compressionThreshold),
		)
		if err != nil {
			return nil, err
		}
		m.disk = disk
		m.tiers = append(m.tiers, m.disk)
	}

	if o.pruneSchedule != "" {
		m.cron = cron.New()
		_, err := m.cron.AddFunc(o.pruneSchedule, func() {
			ctx := logger.ContextWithCorrelationID(context.Background())
			if n, err := m.Prune(ctx); err != nil {
				m.log.ErrorContext(ctx, "scheduled prune failed", slog.String("error", err.Error()))
			} else if n > 0 {
				m.log.InfoContext(ctx, "scheduled prune complete", slog.Int("removed", n))
			}
		})
		if err != nil {
			return nil, errors.Join(ErrInvalidPruneSchedule, err)
		}
		m.cron.Start()
	}

	return m, nil
}

// On registers a handler for a cache lifecycle event type.
func (m *Manager) On(t EventType, h Handler) {
	m.events.on(t, h)
}

// Key builds the cache key for an endpoint/params pair under the policy
// family the strategy table selects for that endpoint.
func (m *Manager) Key(endpoint string, params map[string]string) string {
	return m.strategies.Select(endpoint, nil).Key(endpoint, params)
}

// Get returns the cached payload for key, scanning memory, then remote,
// then disk, and promoting hits into the faster tiers. Entries past their
// TTL are served only within a WithStaleWhileRevalidate window; otherwise
// they are purged from every tier and the call reports ErrNotFound.
func (m *Manager) Get(ctx context.Context, key string, opts ...CallOption) (json.RawMessage, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() { m.collector.observeGet(time.Since(start)) }()

	co := defaultCallOptions()
	for _, opt := range opts {
		opt(&co)
	}

	for i, tier := range m.tiers {
		if tier == m.disk && !co.persist {
			continue
		}
		if !tier.Available() {
			continue
		}

		entry, err := tier.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrCorrupt) {
				continue
			}
			m.fault(ctx, key, tier.Name(), "get", err)
			continue
		}

		now := time.Now()
		switch {
		case !entry.Expired(now):
			m.promote(ctx, key, entry, i)
			m.collector.recordHit()
			m.events.emit(Event{Type: EventHit, Key: key, Tier: tier.Name(), At: now})
			m.log.DebugContext(ctx, "cache hit",
				slog.String("key", key), slog.String("tier", tier.Name()))
			if m.strategyFor(key, entry.Data).ShouldRevalidate(entry.Age(now)) {
				m.signalRevalidate(key, tier.Name())
			}
			return entry.Data, nil

		case entry.ServableStale(now, co.staleWindow):
			// Stale data is served but never promoted; the revalidation
			// that follows will replace it in every tier.
			m.collector.recordStaleHit()
			m.events.emit(Event{Type: EventStaleHit, Key: key, Tier: tier.Name(), At: now})
			m.log.DebugContext(ctx, "cache stale hit",
				slog.String("key", key), slog.String("tier", tier.Name()),
				slog.Duration("past_expiry", now.Sub(entry.Metadata.ExpiresAt)))
			m.signalRevalidate(key, tier.Name())
			return entry.Data, nil

		default:
			m.purge(ctx, key)
			m.collector.recordMiss()
			m.events.emit(Event{Type: EventMiss, Key: key, Tier: tier.Name(), At: now})
			return nil, ErrNotFound
		}
	}

	m.collector.recordMiss()
	m.events.emit(Event{Type: EventMiss, Key: key, At: time.Now()})
	return nil, ErrNotFound
}

// Set writes the payload through every available tier. The memory write
// is the contract: its failure fails the call, while remote and durable
// failures are logged and counted but tolerated. Payloads the selected
// strategy deems not worth caching return ErrNotCacheable.
func (m *Manager) Set(ctx context.Context, key string, data json.RawMessage, opts ...CallOption) error {
	if m.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	defer func() { m.collector.observeSet(time.Since(start)) }()

	co := defaultCallOptions()
	for _, opt := range opts {
		opt(&co)
	}

	strat := m.strategyFor(key, data)
	if !strat.ShouldCache(data) {
		m.log.DebugContext(ctx, "payload not cacheable",
			slog.String("key", key), slog.String("strategy", strat.Name))
		return ErrNotCacheable
	}

	ttl := co.ttl
	if ttl <= 0 {
		ttl = strat.TTL(data)
	}
	if ttl <= 0 {
		ttl = m.opts.defaultTTL
	}

	now := time.Now()
	entry := &store.Entry{
		Key:  key,
		Data: data,
		Metadata: store.Metadata{
			Source:       co.source,
			Timestamp:    now,
			ExpiresAt:    now.Add(ttl),
			ETag:         co.etag,
			Version:      strat.Version,
			Size:         payload.EstimateSize(data),
			LastAccessed: now,
		},
	}

	if err := m.memory.Set(ctx, key, entry); err != nil {
		m.fault(ctx, key, m.memory.Name(), "set", err)
		return err
	}
	if m.remote != nil {
		if err := m.remote.Set(ctx, key, entry); err != nil {
			m.fault(ctx, key, m.remote.Name(), "set", err)
		}
	}
	if m.disk != nil && co.persist {
		if err := m.disk.Set(ctx, key, entry); err != nil {
			m.fault(ctx, key, m.disk.Name(), "set", err)
		}
	}

	m.collector.recordSet()
	m.events.emit(Event{Type: EventSet, Key: key, At: now})
	m.log.DebugContext(ctx, "cache set",
		slog.String("key", key), slog.String("strategy", strat.Name),
		slog.Duration("ttl", ttl))
	return nil
}

// Delete removes key from every tier, reporting whether any tier held it.
func (m *Manager) Delete(ctx context.Context, key string) (bool, error) {
	if m.closed.Load() {
		return false, ErrClosed
	}

	var found bool
	for _, tier := range m.tiers {
		ok, err := tier.Delete(ctx, key)
		if err != nil {
			m.fault(ctx, key, tier.Name(), "delete", err)
			continue
		}
		found = found || ok
	}
	if found {
		m.events.emit(Event{Type: EventDelete, Key: key, At: time.Now()})
	}
	return found, nil
}

// Clear removes every entry matching pattern from every tier, returning
// deletions summed across tiers. An empty pattern clears everything. A
// key resident in several tiers counts once per tier that held it.
func (m *Manager) Clear(ctx context.Context, pattern string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	var removed int
	for _, tier := range m.tiers {
		n, err := tier.Clear(ctx, pattern)
		if err != nil {
			m.fault(ctx, "", tier.Name(), "clear", err)
			continue
		}
		removed += n
	}

	m.log.InfoContext(ctx, "cache cleared",
		slog.String("pattern", pattern), slog.Int("removed", removed))
	return removed, nil
}

// Has reports whether any tier holds key. Presence does not imply
// freshness: an expired entry still counts until purged.
func (m *Manager) Has(ctx context.Context, key string) (bool, error) {
	if m.closed.Load() {
		return false, ErrClosed
	}

	for _, tier := range m.tiers {
		ok, err := tier.Has(ctx, key)
		if err != nil {
			m.fault(ctx, key, tier.Name(), "has", err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Keys lists the distinct keys matching pattern across every tier.
func (m *Manager) Keys(ctx context.Context, pattern string) ([]string, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, tier := range m.tiers {
		tierKeys, err := tier.Keys(ctx, pattern)
		if err != nil {
			m.fault(ctx, "", tier.Name(), "keys", err)
			continue
		}
		for _, k := range tierKeys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Warmup loads keys from the slower tiers into memory so the first real
// lookups land warm. Keys absent everywhere or already expired are
// skipped; nothing is fetched from an origin. Warmup is a no-op when
// prefetch is disabled. It returns the number of entries loaded.
func (m *Manager) Warmup(ctx context.Context, keys []string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if !m.opts.prefetch {
		return 0, nil
	}

	var loaded int
	for _, key := range keys {
		if ok, err := m.memory.Has(ctx, key); err == nil && ok {
			continue
		}

		for _, tier := range m.tiers[1:] {
			if !tier.Available() {
				continue
			}
			entry, err := tier.Get(ctx, key)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrCorrupt) {
					m.fault(ctx, key, tier.Name(), "warmup", err)
				}
				continue
			}
			if entry.Expired(time.Now()) {
				continue
			}
			if err := m.memory.Set(ctx, key, entry); err != nil {
				m.fault(ctx, key, m.memory.Name(), "warmup", err)
				break
			}
			loaded++
			break
		}
	}
	m.log.InfoContext(ctx, "cache warmup complete",
		slog.Int("requested", len(keys)), slog.Int("loaded", loaded))
	return loaded, nil
}

// Prune sweeps expired entries from every tier that needs an explicit
// sweep. The remote tier self-expires and is skipped.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	var removed int
	for _, tier := range m.tiers {
		pruner, ok := tier.(store.Pruner)
		if !ok {
			continue
		}
		n, err := pruner.PruneExpired(ctx)
		if err != nil {
			m.fault(ctx, "", tier.Name(), "prune", err)
			continue
		}
		removed += n
	}
	return removed, nil
}

// Stats returns the aggregate counters plus current size/entry totals.
// Entries are summed per tier, so a key resident in several tiers is
// counted in each.
func (m *Manager) Stats(ctx context.Context) Stats {
	s := m.collector.Stats()
	s.Size, s.Entries = m.capacity(ctx)
	return s
}

// Metrics returns the derived observability snapshot.
func (m *Manager) Metrics(ctx context.Context) Metrics {
	snap := m.collector.Snapshot()
	snap.TotalSize, snap.EntryCount = m.capacity(ctx)
	return snap
}

// ResetStats zeroes counters, latency rings, and the hourly window.
// Cached entries are untouched.
func (m *Manager) ResetStats() {
	m.collector.Reset()
}

// Close stops the prune scheduler and closes every tier. The manager
// rejects further operations with ErrClosed.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if m.cron != nil {
		m.cron.Stop()
	}

	var errs []error
	for _, tier := range m.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// promote copies a fresh hit into every tier faster than the one it was
// found in. Promotion failures only degrade future lookup latency, so
// they are logged and swallowed.
func (m *Manager) promote(ctx context.Context, key string, entry *store.Entry, foundAt int) {
	for _, tier := range m.tiers[:foundAt] {
		if !tier.Available() {
			continue
		}
		if err := tier.Set(ctx, key, entry); err != nil {
			m.log.WarnContext(ctx, "cache promotion failed",
				slog.String("key", key), slog.String("tier", tier.Name()),
				slog.String("error", err.Error()))
		}
	}
}

// purge drops a hard-expired key from every tier.
func (m *Manager) purge(ctx context.Context, key string) {
	for _, tier := range m.tiers {
		if _, err := tier.Delete(ctx, key); err != nil {
			m.log.WarnContext(ctx, "cache purge failed",
				slog.String("key", key), slog.String("tier", tier.Name()),
				slog.String("error", err.Error()))
		}
	}
}

// signalRevalidate delivers the revalidate event asynchronously so slow
// handlers never sit on the read path.
func (m *Manager) signalRevalidate(key, tier string) {
	go m.events.emit(Event{Type: EventRevalidate, Key: key, Tier: tier, At: time.Now()})
}

// strategyFor resolves the policy family for a key, using the endpoint
// recovered from the key when it parses and the raw key otherwise.
func (m *Manager) strategyFor(key string, sample []byte) *strategy.Strategy {
	endpoint := key
	if parsed, err := cachekey.Parse(key); err == nil {
		endpoint = parsed.Endpoint
	}
	return m.strategies.Select(endpoint, sample)
}

// capacity sums size and entry counts across the tiers.
func (m *Manager) capacity(ctx context.Context) (int64, int) {
	var (
		size    int64
		entries int
	)
	for _, tier := range m.tiers {
		if !tier.Available() {
			continue
		}
		if n, err := tier.Size(ctx); err == nil {
			size += n
		}
		if n, err := tier.Len(ctx); err == nil {
			entries += n
		}
	}
	return size, entries
}

// fault records and reports a tier failure without failing the operation.
func (m *Manager) fault(ctx context.Context, key, tier, op string, err error) {
	m.collector.recordError()
	m.events.emit(Event{Type: EventError, Key: key, Tier: tier, Err: err, At: time.Now()})
	m.log.ErrorContext(ctx, "cache tier fault",
		slog.String("op", op), slog.String("key", key),
		slog.String("tier", tier), slog.String("error", err.Error()))
}
