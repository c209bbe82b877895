package cache

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skydeck/flightcache/pkg/logger"
	"github.com/skydeck/flightcache/pkg/payload"
	"github.com/skydeck/flightcache/pkg/store"
	"github.com/skydeck/flightcache/pkg/strategy"
)

// EvictionPolicy names the memory-tier eviction behavior. Only LRU is
// implemented; the other names are reserved extension points and are
// rejected at construction.
type EvictionPolicy string

// Recognized eviction policies.
const (
	EvictLRU  EvictionPolicy = "lru"
	EvictLFU  EvictionPolicy = "lfu"
	EvictFIFO EvictionPolicy = "fifo"
	EvictTTL  EvictionPolicy = "ttl"
)

// DefaultPruneSchedule is the cron spec for the periodic expiry sweep.
const DefaultPruneSchedule = "@every 5m"

// Option configures the Manager at construction.
type Option func(*managerOptions)

type managerOptions struct {
	defaultTTL           time.Duration
	maxEntries           int
	maxSize              int64
	compression          bool
	compressionThreshold int64
	persistDir           string
	prefetch             bool
	evictionPolicy       EvictionPolicy
	pruneSchedule        string
	namespace            string
	remote               redis.UniversalClient
	strategies           *strategy.Table
	log                  *slog.Logger
}

func defaultManagerOptions() *managerOptions {
	return &managerOptions{
		defaultTTL:           5 * time.Minute,
		maxEntries:           1000,
		maxSize:              0,
		compression:          true,
		compressionThreshold: payload.DefaultThreshold,
		prefetch:             true,
		evictionPolicy:       EvictLRU,
		pruneSchedule:        DefaultPruneSchedule,
		namespace:            "flightcache",
		strategies:           strategy.DefaultTable(),
		log:                  logger.NewNope(),
	}
}

// WithDefaultTTL sets the fallback TTL used when neither the caller nor
// the selected strategy provides one. Default: 5 minutes.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *managerOptions) {
		if d > 0 {
			o.defaultTTL = d
		}
	}
}

// WithMaxEntries caps the memory tier's entry count. Default: 1000.
func WithMaxEntries(n int) Option {
	return func(o *managerOptions) {
		o.maxEntries = n
	}
}

// WithMaxSize caps the memory tier's estimated resident bytes.
// Zero means unbounded. Default: 0.
func WithMaxSize(n int64) Option {
	return func(o *managerOptions) {
		o.maxSize = n
	}
}

// WithCompression toggles durable-tier payload compression.
// Default: enabled.
func WithCompression(enabled bool) Option {
	return func(o *managerOptions) {
		o.compression = enabled
	}
}

// WithCompressionThreshold sets the payload size in bytes above which the
// durable tier compresses. Default: payload.DefaultThreshold.
func WithCompressionThreshold(n int64) Option {
	return func(o *managerOptions) {
		o.compressionThreshold = n
	}
}

// WithPersistence enables the durable on-disk tier rooted at dir.
// Persistence is disabled when no directory is configured.
func WithPersistence(dir string) Option {
	return func(o *managerOptions) {
		o.persistDir = dir
	}
}

// WithPrefetch toggles warmup support. When disabled, Warmup is a no-op.
// Default: enabled.
func WithPrefetch(enabled bool) Option {
	return func(o *managerOptions) {
		o.prefetch = enabled
	}
}

// WithEvictionPolicy selects the memory eviction policy. Only EvictLRU is
// implemented; anything else fails construction. Default: EvictLRU.
func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(o *managerOptions) {
		o.evictionPolicy = p
	}
}

// WithPruneSchedule sets the cron spec for the periodic expiry sweep.
// An empty spec disables the timer (Prune can still be called manually).
// Default: DefaultPruneSchedule.
func WithPruneSchedule(spec string) Option {
	return func(o *managerOptions) {
		o.pruneSchedule = spec
	}
}

// WithRemote enables the remote shared tier on an established client
// (see pkg/redisconn). A nil client leaves the tier disabled.
func WithRemote(client redis.UniversalClient) Option {
	return func(o *managerOptions) {
		o.remote = client
	}
}

// WithNamespace sets the remote tier's key namespace.
// Default: "flightcache".
func WithNamespace(ns string) Option {
	return func(o *managerOptions) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithStrategyTable replaces the stock strategy selection table.
func WithStrategyTable(t *strategy.Table) Option {
	return func(o *managerOptions) {
		if t != nil {
			o.strategies = t
		}
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *managerOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// CallOption tunes a single Get or Set. Options that do not apply to the
// operation at hand are ignored.
type CallOption func(*callOptions)

type callOptions struct {
	ttl         time.Duration
	staleWindow time.Duration
	persist     bool
	source      store.Source
	etag        string
}

func defaultCallOptions() callOptions {
	return callOptions{persist: true, source: store.SourceAPI}
}

// WithTTL overrides the strategy-derived TTL for one Set.
func WithTTL(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.ttl = d
	}
}

// WithStaleWhileRevalidate lets one Get serve an entry that expired up to
// window ago, marking it a stale hit and signaling revalidation.
func WithStaleWhileRevalidate(window time.Duration) CallOption {
	return func(o *callOptions) {
		o.staleWindow = window
	}
}

// WithoutDurable skips the durable tier for one Get or Set.
func WithoutDurable() CallOption {
	return func(o *callOptions) {
		o.persist = false
	}
}

// WithSource tags one Set's entry with its payload origin.
// Default: store.SourceAPI.
func WithSource(src store.Source) CallOption {
	return func(o *callOptions) {
		o.source = src
	}
}

// WithETag attaches an upstream ETag to one Set's entry.
func WithETag(etag string) CallOption {
	return func(o *callOptions) {
		o.etag = etag
	}
}
