package store

// RedisOption configures the remote tier.
type RedisOption func(*redisOptions)

type redisOptions struct {
	namespace   string
	scanCount   int64
	deleteBatch int
}

func defaultRedisOptions() *redisOptions {
	return &redisOptions{
		namespace:   "flightcache",
		scanCount:   100,
		deleteBatch: 100,
	}
}

// WithNamespace sets the key namespace. Keys are stored as
// "{namespace}:{key}" so multiple caches can share one Redis instance.
// Default: "flightcache".
func WithNamespace(ns string) RedisOption {
	return func(o *redisOptions) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithScanCount sets the COUNT hint for incremental SCAN enumeration.
// Default: 100.
func WithScanCount(n int64) RedisOption {
	return func(o *redisOptions) {
		if n > 0 {
			o.scanCount = n
		}
	}
}

// WithDeleteBatch sets how many keys a bulk clear deletes per command.
// Default: 100.
func WithDeleteBatch(n int) RedisOption {
	return func(o *redisOptions) {
		if n > 0 {
			o.deleteBatch = n
		}
	}
}
