package store

// MemoryOption configures the in-process tier.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	maxEntries int
	maxBytes   int64
}

func defaultMemoryOptions() *memoryOptions {
	return &memoryOptions{
		maxEntries: 1000,
		maxBytes:   0, // 0 = unbounded
	}
}

// WithMaxEntries caps the number of resident entries. When an insert would
// exceed the cap, least-recently-used entries are evicted first.
// Zero means unbounded. Default: 1000.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = n
	}
}

// WithMaxBytes caps the estimated resident bytes (per-entry estimates from
// entry metadata, not precise heap accounting). Zero means unbounded.
// Default: 0.
func WithMaxBytes(n int64) MemoryOption {
	return func(o *memoryOptions) {
		o.maxBytes = n
	}
}
