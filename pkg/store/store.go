package store

import (
	"context"
	"errors"
)

// Sentinel errors shared by all adapters.
var (
	// ErrNotFound is returned by Get when the key is absent. An
	// unavailable tier also reports ErrNotFound rather than failing.
	ErrNotFound = errors.New("store: entry not found")

	// ErrCorrupt marks an entry that exists but cannot be decoded.
	// Callers treat it as a miss; adapters drop the entry when they can.
	ErrCorrupt = errors.New("store: corrupt entry")
)

// Store is the uniform adapter contract implemented by every cache tier.
// Pattern arguments use the glob dialect of pkg/cachekey ('*' and '?');
// an empty pattern means "everything".
//
// Adapters never surface availability as an error: when Available reports
// false, Get answers ErrNotFound, Set is a no-op, Delete reports false,
// and Clear/Keys report zero results.
type Store interface {
	// Name identifies the tier in logs, metrics, and events.
	Name() string

	// Available reports whether the tier can serve requests right now.
	Available() bool

	// Get returns the entry for key, updating its hit accounting.
	// Expired entries are returned as-is; freshness is the caller's call.
	Get(ctx context.Context, key string) (*Entry, error)

	// Has reports whether key is present, without touching hit
	// accounting or recency order, and without checking expiry.
	Has(ctx context.Context, key string) (bool, error)

	// Set stores the entry under key, replacing any previous entry.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes key, reporting whether the tier actually held it.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every entry matching pattern and returns the count.
	Clear(ctx context.Context, pattern string) (int, error)

	// Keys lists the keys matching pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Size returns the estimated resident bytes.
	Size(ctx context.Context) (int64, error)

	// Len returns the number of resident entries.
	Len(ctx context.Context) (int, error)

	// Close releases adapter resources.
	Close() error
}

// Pruner is implemented by tiers that need an explicit expiry sweep. The
// Redis tier is exempt: its native TTL self-expires entries.
type Pruner interface {
	// PruneExpired removes entries past their hard TTL, returning the
	// number removed.
	PruneExpired(ctx context.Context) (int, error)
}
