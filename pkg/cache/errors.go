package cache

import "errors"

// Package sentinel errors.
var (
	// ErrNotFound is returned by Get when no tier holds a servable entry.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrClosed is returned by operations on a closed manager.
	ErrClosed = errors.New("cache: manager closed")

	// ErrUnsupportedEvictionPolicy is returned by New when the configured
	// eviction policy is not implemented.
	ErrUnsupportedEvictionPolicy = errors.New("cache: unsupported eviction policy")

	// ErrInvalidPruneSchedule is returned by New when the prune cron spec
	// does not parse.
	ErrInvalidPruneSchedule = errors.New("cache: invalid prune schedule")

	// ErrNotCacheable is returned by Set for payloads the selected
	// strategy refuses to cache (empty, null, or empty collections).
	ErrNotCacheable = errors.New("cache: payload not cacheable")
)
