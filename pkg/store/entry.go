package store

import (
	"encoding/json"
	"time"
)

// Source records where a cached payload originated.
type Source string

// Known payload sources.
const (
	SourceServer   Source = "server"
	SourceAPI      Source = "api"
	SourceCache    Source = "cache"
	SourcePrefetch Source = "prefetch"
)

// Metadata describes a cached entry. Timestamp, ExpiresAt, ETag, Version,
// Size, and Source are immutable once written; HitCount and LastAccessed
// are updated in place on every successful read by the owning adapter.
// Invariant: ExpiresAt >= Timestamp.
type Metadata struct {
	Source       Source    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
	ExpiresAt    time.Time `json:"expires_at"`
	ETag         string    `json:"etag,omitempty"`
	Version      string    `json:"version,omitempty"`
	Size         int64     `json:"size,omitempty"`
	HitCount     int64     `json:"hit_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Entry is one cached payload plus its metadata. Data is kept as raw JSON
// so heterogeneous endpoint payloads share the same cache.
type Entry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
}

// Expired reports whether the entry is past its hard TTL at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.Metadata.ExpiresAt)
}

// ServableStale reports whether an expired entry is still within the given
// stale-while-revalidate window.
func (e *Entry) ServableStale(now time.Time, window time.Duration) bool {
	return window > 0 && now.Before(e.Metadata.ExpiresAt.Add(window))
}

// Age returns the time elapsed since the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Metadata.Timestamp)
}

// RemainingTTL returns how long until the entry expires. Negative results
// mean the entry is already expired.
func (e *Entry) RemainingTTL(now time.Time) time.Duration {
	return e.Metadata.ExpiresAt.Sub(now)
}

// Touch records a successful read.
func (e *Entry) Touch(now time.Time) {
	e.Metadata.HitCount++
	e.Metadata.LastAccessed = now
}
