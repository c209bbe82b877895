package strategy

import (
	"bytes"
	"time"

	"github.com/skydeck/flightcache/pkg/cachekey"
)

// Strategy is a caching policy for one family of endpoints. Strategies are
// stateless; the same instance is shared by every call that resolves to it.
type Strategy struct {
	// Name identifies the policy family in logs and metrics.
	Name string

	// Version is the key policy-family tag fed into cachekey.Generate.
	Version string

	// DefaultTTL is the lifetime applied when the payload carries no
	// better signal.
	DefaultTTL time.Duration

	// StaleWindow is how long past expiry an entry may still be served
	// stale-while-revalidate. Zero disables stale serving for the family.
	StaleWindow time.Duration

	// RevalidateAfter is the age (since write) past which a fresh hit
	// should still signal background revalidation. It is distinct from
	// and shorter than the hard TTL. Zero disables the signal.
	RevalidateAfter time.Duration

	// shouldCache overrides the default cache-worthiness predicate.
	shouldCache func(data []byte) bool
}

// TTL returns the lifetime for a payload cached under this strategy.
// Payload-sensitive families can be added by extending the table; the
// stock families use their DefaultTTL.
func (s *Strategy) TTL(_ []byte) time.Duration {
	return s.DefaultTTL
}

// ShouldCache reports whether the payload is worth caching. Null, empty,
// and empty-collection payloads are never cached by any family.
func (s *Strategy) ShouldCache(data []byte) bool {
	if emptyPayload(data) {
		return false
	}
	if s.shouldCache != nil {
		return s.shouldCache(data)
	}
	return true
}

// ShouldRevalidate reports whether an entry of the given age (time since
// write) warrants a background refresh even though it is still servable.
func (s *Strategy) ShouldRevalidate(age time.Duration) bool {
	return s.RevalidateAfter > 0 && age > s.RevalidateAfter
}

// Key builds a cache key for this strategy's policy family.
func (s *Strategy) Key(endpoint string, params map[string]string) string {
	return cachekey.Generate(endpoint, params, s.Version)
}

// emptyPayload reports whether data carries nothing worth caching.
func emptyPayload(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return true
	case bytes.Equal(trimmed, []byte("null")):
		return true
	case bytes.Equal(trimmed, []byte("{}")), bytes.Equal(trimmed, []byte("[]")):
		return true
	}
	return false
}
