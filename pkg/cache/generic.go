package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Get retrieves a cached payload and decodes it into T.
func Get[T any](ctx context.Context, m *Manager, key string, opts ...CallOption) (T, error) {
	var zero T

	raw, err := m.Get(ctx, key, opts...)
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return v, nil
}

// Set encodes v as JSON and writes it through the cache.
func Set[T any](ctx context.Context, m *Manager, key string, v T, opts ...CallOption) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return m.Set(ctx, key, raw, opts...)
}

// GetOrSet returns the cached value for key, or fetches, caches, and
// returns it on a miss. Concurrent misses for the same key are collapsed
// into a single fetch; the other callers share its result. Fetched values
// the strategy refuses to cache are still returned to the caller.
func GetOrSet[T any](ctx context.Context, m *Manager, key string, fetch func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	var zero T

	if v, err := Get[T](ctx, m, key, opts...); err == nil {
		return v, nil
	}

	res, err, _ := m.group.Do(key, func() (any, error) {
		// Re-check: another flight may have filled the key while this
		// caller waited for the group slot.
		if v, err := Get[T](ctx, m, key, opts...); err == nil {
			return v, nil
		}

		v, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		if err := Set(ctx, m, key, v, opts...); err != nil && !errors.Is(err, ErrNotCacheable) {
			return zero, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
