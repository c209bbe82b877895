package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skydeck/flightcache/pkg/store"
)

func testEntry(key string, ttl time.Duration) *store.Entry {
	now := time.Now()
	data := json.RawMessage(`{"iata":"LAX","icao":"KLAX"}`)
	return &store.Entry{
		Key:  key,
		Data: data,
		Metadata: store.Metadata{
			Source:       store.SourceAPI,
			Timestamp:    now,
			ExpiresAt:    now.Add(ttl),
			Size:         int64(len(data)),
			LastAccessed: now,
		},
	}
}

func TestMemory_LRU(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("inserting past capacity evicts the least recently used", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory(store.WithMaxEntries(3))
		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, m.Set(ctx, k, testEntry(k, time.Minute)))
		}

		// Touch "a" so "b" becomes the LRU.
		_, err := m.Get(ctx, "a")
		require.NoError(t, err)

		require.NoError(t, m.Set(ctx, "d", testEntry("d", time.Minute)))

		_, err = m.Get(ctx, "b")
		require.ErrorIs(t, err, store.ErrNotFound)
		for _, k := range []string{"a", "c", "d"} {
			_, err := m.Get(ctx, k)
			require.NoError(t, err, k)
		}
	})

	t.Run("eviction happens before insertion so capacity is never exceeded", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory(store.WithMaxEntries(1000))
		for i := 0; i < 1001; i++ {
			k := fmt.Sprintf("v1:airports?id=%04d", i)
			require.NoError(t, m.Set(ctx, k, testEntry(k, time.Minute)))
		}

		n, err := m.Len(ctx)
		require.NoError(t, err)
		require.Equal(t, 1000, n)

		// The very first key, never touched again, is the one evicted.
		_, err = m.Get(ctx, "v1:airports?id=0000")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("set on an existing key refreshes recency", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory(store.WithMaxEntries(2))
		require.NoError(t, m.Set(ctx, "a", testEntry("a", time.Minute)))
		require.NoError(t, m.Set(ctx, "b", testEntry("b", time.Minute)))
		require.NoError(t, m.Set(ctx, "a", testEntry("a", time.Minute)))
		require.NoError(t, m.Set(ctx, "c", testEntry("c", time.Minute)))

		_, err := m.Get(ctx, "b")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = m.Get(ctx, "a")
		require.NoError(t, err)
	})

	t.Run("byte cap evicts until the new entry fits", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory(store.WithMaxEntries(0), store.WithMaxBytes(70))
		e1 := testEntry("a", time.Minute) // 28 bytes each
		e2 := testEntry("b", time.Minute)
		e3 := testEntry("c", time.Minute)
		require.NoError(t, m.Set(ctx, "a", e1))
		require.NoError(t, m.Set(ctx, "b", e2))
		require.NoError(t, m.Set(ctx, "c", e3))

		size, err := m.Size(ctx)
		require.NoError(t, err)
		require.LessOrEqual(t, size, int64(70))

		_, err = m.Get(ctx, "a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("evict callback fires on LRU eviction", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory(store.WithMaxEntries(1))
		var evicted []string
		m.SetEvictCallback(func(key string, _ *store.Entry) {
			evicted = append(evicted, key)
		})
		require.NoError(t, m.Set(ctx, "a", testEntry("a", time.Minute)))
		require.NoError(t, m.Set(ctx, "b", testEntry("b", time.Minute)))
		require.Equal(t, []string{"a"}, evicted)
	})
}

func TestMemory_GetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("get touches hit accounting", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "k", testEntry("k", time.Minute)))

		e, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.EqualValues(t, 1, e.Metadata.HitCount)

		e, err = m.Get(ctx, "k")
		require.NoError(t, err)
		require.EqualValues(t, 2, e.Metadata.HitCount)
	})

	t.Run("expired entries are still returned", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "k", testEntry("k", -time.Second)))

		e, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, e.Expired(time.Now()))
	})

	t.Run("has leaves hit accounting alone", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "k", testEntry("k", time.Minute)))

		ok, err := m.Has(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = m.Has(ctx, "missing")
		require.NoError(t, err)
		require.False(t, ok)

		e, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.EqualValues(t, 1, e.Metadata.HitCount)
	})
}

func TestMemory_DeleteClearPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("delete is idempotent", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "k", testEntry("k", time.Minute)))

		ok, err := m.Delete(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = m.Delete(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = m.Delete(ctx, "never-existed")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("pattern clear removes only matching keys", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		keys := []string{
			"v1:airports?iata=LAX",
			"v1:airports?iata=SFO",
			"v1:states/all",
		}
		for _, k := range keys {
			require.NoError(t, m.Set(ctx, k, testEntry(k, time.Minute)))
		}

		n, err := m.Clear(ctx, "v1:airports*")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = m.Get(ctx, "v1:states/all")
		require.NoError(t, err)
	})

	t.Run("empty pattern wipes everything", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "a", testEntry("a", time.Minute)))
		require.NoError(t, m.Set(ctx, "b", testEntry("b", time.Minute)))

		n, err := m.Clear(ctx, "")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		size, err := m.Size(ctx)
		require.NoError(t, err)
		require.Zero(t, size)
	})

	t.Run("prune removes only expired entries", func(t *testing.T) {
		t.Parallel()

		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "dead", testEntry("dead", -time.Second)))
		require.NoError(t, m.Set(ctx, "live", testEntry("live", time.Minute)))

		n, err := m.PruneExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		_, err = m.Get(ctx, "dead")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = m.Get(ctx, "live")
		require.NoError(t, err)
	})
}
