package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skydeck/flightcache/pkg/store"
)

func TestDisk_Persistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("entries survive reopen", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)

		entry := testEntry("v1:airports?iata=LAX", time.Hour)
		require.NoError(t, d.Set(ctx, entry.Key, entry))
		require.NoError(t, d.Close())

		reopened, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Get(ctx, entry.Key)
		require.NoError(t, err)
		require.JSONEq(t, string(entry.Data), string(got.Data))
		require.Equal(t, entry.Metadata.ETag, got.Metadata.ETag)
	})

	t.Run("index is rebuilt from envelopes when missing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		entry := testEntry("v1:states/all", time.Hour)
		require.NoError(t, d.Set(ctx, entry.Key, entry))
		require.NoError(t, d.Close())

		require.NoError(t, os.Remove(filepath.Join(dir, "index.json")))

		reopened, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Get(ctx, entry.Key)
		require.NoError(t, err)
		require.JSONEq(t, string(entry.Data), string(got.Data))
	})
}

func TestDisk_Compression(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("large payloads are stored compressed and read back transparently", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir, store.WithDiskCompressionThreshold(128))
		require.NoError(t, err)
		defer d.Close()

		big := append([]byte(`{"states":"`), bytes.Repeat([]byte("a808c1 UAL123 "), 200)...)
		big = append(big, '"', '}')
		entry := testEntry("v1:states/all", time.Hour)
		entry.Data = big

		require.NoError(t, d.Set(ctx, entry.Key, entry))

		// The envelope on disk must carry the compressed flag and not the
		// raw payload.
		files, err := filepath.Glob(filepath.Join(dir, "*.cache"))
		require.NoError(t, err)
		require.Len(t, files, 1)
		raw, err := os.ReadFile(files[0])
		require.NoError(t, err)
		var env struct {
			Compressed bool            `json:"compressed"`
			Data       json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		require.True(t, env.Compressed)
		require.Empty(t, env.Data)
		require.Less(t, len(raw), len(big))

		got, err := d.Get(ctx, entry.Key)
		require.NoError(t, err)
		require.Equal(t, []byte(big), []byte(got.Data))
	})

	t.Run("small payloads stay uncompressed", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer d.Close()

		entry := testEntry("v1:airports?iata=LAX", time.Hour)
		require.NoError(t, d.Set(ctx, entry.Key, entry))

		got, err := d.Get(ctx, entry.Key)
		require.NoError(t, err)
		require.JSONEq(t, string(entry.Data), string(got.Data))
	})
}

func TestDisk_SanitizationCollisions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	d, err := store.NewDisk(dir)
	require.NoError(t, err)
	defer d.Close()

	// Both keys sanitize to the same characters; they must still live in
	// separate envelopes and read back their own payloads.
	first := testEntry("v1:states/all", time.Hour)
	first.Data = []byte(`{"tier":"slash"}`)
	second := testEntry("v1:states:all", time.Hour)
	second.Data = []byte(`{"tier":"colon"}`)

	require.NoError(t, d.Set(ctx, first.Key, first))
	require.NoError(t, d.Set(ctx, second.Key, second))

	files, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	got, err := d.Get(ctx, first.Key)
	require.NoError(t, err)
	require.JSONEq(t, `{"tier":"slash"}`, string(got.Data))

	got, err = d.Get(ctx, second.Key)
	require.NoError(t, err)
	require.JSONEq(t, `{"tier":"colon"}`, string(got.Data))
}

func TestDisk_CorruptEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	d, err := store.NewDisk(dir)
	require.NoError(t, err)
	defer d.Close()

	entry := testEntry("v1:airports?iata=LAX", time.Hour)
	require.NoError(t, d.Set(ctx, entry.Key, entry))

	// Corrupt the envelope on disk.
	files, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NoError(t, os.WriteFile(files[0], []byte("not json"), 0o600))

	_, err = d.Get(ctx, entry.Key)
	require.ErrorIs(t, err, store.ErrCorrupt)

	// The corrupt entry is dropped: subsequent reads are plain misses.
	_, err = d.Get(ctx, entry.Key)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDisk_ClearKeysPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("pattern clear deletes matching envelopes individually", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer d.Close()

		for _, k := range []string{"v1:airports?iata=LAX", "v1:airports?iata=SFO", "v1:weather/metar?icao=KLAX"} {
			require.NoError(t, d.Set(ctx, k, testEntry(k, time.Hour)))
		}

		n, err := d.Clear(ctx, "v1:airports*")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		keys, err := d.Keys(ctx, "")
		require.NoError(t, err)
		require.Equal(t, []string{"v1:weather/metar?icao=KLAX"}, keys)
	})

	t.Run("prune removes expired entries via the index", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer d.Close()

		require.NoError(t, d.Set(ctx, "dead", testEntry("dead", -time.Second)))
		require.NoError(t, d.Set(ctx, "live", testEntry("live", time.Hour)))

		n, err := d.PruneExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		_, err = d.Get(ctx, "dead")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = d.Get(ctx, "live")
		require.NoError(t, err)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer d.Close()

		require.NoError(t, d.Set(ctx, "k", testEntry("k", time.Hour)))

		ok, err := d.Delete(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = d.Delete(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("has reads the index only", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer d.Close()

		require.NoError(t, d.Set(ctx, "k", testEntry("k", time.Hour)))

		ok, err := d.Has(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = d.Has(ctx, "missing")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("size reflects stored envelopes", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		d, err := store.NewDisk(dir)
		require.NoError(t, err)
		defer d.Close()

		size, err := d.Size(ctx)
		require.NoError(t, err)
		require.Zero(t, size)

		require.NoError(t, d.Set(ctx, "k", testEntry("k", time.Hour)))

		size, err = d.Size(ctx)
		require.NoError(t, err)
		require.Positive(t, size)
	})
}
