package ops_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skydeck/flightcache/pkg/cache"
	"github.com/skydeck/flightcache/pkg/logger"
	"github.com/skydeck/flightcache/pkg/ops"
)

func newRouter(t *testing.T, opts ...ops.Option) (http.Handler, *cache.Manager) {
	t.Helper()

	m, err := cache.New(cache.WithPruneSchedule(""))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return ops.NewRouter(m, opts...), m
}

func seed(t *testing.T, m *cache.Manager) {
	t.Helper()

	ctx := context.Background()
	data := json.RawMessage(`{"iata":"LAX","icao":"KLAX"}`)
	require.NoError(t, m.Set(ctx, "v1:airports?iata=LAX", data))
	_, err := m.Get(ctx, "v1:airports?iata=LAX")
	require.NoError(t, err)
	_, err = m.Get(ctx, "v1:airports?iata=XXX")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	router, m := newRouter(t)
	seed(t, m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.EqualValues(t, 1, stats.Hits)
	require.EqualValues(t, 1, stats.Misses)
	require.Equal(t, 1, stats.Entries)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router, m := newRouter(t)
	seed(t, m)

	t.Run("json by default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var metrics cache.Metrics
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
		require.InDelta(t, 0.5, metrics.HitRate, 1e-9)
		require.Equal(t, 1, metrics.LastHour.Hits)
		require.Equal(t, 1, metrics.LastHour.Sets)
	})

	t.Run("prometheus text on request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cache/metrics", nil)
		req.Header.Set("Accept", "text/plain")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "flightcache_lookups_total")
		require.Contains(t, rec.Body.String(), "flightcache_entries 1")
	})

	t.Run("prometheus via query param", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/metrics?format=prometheus", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "flightcache_sets_total 1")
	})
}

func TestResetEndpoint(t *testing.T) {
	t.Parallel()

	router, m := newRouter(t)
	seed(t, m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	stats := m.Stats(context.Background())
	require.Zero(t, stats.Hits)
	require.Zero(t, stats.Misses)
}

func TestPruneEndpoint(t *testing.T) {
	t.Parallel()

	router, m := newRouter(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "v1:airports?iata=LAX",
		json.RawMessage(`{"iata":"LAX"}`), cache.WithTTL(5*time.Millisecond)))
	time.Sleep(20 * time.Millisecond)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/prune", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body["pruned"])
}

func TestClearEndpoint(t *testing.T) {
	t.Parallel()

	router, m := newRouter(t)
	seed(t, m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/clear?pattern=v1:airports*", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body["removed"])
	require.Equal(t, 0, m.Stats(context.Background()).Entries)
}

func TestRouter_StampsCorrelationID(t *testing.T) {
	t.Parallel()

	var seen string
	router, _ := newRouter(t, ops.WithReadinessCheck("probe", func(ctx context.Context) error {
		seen = logger.CorrelationID(ctx)
		return nil
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, seen)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("live", func(t *testing.T) {
		t.Parallel()

		router, _ := newRouter(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ready with passing checks", func(t *testing.T) {
		t.Parallel()

		router, _ := newRouter(t, ops.WithReadinessCheck("disk", func(context.Context) error {
			return nil
		}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), ops.StatusHealthy)
	})

	t.Run("ready with failing check", func(t *testing.T) {
		t.Parallel()

		router, _ := newRouter(t, ops.WithReadinessCheck("redis", func(context.Context) error {
			return errors.New("connection refused")
		}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp struct {
			Status string                       `json:"status"`
			Checks map[string]map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, ops.StatusUnhealthy, resp.Status)
		require.Equal(t, "connection refused", resp.Checks["redis"]["error"])
	})
}
