package strategy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skydeck/flightcache/pkg/strategy"
)

func TestTableSelect(t *testing.T) {
	t.Parallel()

	table := strategy.DefaultTable()

	t.Run("endpoint families take precedence", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			endpoint string
			want     string
		}{
			{"airports", "airports"},
			{"airports/region", "airports"},
			{"states/all", "live-states"},
			{"tracks/live", "live-states"},
			{"flights/arrival", "historical"},
			{"flights/departure", "historical"},
			{"weather/metar", "weather"},
			{"reference/aircraft-types", "static-reference"},
			{"airlines", "static-reference"},
			{"totally-unknown", "default"},
		}
		for _, tt := range tests {
			got := table.Select(tt.endpoint, nil)
			require.Equal(t, tt.want, got.Name, "endpoint=%s", tt.endpoint)
		}
	})

	t.Run("endpoint match wins over payload shape", func(t *testing.T) {
		t.Parallel()

		// Airport-shaped payload under a weather endpoint resolves by
		// endpoint, not by shape.
		sample := []byte(`{"iata":"LAX","icao":"KLAX"}`)
		require.Equal(t, "weather", table.Select("weather/current", sample).Name)
	})

	t.Run("shape-based fallback for unknown endpoints", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, "live-states",
			table.Select("proxy", []byte(`{"icao24":"a808c1","callsign":"UAL123"}`)).Name)
		require.Equal(t, "airports",
			table.Select("proxy", []byte(`{"iata":"LAX","icao":"KLAX"}`)).Name)
		require.Equal(t, "historical",
			table.Select("proxy", []byte(`{"firstSeen":1700000000,"lastSeen":1700003600}`)).Name)

		// Array payloads probe their first element.
		require.Equal(t, "airports",
			table.Select("proxy", []byte(`[{"iata":"LAX","icao":"KLAX"}]`)).Name)
	})

	t.Run("default is total", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, "default", table.Select("", nil).Name)
		require.Equal(t, "default", table.Select("proxy", []byte(`{"other":1}`)).Name)
	})

	t.Run("prepended rule overrides", func(t *testing.T) {
		t.Parallel()

		custom := &strategy.Strategy{Name: "custom", DefaultTTL: time.Minute}
		tbl := strategy.DefaultTable().Prepend(func(endpoint string, _ []byte) bool {
			return endpoint == "airports"
		}, custom)
		require.Equal(t, "custom", tbl.Select("airports", nil).Name)
		require.Equal(t, "live-states", tbl.Select("states/all", nil).Name)
	})
}

func TestStrategyPredicates(t *testing.T) {
	t.Parallel()

	t.Run("never caches empty payloads", func(t *testing.T) {
		t.Parallel()

		for _, s := range []*strategy.Strategy{
			strategy.Airports, strategy.LiveStates, strategy.Historical,
			strategy.Weather, strategy.StaticReference, strategy.Default,
		} {
			require.False(t, s.ShouldCache(nil), s.Name)
			require.False(t, s.ShouldCache([]byte("null")), s.Name)
			require.False(t, s.ShouldCache([]byte("{}")), s.Name)
			require.False(t, s.ShouldCache([]byte("[]")), s.Name)
		}
	})

	t.Run("default caches any non-empty payload", func(t *testing.T) {
		t.Parallel()

		require.True(t, strategy.Default.ShouldCache([]byte(`{"anything":true}`)))
		require.True(t, strategy.Default.ShouldCache([]byte(`"scalar"`)))
	})

	t.Run("ttl ordering follows volatility", func(t *testing.T) {
		t.Parallel()

		require.Less(t, strategy.LiveStates.TTL(nil), strategy.Weather.TTL(nil))
		require.Less(t, strategy.Weather.TTL(nil), strategy.Historical.TTL(nil))
		require.Less(t, strategy.Historical.TTL(nil), strategy.StaticReference.TTL(nil))
		require.Less(t, strategy.StaticReference.TTL(nil), strategy.Airports.TTL(nil))
	})

	t.Run("revalidation threshold is below the hard ttl", func(t *testing.T) {
		t.Parallel()

		s := strategy.LiveStates
		require.False(t, s.ShouldRevalidate(10*time.Second))
		require.True(t, s.ShouldRevalidate(20*time.Second))
		require.Less(t, s.RevalidateAfter, s.DefaultTTL)

		// Families without a threshold never signal.
		require.False(t, strategy.Default.ShouldRevalidate(time.Hour))
	})

	t.Run("key uses the family version tag", func(t *testing.T) {
		t.Parallel()

		key := strategy.Airports.Key("airports", map[string]string{"iata": "LAX"})
		require.Equal(t, "v1:airports?iata=LAX", key)
	})
}
