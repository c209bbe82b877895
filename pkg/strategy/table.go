package strategy

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Stock strategies, one per data family. TTLs follow the volatility of the
// underlying data: reference data changes over days, live positional data
// over seconds, historical records never (but upstream corrections land
// within hours).
var (
	// Airports covers airport/airfield reference lookups.
	Airports = &Strategy{
		Name:            "airports",
		Version:         "v1",
		DefaultTTL:      7 * 24 * time.Hour,
		StaleWindow:     24 * time.Hour,
		RevalidateAfter: 3 * 24 * time.Hour,
	}

	// LiveStates covers live aircraft state vectors and positions.
	LiveStates = &Strategy{
		Name:            "live-states",
		Version:         "v1",
		DefaultTTL:      30 * time.Second,
		StaleWindow:     30 * time.Second,
		RevalidateAfter: 15 * time.Second,
	}

	// Historical covers arrival/departure history, which is immutable
	// once settled but receives upstream corrections for a while.
	Historical = &Strategy{
		Name:            "historical",
		Version:         "v1",
		DefaultTTL:      time.Hour,
		StaleWindow:     6 * time.Hour,
		RevalidateAfter: 45 * time.Minute,
	}

	// Weather covers METAR/TAF style observations.
	Weather = &Strategy{
		Name:            "weather",
		Version:         "v1",
		DefaultTTL:      10 * time.Minute,
		StaleWindow:     20 * time.Minute,
		RevalidateAfter: 5 * time.Minute,
	}

	// StaticReference covers aircraft type, airline, and route reference
	// tables shipped with the upstream APIs.
	StaticReference = &Strategy{
		Name:        "static-reference",
		Version:     "v1",
		DefaultTTL:  24 * time.Hour,
		StaleWindow: 24 * time.Hour,
	}

	// Default is the fallback for anything unrecognized. It caches any
	// non-empty payload for a conservative five minutes.
	Default = &Strategy{
		Name:        "default",
		Version:     "v1",
		DefaultTTL:  5 * time.Minute,
		StaleWindow: 5 * time.Minute,
	}
)

// rule pairs a predicate with the strategy it selects.
type rule struct {
	matches  func(endpoint string, sample []byte) bool
	strategy *Strategy
}

// Table is an ordered strategy selection table. First match wins.
type Table struct {
	rules []rule
}

// endpointContains builds a predicate matching any of the given substrings
// against the lower-cased endpoint.
func endpointContains(substrings ...string) func(string, []byte) bool {
	return func(endpoint string, _ []byte) bool {
		endpoint = strings.ToLower(endpoint)
		for _, s := range substrings {
			if strings.Contains(endpoint, s) {
				return true
			}
		}
		return false
	}
}

// payloadHasAll builds a predicate that probes the sample payload for the
// given fields. For array payloads the first element is probed.
func payloadHasAll(fields ...string) func(string, []byte) bool {
	return func(_ string, sample []byte) bool {
		if len(sample) == 0 {
			return false
		}
		probe := gjson.ParseBytes(sample)
		if probe.IsArray() {
			arr := probe.Array()
			if len(arr) == 0 {
				return false
			}
			probe = arr[0]
		}
		for _, f := range fields {
			if !probe.Get(f).Exists() {
				return false
			}
		}
		return true
	}
}

// DefaultTable returns the stock selection table. Order is load-bearing:
// explicit endpoint families first, then payload-shape fallbacks, then the
// catch-all default.
func DefaultTable() *Table {
	return &Table{rules: []rule{
		{endpointContains("airport"), Airports},
		{endpointContains("states", "positions", "live"), LiveStates},
		{endpointContains("arrival", "departure", "history"), Historical},
		{endpointContains("weather", "metar", "taf"), Weather},
		{endpointContains("static", "reference", "aircraft", "airline"), StaticReference},
		{payloadHasAll("icao24", "callsign"), LiveStates},
		{payloadHasAll("iata", "icao"), Airports},
		{payloadHasAll("firstSeen", "lastSeen"), Historical},
		{func(string, []byte) bool { return true }, Default},
	}}
}

// Select resolves the strategy for an endpoint, optionally consulting a
// sample payload for shape-based fallback. Selection is a pure function of
// its inputs and always resolves (the last rule matches everything).
func (t *Table) Select(endpoint string, sample []byte) *Strategy {
	for _, r := range t.rules {
		if r.matches(endpoint, sample) {
			return r.strategy
		}
	}
	return Default // unreachable with the stock table, kept for custom tables
}

// Prepend inserts a custom rule ahead of all existing rules, letting
// callers override selection for specific endpoints.
func (t *Table) Prepend(matches func(endpoint string, sample []byte) bool, s *Strategy) *Table {
	t.rules = append([]rule{{matches: matches, strategy: s}}, t.rules...)
	return t
}
