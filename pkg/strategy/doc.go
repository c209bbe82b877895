// Package strategy maps endpoints and payload shapes to named caching
// policies: how long an entry lives, whether a payload is worth caching at
// all, and when a still-servable entry should trigger background
// revalidation.
//
// Policies are data, not code paths: selection walks an explicit ordered
// table of (predicate, strategy) pairs, so precedence is auditable and
// testable in isolation. The fixed order is:
//
//  1. endpoint substring match for the known data families (airports,
//     live flight states, historical arrivals/departures, weather,
//     static reference data)
//  2. payload-shape probes for the same families (field sniffing via
//     github.com/tidwall/gjson)
//  3. the generic default
//
// The default rule always matches, so Select is total: every endpoint
// resolves to exactly one strategy, never zero.
//
//	s := strategy.DefaultTable().Select("airports", nil)
//	// s.Name == "airports", s.TTL(payload) == 7 days
package strategy
