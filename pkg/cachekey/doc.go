// Package cachekey builds and parses the canonical cache key format used
// across every cache tier.
//
// A key has the shape:
//
//	{version}:{endpoint}?{sorted&url-encoded params}
//
// The query suffix is omitted when there are no parameters. Two logically
// equal requests (same endpoint, same parameters in any order) always
// produce byte-identical keys, which is what makes keys usable as unique
// identifiers in every backend.
//
// # Quick Start
//
//	key := cachekey.Generate("airports", map[string]string{"iata": "LAX"}, "")
//	// key == "v1:airports?iata=LAX"
//
//	parsed, err := cachekey.Parse(key)
//	// parsed.Endpoint == "airports", parsed.Params["iata"] == "LAX"
//
// # Pattern Matching
//
// [Match] implements the glob dialect shared by all storage adapters:
// '*' matches any run of characters, '?' matches exactly one character,
// and everything else (including ':', '&', '=') matches literally.
// Matching is delegated to github.com/tidwall/match so that in-process
// matching and Redis MATCH behave the same way.
package cachekey
