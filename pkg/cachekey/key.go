package cachekey

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/match"
)

// DefaultVersion is the policy-family tag applied when none is given.
const DefaultVersion = "v1"

// Sentinel errors for key parsing.
var (
	// ErrMalformedKey is returned by Parse for keys that were not produced
	// by Generate (missing version tag or endpoint).
	ErrMalformedKey = errors.New("cachekey: malformed key")
)

// Key is the parsed form of a cache key.
type Key struct {
	Version  string
	Endpoint string
	Params   map[string]string
}

// Generate builds a deterministic cache key from an endpoint name and its
// query parameters. Parameters with empty values are treated as absent and
// filtered out; the remaining parameters are sorted lexicographically by
// name and URL-encoded, so every permutation of the same parameter set
// yields the same key. An empty version defaults to [DefaultVersion].
func Generate(endpoint string, params map[string]string, version string) string {
	if version == "" {
		version = DefaultVersion
	}

	var sb strings.Builder
	sb.WriteString(version)
	sb.WriteByte(':')
	sb.WriteString(endpoint)

	names := make([]string, 0, len(params))
	for name, value := range params {
		if name == "" || value == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return sb.String()
	}
	sort.Strings(names)

	sb.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[name]))
	}

	return sb.String()
}

// Parse is the left inverse of Generate: for any key produced by Generate,
// Parse recovers the version, endpoint, and parameters (values as strings).
func Parse(key string) (Key, error) {
	version, rest, ok := strings.Cut(key, ":")
	if !ok || version == "" {
		return Key{}, ErrMalformedKey
	}

	endpoint, query, _ := strings.Cut(rest, "?")
	if endpoint == "" {
		return Key{}, ErrMalformedKey
	}

	parsed := Key{
		Version:  version,
		Endpoint: endpoint,
		Params:   map[string]string{},
	}

	if query == "" {
		return parsed, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Key{}, errors.Join(ErrMalformedKey, err)
	}
	for name := range values {
		parsed.Params[name] = values.Get(name)
	}

	return parsed, nil
}

// Match reports whether key matches the glob pattern. '*' matches any run
// of characters (including none), '?' matches exactly one character, and
// every other character matches itself.
func Match(key, pattern string) bool {
	return match.Match(key, pattern)
}
