// Package payload provides best-effort compression and size estimation for
// cached payloads.
//
// Compression uses zstd (github.com/klauspost/compress). It is strictly
// best-effort: [Compress] returns the input unchanged with a false flag
// whenever the codec is unavailable or compression would not shrink the
// payload, so callers must persist the returned flag next to the payload
// and never assume the bytes are actually compressed.
//
// [Decompress] degrades rather than fails hard: a corrupted or
// incompatible payload surfaces as an error the caller can turn into a
// cache miss instead of a crash.
//
// [EstimateSize] returns an approximate serialized byte length used for
// eviction accounting. It is not billing-grade.
package payload
