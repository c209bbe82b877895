// Package store defines the storage adapter contract shared by all cache
// tiers and provides the three implementations: in-process memory with LRU
// eviction, a durable on-disk store that survives restarts, and a remote
// shared Redis store.
//
// # Contract
//
// Every tier implements [Store]. The adapters are deliberately dumb about
// freshness: Get returns an entry even when it is past its expiry, because
// the freshness policy (fresh / stale-but-servable / expired) belongs to
// the cache manager, not to the tier holding the bytes. The exceptions are
// Redis, whose native TTL expires entries on its own, and the explicit
// PruneExpired sweeps.
//
// Adapters degrade instead of failing: an unavailable tier (Available()
// returning false) answers every call with miss/no-op values rather than
// errors.
//
// # Ownership
//
// A [*Entry] is owned by whichever adapter currently holds it. Hit
// accounting (HitCount, LastAccessed) is updated by the owning adapter on
// every successful Get; all other metadata is immutable once written. The
// Redis adapter does not rewrite entries on read, so its hit accounting
// only advances when an entry is promoted into a faster tier.
package store
