package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skydeck/flightcache/pkg/cachekey"
)

// Redis is the remote shared tier, available only where a server-side
// execution context holds a live connection. Construct it with a nil
// client to represent the absent-connection state: every method then
// no-ops (miss / false / zero) instead of failing, which is the normal
// "skip this tier" branch, not an error.
//
// TTL is native: entries are stored with the seconds remaining until
// their ExpiresAt, so Redis self-expires them and the manager's prune
// cycle leaves this tier alone. Entries already expired at write time are
// silently dropped rather than stored with a non-positive TTL.
//
// Hit accounting is not rewritten on read; it advances when an entry is
// promoted into a faster tier.
type Redis struct {
	client redis.UniversalClient
	opts   *redisOptions
}

// NewRedis creates the remote tier on an established client (see
// pkg/redisconn). A nil client yields a permanently unavailable tier,
// which is a fully supported state.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	o := defaultRedisOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Redis{client: client, opts: o}
}

// Name implements Store.
func (r *Redis) Name() string { return "redis" }

// Available implements Store.
func (r *Redis) Available() bool { return r.client != nil }

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	if !r.Available() {
		return nil, ErrNotFound
	}

	raw, err := r.client.Get(ctx, r.namespaced(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_, _ = r.client.Del(ctx, r.namespaced(key)).Result()
		return nil, errors.Join(ErrCorrupt, err)
	}
	return &entry, nil
}

// Has implements Store via EXISTS.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	if !r.Available() {
		return false, nil
	}

	n, err := r.client.Exists(ctx, r.namespaced(key)).Result()
	if err != nil {
		return false, fmt.Errorf("store: redis exists: %w", err)
	}
	return n > 0, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, entry *Entry) error {
	if !r.Available() {
		return nil
	}

	remaining := entry.RemainingTTL(time.Now())
	if remaining <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: encode entry: %w", err)
	}
	if err := r.client.Set(ctx, r.namespaced(key), raw, remaining).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	if !r.Available() {
		return false, nil
	}

	n, err := r.client.Del(ctx, r.namespaced(key)).Result()
	if err != nil {
		return false, fmt.Errorf("store: redis del: %w", err)
	}
	return n > 0, nil
}

// Clear implements Store. Enumeration is incremental (SCAN) and deletes go
// out in fixed-size batches so a large keyspace never blocks the shared
// server behind one huge command.
func (r *Redis) Clear(ctx context.Context, pattern string) (int, error) {
	if !r.Available() {
		return 0, nil
	}

	var (
		removed int
		batch   []string
		cursor  uint64
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("store: redis del batch: %w", err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	prefixLen := len(r.opts.namespace) + 1
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.scanPattern(pattern), r.opts.scanCount).Result()
		if err != nil {
			return removed, fmt.Errorf("store: redis scan: %w", err)
		}
		for _, k := range keys {
			// Re-filter locally, as Keys does: Redis MATCH has extra
			// metacharacters ('[' classes) the shared glob dialect treats
			// as literals, and a clear must never delete more (or less)
			// than the other tiers would.
			if len(k) <= prefixLen || !matchLocally(k[prefixLen:], pattern) {
				continue
			}
			batch = append(batch, k)
			if len(batch) >= r.opts.deleteBatch {
				if err := flush(); err != nil {
					return removed, err
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, flush()
}

// Keys implements Store via incremental SCAN.
func (r *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !r.Available() {
		return nil, nil
	}

	var (
		keys   []string
		cursor uint64
	)
	prefixLen := len(r.opts.namespace) + 1
	for {
		page, next, err := r.client.Scan(ctx, cursor, r.scanPattern(pattern), r.opts.scanCount).Result()
		if err != nil {
			return keys, fmt.Errorf("store: redis scan: %w", err)
		}
		for _, k := range page {
			if len(k) <= prefixLen {
				continue
			}
			// Re-filter locally so Redis MATCH and the in-process glob
			// can never disagree on edge cases.
			if trimmed := k[prefixLen:]; matchLocally(trimmed, pattern) {
				keys = append(keys, trimmed)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Size implements Store. Value lengths are gathered with pipelined STRLEN
// per SCAN page to keep round trips bounded.
func (r *Redis) Size(ctx context.Context) (int64, error) {
	if !r.Available() {
		return 0, nil
	}

	var (
		total  int64
		cursor uint64
	)
	for {
		page, next, err := r.client.Scan(ctx, cursor, r.scanPattern(""), r.opts.scanCount).Result()
		if err != nil {
			return total, fmt.Errorf("store: redis scan: %w", err)
		}
		if len(page) > 0 {
			pipe := r.client.Pipeline()
			cmds := make([]*redis.IntCmd, len(page))
			for i, k := range page {
				cmds[i] = pipe.StrLen(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return total, fmt.Errorf("store: redis strlen pipeline: %w", err)
			}
			for _, cmd := range cmds {
				total += cmd.Val()
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}

// Len implements Store.
func (r *Redis) Len(ctx context.Context) (int, error) {
	if !r.Available() {
		return 0, nil
	}

	var (
		count  int
		cursor uint64
	)
	for {
		page, next, err := r.client.Scan(ctx, cursor, r.scanPattern(""), r.opts.scanCount).Result()
		if err != nil {
			return count, fmt.Errorf("store: redis scan: %w", err)
		}
		count += len(page)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// Close implements Store. The client lifecycle is owned by the caller
// (see redisconn.Shutdown), so Close here is a no-op.
func (r *Redis) Close() error { return nil }

// namespaced returns the full Redis key.
func (r *Redis) namespaced(key string) string {
	return r.opts.namespace + ":" + key
}

// scanPattern translates a cache-key glob into a namespaced MATCH pattern.
// Redis MATCH shares the '*'/'?' dialect of cachekey.Match.
func (r *Redis) scanPattern(pattern string) string {
	if pattern == "" {
		pattern = "*"
	}
	return r.opts.namespace + ":" + pattern
}

var _ Store = (*Redis)(nil)

// matchLocally mirrors cachekey.Match; kept as the single point to adjust
// if Redis-side and in-process pattern semantics ever need reconciling.
func matchLocally(key, pattern string) bool {
	return pattern == "" || cachekey.Match(key, pattern)
}
