package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skydeck/flightcache/pkg/cachekey"
	"github.com/skydeck/flightcache/pkg/payload"
)

const (
	diskIndexFile = "index.json"
	diskFileExt   = ".cache"
)

// diskEnvelope is the on-disk representation of one entry. Data holds the
// payload verbatim when Compressed is false; Packed holds the zstd bytes
// when it is true. The flag travels with the payload so readers never have
// to guess.
type diskEnvelope struct {
	Key        string          `json:"key"`
	Compressed bool            `json:"compressed"`
	Data       json.RawMessage `json:"data,omitempty"`
	Packed     []byte          `json:"packed,omitempty"`
	Metadata   Metadata        `json:"metadata"`
}

// diskIndexEntry is the secondary index kept per key, enabling expiry and
// last-access range sweeps without opening every envelope.
type diskIndexEntry struct {
	File         string    `json:"file"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Size         int64     `json:"size"`
}

// Disk is the durable local tier. Entries live as one JSON envelope file
// per key inside a dedicated directory, written atomically (tmp + rename),
// so they survive process restarts. Payloads above the compression
// threshold are stored zstd-compressed and flagged; reads transparently
// decompress.
//
// A single index file maps keys to expiry/last-access/size so sweeps and
// pattern enumeration never stat the whole directory. The index is
// rebuilt from the envelopes when missing or unreadable.
type Disk struct {
	dir   string
	log   *slog.Logger
	opts  *diskOptions
	mu    sync.Mutex
	index map[string]*diskIndexEntry
}

// NewDisk opens (or creates) the durable tier rooted at dir.
func NewDisk(dir string, opts ...DiskOption) (*Disk, error) {
	o := defaultDiskOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create cache dir: %w", err)
	}

	d := &Disk{
		dir:   dir,
		log:   o.logger,
		opts:  o,
		index: make(map[string]*diskIndexEntry),
	}
	if err := d.loadIndex(); err != nil {
		d.log.Warn("cache index unreadable, rebuilding from envelopes",
			slog.String("dir", dir), slog.String("error", err.Error()))
		d.rebuildIndex()
	}
	return d, nil
}

// Name implements Store.
func (d *Disk) Name() string { return "disk" }

// Available implements Store. A successfully opened disk tier stays
// available; individual I/O failures degrade per call instead.
func (d *Disk) Available() bool { return true }

// Get implements Store. Corrupt or undecodable envelopes are dropped and
// reported as ErrCorrupt, which callers treat as a miss.
func (d *Disk) Get(_ context.Context, key string) (*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, ok := d.index[key]
	if !ok {
		return nil, ErrNotFound
	}

	raw, err := os.ReadFile(filepath.Join(d.dir, idx.File))
	if err != nil {
		delete(d.index, key)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrCorrupt, err)
	}

	var env diskEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.dropLocked(key, idx)
		return nil, errors.Join(ErrCorrupt, err)
	}
	if env.Key != key {
		// The envelope under this filename belongs to a different key:
		// stale file or damaged index. Drop and report a miss.
		d.log.Warn("dropping cache entry with mismatched key",
			slog.String("key", key), slog.String("envelope_key", env.Key))
		d.dropLocked(key, idx)
		return nil, ErrCorrupt
	}

	data := env.Data
	if env.Compressed {
		unpacked, err := payload.Decompress(env.Packed)
		if err != nil {
			d.log.Warn("dropping undecodable cache entry",
				slog.String("key", key), slog.String("error", err.Error()))
			d.dropLocked(key, idx)
			return nil, errors.Join(ErrCorrupt, err)
		}
		data = unpacked
	}

	entry := &Entry{Key: env.Key, Data: data, Metadata: env.Metadata}
	entry.Touch(time.Now())
	idx.LastAccessed = entry.Metadata.LastAccessed
	// Touches are not flushed per read; the index catches up on the next
	// mutation or Close.
	return entry, nil
}

// Has implements Store via the index, without opening the envelope.
func (d *Disk) Has(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[key]
	return ok, nil
}

// Set implements Store. The envelope is written to a temp file and renamed
// into place so a crash never leaves a half-written entry behind.
func (d *Disk) Set(_ context.Context, key string, entry *Entry) error {
	env := diskEnvelope{Key: key, Metadata: entry.Metadata}
	if d.opts.compression && int64(len(entry.Data)) >= d.opts.compressionThreshold {
		if packed, ok := payload.Compress(entry.Data); ok {
			env.Compressed = true
			env.Packed = packed
		}
	}
	if !env.Compressed {
		env.Data = entry.Data
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("store: encode envelope: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	file := d.fileFor(key)
	path := filepath.Join(d.dir, file)
	tmp := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("store: write envelope: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("store: rename envelope: %w", err)
	}

	d.index[key] = &diskIndexEntry{
		File:         file,
		ExpiresAt:    entry.Metadata.ExpiresAt,
		LastAccessed: entry.Metadata.LastAccessed,
		Size:         int64(len(raw)),
	}
	d.flushIndexLocked()
	return nil
}

// Delete implements Store.
func (d *Disk) Delete(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, ok := d.index[key]
	if !ok {
		return false, nil
	}
	d.dropLocked(key, idx)
	d.flushIndexLocked()
	return true, nil
}

// Clear implements Store. With a pattern, matching keys are enumerated and
// deleted individually; the operation is not atomic across the pattern.
func (d *Disk) Clear(_ context.Context, pattern string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var removed int
	for key, idx := range d.index {
		if pattern == "" || cachekey.Match(key, pattern) {
			d.dropLocked(key, idx)
			removed++
		}
	}
	if removed > 0 {
		d.flushIndexLocked()
	}
	return removed, nil
}

// Keys implements Store.
func (d *Disk) Keys(_ context.Context, pattern string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.index))
	for key := range d.index {
		if pattern == "" || cachekey.Match(key, pattern) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Size implements Store. Reports the summed envelope sizes from the index.
func (d *Disk) Size(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var total int64
	for _, idx := range d.index {
		total += idx.Size
	}
	return total, nil
}

// Len implements Store.
func (d *Disk) Len(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.index), nil
}

// PruneExpired implements Pruner using the expiry index, so the sweep
// never opens envelope files.
func (d *Disk) PruneExpired(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	var removed int
	for key, idx := range d.index {
		if now.After(idx.ExpiresAt) {
			d.dropLocked(key, idx)
			removed++
		}
	}
	if removed > 0 {
		d.flushIndexLocked()
	}
	return removed, nil
}

// Close flushes the index, persisting any last-access touches accumulated
// since the previous mutation.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushIndexLocked()
	return nil
}

// dropLocked removes an entry's file and index row. Caller holds the mutex.
func (d *Disk) dropLocked(key string, idx *diskIndexEntry) {
	_ = os.Remove(filepath.Join(d.dir, idx.File))
	delete(d.index, key)
}

// fileFor maps a cache key to a safe, unique file name. The sanitized key
// keeps envelopes recognizable in the directory; the hash suffix keeps
// distinct keys distinct even when sanitization folds their punctuation
// into the same characters. Long keys are truncated to stay under
// filesystem name limits.
func (d *Disk) fileFor(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '?', '&', '=', '*', '#', '<', '>', '|', '"', ' ':
			return '_'
		}
		return r
	}, key)
	if len(sanitized) > 160 {
		sanitized = sanitized[:160]
	}
	sum := sha256.Sum256([]byte(key))
	return sanitized + "-" + hex.EncodeToString(sum[:8]) + diskFileExt
}

// loadIndex reads the persisted index.
func (d *Disk) loadIndex() error {
	raw, err := os.ReadFile(filepath.Join(d.dir, diskIndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &d.index)
}

// rebuildIndex reconstructs the index by reading every envelope in dir.
func (d *Disk) rebuildIndex() {
	d.index = make(map[string]*diskIndexEntry)

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), diskFileExt) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(d.dir, ent.Name()))
		if err != nil {
			continue
		}
		var env diskEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Key == "" {
			_ = os.Remove(filepath.Join(d.dir, ent.Name()))
			continue
		}
		d.index[env.Key] = &diskIndexEntry{
			File:         ent.Name(),
			ExpiresAt:    env.Metadata.ExpiresAt,
			LastAccessed: env.Metadata.LastAccessed,
			Size:         int64(len(raw)),
		}
	}
	d.flushIndexLocked()
}

// flushIndexLocked persists the index atomically. Failures are logged and
// tolerated: the index is a rebuildable optimization, not source of truth.
func (d *Disk) flushIndexLocked() {
	raw, err := json.Marshal(d.index)
	if err != nil {
		return
	}
	path := filepath.Join(d.dir, diskIndexFile)
	tmp := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		d.log.Warn("cache index flush failed", slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		d.log.Warn("cache index flush failed", slog.String("error", err.Error()))
	}
}

var _ Store = (*Disk)(nil)
var _ Pruner = (*Disk)(nil)
