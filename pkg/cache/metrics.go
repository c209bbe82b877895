package cache

import (
	"sort"
	"sync"
	"time"
)

// latencySamples is the fixed capacity of each rolling latency ring.
const latencySamples = 1000

// hourWindow is the span of the short-term event window.
const hourWindow = time.Hour

// Stats are the process-wide aggregate counters. They reset only on an
// explicit ResetStats call. HitRate is fresh hits over all lookups, the
// same definition Metrics uses; stale serves are counted in StaleHits
// and never inflate the hit rate.
type Stats struct {
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`
	StaleHits uint64    `json:"staleHits"`
	Errors    uint64    `json:"errors"`
	Size      int64     `json:"size"`
	Entries   int       `json:"entries"`
	LastReset time.Time `json:"lastReset"`
	HitRate   float64   `json:"hitRate"`
}

// LastHour is the sliding one-hour event window.
type LastHour struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
	Sets   int `json:"sets"`
	Errors int `json:"errors"`
}

// Metrics is the derived observability view. Latencies are milliseconds.
type Metrics struct {
	HitRate       float64  `json:"hitRate"`
	MissRate      float64  `json:"missRate"`
	StaleRate     float64  `json:"staleRate"`
	ErrorRate     float64  `json:"errorRate"`
	AvgGetLatency float64  `json:"avgGetLatency"`
	P95GetLatency float64  `json:"p95GetLatency"`
	AvgSetLatency float64  `json:"avgSetLatency"`
	P95SetLatency float64  `json:"p95SetLatency"`
	TotalSize     int64    `json:"totalSize"`
	EntryCount    int      `json:"entryCount"`
	LastHour      LastHour `json:"lastHour"`
}

// latencyRing is a fixed-size rolling sample buffer.
type latencyRing struct {
	samples []time.Duration
	next    int
	full    bool
}

func newLatencyRing() *latencyRing {
	return &latencyRing{samples: make([]time.Duration, latencySamples)}
}

func (r *latencyRing) add(d time.Duration) {
	r.samples[r.next] = d
	r.next++
	if r.next == len(r.samples) {
		r.next = 0
		r.full = true
	}
}

func (r *latencyRing) snapshot() []time.Duration {
	if r.full {
		out := make([]time.Duration, len(r.samples))
		copy(out, r.samples)
		return out
	}
	out := make([]time.Duration, r.next)
	copy(out, r.samples[:r.next])
	return out
}

func (r *latencyRing) avg() time.Duration {
	s := r.snapshot()
	if len(s) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s))
}

// percentile returns the p-th percentile (0 < p <= 100) by nearest-rank.
func (r *latencyRing) percentile(p float64) time.Duration {
	s := r.snapshot()
	if len(s) == 0 {
		return 0
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	rank := int(float64(len(s))*p/100+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(s) {
		rank = len(s) - 1
	}
	return s[rank]
}

type windowKind uint8

const (
	windowHit windowKind = iota
	windowMiss
	windowSet
	windowError
)

type windowEvent struct {
	at   time.Time
	kind windowKind
}

// Collector is the single source of truth for cache observability. Both
// the JSON metrics snapshot and the Prometheus exporter derive from it.
type Collector struct {
	mu        sync.Mutex
	hits      uint64
	misses    uint64
	staleHits uint64
	sets      uint64
	errors    uint64
	lastReset time.Time
	getLat    *latencyRing
	setLat    *latencyRing
	window    []windowEvent
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		lastReset: time.Now(),
		getLat:    newLatencyRing(),
		setLat:    newLatencyRing(),
	}
}

func (c *Collector) recordHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
	c.push(windowHit)
}

func (c *Collector) recordStaleHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staleHits++
	c.push(windowHit)
}

func (c *Collector) recordMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	c.push(windowMiss)
}

func (c *Collector) recordSet() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.push(windowSet)
}

func (c *Collector) recordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
	c.push(windowError)
}

func (c *Collector) observeGet(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getLat.add(d)
}

func (c *Collector) observeSet(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLat.add(d)
}

// push appends a window event. Caller holds the mutex.
func (c *Collector) push(kind windowKind) {
	c.window = append(c.window, windowEvent{at: time.Now(), kind: kind})
}

// pruneWindow drops events older than an hour. Caller holds the mutex.
func (c *Collector) pruneWindow(now time.Time) {
	cutoff := now.Add(-hourWindow)
	idx := 0
	for idx < len(c.window) && c.window[idx].at.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		c.window = append(c.window[:0], c.window[idx:]...)
	}
}

// counters returns the raw aggregate counters for exporters.
func (c *Collector) counters() (hits, misses, staleHits, sets, errs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.staleHits, c.sets, c.errors
}

// Stats returns the aggregate counters. Size and entry totals are owned
// by the manager, which fills them in.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		StaleHits: c.staleHits,
		Errors:    c.errors,
		LastReset: c.lastReset,
	}
	if total := c.hits + c.misses + c.staleHits; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Snapshot derives the full metrics view. The window is pruned on every
// read so lastHour never reports anything older than an hour.
func (c *Collector) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.pruneWindow(now)

	m := Metrics{
		AvgGetLatency: toMillis(c.getLat.avg()),
		P95GetLatency: toMillis(c.getLat.percentile(95)),
		AvgSetLatency: toMillis(c.setLat.avg()),
		P95SetLatency: toMillis(c.setLat.percentile(95)),
	}

	lookups := c.hits + c.misses + c.staleHits
	if lookups > 0 {
		m.HitRate = float64(c.hits) / float64(lookups)
		m.MissRate = float64(c.misses) / float64(lookups)
		m.StaleRate = float64(c.staleHits) / float64(lookups)
	}
	if ops := lookups + c.sets; ops > 0 {
		m.ErrorRate = float64(c.errors) / float64(ops)
	}

	for _, ev := range c.window {
		switch ev.kind {
		case windowHit:
			m.LastHour.Hits++
		case windowMiss:
			m.LastHour.Misses++
		case windowSet:
			m.LastHour.Sets++
		case windowError:
			m.LastHour.Errors++
		}
	}
	return m
}

// Reset zeroes every counter, ring, and window.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits, c.misses, c.staleHits, c.sets, c.errors = 0, 0, 0, 0, 0
	c.getLat = newLatencyRing()
	c.setLat = newLatencyRing()
	c.window = nil
	c.lastReset = time.Now()
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
