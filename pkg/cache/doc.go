// Package cache implements the tiered cache manager that fronts the
// flight/airport lookup APIs: an in-process memory tier, an optional
// remote shared Redis tier, and an optional durable on-disk tier combined
// into one logical read-through/write-through cache.
//
// # Read path
//
// Get scans the tiers in fixed priority order (memory, redis, disk) and
// promotes hits upward so the next lookup lands in a faster tier. Tiers
// return entries as stored; the manager alone applies the freshness
// policy: fresh entries are plain hits; entries past their TTL but within
// a caller-supplied stale-while-revalidate window are served as stale
// hits and fire an asynchronous revalidate event (the actual refetch is
// the caller's responsibility); anything older is deleted everywhere and
// reported as a miss.
//
// # Write path
//
// Set resolves the TTL through the strategy table (a per-call override
// wins), builds entry metadata, and writes to every available tier. The
// memory write is the minimum contract; failures in other tiers are
// logged and counted but never surface to the caller.
//
// # Consistency
//
// A Get spanning multiple tier round trips is not atomic end to end: a
// concurrent Set for the same key landing between the remote lookup and
// the memory promotion can be overwritten by the promoted (older) value.
// This lost-update window is an accepted weak-consistency trade-off of
// the tiered design; there is no cross-tier locking. Callers needing
// read-after-write can rely on the memory tier alone, which is updated
// synchronously within Set.
//
// # Observability
//
// Every operation updates the metrics collector (rolling latency
// percentiles, hourly event window, aggregate counters) and emits a typed
// event ([Manager.On]). The same counters back both the JSON snapshot
// ([Manager.Metrics]) and the Prometheus collector
// ([Manager.PrometheusCollector]); there is no second source of truth.
//
// # Quick start
//
//	m, err := cache.New(
//	    cache.WithMaxEntries(1000),
//	    cache.WithPersistence("/var/cache/flightdata"),
//	    cache.WithRemote(client),
//	    cache.WithLogger(log),
//	)
//	defer m.Close()
//
//	err = m.Set(ctx, "v1:airports?iata=LAX", rawAirportJSON)
//	data, err := m.Get(ctx, "v1:airports?iata=LAX")
package cache
