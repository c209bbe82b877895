// Package ops exposes the operator HTTP surface of the cache: stats and
// metrics reads, stats reset, manual prune and invalidation, and the
// liveness/readiness probes.
//
// The router is a plain http.Handler, mountable standalone or under a
// larger mux:
//
//	router := ops.NewRouter(manager,
//	    ops.WithLogger(log),
//	    ops.WithReadinessCheck("redis", redisconn.Healthcheck(client)),
//	)
//	http.ListenAndServe(":9090", router)
//
// GET /cache/metrics answers JSON by default and Prometheus text
// exposition when the client asks for it (Accept: text/plain or
// ?format=prometheus). Both views derive from the same counters.
package ops
