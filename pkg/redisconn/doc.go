// Package redisconn manages the connection to the remote shared cache
// tier. The remote tier is optional by design: a missing or unreachable
// Redis simply disables that tier, so [Open] failures are the caller's
// signal to construct the cache without a remote store rather than to
// abort startup.
//
//	client, err := redisconn.Open(ctx, os.Getenv("REDIS_URL"))
//	if err != nil {
//	    client = nil // remote tier disabled
//	}
//	remote := store.NewRedis(client)
package redisconn
