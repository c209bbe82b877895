// Command flightcached runs the cache as a standalone daemon exposing the
// operator HTTP surface. The flight dashboard talks to the same manager
// in-process; this binary exists for shared deployments where the cache
// outlives any single frontend instance.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skydeck/flightcache/pkg/cache"
	"github.com/skydeck/flightcache/pkg/logger"
	"github.com/skydeck/flightcache/pkg/ops"
	"github.com/skydeck/flightcache/pkg/redisconn"
)

func main() {
	if err := run(); err != nil {
		slog.Error("flightcached exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var client redis.UniversalClient
	if cfg.RedisURL != "" {
		client, err = redisconn.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		log.Info("remote tier connected")
	} else {
		log.Info("remote tier disabled, no redis url configured")
	}

	manager, err := cache.New(
		cache.WithLogger(log),
		cache.WithDefaultTTL(cfg.DefaultTTL),
		cache.WithMaxEntries(cfg.MaxEntries),
		cache.WithMaxSize(cfg.MaxSizeBytes),
		cache.WithCompression(cfg.Compression),
		cache.WithCompressionThreshold(cfg.CompressionThreshold),
		cache.WithPersistence(cfg.DataDir),
		cache.WithPrefetch(cfg.Prefetch),
		cache.WithPruneSchedule(cfg.PruneSchedule),
		cache.WithNamespace(cfg.Namespace),
		cache.WithRemote(client),
	)
	if err != nil {
		return err
	}

	routerOpts := []ops.Option{ops.WithLogger(log)}
	if client != nil {
		routerOpts = append(routerOpts, ops.WithReadinessCheck("redis", redisconn.Healthcheck(client)))
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      ops.NewRouter(manager, routerOpts...),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if client != nil {
		if err := redisconn.Shutdown(client)(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Info("shutdown completed")
	return nil
}

// newLogger builds the daemon logger: text for local development, JSON
// (optionally forwarded to Sentry) otherwise. Correlation IDs propagate
// through every request context.
func newLogger(cfg config) *slog.Logger {
	if cfg.LogFormat == "text" {
		return logger.NewText(logger.CorrelationIDExtractor())
	}
	return logger.NewWithSentry(cfg.Sentry, logger.CorrelationIDExtractor())
}
