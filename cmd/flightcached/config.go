package main

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/skydeck/flightcache/pkg/logger"
)

// config is the daemon's environment-driven configuration.
type config struct {
	Addr            string        `env:"FLIGHTCACHE_ADDR" envDefault:":9090"`
	LogFormat       string        `env:"FLIGHTCACHE_LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"FLIGHTCACHE_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Tier wiring. An empty RedisURL disables the remote tier; an empty
	// DataDir disables the durable tier.
	RedisURL  string `env:"FLIGHTCACHE_REDIS_URL"`
	Namespace string `env:"FLIGHTCACHE_NAMESPACE" envDefault:"flightcache"`
	DataDir   string `env:"FLIGHTCACHE_DATA_DIR"`

	// Cache policy.
	DefaultTTL           time.Duration `env:"FLIGHTCACHE_DEFAULT_TTL" envDefault:"5m"`
	MaxEntries           int           `env:"FLIGHTCACHE_MAX_ENTRIES" envDefault:"1000"`
	MaxSizeBytes         int64         `env:"FLIGHTCACHE_MAX_SIZE_BYTES" envDefault:"0"`
	Compression          bool          `env:"FLIGHTCACHE_COMPRESSION" envDefault:"true"`
	CompressionThreshold int64         `env:"FLIGHTCACHE_COMPRESSION_THRESHOLD" envDefault:"1024"`
	Prefetch             bool          `env:"FLIGHTCACHE_PREFETCH" envDefault:"true"`
	PruneSchedule        string        `env:"FLIGHTCACHE_PRUNE_SCHEDULE" envDefault:"@every 5m"`

	Sentry logger.SentryConfig
}

func loadConfig() (config, error) {
	return env.ParseAs[config]()
}
