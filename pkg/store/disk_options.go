package store

import (
	"io"
	"log/slog"

	"github.com/skydeck/flightcache/pkg/payload"
)

// DiskOption configures the durable tier.
type DiskOption func(*diskOptions)

type diskOptions struct {
	logger               *slog.Logger
	compression          bool
	compressionThreshold int64
}

func defaultDiskOptions() *diskOptions {
	return &diskOptions{
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		compression:          true,
		compressionThreshold: payload.DefaultThreshold,
	}
}

// WithDiskLogger sets the logger for degraded-path warnings.
// Default: discard.
func WithDiskLogger(l *slog.Logger) DiskOption {
	return func(o *diskOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiskCompression toggles payload compression. Default: enabled.
func WithDiskCompression(enabled bool) DiskOption {
	return func(o *diskOptions) {
		o.compression = enabled
	}
}

// WithDiskCompressionThreshold sets the payload size in bytes above which
// compression is attempted. Default: payload.DefaultThreshold.
func WithDiskCompressionThreshold(n int64) DiskOption {
	return func(o *diskOptions) {
		if n > 0 {
			o.compressionThreshold = n
		}
	}
}
