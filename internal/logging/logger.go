package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/clusterplan/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing to stderr, so that
// command output on stdout stays machine readable.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stderr, cfg)
}

// New is NewLogger with an explicit writer.
func New(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.StoreBackend != "" {
		ctx = ctx.Str("store", cfg.StoreBackend)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
