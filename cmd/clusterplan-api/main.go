package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/clusterplan/internal/api"
	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/config"
	"github.com/edvin/clusterplan/internal/logging"
	"github.com/edvin/clusterplan/internal/metrics"
	"github.com/edvin/clusterplan/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load catalog")
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer backend.Close()
	if backend.Pool != nil {
		metrics.RegisterPgxPoolMetrics(backend.Pool)
	}

	tlsConfig, err := cfg.HTTPTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure TLS")
	}

	srv := api.NewServer(logger, backend, cat, catalog.DirBundleSource{Dir: cfg.BundlesDir})

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		TLSConfig:    tlsConfig,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := metrics.NewServer(cfg.MetricsListenAddr, func(ctx context.Context) error {
		_, err := backend.List(ctx)
		return err
	})

	go func() {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Bool("tls", tlsConfig != nil).Msg("starting placement API server")
		var err error
		if tlsConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
}
