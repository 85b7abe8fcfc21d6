package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/cli"
	"github.com/edvin/clusterplan/internal/config"
	"github.com/edvin/clusterplan/internal/logging"
	"github.com/edvin/clusterplan/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	app := &cli.App{
		Store:    backend,
		Catalog:  cat,
		Bundles:  catalog.DirBundleSource{Dir: cfg.BundlesDir},
		Logger:   logger,
		StateDir: cfg.Home,
	}
	return cli.Execute(ctx, app, os.Args[1:])
}
