package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edvin/clusterplan/internal/config"
	"github.com/edvin/clusterplan/internal/db"
)

// Backend is an opened store together with the resources it holds.
type Backend struct {
	Store
	// Pool is set for the postgres backend.
	Pool *pgxpool.Pool
}

// Close releases the resources of the backend.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// Open opens the store backend selected by the configuration. The postgres
// backend applies pending migrations first.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return &Backend{Store: NewFileStore(cfg.Home)}, nil
	case config.BackendS3:
		return &Backend{Store: NewS3Store(S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
		})}, nil
	case config.BackendPostgres:
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: NewPostgresStore(pool), Pool: pool}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
