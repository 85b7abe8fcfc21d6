// Package core is the topology engine: it resolves service dependencies,
// guards component cardinality and places components on nodes. Every
// successful mutation is persisted as one complete cluster snapshot before it
// becomes visible.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/metrics"
	"github.com/edvin/clusterplan/internal/model"
)

// Saver persists a complete cluster snapshot.
type Saver interface {
	Save(ctx context.Context, c *model.Cluster) error
}

// Engine operates on one cluster. It is not safe for concurrent use.
type Engine struct {
	base    *catalog.Catalog
	catalog *catalog.Catalog
	bundles catalog.BundleSource
	cluster *model.Cluster
	store   Saver
	logger  zerolog.Logger
	now     func() time.Time
}

type Option func(*Engine)

// WithBundleSource sets where the cluster's bundles are loaded from.
func WithBundleSource(src catalog.BundleSource) Option {
	return func(e *Engine) { e.bundles = src }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New binds an engine to a cluster. The base catalog is composed with the
// bundles the cluster lists.
func New(base *catalog.Catalog, cluster *model.Cluster, store Saver, opts ...Option) (*Engine, error) {
	if base == nil {
		return nil, fmt.Errorf("new engine: nil catalog")
	}
	if cluster == nil {
		return nil, fmt.Errorf("new engine: nil cluster")
	}
	e := &Engine{
		base:    base,
		catalog: base,
		cluster: cluster,
		store:   store,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("cluster", cluster.Name).Logger()

	if len(cluster.Bundles) > 0 {
		composed, err := e.compose(cluster.Bundles)
		if err != nil {
			return nil, fmt.Errorf("new engine: %w", err)
		}
		e.catalog = composed
	}
	return e, nil
}

// Name returns the cluster name.
func (e *Engine) Name() string { return e.cluster.Name }

// Cluster returns a copy of the current topology.
func (e *Engine) Cluster() *model.Cluster { return e.cluster.Clone() }

// Catalog returns the catalog in effect for the cluster, bundles included.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// commit persists next and makes it the current topology. On a store failure
// the current topology is left as it was.
func (e *Engine) commit(ctx context.Context, next *model.Cluster) error {
	next.UpdatedAt = e.now().UTC()
	if err := e.store.Save(ctx, next); err != nil {
		return model.Persistence("cluster", next.Name, err)
	}
	e.cluster = next
	return nil
}

func (e *Engine) observe(operation string, err *error) {
	metrics.ObserveOperation(operation, *err)
	if *err != nil {
		e.logger.Debug().Err(*err).Str("operation", operation).Msg("operation failed")
	}
}

func (e *Engine) resolver() resolver {
	return resolver{cat: e.catalog, p: clusterPlacements{e.cluster}, cluster: e.cluster.Name}
}

func (e *Engine) lookupService(name string) (*catalog.ServiceDefinition, error) {
	svc, ok := e.catalog.LookupService(name)
	if !ok {
		return nil, model.NotFound("service", name)
	}
	return svc, nil
}

func (e *Engine) lookupComponent(name string) (*catalog.ComponentDefinition, *catalog.ServiceDefinition, error) {
	comp, svc, ok := e.catalog.LookupComponent(name)
	if !ok {
		return nil, nil, model.NotFound("component", name)
	}
	return comp, svc, nil
}
