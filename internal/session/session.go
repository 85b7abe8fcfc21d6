// Package session enforces that at most one cluster is managed at a time.
// The active cluster is held by an explicit Manager value; there is no
// process-wide state.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/model"
	"github.com/edvin/clusterplan/internal/platform"
	"github.com/edvin/clusterplan/internal/store"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,62}$`)

// listConcurrency bounds the snapshot reads of List.
const listConcurrency = 8

// ClusterOptions are the settings of a new cluster.
type ClusterOptions struct {
	Domain   string
	Realm    string
	Location model.Location
	Bundles  []string
}

// Manager opens clusters and tracks the active one.
type Manager struct {
	store   store.Store
	catalog *catalog.Catalog
	bundles catalog.BundleSource
	logger  zerolog.Logger
	now     func() time.Time

	active *core.Engine
}

type Option func(*Manager)

func WithBundleSource(src catalog.BundleSource) Option {
	return func(m *Manager) { m.bundles = src }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, cat *catalog.Catalog, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		catalog: cat,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) engine(c *model.Cluster) (*core.Engine, error) {
	return core.New(m.catalog, c, m.store,
		core.WithBundleSource(m.bundles),
		core.WithLogger(m.logger),
		core.WithClock(m.now),
	)
}

// checkName rejects names that are not valid cluster names. The bundles
// directory of the home is reserved.
func checkName(name string) error {
	if !nameRegex.MatchString(name) {
		return &model.Error{Kind: model.ErrInvalidName, Object: "cluster", Name: name,
			Reason: "the name must start with a letter and contain only letters, digits, '-' and '_'"}
	}
	if strings.EqualFold(name, store.BundlesDir) {
		return &model.Error{Kind: model.ErrInvalidName, Object: "cluster", Name: name,
			Reason: "the name is reserved"}
	}
	return nil
}

func (m *Manager) mustExit() error {
	return &model.Error{Kind: model.ErrMustExit, Object: "cluster", Name: m.active.Name()}
}

// Active returns the engine of the managed cluster, or nil.
func (m *Manager) Active() *core.Engine { return m.active }

// Create saves an empty cluster and makes it the managed one.
func (m *Manager) Create(ctx context.Context, name string, opts ClusterOptions) (*core.Engine, error) {
	if m.active != nil {
		return nil, m.mustExit()
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	exists, err := m.store.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create cluster %s: %w", name, err)
	}
	if exists {
		return nil, model.Conflict("cluster", name, "name", name)
	}

	c := model.NewCluster(platform.NewID(), name)
	c.Domain = opts.Domain
	if c.Domain == "" {
		c.Domain = name + ".local"
	}
	c.Realm = opts.Realm
	if c.Realm == "" {
		c.Realm = strings.ToUpper(c.Domain)
	}
	if opts.Location != "" {
		c.Location = opts.Location
	}
	if len(opts.Bundles) > 0 {
		c.Bundles = append([]string{}, opts.Bundles...)
	}
	c.CreatedAt = m.now().UTC()
	c.UpdatedAt = c.CreatedAt

	e, err := m.engine(c)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, c); err != nil {
		return nil, model.Persistence("cluster", name, err)
	}

	m.active = e
	m.logger.Info().Str("cluster", name).Str("domain", c.Domain).Msg("cluster created")
	return e, nil
}

// Manage makes an existing cluster the managed one. Managing the cluster
// that is already active is a no-op.
func (m *Manager) Manage(ctx context.Context, name string) (*core.Engine, error) {
	if m.active != nil {
		if m.active.Name() == name {
			return m.active, nil
		}
		return nil, m.mustExit()
	}
	e, err := m.open(ctx, name)
	if err != nil {
		return nil, err
	}
	m.active = e
	return e, nil
}

// Exit stops managing the active cluster. It reports whether one was active.
func (m *Manager) Exit() bool {
	was := m.active != nil
	m.active = nil
	return was
}

// Use runs fn against a cluster. An empty name means the managed cluster.
// A cluster other than the managed one is refused with ErrMustExit; when no
// cluster is managed the named cluster is loaded for this call only.
func (m *Manager) Use(ctx context.Context, name string, fn func(*core.Engine) error) error {
	switch {
	case name == "" && m.active == nil:
		return &model.Error{Kind: model.ErrNoContext}
	case name == "" || (m.active != nil && m.active.Name() == name):
		return fn(m.active)
	case m.active != nil:
		return m.mustExit()
	}

	e, err := m.open(ctx, name)
	if err != nil {
		return err
	}
	return fn(e)
}

// Delete removes a cluster. Deleting the managed cluster ends the session.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if m.active != nil && m.active.Name() != name {
		return m.mustExit()
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	if m.active != nil {
		m.active = nil
	}
	m.logger.Info().Str("cluster", name).Msg("cluster deleted")
	return nil
}

// List summarizes every cluster of the store. Clusters whose snapshot cannot
// be loaded are reported as broken rather than failing the listing.
func (m *Manager) List(ctx context.Context) ([]model.ClusterSummary, error) {
	names, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.ClusterSummary, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, name := range names {
		g.Go(func() error {
			c, err := m.store.Load(gctx, name)
			if err != nil {
				m.logger.Warn().Err(err).Str("cluster", name).Msg("unreadable cluster snapshot")
				out[i] = model.ClusterSummary{Name: name, Broken: true}
				return nil
			}
			out[i] = c.Summary()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Repair rewrites a minimal snapshot for a cluster whose snapshot is missing
// or unreadable. A loadable snapshot is left alone and false is returned.
func (m *Manager) Repair(ctx context.Context, name, domain string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	exists, err := m.store.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, &model.Error{Kind: model.ErrNotExist, Object: "cluster", Name: name}
	}
	if _, err := m.store.Load(ctx, name); err == nil {
		return false, nil
	}

	c := model.NewCluster(platform.NewID(), name)
	c.Domain = domain
	if c.Domain == "" {
		c.Domain = name + ".local"
	}
	c.Realm = strings.ToUpper(c.Domain)
	c.CreatedAt = m.now().UTC()
	c.UpdatedAt = c.CreatedAt
	if err := m.store.Save(ctx, c); err != nil {
		return false, model.Persistence("cluster", name, err)
	}
	m.logger.Warn().Str("cluster", name).Msg("cluster snapshot reinitialized")
	return true, nil
}

func (m *Manager) open(ctx context.Context, name string) (*core.Engine, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	c, err := m.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.engine(c)
}
