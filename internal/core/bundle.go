package core

import (
	"context"
	"errors"
	"slices"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
)

// Bundle positions accepted by AddBundle. Any other non-negative value is an
// index into the bundle list.
const (
	BundleFirst = 0
	BundleLast  = -1
)

// compose builds the catalog in effect for the given bundle list.
func (e *Engine) compose(names []string) (*catalog.Catalog, error) {
	if len(names) == 0 {
		return e.base, nil
	}
	bundles := make([]catalog.Bundle, 0, len(names))
	for _, name := range names {
		if e.bundles == nil {
			return nil, model.NotFound("bundle", name)
		}
		doc, err := e.bundles.Load(name)
		if err != nil {
			if errors.Is(err, catalog.ErrBundleNotFound) {
				return nil, &model.Error{Kind: model.ErrNotFound, Object: "bundle", Name: name, Err: err}
			}
			return nil, err
		}
		bundles = append(bundles, catalog.Bundle{Name: name, Document: doc})
	}
	return e.base.Compose(bundles...)
}

// AddBundle activates a bundle at the given position of the bundle list and
// makes its services available to the cluster.
func (e *Engine) AddBundle(ctx context.Context, name string, position int) (err error) {
	defer e.observe("add_bundle", &err)

	if e.cluster.HasBundle(name) {
		return model.Conflict("cluster", e.cluster.Name, "bundle", name)
	}

	names := slices.Clone(e.cluster.Bundles)
	if position < 0 || position > len(names) {
		position = len(names)
	}
	names = slices.Insert(names, position, name)

	composed, err := e.compose(names)
	if err != nil {
		return err
	}

	next := e.cluster.Clone()
	next.Bundles = names
	if err := e.commit(ctx, next); err != nil {
		return err
	}
	e.catalog = composed
	e.logger.Info().Str("bundle", name).Int("position", position).Msg("bundle added")
	return nil
}

// RemoveBundle deactivates a bundle. It fails with ErrDependency while a
// service of the bundle is installed.
func (e *Engine) RemoveBundle(ctx context.Context, name string) (err error) {
	defer e.observe("remove_bundle", &err)

	if !e.cluster.HasBundle(name) {
		return model.NotFound("bundle", name)
	}

	var inUse []string
	for _, s := range e.cluster.Services {
		if svc, ok := e.catalog.LookupService(s); ok && svc.Bundle == name {
			inUse = append(inUse, s)
		}
	}
	if len(inUse) > 0 {
		return &model.Error{Kind: model.ErrDependency, Object: "bundle", Name: name,
			Property: "services", Missing: inUse}
	}

	names := slices.DeleteFunc(slices.Clone(e.cluster.Bundles), func(b string) bool { return b == name })
	composed, err := e.compose(names)
	if err != nil {
		return err
	}

	next := e.cluster.Clone()
	next.Bundles = names
	if err := e.commit(ctx, next); err != nil {
		return err
	}
	e.catalog = composed
	e.logger.Info().Str("bundle", name).Msg("bundle removed")
	return nil
}

// Bundles returns the active bundles in order.
func (e *Engine) Bundles() []string {
	return slices.Clone(e.cluster.Bundles)
}

// AvailableBundles lists the bundles the bundle source can provide.
func (e *Engine) AvailableBundles() ([]string, error) {
	if e.bundles == nil {
		return nil, nil
	}
	return e.bundles.Available()
}
