package core

import (
	"context"

	"github.com/edvin/clusterplan/internal/model"
)

// SetServiceVersion pins the highest catalog version of a service that
// satisfies constraint, e.g. "2.7.3" or "~2.7", and returns it.
func (e *Engine) SetServiceVersion(ctx context.Context, service, constraint string) (v string, err error) {
	defer e.observe("set_version", &err)

	svc, err := e.lookupService(service)
	if err != nil {
		return "", err
	}
	v, err = svc.ResolveVersion(constraint)
	if err != nil {
		return "", &model.Error{Kind: model.ErrInvalid, Object: "service", Name: service,
			Property: "version", Value: constraint, Reason: err.Error(), Err: err}
	}
	if e.cluster.Versions[service] == v {
		return v, nil
	}

	next := e.cluster.Clone()
	if next.Versions == nil {
		next.Versions = map[string]string{}
	}
	next.Versions[service] = v
	if err := e.commit(ctx, next); err != nil {
		return "", err
	}
	e.logger.Info().Str("service", service).Str("version", v).Msg("service version set")
	return v, nil
}

// ServiceVersion returns the pinned version of a service, or the catalog
// default when none is pinned.
func (e *Engine) ServiceVersion(service string) (string, error) {
	svc, err := e.lookupService(service)
	if err != nil {
		return "", err
	}
	if v, ok := e.cluster.Versions[service]; ok {
		return v, nil
	}
	return svc.LatestVersion(), nil
}
