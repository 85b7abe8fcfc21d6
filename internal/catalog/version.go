package catalog

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// LatestVersion returns the default version of the service, or the highest
// listed version when no default is set.
func (s *ServiceDefinition) LatestVersion() string {
	if s.DefaultVersion != "" {
		return s.DefaultVersion
	}
	var best *semver.Version
	var raw string
	for _, v := range s.Versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if best == nil || sv.GreaterThan(best) {
			best, raw = sv, v
		}
	}
	return raw
}

// ResolveVersion returns the highest listed version satisfying the constraint.
// A service that lists no versions accepts any exact semantic version.
func (s *ServiceDefinition) ResolveVersion(constraint string) (string, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("parse constraint %q: %w", constraint, err)
	}

	if len(s.Versions) == 0 {
		v, err := semver.NewVersion(constraint)
		if err != nil {
			return "", fmt.Errorf("service %s lists no versions, an exact version is required: %w", s.Name, err)
		}
		return v.Original(), nil
	}

	var best *semver.Version
	var raw string
	for _, v := range s.Versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if c.Check(sv) && (best == nil || sv.GreaterThan(best)) {
			best, raw = sv, v
		}
	}
	if best == nil {
		return "", fmt.Errorf("no version of %s satisfies %q", s.Name, constraint)
	}
	return raw, nil
}
