package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

var validate = validator.New()

// validateDocument checks the struct constraints and the cross references of
// a catalog. Every problem found is reported, not only the first one.
func validateDocument(doc *Document) error {
	var errs error

	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = multierr.Append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}

	services := make(map[string]bool, len(doc.Services))
	components := make(map[string]string)
	for _, s := range doc.Services {
		if services[s.Name] {
			errs = multierr.Append(errs, fmt.Errorf("service %q: defined twice", s.Name))
		}
		services[s.Name] = true
		for _, c := range s.Components {
			if owner, ok := components[c.Name]; ok {
				errs = multierr.Append(errs, fmt.Errorf("component %q: defined by both %q and %q", c.Name, owner, s.Name))
				continue
			}
			components[c.Name] = s.Name
		}
	}

	for _, s := range doc.Services {
		for _, req := range append(slices.Clone(s.Requirements.Default), s.Requirements.HA...) {
			if !services[req] {
				errs = multierr.Append(errs, fmt.Errorf("service %q: requires unknown service %q", s.Name, req))
			}
			if req == s.Name {
				errs = multierr.Append(errs, fmt.Errorf("service %q: requires itself", s.Name))
			}
		}
		for _, name := range s.AutoInstall {
			if components[name] != s.Name {
				errs = multierr.Append(errs, fmt.Errorf("service %q: auto_install %q is not one of its components", s.Name, name))
			}
		}
		for _, c := range s.Components {
			for _, name := range c.AutoInstall {
				if _, ok := components[name]; !ok {
					errs = multierr.Append(errs, fmt.Errorf("component %q: auto_install of unknown component %q", c.Name, name))
				}
				if name == c.Name {
					errs = multierr.Append(errs, fmt.Errorf("component %q: auto_install of itself", c.Name))
				}
			}
			if len(doc.HostTypes) > 0 {
				for _, t := range c.HostTypes {
					if !slices.Contains(doc.HostTypes, t) {
						errs = multierr.Append(errs, fmt.Errorf("component %q: unknown host type %q", c.Name, t))
					}
				}
			}
		}
		errs = multierr.Append(errs, validateVersions(s))
	}

	return errs
}

func validateVersions(s ServiceDefinition) error {
	var errs error
	for _, v := range s.Versions {
		if _, err := semver.NewVersion(v); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("service %q: version %q: %w", s.Name, v, err))
		}
	}
	if s.DefaultVersion != "" && !slices.Contains(s.Versions, s.DefaultVersion) {
		errs = multierr.Append(errs, fmt.Errorf("service %q: default version %q is not listed", s.Name, s.DefaultVersion))
	}
	return errs
}
