package core

import (
	"context"
	"errors"
	"slices"
	"strings"

	"ocm.software/open-component-model/bindings/go/dag"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
)

// InstallOptions controls a service install.
type InstallOptions struct {
	Mode model.Mode
	// Auto places the service's auto_install components.
	Auto bool
}

// AddService installs a service. With opts.Auto the service's auto_install
// components are planned first and the install fails with ErrReqNotMet,
// leaving the cluster untouched, when they cannot all be placed. It returns
// the number of component instances placed.
func (e *Engine) AddService(ctx context.Context, name string, opts InstallOptions) (n int, err error) {
	defer e.observe("add_service", &err)

	svc, err := e.lookupService(name)
	if err != nil {
		return 0, err
	}
	if e.cluster.HasService(name) {
		return 0, model.Conflict("cluster", e.cluster.Name, "service", name)
	}
	if err := e.resolver().checkRequirements(svc, opts.Mode).err(name); err != nil {
		return 0, err
	}

	d := newDraft(e.cluster)
	d.install(name)
	if opts.Auto {
		shortfall := map[string]int{}
		for _, compName := range svc.AutoInstall {
			comp, ok := svc.Component(compName)
			if !ok {
				continue
			}
			if missing := e.allocate(d, comp, svc, opts.Mode); missing > 0 {
				shortfall[compName] = missing
			}
		}
		if len(shortfall) > 0 {
			return 0, &model.Error{Kind: model.ErrReqNotMet, Object: "service", Name: name,
				Property: "components", Missing: formatShortfall(shortfall)}
		}
	}

	next := e.cluster.Clone()
	d.apply(next)
	if err := e.commit(ctx, next); err != nil {
		return 0, err
	}
	d.observe()

	e.logger.Info().Str("service", name).Str("mode", opts.Mode.String()).Int("placed", len(d.planned)).Msg("service added")
	return len(d.planned), nil
}

// RemoveService uninstalls a service and detaches all of its components from
// every node. It fails with ErrDependency while another installed service
// requires it.
func (e *Engine) RemoveService(ctx context.Context, name string) (err error) {
	defer e.observe("remove_service", &err)

	svc, err := e.lookupService(name)
	if err != nil {
		return err
	}
	if !e.cluster.HasService(name) {
		return model.NotInstalled("cluster", e.cluster.Name, "service", name)
	}
	if deps := e.resolver().dependentsOf(name); len(deps) > 0 {
		return &model.Error{Kind: model.ErrDependency, Object: "service", Name: name,
			Property: "services", Missing: deps}
	}

	next := e.cluster.Clone()
	next.Services = slices.DeleteFunc(next.Services, func(s string) bool { return s == name })
	detached := 0
	for i := range next.Nodes {
		for _, comp := range svc.Components {
			if next.Nodes[i].RemoveComponent(comp.Name) {
				detached++
			}
		}
	}
	delete(next.Versions, name)
	if len(next.Versions) == 0 {
		next.Versions = nil
	}

	if err := e.commit(ctx, next); err != nil {
		return err
	}
	e.logger.Info().Str("service", name).Int("detached", detached).Msg("service removed")
	return nil
}

// InstallRecursive installs a service together with every service it
// transitively requires in opts.Mode. Dependencies are installed first, each
// with its auto_install components and then auto-assigned. The chain is not
// rolled back: if a step fails, a *model.ChainError lists the services that
// were already installed.
func (e *Engine) InstallRecursive(ctx context.Context, name string, opts InstallOptions) (installed []string, err error) {
	defer e.observe("install_recursive", &err)

	svc, err := e.lookupService(name)
	if err != nil {
		return nil, err
	}
	if e.cluster.HasService(name) {
		return nil, model.Conflict("cluster", e.cluster.Name, "service", name)
	}

	order, err := e.installOrder(svc, opts.Mode)
	if err != nil {
		return nil, err
	}

	for _, dep := range order {
		if dep == name {
			continue
		}
		if _, err := e.AddService(ctx, dep, InstallOptions{Mode: opts.Mode, Auto: true}); err != nil {
			return installed, &model.ChainError{Service: name, Installed: installed, Err: err}
		}
		installed = append(installed, dep)
		if _, err := e.AutoAssign(ctx, dep, opts.Mode); err != nil {
			return installed, &model.ChainError{Service: name, Installed: installed, Err: err}
		}
	}

	if _, err := e.AddService(ctx, name, opts); err != nil {
		return installed, &model.ChainError{Service: name, Installed: installed, Err: err}
	}
	return append(installed, name), nil
}

// installOrder returns the services to install for svc, dependencies first
// and svc last. Installed services are not part of the graph.
func (e *Engine) installOrder(svc *catalog.ServiceDefinition, mode model.Mode) ([]string, error) {
	g := dag.NewDirectedAcyclicGraph[string]()
	if err := g.AddVertex(svc.Name); err != nil {
		return nil, err
	}

	cycleErr := func(path []string, err error) error {
		return &model.Error{Kind: model.ErrDependencyCycle, Object: "service", Name: svc.Name,
			Reason: strings.Join(path, " -> "), Err: err}
	}

	// path holds the services being visited, outermost first.
	var path []string
	var visit func(s *catalog.ServiceDefinition) error
	visit = func(s *catalog.ServiceDefinition) error {
		path = append(path, s.Name)
		defer func() { path = path[:len(path)-1] }()

		for _, req := range s.Requirements.For(mode) {
			if e.cluster.HasService(req) {
				continue
			}
			if i := slices.Index(path, req); i >= 0 {
				return cycleErr(append(slices.Clone(path[i:]), req), nil)
			}
			dep, err := e.lookupService(req)
			if err != nil {
				return err
			}
			discovered := !g.Contains(req)
			if discovered {
				if err := g.AddVertex(req); err != nil {
					return err
				}
			}
			if err := g.AddEdge(s.Name, req); err != nil {
				var cycle *dag.CycleError
				if errors.As(err, &cycle) {
					return cycleErr(cycle.Cycle, err)
				}
				return err
			}
			if discovered {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(svc); err != nil {
		return nil, err
	}
	return g.TopologicalSort()
}
