package core

import (
	"fmt"
	"slices"
	"sort"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
)

// placements is the read side of a topology. It is implemented by the
// committed cluster and by a dry-run draft, so the resolver and the guard
// evaluate both the same way.
type placements interface {
	services() []string
	installed(service string) bool
	count(component string) int
	has(node, component string) bool
}

type clusterPlacements struct {
	c *model.Cluster
}

func (p clusterPlacements) services() []string { return p.c.Services }

func (p clusterPlacements) installed(service string) bool { return p.c.HasService(service) }

func (p clusterPlacements) count(component string) int {
	n := 0
	for i := range p.c.Nodes {
		if p.c.Nodes[i].HasComponent(component) {
			n++
		}
	}
	return n
}

func (p clusterPlacements) has(node, component string) bool {
	n := p.c.Node(node)
	return n != nil && n.HasComponent(component)
}

// Requirements is the outcome of a requirement check.
type Requirements struct {
	MissingServices   []string       `json:"missing_services"`
	MissingComponents map[string]int `json:"missing_components"`
}

// Satisfied reports whether nothing is missing.
func (r Requirements) Satisfied() bool {
	return len(r.MissingServices) == 0 && len(r.MissingComponents) == 0
}

func (r Requirements) err(service string) error {
	if r.Satisfied() {
		return nil
	}
	if len(r.MissingServices) > 0 {
		return &model.Error{Kind: model.ErrReqNotMet, Object: "service", Name: service,
			Property: "services", Missing: r.MissingServices}
	}
	return &model.Error{Kind: model.ErrReqNotMet, Object: "service", Name: service,
		Property: "components", Missing: formatShortfall(r.MissingComponents)}
}

// formatShortfall renders component -> count as sorted "COMPONENT (n)" lines.
func formatShortfall(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for comp, n := range m {
		out = append(out, fmt.Sprintf("%s (%d)", comp, n))
	}
	sort.Strings(out)
	return out
}

type resolver struct {
	cat     *catalog.Catalog
	p       placements
	cluster string
}

// countRequired returns, per component of svc, how many more instances are
// needed in mode. Unbounded components count as one.
func (r resolver) countRequired(svc *catalog.ServiceDefinition, mode model.Mode) map[string]int {
	out := map[string]int{}
	for _, comp := range svc.Components {
		required := comp.Number.For(mode)
		if required == catalog.Every {
			required = 1
		}
		if short := required - r.p.count(comp.Name); short > 0 {
			out[comp.Name] = short
		}
	}
	return out
}

// isHA reports whether svc currently runs in high availability mode: some
// component has more instances than its default ceiling allows and the
// catalog permits more in ha mode.
func (r resolver) isHA(svc *catalog.ServiceDefinition) bool {
	for _, comp := range svc.Components {
		if comp.Number.HA > comp.Number.Default && r.p.count(comp.Name) > comp.Number.Default {
			return true
		}
	}
	return false
}

func (r resolver) activeMode(svc *catalog.ServiceDefinition) model.Mode {
	return model.ModeOf(r.isHA(svc))
}

// checkRequirements lists what svc needs before it can be installed in mode.
// A required service's components are satisfied if either its default or
// its ha shortfall is empty.
func (r resolver) checkRequirements(svc *catalog.ServiceDefinition, mode model.Mode) Requirements {
	req := Requirements{MissingServices: []string{}, MissingComponents: map[string]int{}}
	for _, name := range svc.Requirements.For(mode) {
		if !r.p.installed(name) {
			req.MissingServices = append(req.MissingServices, name)
		}
		dep, ok := r.cat.LookupService(name)
		if !ok {
			continue
		}
		def := r.countRequired(dep, model.ModeDefault)
		ha := r.countRequired(dep, model.ModeHA)
		if len(def) == 0 || len(ha) == 0 {
			continue
		}
		short := def
		if mode == model.ModeHA {
			short = ha
		}
		for comp, n := range short {
			req.MissingComponents[comp] = n
		}
	}
	return req
}

// dependentsOf returns the installed services whose active-mode requirements
// include service.
func (r resolver) dependentsOf(service string) []string {
	var out []string
	for _, name := range r.p.services() {
		if name == service {
			continue
		}
		svc, ok := r.cat.LookupService(name)
		if !ok {
			continue
		}
		if slices.Contains(svc.Requirements.For(r.activeMode(svc)), service) {
			out = append(out, name)
		}
	}
	return out
}

// CheckRequirements reports the services and component instances missing for
// installing service in mode.
func (e *Engine) CheckRequirements(service string, mode model.Mode) (Requirements, error) {
	svc, err := e.lookupService(service)
	if err != nil {
		return Requirements{}, err
	}
	return e.resolver().checkRequirements(svc, mode), nil
}

// CountRequired returns the per-component shortfall of service in mode.
func (e *Engine) CountRequired(service string, mode model.Mode) (map[string]int, error) {
	svc, err := e.lookupService(service)
	if err != nil {
		return nil, err
	}
	return e.resolver().countRequired(svc, mode), nil
}

// InstalledCount returns the number of nodes running the component.
func (e *Engine) InstalledCount(component string) int {
	return clusterPlacements{e.cluster}.count(component)
}

// IsHA reports whether the service runs in high availability mode. Unknown
// services are never in ha mode.
func (e *Engine) IsHA(service string) bool {
	svc, ok := e.catalog.LookupService(service)
	if !ok {
		return false
	}
	return e.resolver().isHA(svc)
}

// DependentsOf returns the installed services requiring service.
func (e *Engine) DependentsOf(service string) []string {
	return e.resolver().dependentsOf(service)
}

// ServiceStatus returns the component instances an installed service still
// lacks in its current mode. An empty map means the service is complete.
func (e *Engine) ServiceStatus(service string) (map[string]int, error) {
	svc, err := e.lookupService(service)
	if err != nil {
		return nil, err
	}
	if !e.cluster.HasService(service) {
		return nil, model.NotInstalled("cluster", e.cluster.Name, "service", service)
	}
	r := e.resolver()
	return r.countRequired(svc, r.activeMode(svc)), nil
}
