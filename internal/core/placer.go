package core

import (
	"context"
	"slices"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/metrics"
	"github.com/edvin/clusterplan/internal/model"
)

// draft overlays planned placements on the committed cluster. The check phase
// runs entirely against a draft; the commit phase replays its plan.
type draft struct {
	base    *model.Cluster
	planned []placement
	added   map[string]int
	onNode  map[string][]string
	svcs    []string
}

type placement struct {
	Node      string
	Component string
	Service   string
}

func newDraft(c *model.Cluster) *draft {
	return &draft{
		base:   c,
		added:  map[string]int{},
		onNode: map[string][]string{},
		svcs:   slices.Clone(c.Services),
	}
}

func (d *draft) services() []string { return d.svcs }

func (d *draft) installed(service string) bool { return slices.Contains(d.svcs, service) }

func (d *draft) count(component string) int {
	return clusterPlacements{d.base}.count(component) + d.added[component]
}

func (d *draft) has(node, component string) bool {
	return slices.Contains(d.onNode[node], component) || clusterPlacements{d.base}.has(node, component)
}

func (d *draft) install(service string) {
	if !d.installed(service) {
		d.svcs = append(d.svcs, service)
	}
}

func (d *draft) place(node, component, service string) {
	d.planned = append(d.planned, placement{Node: node, Component: component, Service: service})
	d.added[component]++
	d.onNode[node] = append(d.onNode[node], component)
}

// apply replays the plan on next, which must be a copy of the draft's base.
func (d *draft) apply(next *model.Cluster) {
	for _, s := range d.svcs {
		if !next.HasService(s) {
			next.Services = append(next.Services, s)
		}
	}
	for _, p := range d.planned {
		n := next.Node(p.Node)
		n.Components = append(n.Components, p.Component)
	}
}

func (d *draft) observe() {
	per := map[string]int{}
	for _, p := range d.planned {
		per[p.Service]++
	}
	for svc, n := range per {
		metrics.ObservePlacements(svc, n)
	}
}

// outcome is the result of one placement attempt.
type outcome int

const (
	placed outcome = iota
	alreadyPlaced
	rejected
)

type attempt struct {
	outcome outcome
	reason  error
}

// tryPlace plans one instance of comp on node. Companions declared by the
// component are planned on the same node when their service is installed,
// they are absent and their cardinality allows it.
func (e *Engine) tryPlace(d *draft, comp *catalog.ComponentDefinition, svc *catalog.ServiceDefinition, node string, mode model.Mode) attempt {
	if d.has(node, comp.Name) {
		return attempt{outcome: alreadyPlaced}
	}
	r := resolver{cat: e.catalog, p: d, cluster: e.cluster.Name}
	if err := r.checkCompNumber(comp, svc, mode); err != nil {
		return attempt{outcome: rejected, reason: err}
	}
	d.place(node, comp.Name, svc.Name)

	for _, name := range comp.AutoInstall {
		companion, owner, ok := e.catalog.LookupComponent(name)
		if !ok || !d.installed(owner.Name) || d.has(node, name) {
			continue
		}
		if err := r.checkCompNumber(companion, owner, mode); err != nil {
			e.logger.Debug().Err(err).Str("node", node).Str("component", name).Msg("companion skipped")
			continue
		}
		d.place(node, name, owner.Name)
	}
	return attempt{outcome: placed}
}

// allocate plans number[mode] instances of comp. Host types are walked in
// catalog order and nodes in insertion order, each node at most once. An
// instance already on a node counts toward the requirement. Every-node
// components are attempted on every match. It returns the number of instances
// still missing.
func (e *Engine) allocate(d *draft, comp *catalog.ComponentDefinition, svc *catalog.ServiceDefinition, mode model.Mode) int {
	required := comp.Number.For(mode)
	if required == 0 {
		return 0
	}

	remaining := required
	visited := map[string]bool{}
	for _, hostType := range comp.HostTypes {
		for i := range d.base.Nodes {
			if required != catalog.Every && remaining == 0 {
				return 0
			}
			n := &d.base.Nodes[i]
			if visited[n.Name] || !n.HasType(hostType) {
				continue
			}
			visited[n.Name] = true

			a := e.tryPlace(d, comp, svc, n.Name, mode)
			switch a.outcome {
			case placed, alreadyPlaced:
				remaining--
			case rejected:
				e.logger.Debug().Err(a.reason).Str("node", n.Name).Str("component", comp.Name).Msg("placement rejected")
			}
		}
	}

	if required == catalog.Every || remaining <= 0 {
		return 0
	}
	return remaining
}

// AutoAssign places every component of an installed service on matching
// nodes, as many instances as mode requires. All components are checked
// first; if any cannot be satisfied nothing is placed and ErrReqNotMet lists
// the shortfall. It returns the number of instances placed.
func (e *Engine) AutoAssign(ctx context.Context, service string, mode model.Mode) (n int, err error) {
	defer e.observe("auto_assign", &err)

	svc, err := e.lookupService(service)
	if err != nil {
		return 0, err
	}
	if !e.cluster.HasService(service) {
		return 0, model.NotInstalled("cluster", e.cluster.Name, "service", service)
	}
	if err := e.resolver().checkRequirements(svc, mode).err(service); err != nil {
		return 0, err
	}

	d := newDraft(e.cluster)
	shortfall := map[string]int{}
	for i := range svc.Components {
		if missing := e.allocate(d, &svc.Components[i], svc, mode); missing > 0 {
			shortfall[svc.Components[i].Name] = missing
		}
	}
	if len(shortfall) > 0 {
		return 0, &model.Error{Kind: model.ErrReqNotMet, Object: "service", Name: service,
			Property: "components", Missing: formatShortfall(shortfall)}
	}
	if len(d.planned) == 0 {
		return 0, nil
	}

	next := e.cluster.Clone()
	d.apply(next)
	if err := e.commit(ctx, next); err != nil {
		return 0, err
	}
	d.observe()

	e.logger.Info().Str("service", service).Str("mode", mode.String()).Int("placed", len(d.planned)).Msg("components assigned")
	return len(d.planned), nil
}
