package core

import (
	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
)

// View returns service -> component -> node names for every installed
// service. It is derived from the committed topology, so it always matches
// the last persisted snapshot.
func (e *Engine) View() model.PlacementView {
	return PlacementView(e.catalog, e.cluster)
}

// PlacementView derives the placement view of a cluster. Components without
// instances map to an empty list.
func PlacementView(cat *catalog.Catalog, c *model.Cluster) model.PlacementView {
	view := make(model.PlacementView, len(c.Services))
	for _, name := range c.Services {
		comps := map[string][]string{}
		if svc, ok := cat.LookupService(name); ok {
			for _, comp := range svc.Components {
				comps[comp.Name] = []string{}
			}
		}
		view[name] = comps
	}
	for _, n := range c.Nodes {
		for _, comp := range n.Components {
			_, svc, ok := cat.LookupComponent(comp)
			if !ok {
				continue
			}
			if comps, ok := view[svc.Name]; ok {
				comps[comp] = append(comps[comp], n.Name)
			}
		}
	}
	return view
}
