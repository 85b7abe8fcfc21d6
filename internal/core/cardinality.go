package core

import (
	"fmt"

	"github.com/edvin/clusterplan/internal/catalog"
	"github.com/edvin/clusterplan/internal/model"
)

// checkCompNumber verifies that one more instance of comp may be placed in
// mode. It has no side effects.
//
// The service enters ha mode when the new instance reaches the component's ha
// ceiling or takes a service that is not ha yet above the component's default
// ceiling. Entering ha mode is refused while any sibling component is above
// its own ha ceiling.
func (r resolver) checkCompNumber(comp *catalog.ComponentDefinition, svc *catalog.ServiceDefinition, mode model.Mode) error {
	prospective := r.p.count(comp.Name) + 1

	ceiling := comp.Number.For(mode)
	if ceiling != catalog.Every && prospective > ceiling {
		return &model.Error{Kind: model.ErrCapacityExceeded, Object: "cluster", Name: r.cluster,
			Property: "component", Value: comp.Name}
	}

	crossing := comp.Number.Default != catalog.Every && comp.Number.HA > comp.Number.Default &&
		prospective > comp.Number.Default && !r.isHA(svc)
	if prospective != comp.Number.HA && !crossing {
		return nil
	}

	var excess []string
	for i := range svc.Components {
		other := &svc.Components[i]
		if other.Name == comp.Name || other.Number.HA == catalog.Every {
			continue
		}
		if n := r.p.count(other.Name); n > other.Number.HA {
			excess = append(excess, fmt.Sprintf("%s: %d installed, %d allowed", other.Name, n, other.Number.HA))
		}
	}
	if len(excess) > 0 {
		return &model.Error{Kind: model.ErrHAModeConflict, Object: "service", Name: svc.Name,
			Property: "components", Missing: excess}
	}
	return nil
}
