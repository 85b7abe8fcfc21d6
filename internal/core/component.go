package core

import (
	"context"

	"github.com/edvin/clusterplan/internal/model"
)

// AddComponent places one instance of a component on a node. When mode is
// nil the service's current mode is used. Companion components declared by
// the component are placed on the same node when possible. It returns the
// number of instances placed, companions included.
func (e *Engine) AddComponent(ctx context.Context, name, node string, mode *model.Mode) (n int, err error) {
	defer e.observe("add_component", &err)

	comp, svc, err := e.lookupComponent(name)
	if err != nil {
		return 0, err
	}
	if e.cluster.Node(node) == nil {
		return 0, model.NotFound("node", node)
	}
	if !e.cluster.HasService(svc.Name) {
		return 0, model.NotInstalled("cluster", e.cluster.Name, "service", svc.Name)
	}

	r := e.resolver()
	m := r.activeMode(svc)
	if mode != nil {
		m = *mode
	}
	if err := r.checkRequirements(svc, m).err(svc.Name); err != nil {
		return 0, err
	}

	if err := r.checkCompNumber(comp, svc, m); err != nil {
		return 0, err
	}

	d := newDraft(e.cluster)
	a := e.tryPlace(d, comp, svc, node, m)
	switch a.outcome {
	case rejected:
		return 0, a.reason
	case alreadyPlaced:
		return 0, model.Conflict("node", node, "component", name)
	}

	next := e.cluster.Clone()
	d.apply(next)
	if err := e.commit(ctx, next); err != nil {
		return 0, err
	}
	d.observe()

	e.logger.Info().Str("component", name).Str("node", node).Str("mode", m.String()).Int("placed", len(d.planned)).Msg("component added")
	return len(d.planned), nil
}

// RemoveComponent detaches a component from a node.
func (e *Engine) RemoveComponent(ctx context.Context, name, node string) (err error) {
	defer e.observe("remove_component", &err)

	if _, _, err := e.lookupComponent(name); err != nil {
		return err
	}
	if e.cluster.Node(node) == nil {
		return model.NotFound("node", node)
	}

	next := e.cluster.Clone()
	if !next.Node(node).RemoveComponent(name) {
		return model.NotInstalled("node", node, "component", name)
	}
	if err := e.commit(ctx, next); err != nil {
		return err
	}
	e.logger.Info().Str("component", name).Str("node", node).Msg("component removed")
	return nil
}
