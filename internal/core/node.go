package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/clusterplan/internal/model"
)

var validate = validator.New()

// NodeSpec describes a node to add.
type NodeSpec struct {
	Name  string   `json:"name" validate:"required"`
	IP    string   `json:"ip" validate:"required,ip"`
	RAM   int      `json:"ram" validate:"gt=0"`
	CPUs  int      `json:"cpus" validate:"gt=0"`
	Types []string `json:"types" validate:"required,min=1,dive,required"`
}

// NodeEdit lists the node fields to change. Nil fields are left untouched.
type NodeEdit struct {
	IP      *string
	RAM     *int
	CPUs    *int
	NewName *string
}

// AddNode adds a node with no components.
func (e *Engine) AddNode(ctx context.Context, spec NodeSpec) (err error) {
	defer e.observe("add_node", &err)

	if spec.CPUs == 0 {
		spec.CPUs = 1
	}
	if err := validateStruct("node", spec.Name, spec); err != nil {
		return err
	}
	for _, t := range spec.Types {
		if known := e.catalog.HostTypes(); len(known) > 0 && !slices.Contains(known, t) {
			return model.Invalid("node", spec.Name, "type", t, "unknown host type")
		}
	}
	if e.cluster.Node(spec.Name) != nil {
		return model.Conflict("node", spec.Name, "name", spec.Name)
	}
	if e.cluster.NodeByIP(spec.IP) != nil {
		return model.Conflict("node", spec.Name, "IP", spec.IP)
	}
	if err := checkNodeName(spec.Name); err != nil {
		return err
	}
	if len(spec.Types) > 1 {
		for _, t := range spec.Types {
			if e.catalog.IsDedicated(t) {
				return &model.Error{Kind: model.ErrIncompatibleTypes, Object: "node", Name: spec.Name, Value: t}
			}
		}
	}

	next := e.cluster.Clone()
	next.Nodes = append(next.Nodes, model.Node{
		Name:       spec.Name,
		IP:         spec.IP,
		RAM:        spec.RAM,
		CPUs:       spec.CPUs,
		Types:      slices.Clone(spec.Types),
		Components: []string{},
	})
	if err := e.commit(ctx, next); err != nil {
		return err
	}
	e.logger.Info().Str("node", spec.Name).Str("ip", spec.IP).Strs("types", spec.Types).Msg("node added")
	return nil
}

// RemoveNode deletes a node together with its placements.
func (e *Engine) RemoveNode(ctx context.Context, name string) (err error) {
	defer e.observe("remove_node", &err)

	if e.cluster.Node(name) == nil {
		return model.NotFound("node", name)
	}
	next := e.cluster.Clone()
	next.Nodes = slices.DeleteFunc(next.Nodes, func(n model.Node) bool { return n.Name == name })
	if err := e.commit(ctx, next); err != nil {
		return err
	}
	e.logger.Info().Str("node", name).Msg("node removed")
	return nil
}

// EditNode changes the given fields of a node. Every field is validated
// before anything is modified. It returns the changes actually applied; when
// there are none nothing is persisted.
func (e *Engine) EditNode(ctx context.Context, name string, edit NodeEdit) (changes []model.Change, err error) {
	defer e.observe("edit_node", &err)

	cur := e.cluster.Node(name)
	if cur == nil {
		return nil, model.NotFound("node", name)
	}

	if edit.IP != nil && *edit.IP != cur.IP {
		if err := validate.Var(*edit.IP, "required,ip"); err != nil {
			return nil, model.Invalid("node", name, "IP", *edit.IP, "not an IP address")
		}
		if other := e.cluster.NodeByIP(*edit.IP); other != nil {
			return nil, model.Conflict("node", other.Name, "IP", *edit.IP)
		}
		changes = append(changes, model.Change{Field: "ip", Old: cur.IP, New: *edit.IP})
	}
	if edit.RAM != nil && *edit.RAM != cur.RAM {
		if *edit.RAM <= 0 {
			return nil, model.Invalid("node", name, "ram", fmt.Sprint(*edit.RAM), "must be positive")
		}
		changes = append(changes, model.Change{Field: "ram", Old: cur.RAM, New: *edit.RAM})
	}
	if edit.CPUs != nil && *edit.CPUs != cur.CPUs {
		if *edit.CPUs <= 0 {
			return nil, model.Invalid("node", name, "cpus", fmt.Sprint(*edit.CPUs), "must be positive")
		}
		changes = append(changes, model.Change{Field: "cpus", Old: cur.CPUs, New: *edit.CPUs})
	}
	if edit.NewName != nil && *edit.NewName != cur.Name {
		if *edit.NewName == "" {
			return nil, model.Invalid("node", name, "name", "", "must not be empty")
		}
		if e.cluster.Node(*edit.NewName) != nil {
			return nil, model.Conflict("node", *edit.NewName, "name", *edit.NewName)
		}
		if err := checkNodeName(*edit.NewName); err != nil {
			return nil, err
		}
		changes = append(changes, model.Change{Field: "name", Old: cur.Name, New: *edit.NewName})
	}
	if len(changes) == 0 {
		return changes, nil
	}

	next := e.cluster.Clone()
	n := next.Node(name)
	for _, c := range changes {
		switch c.Field {
		case "ip":
			n.IP = c.New.(string)
		case "ram":
			n.RAM = c.New.(int)
		case "cpus":
			n.CPUs = c.New.(int)
		case "name":
			n.Name = c.New.(string)
		}
	}
	if err := e.commit(ctx, next); err != nil {
		return nil, err
	}
	e.logger.Info().Str("node", name).Int("changes", len(changes)).Msg("node edited")
	return changes, nil
}

// Node returns a copy of the named node.
func (e *Engine) Node(name string) (model.Node, error) {
	n := e.cluster.Node(name)
	if n == nil {
		return model.Node{}, model.NotFound("node", name)
	}
	return n.Clone(), nil
}

// Nodes returns a copy of every node in insertion order.
func (e *Engine) Nodes() []model.Node {
	out := make([]model.Node, len(e.cluster.Nodes))
	for i, n := range e.cluster.Nodes {
		out[i] = n.Clone()
	}
	return out
}

func checkNodeName(name string) error {
	if r := []rune(name); len(r) > 0 && unicode.IsDigit(r[0]) {
		return &model.Error{Kind: model.ErrInvalidName, Object: "node", Name: name,
			Reason: "the name must not start with a digit"}
	}
	return nil
}

// validateStruct runs the struct tags of v and reports the first failing field
// as an ErrInvalid error.
func validateStruct(object, name string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return model.Invalid(object, name, fe.Field(), fmt.Sprint(fe.Value()), "failed "+fe.Tag())
	}
	return fmt.Errorf("validate %s: %w", object, err)
}
