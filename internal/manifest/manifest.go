// Package manifest reads and writes YAML cluster manifests and applies them
// through the engine operations.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edvin/clusterplan/internal/core"
	"github.com/edvin/clusterplan/internal/model"
)

var validate = validator.New()

// Manifest is the declarative form of a cluster topology.
type Manifest struct {
	Name     string            `yaml:"name" validate:"required"`
	Domain   string            `yaml:"domain,omitempty"`
	Realm    string            `yaml:"realm,omitempty"`
	Location model.Location    `yaml:"location,omitempty" validate:"omitempty,oneof=local remote"`
	Bundles  []string          `yaml:"bundles,omitempty" validate:"dive,required"`
	Versions map[string]string `yaml:"versions,omitempty"`

	Nodes      []Node      `yaml:"nodes" validate:"dive"`
	Services   []Service   `yaml:"services" validate:"dive"`
	Components []Component `yaml:"components,omitempty" validate:"dive"`
}

type Node struct {
	Name  string   `yaml:"name" validate:"required"`
	IP    string   `yaml:"ip" validate:"required,ip"`
	RAM   int      `yaml:"ram" validate:"gt=0"`
	CPUs  int      `yaml:"cpus,omitempty" validate:"gte=0"`
	Types []string `yaml:"types" validate:"required,min=1"`
}

type Service struct {
	Name string     `yaml:"name" validate:"required"`
	Mode model.Mode `yaml:"mode"`
}

// Component lists the nodes hosting a component.
type Component struct {
	Name  string   `yaml:"name" validate:"required"`
	Nodes []string `yaml:"nodes" validate:"required,min=1,dive,required"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Write writes the manifest to disk.
func Write(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	header := fmt.Sprintf("# Topology of the cluster %q.\n"+
		"# Apply with `clusterctl apply -f <file>`.\n\n", m.Name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(header+string(data)), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Result counts what Apply changed. Entries already present are skipped.
type Result struct {
	Bundles    int
	Nodes      int
	Services   int
	Components int
	Versions   int
}

// Apply brings the cluster up to the manifest. It only adds: nodes, services
// and components missing from the manifest are left in place. Each step is
// persisted on its own, so a failure leaves the steps before it applied.
func Apply(ctx context.Context, e *core.Engine, m *Manifest) (Result, error) {
	var res Result
	c := e.Cluster()

	for _, b := range m.Bundles {
		if c.HasBundle(b) {
			continue
		}
		if err := e.AddBundle(ctx, b, core.BundleLast); err != nil {
			return res, fmt.Errorf("bundle %s: %w", b, err)
		}
		res.Bundles++
	}

	for _, n := range m.Nodes {
		if c.Node(n.Name) != nil {
			continue
		}
		spec := core.NodeSpec{Name: n.Name, IP: n.IP, RAM: n.RAM, CPUs: n.CPUs, Types: n.Types}
		if err := e.AddNode(ctx, spec); err != nil {
			return res, fmt.Errorf("node %s: %w", n.Name, err)
		}
		res.Nodes++
	}

	for _, s := range m.Services {
		if c.HasService(s.Name) {
			continue
		}
		if _, err := e.AddService(ctx, s.Name, core.InstallOptions{Mode: s.Mode}); err != nil {
			return res, fmt.Errorf("service %s: %w", s.Name, err)
		}
		res.Services++
	}

	for _, svc := range slices.Sorted(maps.Keys(m.Versions)) {
		v, err := e.SetServiceVersion(ctx, svc, m.Versions[svc])
		if err != nil {
			return res, fmt.Errorf("version %s: %w", svc, err)
		}
		if v != c.Versions[svc] {
			res.Versions++
		}
	}

	modes := make(map[string]model.Mode, len(m.Services))
	for _, s := range m.Services {
		modes[s.Name] = s.Mode
	}
	for _, comp := range m.Components {
		for _, node := range comp.Nodes {
			if n, err := e.Node(node); err == nil && n.HasComponent(comp.Name) {
				continue
			}
			var mode *model.Mode
			if _, svc, ok := e.Catalog().LookupComponent(comp.Name); ok {
				if sm, ok := modes[svc.Name]; ok {
					mode = &sm
				}
			}
			if _, err := e.AddComponent(ctx, comp.Name, node, mode); err != nil {
				return res, fmt.Errorf("component %s on %s: %w", comp.Name, node, err)
			}
			res.Components++
		}
	}
	return res, nil
}

// Export renders the current topology of the engine's cluster.
func Export(e *core.Engine) *Manifest {
	c := e.Cluster()
	m := &Manifest{
		Name:     c.Name,
		Domain:   c.Domain,
		Realm:    c.Realm,
		Location: c.Location,
		Bundles:  c.Bundles,
		Nodes:    make([]Node, 0, len(c.Nodes)),
		Services: make([]Service, 0, len(c.Services)),
	}
	if len(c.Versions) > 0 {
		m.Versions = c.Versions
	}

	for _, n := range c.Nodes {
		m.Nodes = append(m.Nodes, Node{Name: n.Name, IP: n.IP, RAM: n.RAM, CPUs: n.CPUs, Types: n.Types})
	}

	view := e.View()
	for _, name := range c.Services {
		m.Services = append(m.Services, Service{Name: name, Mode: model.ModeOf(e.IsHA(name))})

		svc, ok := e.Catalog().LookupService(name)
		if !ok {
			continue
		}
		for _, comp := range svc.Components {
			if nodes := view.Hosts(name, comp.Name); len(nodes) > 0 {
				m.Components = append(m.Components, Component{Name: comp.Name, Nodes: nodes})
			}
		}
	}
	return m
}
