// Package catalog holds the immutable schema of services, their components,
// cardinality rules and requirements. A Catalog is validated once when it is
// built and never changes afterwards; bundles produce new catalogs.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/edvin/clusterplan/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Every is the cardinality meaning "every matching node".
const Every = -1

// Number holds the per-mode instance ceiling of a component.
type Number struct {
	Default int `yaml:"default" json:"default" validate:"min=-1"`
	HA      int `yaml:"ha" json:"ha" validate:"min=-1"`
}

// For returns the ceiling that applies in mode m.
func (n Number) For(m model.Mode) int {
	if m == model.ModeHA {
		return n.HA
	}
	return n.Default
}

// Requirements lists the services a service needs, per mode.
type Requirements struct {
	Default []string `yaml:"default" json:"default"`
	HA      []string `yaml:"ha" json:"ha"`
}

func (r Requirements) For(m model.Mode) []string {
	if m == model.ModeHA {
		return r.HA
	}
	return r.Default
}

// ComponentDefinition describes one deployable role of a service.
type ComponentDefinition struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	Abbr        string   `yaml:"abbr" json:"abbr" validate:"required"`
	HostTypes   []string `yaml:"host_types" json:"host_types" validate:"required,min=1,dive,required"`
	Number      Number   `yaml:"number" json:"number"`
	AutoInstall []string `yaml:"auto_install,omitempty" json:"auto_install,omitempty" validate:"dive,required"`

	service string
}

// Service returns the name of the owning service.
func (c *ComponentDefinition) Service() string { return c.service }

// ServiceDefinition describes an installable service.
type ServiceDefinition struct {
	Name           string                `yaml:"name" json:"name" validate:"required"`
	Components     []ComponentDefinition `yaml:"components" json:"components" validate:"dive"`
	Requirements   Requirements          `yaml:"requirements" json:"requirements"`
	AutoInstall    []string              `yaml:"auto_install,omitempty" json:"auto_install,omitempty" validate:"dive,required"`
	Versions       []string              `yaml:"versions,omitempty" json:"versions,omitempty"`
	DefaultVersion string                `yaml:"default_version,omitempty" json:"default_version,omitempty"`

	// Bundle is the bundle the service was contributed by, empty for the base catalog.
	Bundle string `yaml:"-" json:"bundle,omitempty"`
}

// Component returns the component of this service with the given name.
func (s *ServiceDefinition) Component(name string) (*ComponentDefinition, bool) {
	for i := range s.Components {
		if s.Components[i].Name == name {
			return &s.Components[i], true
		}
	}
	return nil, false
}

// Document is the parsed, not yet validated, form of a catalog file.
type Document struct {
	HostTypes          []string            `yaml:"host_types" json:"host_types"`
	DedicatedHostTypes []string            `yaml:"dedicated_host_types" json:"dedicated_host_types"`
	Services           []ServiceDefinition `yaml:"services" json:"services" validate:"dive"`
}

// Catalog is the validated, read-only service schema.
type Catalog struct {
	source    string
	doc       Document
	services  map[string]*ServiceDefinition
	component map[string]*ComponentDefinition
}

// Parse decodes a catalog document without validating it.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &doc, nil
}

// Load parses and validates a catalog. source names the document in errors.
func Load(r io.Reader, source string) (*Catalog, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return New(doc, source)
}

// LoadFile loads a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Load(f, path)
}

// MustLoad is like Load but panics on a malformed catalog. A broken catalog is
// a boot-time failure, never a runtime one.
func MustLoad(r io.Reader, source string) *Catalog {
	c, err := Load(r, source)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	return MustLoad(bytes.NewReader(defaultCatalog), "embedded catalog")
}

// Open loads the catalog at path, or the embedded one when path is empty.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// New validates doc and builds the lookup indexes.
func New(doc *Document, source string) (*Catalog, error) {
	c := &Catalog{
		source:    source,
		doc:       cloneDocument(doc),
		services:  make(map[string]*ServiceDefinition),
		component: make(map[string]*ComponentDefinition),
	}
	if len(c.doc.DedicatedHostTypes) == 0 {
		c.doc.DedicatedHostTypes = []string{"ldap"}
	}

	if err := validateDocument(&c.doc); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", source, err)
	}

	for i := range c.doc.Services {
		s := &c.doc.Services[i]
		c.services[s.Name] = s
		for j := range s.Components {
			comp := &s.Components[j]
			comp.service = s.Name
			c.component[comp.Name] = comp
		}
	}
	return c, nil
}

// Source names the document the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// LookupService returns the definition of a service.
func (c *Catalog) LookupService(name string) (*ServiceDefinition, bool) {
	s, ok := c.services[name]
	return s, ok
}

// LookupComponent returns a component and its owning service. Component names
// are unique across the whole catalog.
func (c *Catalog) LookupComponent(name string) (*ComponentDefinition, *ServiceDefinition, bool) {
	comp, ok := c.component[name]
	if !ok {
		return nil, nil, false
	}
	return comp, c.services[comp.service], true
}

// Services returns every service in catalog order.
func (c *Catalog) Services() []*ServiceDefinition {
	out := make([]*ServiceDefinition, 0, len(c.doc.Services))
	for i := range c.doc.Services {
		out = append(out, &c.doc.Services[i])
	}
	return out
}

// HostTypes returns the host type tags declared by the catalog.
func (c *Catalog) HostTypes() []string {
	return slices.Clone(c.doc.HostTypes)
}

// IsDedicated reports whether a host type cannot share a node with other types.
func (c *Catalog) IsDedicated(hostType string) bool {
	return slices.Contains(c.doc.DedicatedHostTypes, hostType)
}

func cloneDocument(doc *Document) Document {
	out := Document{
		HostTypes:          slices.Clone(doc.HostTypes),
		DedicatedHostTypes: slices.Clone(doc.DedicatedHostTypes),
		Services:           make([]ServiceDefinition, len(doc.Services)),
	}
	for i, s := range doc.Services {
		s.Requirements = Requirements{
			Default: slices.Clone(s.Requirements.Default),
			HA:      slices.Clone(s.Requirements.HA),
		}
		s.AutoInstall = slices.Clone(s.AutoInstall)
		s.Versions = slices.Clone(s.Versions)
		comps := make([]ComponentDefinition, len(s.Components))
		for j, comp := range s.Components {
			comp.HostTypes = slices.Clone(comp.HostTypes)
			comp.AutoInstall = slices.Clone(comp.AutoInstall)
			comps[j] = comp
		}
		s.Components = comps
		out.Services[i] = s
	}
	return out
}
