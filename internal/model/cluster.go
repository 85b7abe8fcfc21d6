package model

import (
	"slices"
	"time"
)

// Location describes where the nodes of a cluster are launched.
type Location string

const (
	LocationLocal  Location = "local"
	LocationRemote Location = "remote"
)

// Cluster is the mutable topology of one virtual cluster. It is persisted as a
// single snapshot and is the only source of truth for node placement.
type Cluster struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Domain   string            `json:"domain"`
	Realm    string            `json:"realm"`
	Location Location          `json:"location"`
	Bundles  []string          `json:"bundles"`
	Services []string          `json:"services"`
	Nodes    []Node            `json:"nodes"`
	Versions map[string]string `json:"versions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCluster returns an empty cluster with non-nil collections so that a fresh
// snapshot round-trips to the same value.
func NewCluster(id, name string) *Cluster {
	return &Cluster{
		ID:       id,
		Name:     name,
		Location: LocationLocal,
		Bundles:  []string{},
		Services: []string{},
		Nodes:    []Node{},
	}
}

// Node returns the node with the given name, or nil.
func (c *Cluster) Node(name string) *Node {
	for i := range c.Nodes {
		if c.Nodes[i].Name == name {
			return &c.Nodes[i]
		}
	}
	return nil
}

// NodeByIP returns the node using the given IP address, or nil.
func (c *Cluster) NodeByIP(ip string) *Node {
	for i := range c.Nodes {
		if c.Nodes[i].IP == ip {
			return &c.Nodes[i]
		}
	}
	return nil
}

// HasService reports whether the service is installed.
func (c *Cluster) HasService(name string) bool {
	return slices.Contains(c.Services, name)
}

// HasBundle reports whether the bundle is active.
func (c *Cluster) HasBundle(name string) bool {
	return slices.Contains(c.Bundles, name)
}

// Clone returns a deep copy of the cluster.
func (c *Cluster) Clone() *Cluster {
	out := *c
	out.Bundles = slices.Clone(c.Bundles)
	out.Services = slices.Clone(c.Services)
	out.Nodes = make([]Node, len(c.Nodes))
	for i, n := range c.Nodes {
		out.Nodes[i] = n.Clone()
	}
	if c.Versions != nil {
		out.Versions = make(map[string]string, len(c.Versions))
		for k, v := range c.Versions {
			out.Versions[k] = v
		}
	}
	return &out
}

// ClusterSummary is the listing view of a cluster.
type ClusterSummary struct {
	Name     string   `json:"name"`
	Domain   string   `json:"domain"`
	Location Location `json:"location"`
	Nodes    int      `json:"nodes"`
	Services []string `json:"services"`
	Broken   bool     `json:"broken,omitempty"`
}

// Summary returns the listing view of the cluster.
func (c *Cluster) Summary() ClusterSummary {
	return ClusterSummary{
		Name:     c.Name,
		Domain:   c.Domain,
		Location: c.Location,
		Nodes:    len(c.Nodes),
		Services: slices.Clone(c.Services),
	}
}
