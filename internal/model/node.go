package model

import "slices"

// Node is a machine of the virtual cluster.
type Node struct {
	Name       string   `json:"name"`
	IP         string   `json:"ip"`
	RAM        int      `json:"ram"`
	CPUs       int      `json:"cpus"`
	Types      []string `json:"types"`
	Components []string `json:"components"`
}

// HasComponent reports whether the component is placed on the node.
func (n *Node) HasComponent(name string) bool {
	return slices.Contains(n.Components, name)
}

// HasType reports whether the node carries the host type tag.
func (n *Node) HasType(t string) bool {
	return slices.Contains(n.Types, t)
}

// RemoveComponent detaches the component and reports whether it was present.
func (n *Node) RemoveComponent(name string) bool {
	i := slices.Index(n.Components, name)
	if i < 0 {
		return false
	}
	n.Components = slices.Delete(n.Components, i, i+1)
	return true
}

func (n Node) Clone() Node {
	n.Types = slices.Clone(n.Types)
	n.Components = slices.Clone(n.Components)
	if n.Components == nil {
		n.Components = []string{}
	}
	return n
}

// Change is one field modification applied by a node edit.
type Change struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}
