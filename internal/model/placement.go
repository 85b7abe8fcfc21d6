package model

// PlacementView is the read-only derived view consumed by renderers:
// service -> component -> node names.
type PlacementView map[string]map[string][]string

// Hosts returns the node names running the component of the service.
func (v PlacementView) Hosts(service, component string) []string {
	return v[service][component]
}
