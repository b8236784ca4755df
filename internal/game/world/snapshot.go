package world

import "fmt"

// Snapshot is the serializable projection of a Graph, used by the
// persistence layer. The JSON encoding of this struct is the opaque
// snapshot format the storage contract speaks of.
type Snapshot struct {
	Label     string             `json:"label"`
	Start     string             `json:"start"`
	Locations []LocationSnapshot `json:"locations"`
}

// LocationSnapshot is one location's persisted state.
type LocationSnapshot struct {
	Name      string          `json:"name"`
	Message   string          `json:"message"`
	Occupants []string        `json:"occupants,omitempty"`
	Routes    []RouteSnapshot `json:"routes,omitempty"`
}

// RouteSnapshot is one route's persisted state.
type RouteSnapshot struct {
	Direction string `json:"direction"`
	To        string `json:"to"`
	View      string `json:"view"`
}

// Snapshot captures the graph's full state. Occupant lists persist
// verbatim, live player identities included; restore rebuilds them
// as-is. Callers are expected to hold the owning entry's lock.
func (g *Graph) Snapshot() Snapshot {
	snap := Snapshot{
		Label: g.Label,
		Start: g.Start,
	}
	for _, loc := range g.locations {
		ls := LocationSnapshot{
			Name:      loc.Name,
			Message:   loc.Message,
			Occupants: append([]string(nil), loc.Occupants...),
		}
		for dir, route := range loc.Routes {
			ls.Routes = append(ls.Routes, RouteSnapshot{
				Direction: dir,
				To:        route.To,
				View:      route.View,
			})
		}
		snap.Locations = append(snap.Locations, ls)
	}
	return snap
}

// RestoreGraph rebuilds a Graph from a snapshot.
//
// Postcondition: Returns a validated Graph, or an error if the snapshot
// violates graph invariants.
func RestoreGraph(snap Snapshot) (*Graph, error) {
	g := NewGraph(snap.Label, snap.Start)
	for _, ls := range snap.Locations {
		loc := &Location{
			Name:      ls.Name,
			Message:   ls.Message,
			Occupants: append([]string(nil), ls.Occupants...),
			Routes:    make(map[string]Route, len(ls.Routes)),
		}
		for _, rs := range ls.Routes {
			loc.Routes[rs.Direction] = Route{To: rs.To, View: rs.View}
		}
		if err := g.AddLocation(loc); err != nil {
			return nil, fmt.Errorf("restoring graph: %w", err)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("restoring graph: %w", err)
	}
	return g, nil
}
