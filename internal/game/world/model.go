// Package world provides the dungeon world model: a graph of named locations
// connected by directional routes, with per-location occupant lists.
//
// A Graph has no locking of its own. Each Graph is owned by exactly one
// dungeon registry entry, and all mutation happens under that entry's lock.
package world

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLocation is returned when a location name does not resolve.
var ErrUnknownLocation = errors.New("unknown location")

// Route is a one-way, direction-labeled passage to another location.
type Route struct {
	// To is the name of the destination location.
	To string
	// View is the flavour text shown when looking down this route.
	View string
}

// Location is a vertex in the dungeon graph.
type Location struct {
	// Name uniquely identifies the location within its graph.
	Name string
	// Message is the descriptive text shown to players here.
	Message string
	// Routes maps a direction (e.g. "north") to the route leading that way.
	Routes map[string]Route
	// Occupants holds the things at this location. Items and player
	// identities share this one namespace; the graph does not
	// distinguish them structurally.
	Occupants []string
}

// Graph is one playable dungeon instance.
type Graph struct {
	// Label is the human-readable dungeon type this graph was built from.
	Label string
	// Start is the name of the location new players are placed at.
	Start string

	locations map[string]*Location
}

// NewGraph creates an empty graph with the given type label and start location.
//
// Precondition: label must be non-empty; start is validated by the caller
// once locations have been added.
func NewGraph(label, start string) *Graph {
	return &Graph{
		Label:     label,
		Start:     start,
		locations: make(map[string]*Location),
	}
}

// AddLocation inserts a location into the graph.
//
// Postcondition: Returns an error if a location with the same name exists.
func (g *Graph) AddLocation(loc *Location) error {
	if _, exists := g.locations[loc.Name]; exists {
		return fmt.Errorf("duplicate location %q", loc.Name)
	}
	if loc.Routes == nil {
		loc.Routes = make(map[string]Route)
	}
	g.locations[loc.Name] = loc
	return nil
}

// Location returns the location with the given name.
//
// Postcondition: Returns (location, true) if found, or (nil, false).
func (g *Graph) Location(name string) (*Location, bool) {
	loc, ok := g.locations[name]
	return loc, ok
}

// LocationCount returns the number of locations in the graph.
func (g *Graph) LocationCount() int {
	return len(g.locations)
}

// LocationInfo renders the description of a location: its message, the
// routes leading out of it, and the occupants present.
//
// Postcondition: Returns the rendered text, or ErrUnknownLocation.
func (g *Graph) LocationInfo(name string) (string, error) {
	loc, ok := g.locations[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(loc.Message)
	b.WriteString("\n")

	dirs := make([]string, 0, len(loc.Routes))
	for dir := range loc.Routes {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		fmt.Fprintf(&b, "To the %s there is %s\n", dir, loc.Routes[dir].View)
	}

	if len(loc.Occupants) > 0 {
		b.WriteString("You can see: ")
		for _, o := range loc.Occupants {
			b.WriteString(o)
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")

	return b.String(), nil
}

// MoveOccupant relocates an occupant along the route in the given direction.
// A missing route is a normal outcome, not an error: the occupant stays put
// and the origin name is returned unchanged.
//
// Precondition: from must be a valid location holding the occupant.
// Postcondition: Returns the occupant's location name after the move.
func (g *Graph) MoveOccupant(from, direction, who string) string {
	loc, ok := g.locations[from]
	if !ok {
		return from
	}
	route, ok := loc.Routes[direction]
	if !ok {
		return from
	}
	dest, ok := g.locations[route.To]
	if !ok {
		return from
	}
	loc.removeOccupant(who)
	dest.Occupants = append(dest.Occupants, who)
	return dest.Name
}

// AddOccupant places an occupant (item or player identity) at a location.
//
// Precondition: loc must be a valid location name.
func (g *Graph) AddOccupant(loc, who string) {
	if l, ok := g.locations[loc]; ok {
		l.Occupants = append(l.Occupants, who)
	}
}

// RemoveOccupant removes one instance of an occupant from a location.
// Removal is idempotent: a missing occupant or location is a no-op.
func (g *Graph) RemoveOccupant(loc, who string) {
	if l, ok := g.locations[loc]; ok {
		l.removeOccupant(who)
	}
}

// ContainsOccupant reports whether any location in the graph holds the
// given occupant. Linear in the number of locations; callers on hot paths
// should prefer the registry's reverse index.
func (g *Graph) ContainsOccupant(who string) bool {
	for _, loc := range g.locations {
		for _, o := range loc.Occupants {
			if o == who {
				return true
			}
		}
	}
	return false
}

// ItemVisible reports whether an item is observably present at a location.
// It renders the location text, strips out the supplied player identities,
// and does a case-insensitive substring test. This preserves the original
// system's behavior, including its false positives when an item name is a
// substring of other rendered text.
//
// Precondition: loc must be a valid location name.
func (g *Graph) ItemVisible(loc string, playerNames []string, item string) bool {
	info, err := g.LocationInfo(loc)
	if err != nil {
		return false
	}
	for _, name := range playerNames {
		info = strings.ReplaceAll(info, name, "")
	}
	return strings.Contains(strings.ToLower(info), strings.ToLower(item))
}

// removeOccupant deletes the first instance of who, preserving order.
func (l *Location) removeOccupant(who string) {
	for i, o := range l.Occupants {
		if o == who {
			l.Occupants = append(l.Occupants[:i], l.Occupants[i+1:]...)
			return
		}
	}
}

// Validate checks graph invariants: the start location exists and every
// route targets a known location.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (g *Graph) Validate() error {
	if g.Start == "" {
		return errors.New("graph start location must not be empty")
	}
	if _, ok := g.locations[g.Start]; !ok {
		return fmt.Errorf("start location %q not found", g.Start)
	}
	for name, loc := range g.locations {
		if loc.Name != name {
			return fmt.Errorf("location key %q does not match name %q", name, loc.Name)
		}
		for dir, route := range loc.Routes {
			if _, ok := g.locations[route.To]; !ok {
				return fmt.Errorf("location %q: route %q targets unknown location %q", name, dir, route.To)
			}
		}
	}
	return nil
}
