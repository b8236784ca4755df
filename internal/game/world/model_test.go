package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// testGraph builds a two-location graph: cave -(north)-> ledge, ledge -(south)-> cave.
func testGraph() *Graph {
	g := NewGraph("caverns", "cave")
	_ = g.AddLocation(&Location{
		Name:    "cave",
		Message: "A dark cave.",
		Routes: map[string]Route{
			"north": {To: "ledge", View: "a narrow climb"},
		},
		Occupants: []string{"lantern"},
	})
	_ = g.AddLocation(&Location{
		Name:    "ledge",
		Message: "A windy ledge.",
		Routes: map[string]Route{
			"south": {To: "cave", View: "a steep drop"},
		},
	})
	return g
}

func TestGraph_Validate(t *testing.T) {
	g := testGraph()
	require.NoError(t, g.Validate())
}

func TestGraph_Validate_MissingStart(t *testing.T) {
	g := NewGraph("caverns", "nowhere")
	_ = g.AddLocation(&Location{Name: "cave", Message: "A dark cave."})
	err := g.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "start location")
}

func TestGraph_Validate_DanglingRoute(t *testing.T) {
	g := NewGraph("caverns", "cave")
	_ = g.AddLocation(&Location{
		Name:    "cave",
		Message: "A dark cave.",
		Routes:  map[string]Route{"down": {To: "abyss", View: "darkness"}},
	})
	err := g.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown location")
}

func TestGraph_AddLocation_Duplicate(t *testing.T) {
	g := NewGraph("caverns", "cave")
	require.NoError(t, g.AddLocation(&Location{Name: "cave"}))
	assert.Error(t, g.AddLocation(&Location{Name: "cave"}))
}

func TestGraph_LocationInfo(t *testing.T) {
	g := testGraph()
	info, err := g.LocationInfo("cave")
	require.NoError(t, err)
	assert.Contains(t, info, "A dark cave.")
	assert.Contains(t, info, "To the north there is a narrow climb")
	assert.Contains(t, info, "You can see: lantern")
}

func TestGraph_LocationInfo_Unknown(t *testing.T) {
	g := testGraph()
	_, err := g.LocationInfo("attic")
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestGraph_LocationInfo_NoOccupants(t *testing.T) {
	g := testGraph()
	info, err := g.LocationInfo("ledge")
	require.NoError(t, err)
	assert.NotContains(t, info, "You can see:")
}

func TestGraph_MoveOccupant(t *testing.T) {
	g := testGraph()
	g.AddOccupant("cave", "alice")

	dest := g.MoveOccupant("cave", "north", "alice")
	assert.Equal(t, "ledge", dest)

	cave, _ := g.Location("cave")
	ledge, _ := g.Location("ledge")
	assert.NotContains(t, cave.Occupants, "alice")
	assert.Contains(t, ledge.Occupants, "alice")
}

func TestGraph_MoveOccupant_NoRoute(t *testing.T) {
	g := testGraph()
	g.AddOccupant("cave", "alice")

	dest := g.MoveOccupant("cave", "west", "alice")
	assert.Equal(t, "cave", dest)

	cave, _ := g.Location("cave")
	assert.Contains(t, cave.Occupants, "alice")
	ledge, _ := g.Location("ledge")
	assert.Empty(t, ledge.Occupants)
}

func TestGraph_MoveOccupant_RoundTrip(t *testing.T) {
	g := testGraph()
	g.AddOccupant("cave", "alice")

	assert.Equal(t, "ledge", g.MoveOccupant("cave", "north", "alice"))
	assert.Equal(t, "cave", g.MoveOccupant("ledge", "south", "alice"))

	cave, _ := g.Location("cave")
	assert.Contains(t, cave.Occupants, "alice")
}

func TestGraph_RemoveOccupant_Idempotent(t *testing.T) {
	g := testGraph()
	g.RemoveOccupant("cave", "ghost")
	g.RemoveOccupant("attic", "ghost")

	cave, _ := g.Location("cave")
	assert.Equal(t, []string{"lantern"}, cave.Occupants)
}

func TestGraph_RemoveOccupant_FirstInstanceOnly(t *testing.T) {
	g := testGraph()
	g.AddOccupant("cave", "coin")
	g.AddOccupant("cave", "coin")
	g.RemoveOccupant("cave", "coin")

	cave, _ := g.Location("cave")
	assert.Equal(t, []string{"lantern", "coin"}, cave.Occupants)
}

func TestGraph_ContainsOccupant(t *testing.T) {
	g := testGraph()
	assert.True(t, g.ContainsOccupant("lantern"))
	assert.False(t, g.ContainsOccupant("alice"))

	g.AddOccupant("ledge", "alice")
	assert.True(t, g.ContainsOccupant("alice"))
}

func TestGraph_ItemVisible(t *testing.T) {
	g := testGraph()
	assert.True(t, g.ItemVisible("cave", nil, "lantern"))
	assert.True(t, g.ItemVisible("cave", nil, "LANTERN"))
	assert.False(t, g.ItemVisible("cave", nil, "sword"))
}

func TestGraph_ItemVisible_IgnoresPlayerNames(t *testing.T) {
	g := testGraph()
	g.AddOccupant("cave", "torchbearer")

	// "torch" only appears inside the player identity, which is stripped.
	assert.False(t, g.ItemVisible("cave", []string{"torchbearer"}, "torch"))

	g.AddOccupant("cave", "torch")
	assert.True(t, g.ItemVisible("cave", []string{"torchbearer"}, "torch"))
}

func TestGraph_ItemVisible_UnknownLocation(t *testing.T) {
	g := testGraph()
	assert.False(t, g.ItemVisible("attic", nil, "lantern"))
}

// Property-based tests

func TestPropertyPickDropRestoresOccupants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		item := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "item")
		g := testGraph()
		g.AddOccupant("cave", item)
		cave, _ := g.Location("cave")
		before := append([]string(nil), cave.Occupants...)

		g.RemoveOccupant("cave", item)
		g.AddOccupant("cave", item)

		assert.Equal(t, before, cave.Occupants)
	})
}

func TestPropertyMoveNeverInventsOccupants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir := rapid.SampledFrom([]string{"north", "south", "east", "west", "up"}).Draw(t, "dir")
		g := testGraph()
		g.AddOccupant("cave", "alice")

		total := func() int {
			n := 0
			for _, name := range []string{"cave", "ledge"} {
				loc, _ := g.Location(name)
				n += len(loc.Occupants)
			}
			return n
		}

		before := total()
		g.MoveOccupant("cave", dir, "alice")
		assert.Equal(t, before, total())
	})
}
