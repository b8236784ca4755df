package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTemplateYAML = `
dungeon:
  type: caverns
  start: cave
  locations:
    - name: cave
      message: A dark cave.
      items: [lantern]
      routes:
        - direction: north
          to: ledge
          view: a narrow climb
    - name: ledge
      message: A windy ledge.
      routes:
        - direction: south
          to: cave
          view: a steep drop
`

func TestLoadTemplateFromBytes(t *testing.T) {
	tmpl, err := LoadTemplateFromBytes([]byte(validTemplateYAML))
	require.NoError(t, err)

	assert.Equal(t, "caverns", tmpl.Type)
	assert.Equal(t, "cave", tmpl.Start)
	require.Len(t, tmpl.Locations, 2)
	assert.Equal(t, []string{"lantern"}, tmpl.Locations[0].Items)
}

func TestLoadTemplateFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadTemplateFromBytes([]byte("dungeon: [not a mapping"))
	assert.Error(t, err)
}

func TestTemplate_Validate_MissingStart(t *testing.T) {
	tmpl := &Template{
		Type:      "caverns",
		Start:     "nowhere",
		Locations: []TemplateLocation{{Name: "cave", Message: "A dark cave."}},
	}
	err := tmpl.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}

func TestTemplate_Validate_DuplicateLocation(t *testing.T) {
	tmpl := &Template{
		Type:  "caverns",
		Start: "cave",
		Locations: []TemplateLocation{
			{Name: "cave", Message: "one"},
			{Name: "cave", Message: "two"},
		},
	}
	assert.Error(t, tmpl.Validate())
}

func TestTemplate_Validate_DanglingRoute(t *testing.T) {
	tmpl := &Template{
		Type:  "caverns",
		Start: "cave",
		Locations: []TemplateLocation{
			{
				Name:    "cave",
				Message: "A dark cave.",
				Routes:  []TemplateRoute{{Direction: "down", To: "abyss", View: "darkness"}},
			},
		},
	}
	err := tmpl.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown location")
}

func TestTemplate_Validate_DuplicateDirection(t *testing.T) {
	tmpl := &Template{
		Type:  "caverns",
		Start: "cave",
		Locations: []TemplateLocation{
			{
				Name:    "cave",
				Message: "A dark cave.",
				Routes: []TemplateRoute{
					{Direction: "north", To: "cave", View: "a loop"},
					{Direction: "north", To: "cave", View: "another loop"},
				},
			},
		},
	}
	assert.Error(t, tmpl.Validate())
}

func TestTemplate_Build(t *testing.T) {
	tmpl, err := LoadTemplateFromBytes([]byte(validTemplateYAML))
	require.NoError(t, err)

	g := tmpl.Build()
	require.NoError(t, g.Validate())
	assert.Equal(t, "caverns", g.Label)
	assert.Equal(t, "cave", g.Start)
	assert.Equal(t, 2, g.LocationCount())

	cave, ok := g.Location("cave")
	require.True(t, ok)
	assert.Equal(t, []string{"lantern"}, cave.Occupants)
}

func TestTemplate_Build_IndependentInstances(t *testing.T) {
	tmpl, err := LoadTemplateFromBytes([]byte(validTemplateYAML))
	require.NoError(t, err)

	g1 := tmpl.Build()
	g2 := tmpl.Build()
	g1.AddOccupant("cave", "alice")

	assert.True(t, g1.ContainsOccupant("alice"))
	assert.False(t, g2.ContainsOccupant("alice"))
}

func TestLoadTemplatesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_caverns.yaml"), []byte(validTemplateYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	templates, err := LoadTemplatesFromDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "caverns", templates[0].Type)
}

func TestLoadTemplatesFromDir_Empty(t *testing.T) {
	_, err := LoadTemplatesFromDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadTemplatesFromDir_StableOrder(t *testing.T) {
	dir := t.TempDir()
	second := []byte(`
dungeon:
  type: keep
  start: gate
  locations:
    - name: gate
      message: A rusted gate.
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02_keep.yaml"), second, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_caverns.yaml"), []byte(validTemplateYAML), 0644))

	templates, err := LoadTemplatesFromDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "caverns", templates[0].Type)
	assert.Equal(t, "keep", templates[1].Type)
}
