package world

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is a dungeon configuration from which fresh Graph instances
// are built. One template corresponds to one dungeon type.
type Template struct {
	// Type is the human-readable dungeon type label.
	Type string
	// Start is the name of the entry location.
	Start string
	// Locations holds the location definitions in file order.
	Locations []TemplateLocation
}

// TemplateLocation defines one location in a template.
type TemplateLocation struct {
	Name    string
	Message string
	Items   []string
	Routes  []TemplateRoute
}

// TemplateRoute defines one directed route in a template.
type TemplateRoute struct {
	Direction string
	To        string
	View      string
}

// yamlTemplateFile is the top-level YAML structure for template files.
type yamlTemplateFile struct {
	Dungeon yamlTemplate `yaml:"dungeon"`
}

type yamlTemplate struct {
	Type      string         `yaml:"type"`
	Start     string         `yaml:"start"`
	Locations []yamlLocation `yaml:"locations"`
}

type yamlLocation struct {
	Name    string      `yaml:"name"`
	Message string      `yaml:"message"`
	Items   []string    `yaml:"items"`
	Routes  []yamlRoute `yaml:"routes"`
}

type yamlRoute struct {
	Direction string `yaml:"direction"`
	To        string `yaml:"to"`
	View      string `yaml:"view"`
}

// LoadTemplateFromBytes parses and validates a template from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the dungeon schema.
// Postcondition: Returns a validated Template or a non-nil error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var file yamlTemplateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing dungeon YAML: %w", err)
	}

	tmpl := convertYAMLTemplate(file.Dungeon)
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("validating dungeon template: %w", err)
	}
	return tmpl, nil
}

// LoadTemplateFromFile reads and validates a single template YAML file.
//
// Precondition: path must point to a valid YAML template file.
// Postcondition: Returns a validated Template or a non-nil error.
func LoadTemplateFromFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dungeon file %s: %w", path, err)
	}
	return LoadTemplateFromBytes(data)
}

// LoadTemplatesFromDir loads all YAML files in a directory as dungeon
// templates, in lexical filename order so template ordinals are stable.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns at least one validated template, or an error.
func LoadTemplatesFromDir(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var templates []*Template
	for _, name := range names {
		tmpl, err := LoadTemplateFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading template from %s: %w", name, err)
		}
		templates = append(templates, tmpl)
	}

	if len(templates) == 0 {
		return nil, fmt.Errorf("no dungeon template files found in %s", dir)
	}
	return templates, nil
}

// Validate checks template invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (t *Template) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("template type must not be empty")
	}
	if t.Start == "" {
		return fmt.Errorf("template %q: start must not be empty", t.Type)
	}
	if len(t.Locations) == 0 {
		return fmt.Errorf("template %q: must contain at least one location", t.Type)
	}

	seen := make(map[string]bool, len(t.Locations))
	for _, loc := range t.Locations {
		if loc.Name == "" {
			return fmt.Errorf("template %q: location name must not be empty", t.Type)
		}
		if seen[loc.Name] {
			return fmt.Errorf("template %q: duplicate location %q", t.Type, loc.Name)
		}
		seen[loc.Name] = true
	}
	if !seen[t.Start] {
		return fmt.Errorf("template %q: start %q not found in locations", t.Type, t.Start)
	}
	for _, loc := range t.Locations {
		dirs := make(map[string]bool, len(loc.Routes))
		for _, r := range loc.Routes {
			if r.Direction == "" {
				return fmt.Errorf("template %q: location %q: route direction must not be empty", t.Type, loc.Name)
			}
			if dirs[r.Direction] {
				return fmt.Errorf("template %q: location %q: duplicate route direction %q", t.Type, loc.Name, r.Direction)
			}
			dirs[r.Direction] = true
			if !seen[r.To] {
				return fmt.Errorf("template %q: location %q: route %q targets unknown location %q", t.Type, loc.Name, r.Direction, r.To)
			}
		}
	}
	return nil
}

// Build instantiates a fresh Graph from the template. Each call produces
// an independent instance with its own occupant lists.
//
// Precondition: the template must have passed Validate.
// Postcondition: Returns a new Graph ready for play.
func (t *Template) Build() *Graph {
	g := NewGraph(t.Type, t.Start)
	for _, tl := range t.Locations {
		loc := &Location{
			Name:    tl.Name,
			Message: strings.TrimSpace(tl.Message),
			Routes:  make(map[string]Route, len(tl.Routes)),
		}
		loc.Occupants = append(loc.Occupants, tl.Items...)
		for _, tr := range tl.Routes {
			loc.Routes[tr.Direction] = Route{To: tr.To, View: tr.View}
		}
		// Names are unique after Validate, so AddLocation cannot fail.
		_ = g.AddLocation(loc)
	}
	return g
}

func convertYAMLTemplate(yt yamlTemplate) *Template {
	tmpl := &Template{
		Type:  yt.Type,
		Start: yt.Start,
	}
	for _, yl := range yt.Locations {
		loc := TemplateLocation{
			Name:    yl.Name,
			Message: yl.Message,
			Items:   yl.Items,
		}
		for _, yr := range yl.Routes {
			loc.Routes = append(loc.Routes, TemplateRoute{
				Direction: yr.Direction,
				To:        yr.To,
				View:      yr.View,
			})
		}
		tmpl.Locations = append(tmpl.Locations, loc)
	}
	return tmpl
}
