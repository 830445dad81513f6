// Package datasource holds the catalog of data views that entity
// definitions bind to through their 数据来源 table.
package datasource

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Column describes one field of a data view.
type Column struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// Source is a data view an entity can reference by id.
type Source struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Columns     []Column         `json:"columns" yaml:"columns"`
	Sample      []map[string]any `json:"sample,omitempty" yaml:"sample"`
}

// Validate checks the fields every catalog entry needs.
func (s Source) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.Name, validation.Required),
	)
}

// Catalog is an immutable, id-ordered set of sources.
type Catalog struct {
	sources []Source
	byID    map[string]int
	byName  map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("datasource: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("datasource: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML list of sources. Duplicate ids keep the last entry.
func Parse(data []byte) (*Catalog, error) {
	var list []Source
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("datasource: parse: %w", err)
	}
	for i, s := range list {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("datasource: entry %d: %w", i, err)
		}
	}

	dedup := make(map[string]Source, len(list))
	for _, s := range list {
		dedup[s.ID] = s
	}
	c := &Catalog{
		sources: make([]Source, 0, len(dedup)),
		byID:    make(map[string]int, len(dedup)),
		byName:  make(map[string]int, len(dedup)),
	}
	for _, s := range dedup {
		c.sources = append(c.sources, s)
	}
	sort.Slice(c.sources, func(i, j int) bool { return c.sources[i].ID < c.sources[j].ID })
	for i, s := range c.sources {
		c.byID[s.ID] = i
		c.byName[s.Name] = i
	}
	return c, nil
}

// All returns every source ordered by id.
func (c *Catalog) All() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Get looks a source up by id.
func (c *Catalog) Get(id string) (Source, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Source{}, false
	}
	return c.sources[i], true
}

// Lookup resolves a reference that is either a source id or a view name.
func (c *Catalog) Lookup(ref string) (Source, bool) {
	if s, ok := c.Get(ref); ok {
		return s, true
	}
	i, ok := c.byName[ref]
	if !ok {
		return Source{}, false
	}
	return c.sources[i], true
}

// ColumnList renders the columns as "  - name (type): description" lines.
func (s Source) ColumnList() string {
	lines := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		lines[i] = fmt.Sprintf("  - %s (%s): %s", col.Name, col.Type, col.Description)
	}
	return strings.Join(lines, "\n")
}

// Summary renders the catalog as the Markdown block embedded in generation
// prompts.
func (c *Catalog) Summary() string {
	parts := make([]string, len(c.sources))
	for i, s := range c.sources {
		parts[i] = fmt.Sprintf("### %s (ID: %s)\n%s\n\n字段:\n%s", s.Name, s.ID, s.Description, s.ColumnList())
	}
	return strings.Join(parts, "\n\n")
}
