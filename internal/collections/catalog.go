// Package collections groups research reports into named collections
// described by a YAML catalog.
package collections

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Collection describes a named group of reports. A report belongs to the
// collection when its file name starts with one of the ReportContext keys.
type Collection struct {
	ReportContext map[string]string `yaml:"report_context"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
}

// File is the top-level YAML structure.
type File struct {
	Collections []Collection `yaml:"collections"`
}

// Catalog holds loaded collections, keyed by name.
type Catalog struct {
	byName map[string]*Collection
	order  []string // preserves definition order
}

// Load reads the YAML file at path and returns a Catalog.
// If the file does not exist, Load returns an empty Catalog (not an error).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{byName: make(map[string]*Collection)}, nil
		}
		return nil, fmt.Errorf("read collections: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse collections: %w", err)
	}

	c := &Catalog{
		byName: make(map[string]*Collection, len(f.Collections)),
	}
	for i := range f.Collections {
		col := &f.Collections[i]
		if col.Name == "" {
			return nil, fmt.Errorf("parse collections: entry %d has no name", i)
		}
		if _, dup := c.byName[col.Name]; dup {
			return nil, fmt.Errorf("parse collections: duplicate name %q", col.Name)
		}
		c.byName[col.Name] = col
		c.order = append(c.order, col.Name)
	}
	return c, nil
}

// Get returns a collection by name. Returns (nil, false) if not found.
func (c *Catalog) Get(name string) (*Collection, bool) {
	col, ok := c.byName[name]
	return col, ok
}

// All returns all collections in definition order.
func (c *Catalog) All() []*Collection {
	result := make([]*Collection, 0, len(c.order))
	for _, name := range c.order {
		result = append(result, c.byName[name])
	}
	return result
}

// Names returns a sorted list of collection names.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	sort.Strings(names)
	return names
}

// For returns the names of the collections a report belongs to, in
// definition order.
func (c *Catalog) For(report string) []string {
	var names []string
	for _, col := range c.All() {
		if col.ResolveContext(report) != "" {
			names = append(names, col.Name)
		}
	}
	return names
}

// Context returns the framing text for a report across every collection,
// joined with blank lines.
func (c *Catalog) Context(report string) string {
	var out string
	for _, col := range c.All() {
		ctx := col.ResolveContext(report)
		if ctx == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += ctx
	}
	return out
}
