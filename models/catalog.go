// Package models holds the catalog of placeable voxel models. The server
// treats entries as an opaque identifier list; clients use the defaults to
// seed placement controls.
package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Definition is one designer-authored catalog entry.
type Definition struct {
	ID           string  `json:"id" jsonschema:"required"`
	Label        string  `json:"label,omitempty"`
	DefaultScale float64 `json:"defaultScale,omitempty"`
	Animate      bool    `json:"animate,omitempty"`
	HoverRange   float64 `json:"hoverRange,omitempty"`
	HoverSpeed   float64 `json:"hoverSpeed,omitempty"`
	RotateSpeed  float64 `json:"rotateSpeed,omitempty"`
}

// Catalog is an immutable, id-indexed set of definitions.
type Catalog struct {
	defs []Definition
	byID map[string]Definition
}

// Default returns the built-in model set.
func Default() *Catalog {
	catalog, err := New([]Definition{
		{ID: "tree", Label: "Tree", DefaultScale: 1},
		{ID: "rock", Label: "Rock", DefaultScale: 1},
		{ID: "house", Label: "House", DefaultScale: 1},
		{ID: "tower", Label: "Tower", DefaultScale: 1.2},
		{ID: "mushroom", Label: "Mushroom", DefaultScale: 0.8},
		{ID: "crystal", Label: "Crystal", DefaultScale: 1, Animate: true, HoverRange: 0.3, HoverSpeed: 1.5, RotateSpeed: 0.8},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}

// New validates and indexes a definition list.
func New(defs []Definition) (*Catalog, error) {
	byID := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("catalog entry missing id: %+v", def)
		}
		if _, dup := byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", def.ID)
		}
		byID[def.ID] = def
	}
	return &Catalog{defs: append([]Definition(nil), defs...), byID: byID}, nil
}

// Load reads a catalog document (a JSON array of definitions) from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model catalog: %w", err)
	}
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("load model catalog %s: %w", path, err)
	}
	return New(defs)
}

// IDs returns the model identifiers in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.defs))
	for _, def := range c.defs {
		ids = append(ids, def.ID)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the definition for an id.
func (c *Catalog) Lookup(id string) (Definition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}
