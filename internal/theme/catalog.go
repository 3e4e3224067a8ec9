/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package theme holds the catalog of panel background themes. The editor core
// only needs to know whether a theme id is recognized; the display descriptor
// (name, gradient) is consumed by front ends.
package theme

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	applog "gostoryboard/internal/log"
)

// Theme is the display descriptor of a background.
type Theme struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Gradient []string `yaml:"gradient,omitempty" json:"gradient,omitempty"` // top to bottom, #rrggbb
}

// DefaultID is the theme new panels start with.
const DefaultID = "city"

// Catalog is an immutable theme lookup.
type Catalog struct {
	themes    map[string]Theme
	order     []string
	defaultID string
}

// Builtin returns the catalog shipped with the editor.
func Builtin() *Catalog {
	c, _ := New(DefaultID, []Theme{
		{ID: "city", Name: "City", Gradient: []string{"#60a5fa", "#2563eb"}},
		{ID: "forest", Name: "Forest", Gradient: []string{"#4ade80", "#15803d"}},
		{ID: "space", Name: "Space", Gradient: []string{"#581c87", "#000000"}},
		{ID: "sunset", Name: "Sunset", Gradient: []string{"#fb923c", "#ec4899"}},
		{ID: "ocean", Name: "Ocean", Gradient: []string{"#22d3ee", "#1e40af"}},
		{ID: "desert", Name: "Desert", Gradient: []string{"#fde047", "#ea580c"}},
	})
	return c
}

// New builds a catalog. defaultID must name one of the themes; when empty the
// first theme is the default.
func New(defaultID string, themes []Theme) (*Catalog, error) {
	if len(themes) == 0 {
		return nil, errors.New("theme catalog is empty")
	}
	c := &Catalog{themes: make(map[string]Theme, len(themes))}
	for _, t := range themes {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return nil, errors.New("theme id is required")
		}
		if _, dup := c.themes[id]; dup {
			return nil, fmt.Errorf("duplicate theme id %q", id)
		}
		t.ID = id
		c.themes[id] = t
		c.order = append(c.order, id)
	}
	if defaultID == "" {
		defaultID = c.order[0]
	}
	if _, ok := c.themes[defaultID]; !ok {
		return nil, fmt.Errorf("default theme %q not in catalog", defaultID)
	}
	c.defaultID = defaultID
	return c, nil
}

// Has reports whether id is a recognized theme.
func (c *Catalog) Has(id string) bool {
	_, ok := c.themes[id]
	return ok
}

// Resolve returns id when recognized, otherwise the default theme id.
func (c *Catalog) Resolve(id string) string {
	if c.Has(id) {
		return id
	}
	return c.defaultID
}

// Get returns the descriptor for id, falling back to the default theme.
func (c *Catalog) Get(id string) Theme { return c.themes[c.Resolve(id)] }

// Default returns the default theme.
func (c *Catalog) Default() Theme { return c.themes[c.defaultID] }

// All returns themes in catalog order.
func (c *Catalog) All() []Theme {
	out := make([]Theme, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.themes[id])
	}
	return out
}

// IDs returns the sorted theme ids.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["themes"],
  "properties": {
    "default": {"type": "string"},
    "themes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "gradient": {
            "type": "array",
            "items": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"}
          }
        }
      }
    }
  }
}`

type catalogFile struct {
	Default string  `yaml:"default"`
	Themes  []Theme `yaml:"themes"`
}

// Parse decodes a YAML or JSON catalog document and validates it against the
// catalog schema.
func Parse(data []byte) (*Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode theme catalog: %w", err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewStringLoader(catalogSchema), gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate theme catalog: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid theme catalog: %s", strings.Join(msgs, "; "))
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode theme catalog: %w", err)
	}
	return New(f.Default, f.Themes)
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	l := applog.WithOperation(applog.WithComponent("theme"), "load").With(slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		l.Error("theme catalog rejected", slog.Any("err", err))
		return nil, err
	}
	l.Info("theme catalog loaded", slog.Int("themes", len(c.order)), slog.String("default", c.defaultID))
	return c, nil
}
