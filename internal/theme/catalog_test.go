/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	want := []string{"city", "desert", "forest", "ocean", "space", "sunset"}
	got := c.IDs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	if c.Default().ID != DefaultID {
		t.Fatalf("default theme = %q, want %q", c.Default().ID, DefaultID)
	}
	if c.Resolve("ocean") != "ocean" {
		t.Fatalf("known theme should resolve to itself")
	}
	if c.Resolve("volcano") != DefaultID || c.Resolve("") != DefaultID {
		t.Fatalf("unknown theme should resolve to default")
	}
	if g := c.Get("volcano"); g.Name != "City" {
		t.Fatalf("Get fallback = %+v", g)
	}
	if all := c.All(); len(all) != 6 || all[0].ID != "city" {
		t.Fatalf("All() should keep catalog order: %+v", all)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("", nil); err == nil {
		t.Fatalf("expected error for empty catalog")
	}
	if _, err := New("", []Theme{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, err := New("zzz", []Theme{{ID: "a"}}); err == nil {
		t.Fatalf("expected unknown default error")
	}
	c, err := New("", []Theme{{ID: " b "}, {ID: "a"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Default().ID != "b" {
		t.Fatalf("first theme should be default when unset, got %q", c.Default().ID)
	}
}

func TestParseYAMLAndJSON(t *testing.T) {
	y := []byte(`
default: night
themes:
  - id: night
    name: Night
    gradient: ["#000000", "#112233"]
  - id: day
    name: Day
`)
	c, err := Parse(y)
	if err != nil {
		t.Fatalf("Parse yaml: %v", err)
	}
	if c.Resolve("unknown") != "night" || !c.Has("day") {
		t.Fatalf("unexpected catalog: %v", c.IDs())
	}

	j := []byte(`{"themes":[{"id":"mono","name":"Mono"}]}`)
	c, err = Parse(j)
	if err != nil {
		t.Fatalf("Parse json: %v", err)
	}
	if c.Default().ID != "mono" {
		t.Fatalf("default = %q", c.Default().ID)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing themes": `default: x`,
		"empty themes":   `themes: []`,
		"missing name":   `themes: [{id: a}]`,
		"bad color":      `themes: [{id: a, name: A, gradient: ["blue"]}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	c, err := Load("")
	if err != nil || !c.Has("forest") {
		t.Fatalf("empty path should give builtin catalog: %v", err)
	}
	p := filepath.Join(t.TempDir(), "themes.yaml")
	if err := os.WriteFile(p, []byte("themes:\n  - id: paper\n    name: Paper\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err = Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Has("paper") || c.Has("city") {
		t.Fatalf("unexpected themes: %v", c.IDs())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
