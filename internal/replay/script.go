/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package replay drives an editor session from a YAML event script. Scripts
// name panels and bubbles by alias, so a recorded gesture sequence replays
// against fresh ids and can assert on the resulting document.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step ops.
const (
	OpCreatePanel  = "create_panel"
	OpDeletePanel  = "delete_panel"
	OpTheme        = "theme"
	OpAddBubble    = "add_bubble"
	OpText         = "text"
	OpDeleteBubble = "delete_bubble"
	OpImage        = "image"
	OpClearImage   = "clear_image"
	OpTapPanel     = "tap_panel"
	OpTapElement   = "tap_element"
	OpMenu         = "menu"
	OpDown         = "down"
	OpMove         = "move"
	OpUp           = "up"
	OpCancel       = "cancel"
	OpCaptureLost  = "capture_lost"
	OpMoveUp       = "move_up"
	OpMoveDown     = "move_down"
	OpUndo         = "undo"
	OpRedo         = "redo"
	OpPreview      = "preview"
	OpLayout       = "layout"
	OpExpect       = "expect"
)

// Pointer-down targets.
const (
	OnGrip    = "grip"
	OnElement = "element"
	OnResize  = "resize"
	OnPanel   = "panel"
	OnNothing = "nothing"
)

// Script is a named sequence of steps.
type Script struct {
	Name      string  `yaml:"name"`
	ViewScale float64 `yaml:"view_scale"`
	// Layout is "column" (default) or "grid".
	Layout string `yaml:"layout"`
	Steps  []Step `yaml:"steps"`
}

// Step is one scripted action. Which fields apply depends on Op.
type Step struct {
	Op     string  `yaml:"op"`
	As     string  `yaml:"as,omitempty"`
	Panel  string  `yaml:"panel,omitempty"`
	Bubble string  `yaml:"bubble,omitempty"`
	Image  bool    `yaml:"image,omitempty"`
	Kind   string  `yaml:"kind,omitempty"`
	Text   string  `yaml:"text,omitempty"`
	Theme  string  `yaml:"theme,omitempty"`
	Blob   string  `yaml:"blob,omitempty"`
	On     string  `yaml:"on,omitempty"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	Enable bool    `yaml:"enable,omitempty"`
	// Layout rows; zero values use defaults.
	Width float64 `yaml:"width,omitempty"`
	Row   float64 `yaml:"row,omitempty"`
	Gap   float64 `yaml:"gap,omitempty"`
	// Columns > 1 lays panels out in a grid.
	Columns int     `yaml:"columns,omitempty"`
	Expect  *Expect `yaml:"expect,omitempty"`
}

// Expect asserts on the document after the preceding steps.
type Expect struct {
	Order    []string `yaml:"order,omitempty"`
	Panels   *int     `yaml:"panels,omitempty"`
	Bubbles  *int     `yaml:"bubbles,omitempty"`
	HasImage *bool    `yaml:"has_image,omitempty"`
	Text     *string  `yaml:"text,omitempty"`
	X        *float64 `yaml:"x,omitempty"`
	Y        *float64 `yaml:"y,omitempty"`
	Width    *float64 `yaml:"width,omitempty"`
	Height   *float64 `yaml:"height,omitempty"`
	Selected *bool    `yaml:"selected,omitempty"`
	Theme    *string  `yaml:"theme,omitempty"`
}

var needsPanel = map[string]bool{
	OpDeletePanel: true, OpTheme: true, OpAddBubble: true, OpText: true,
	OpDeleteBubble: true, OpImage: true, OpClearImage: true, OpTapPanel: true,
	OpTapElement: true, OpMoveUp: true, OpMoveDown: true,
}

var knownOps = map[string]bool{
	OpCreatePanel: true, OpDeletePanel: true, OpTheme: true, OpAddBubble: true,
	OpText: true, OpDeleteBubble: true, OpImage: true, OpClearImage: true,
	OpTapPanel: true, OpTapElement: true, OpMenu: true, OpDown: true, OpMove: true,
	OpUp: true, OpCancel: true, OpCaptureLost: true, OpMoveUp: true,
	OpMoveDown: true, OpUndo: true, OpRedo: true, OpPreview: true,
	OpLayout: true, OpExpect: true,
}

// Parse decodes and validates a script. Unknown fields are rejected so typos
// in hand-written scripts surface early.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Script) validate() error {
	var errs []error
	switch s.Layout {
	case "", "column", "grid":
	default:
		errs = append(errs, fmt.Errorf("unknown layout %q", s.Layout))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, errors.New("script has no steps"))
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i+1, st.Op, err))
		}
	}
	return errors.Join(errs...)
}

func (st Step) validate() error {
	if !knownOps[st.Op] {
		return errors.New("unknown op")
	}
	if needsPanel[st.Op] && st.Panel == "" {
		return errors.New("panel is required")
	}
	switch st.Op {
	case OpText, OpDeleteBubble:
		if st.Bubble == "" {
			return errors.New("bubble is required")
		}
	case OpTapElement:
		if st.Bubble == "" && !st.Image {
			return errors.New("bubble or image is required")
		}
	case OpDown:
		switch st.On {
		case OnGrip, OnPanel:
			if st.Panel == "" {
				return errors.New("panel is required")
			}
		case OnElement, OnResize:
			if st.Panel == "" || (st.Bubble == "" && !st.Image) {
				return errors.New("panel and bubble or image are required")
			}
		case OnNothing, "":
		default:
			return fmt.Errorf("unknown target %q", st.On)
		}
	case OpExpect:
		if st.Expect == nil {
			return errors.New("expect block is required")
		}
	}
	return nil
}
