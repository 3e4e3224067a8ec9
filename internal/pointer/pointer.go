/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pointer defines the device-agnostic input vocabulary of the editor.
// Front ends convert mouse, touch and pen events into Events at their
// boundary so the engines are written once against a single input type.
package pointer

import "gostoryboard/internal/geom"

// Sample is a pointer position in screen coordinates.
type Sample struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

func At(x, y float64) Sample { return Sample{X: x, Y: y} }

// Pt converts the sample into a geometry point.
func (s Sample) Pt() geom.Pt { return geom.Pt{X: s.X, Y: s.Y} }

// Phase is the stage of a gesture an event belongs to.
type Phase int

const (
	Down Phase = iota
	Move
	Up
	Cancel
	// CaptureLost is delivered when the pointer leaves the capture region
	// without an Up, e.g. a touch sliding off the window.
	CaptureLost
)

func (p Phase) String() string {
	switch p {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Cancel:
		return "cancel"
	case CaptureLost:
		return "capture-lost"
	}
	return "unknown"
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	for p := Down; p <= CaptureLost; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}
