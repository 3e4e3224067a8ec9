/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture turns pointer streams on a placed element into move and
// resize mutations of the document.
//
// Deltas are incremental: after each sample the anchor is reset to the
// current pointer position, so a dropped intermediate event never makes the
// element jump. Screen deltas are mapped into panel space through the inverse
// of the view transform before they are applied.
package gesture

import (
	"log/slog"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/geom"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/pointer"
	"gostoryboard/internal/selection"
)

// Mode is the single interaction-mode flag. Moving and Resizing exclude each
// other for the whole document, not per element.
type Mode int

const (
	Idle Mode = iota
	Moving
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Moving:
		return "moving"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Engine is the element gesture state machine: Idle -> Moving|Resizing -> Idle.
type Engine struct {
	sel    *selection.Manager
	mode   Mode
	target domain.ElementRef
	anchor geom.Pt
	// screenToPanel maps screen displacements to panel displacements.
	screenToPanel geom.Affine2D
	log           *slog.Logger
}

// New creates an engine bound to the session's selection manager.
func New(sel *selection.Manager) *Engine {
	return &Engine{
		sel:           sel,
		screenToPanel: geom.Identity,
		log:           applog.WithComponent("gesture"),
	}
}

// SetViewTransform sets the panel-to-screen transform of the rendered panels.
func (e *Engine) SetViewTransform(panelToScreen geom.Affine2D) {
	e.screenToPanel = panelToScreen.Invert()
}

// SetViewScale is shorthand for a uniformly scaled view.
func (e *Engine) SetViewScale(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	e.SetViewTransform(geom.Scale(scale, scale))
}

func (e *Engine) Mode() Mode { return e.mode }

// Target returns the element being manipulated.
func (e *Engine) Target() (domain.ElementRef, bool) {
	if e.mode == Idle {
		return domain.ElementRef{}, false
	}
	return e.target, true
}

// Involves reports whether an active gesture manipulates an element of panel.
func (e *Engine) Involves(panel domain.PanelID) bool {
	return e.mode != Idle && e.target.Panel == panel
}

// BeginMove starts dragging the element body under the pointer and selects
// it. Ignored while another gesture is active or when ref is stale.
func (e *Engine) BeginMove(doc domain.Document, ref domain.ElementRef, at pointer.Sample) (domain.Document, bool) {
	if e.mode != Idle {
		e.log.Debug("move start ignored", slog.String("mode", e.mode.String()), slog.String("element", ref.ID))
		return doc, false
	}
	doc, ok := e.sel.Select(doc, ref)
	if !ok {
		return doc, false
	}
	e.start(Moving, ref, at)
	return doc, true
}

// BeginResize starts dragging the resize handle of the selected element. The
// handle only exists on the selected element, so other targets are ignored.
func (e *Engine) BeginResize(doc domain.Document, ref domain.ElementRef, at pointer.Sample) (domain.Document, bool) {
	if e.mode != Idle {
		e.log.Debug("resize start ignored", slog.String("mode", e.mode.String()), slog.String("element", ref.ID))
		return doc, false
	}
	if !e.sel.IsActive(ref) || !doc.Exists(ref) {
		return doc, false
	}
	e.start(Resizing, ref, at)
	return doc, true
}

func (e *Engine) start(m Mode, ref domain.ElementRef, at pointer.Sample) {
	e.mode = m
	e.target = ref
	e.anchor = at.Pt()
	e.log.Debug("gesture started", slog.String("mode", m.String()), slog.String("panel", string(ref.Panel)), slog.String("element", ref.ID))
}

// Update applies the displacement since the previous sample. It reports
// whether the document changed. A gesture whose element vanished or lost
// selection resets to Idle.
func (e *Engine) Update(doc domain.Document, at pointer.Sample) (domain.Document, bool) {
	if e.mode == Idle {
		return doc, false
	}
	if !doc.Exists(e.target) || !e.sel.IsActive(e.target) {
		e.log.Debug("gesture target gone", slog.String("element", e.target.ID))
		e.Reset()
		return doc, false
	}
	cur := at.Pt()
	d := e.screenToPanel.ApplyVector(cur.Sub(e.anchor))
	e.anchor = cur
	if d.X == 0 && d.Y == 0 {
		return doc, false
	}
	switch e.mode {
	case Moving:
		doc = domain.TranslateElement(doc, e.target, d.X, d.Y)
	case Resizing:
		doc = domain.ResizeElement(doc, e.target, d.X, d.Y)
	}
	return doc, true
}

// End finishes the gesture. Mutations were applied live so there is nothing
// to commit. It reports whether a gesture was active.
func (e *Engine) End() bool {
	active := e.mode != Idle
	e.Reset()
	return active
}

// Reset returns to Idle, discarding the anchor. Used for cancel, lost capture
// and deletion of the target.
func (e *Engine) Reset() {
	e.mode = Idle
	e.target = domain.ElementRef{}
	e.anchor = geom.Pt{}
}
