/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reorder implements panel reordering: a continuous drag from the
// panel grip with live hover feedback, committed as a list splice, and the
// discrete move up/down fallback.
package reorder

import (
	"log/slog"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/geom"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/pointer"
)

// HitMode selects the geometry used to find the hover target.
type HitMode int

const (
	// Column hit-tests only the vertical interval of each panel. This is
	// correct for a single-column layout and ignores horizontal drift.
	Column HitMode = iota
	// Grid hit-tests the full rectangle, for multi-column layouts.
	Grid
)

// Bounds is the on-screen rectangle of one rendered panel.
type Bounds struct {
	Panel domain.PanelID
	Rect  geom.Rect
}

// Visual is the transient feedback state of an armed drag. It is never part
// of the document.
type Visual struct {
	DraggedPanelID     domain.PanelID
	HoverTargetPanelID domain.PanelID
	DragOffsetY        float64
}

// Active reports whether a drag is in progress.
func (v Visual) Active() bool { return v.DraggedPanelID != "" }

// IsDropTarget reports whether panel is currently the hover target.
func (v Visual) IsDropTarget(panel domain.PanelID) bool {
	return panel != "" && v.HoverTargetPanelID == panel
}

// Engine is the Idle -> ArmedDrag -> Idle state machine.
type Engine struct {
	Mode HitMode

	armed   bool
	dragged domain.PanelID
	hover   domain.PanelID
	startY  float64
	curY    float64
	log     *slog.Logger
}

func New() *Engine {
	return &Engine{log: applog.WithComponent("reorder")}
}

func (e *Engine) Armed() bool { return e.armed }

// Involves reports whether panel is the dragged panel or the hover target.
func (e *Engine) Involves(panel domain.PanelID) bool {
	return e.armed && (e.dragged == panel || e.hover == panel)
}

// Begin arms a drag of panel from its grip. Ignored if a drag is already
// armed.
func (e *Engine) Begin(panel domain.PanelID, at pointer.Sample) bool {
	if e.armed || panel == "" {
		return false
	}
	e.armed = true
	e.dragged = panel
	e.hover = ""
	e.startY = at.Y
	e.curY = at.Y
	e.log.Debug("reorder armed", slog.String("panel", string(panel)))
	return true
}

// Update recomputes the hover target against the current panel bounds. The
// dragged panel is excluded and the first containing panel wins.
func (e *Engine) Update(at pointer.Sample, layout []Bounds) {
	if !e.armed {
		return
	}
	e.curY = at.Y
	e.hover = ""
	p := at.Pt()
	for _, b := range layout {
		if b.Panel == e.dragged {
			continue
		}
		if e.hit(b.Rect, p) {
			e.hover = b.Panel
			return
		}
	}
}

func (e *Engine) hit(r geom.Rect, p geom.Pt) bool {
	if e.Mode == Grid {
		return r.Contains(p)
	}
	return r.Vertical().Contains(p.Y)
}

// Visual returns the current feedback state; zero when idle.
func (e *Engine) Visual() Visual {
	if !e.armed {
		return Visual{}
	}
	return Visual{
		DraggedPanelID:     e.dragged,
		HoverTargetPanelID: e.hover,
		DragOffsetY:        e.curY - e.startY,
	}
}

// Commit ends the drag. If a hover target is set and both ids still exist,
// the dragged panel is spliced into the target's position. Anything else is
// a no-op. The transient state is discarded either way.
func (e *Engine) Commit(doc domain.Document) (domain.Document, bool) {
	if !e.armed {
		return doc, false
	}
	dragged, hover := e.dragged, e.hover
	e.Cancel()
	if hover == "" || hover == dragged {
		return doc, false
	}
	src, ok := doc.Panel(dragged)
	if !ok {
		e.log.Debug("reorder commit dropped: dragged panel gone", slog.String("panel", string(dragged)))
		return doc, false
	}
	dst, ok := doc.Panel(hover)
	if !ok {
		e.log.Debug("reorder commit dropped: target panel gone", slog.String("panel", string(hover)))
		return doc, false
	}
	next := domain.MovePanel(doc, dragged, dst.Order)
	e.log.Info("panel reordered",
		slog.String("panel", string(dragged)),
		slog.Int("from", src.Order),
		slog.Int("to", dst.Order))
	return next, true
}

// Cancel returns to Idle without touching the document.
func (e *Engine) Cancel() {
	e.armed = false
	e.dragged = ""
	e.hover = ""
	e.startY, e.curY = 0, 0
}

// MoveUp swaps panel with its predecessor. No-op at the first position.
func MoveUp(doc domain.Document, panel domain.PanelID) domain.Document {
	return domain.MovePanelBy(doc, panel, -1)
}

// MoveDown swaps panel with its successor. No-op at the last position.
func MoveDown(doc domain.Document, panel domain.PanelID) domain.Document {
	return domain.MovePanelBy(doc, panel, 1)
}

// ColumnLayout computes single-column bounds for panels in display order:
// rows of the given height separated by gap, all of the given width.
func ColumnLayout(panels []domain.PanelID, width, row, gap float64) []Bounds {
	out := make([]Bounds, len(panels))
	for i, id := range panels {
		out[i] = Bounds{Panel: id, Rect: geom.R(0, float64(i)*(row+gap), width, row)}
	}
	return out
}
