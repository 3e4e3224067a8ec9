/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the session-scoped state of one storyboard editor and
// routes input to the document model and the interaction engines.
//
// A Session is not safe for concurrent use. Every handler runs to completion
// and publishes the next snapshot before returning; producers on other
// goroutines (image acquisition, replays) hand events to Run, which applies
// them one at a time.
package editor

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"time"

	"github.com/google/uuid"

	"gostoryboard/internal/crash"
	"gostoryboard/internal/domain"
	"gostoryboard/internal/gesture"
	"gostoryboard/internal/history"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/pointer"
	"gostoryboard/internal/reorder"
	"gostoryboard/internal/selection"
	"gostoryboard/internal/telemetry"
	"gostoryboard/internal/theme"
)

// Options configures a Session. The zero value is usable.
type Options struct {
	SessionID string
	IDs       domain.IDSource
	Themes    domain.ThemeResolver
	Rand      *rand.Rand
	Placement domain.Placement
	// ViewScale is the panel-to-screen scale of the rendered panels.
	ViewScale float64
	Layout    reorder.HitMode
	History   history.Config
	Telemetry telemetry.Recorder
	Clock     func() time.Time
}

// Visual is the transient interaction state the renderer needs next to the
// document snapshot. None of it is part of the document.
type Visual struct {
	Reorder         reorder.Visual
	Gesture         gesture.Mode
	GestureTarget   *domain.ElementRef
	ActiveSelection *domain.ElementRef
	SelectedPanel   domain.PanelID
	BubbleMenuOpen  bool
	Preview         bool
}

// Session is the editor state for one open storyboard.
type Session struct {
	id      string
	doc     domain.Document
	builder domain.Builder
	sel     *selection.Manager
	gesture *gesture.Engine
	reorder *reorder.Engine
	history *history.Manager
	tel     telemetry.Recorder
	now     func() time.Time
	log     *slog.Logger

	layout        []reorder.Bounds
	selectedPanel domain.PanelID
	menuOpen      bool
	preview       bool
	// gestureBefore is the document when the active element gesture began;
	// the gesture becomes one undo step when it ends.
	gestureBefore domain.Document
	gestureMoved  bool

	observers map[int]func(domain.Document)
	nextObs   int
}

func New(opts Options) *Session {
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Themes == nil {
		opts.Themes = theme.Builtin()
	}
	sel := &selection.Manager{}
	g := gesture.New(sel)
	if opts.ViewScale > 0 {
		g.SetViewScale(opts.ViewScale)
	}
	r := reorder.New()
	r.Mode = opts.Layout
	s := &Session{
		id: id,
		builder: domain.Builder{
			IDs:       opts.IDs,
			Themes:    opts.Themes,
			Rand:      opts.Rand,
			Placement: opts.Placement,
		},
		sel:       sel,
		gesture:   g,
		reorder:   r,
		history:   history.NewManager(opts.History),
		tel:       opts.Telemetry,
		now:       opts.Clock,
		log:       applog.WithComponent("editor").With(slog.String("session", id)),
		observers: make(map[int]func(domain.Document)),
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Snapshot returns the current document. Callers must treat it as read-only.
func (s *Session) Snapshot() domain.Document { return s.doc }

// Visual returns the transient interaction state.
func (s *Session) Visual() Visual {
	v := Visual{
		Reorder:        s.reorder.Visual(),
		Gesture:        s.gesture.Mode(),
		SelectedPanel:  s.selectedPanel,
		BubbleMenuOpen: s.menuOpen,
		Preview:        s.preview,
	}
	if t, ok := s.gesture.Target(); ok {
		v.GestureTarget = &t
	}
	if a, ok := s.sel.Active(); ok {
		v.ActiveSelection = &a
	}
	return v
}

// Observe registers fn to receive every published snapshot. The returned
// function removes it.
func (s *Session) Observe(fn func(domain.Document)) (cancel func()) {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() { delete(s.observers, id) }
}

// SetViewScale updates the screen scale used to convert gesture deltas.
func (s *Session) SetViewScale(scale float64) { s.gesture.SetViewScale(scale) }

// SetLayout records where panels were last rendered. The reorder hover test
// runs against it.
func (s *Session) SetLayout(layout []reorder.Bounds) {
	s.layout = append(s.layout[:0], layout...)
}

// publish makes next the current snapshot. A non-empty label records the
// previous snapshot as an undo step. A labelled change landing mid-gesture
// splits the gesture: what it moved so far becomes its own step, and the rest
// of the gesture undoes back to next. It reports whether anything changed.
func (s *Session) publish(label string, next domain.Document) bool {
	if reflect.DeepEqual(next, s.doc) {
		return false
	}
	mode := s.gesture.Mode()
	if label != "" {
		if mode != gesture.Idle && s.gestureMoved {
			s.recordGesture(mode, s.gestureBefore)
		}
		s.record(label, s.doc)
	}
	s.doc = next
	if label != "" && mode != gesture.Idle {
		s.gestureBefore, s.gestureMoved = next, false
	}
	for _, fn := range s.observers {
		fn(next)
	}
	return true
}

func (s *Session) record(label string, before domain.Document) {
	if err := s.history.Record(label, before, s.now()); err != nil {
		s.log.Warn("undo snapshot not recorded", slog.String("label", label), slog.Any("err", err))
	}
}

func (s *Session) readOnly(op string) bool {
	if s.preview {
		s.log.Debug("ignored in preview", slog.String("op", op))
	}
	return s.preview
}

// Panels

func (s *Session) CreatePanel() (domain.PanelID, bool) {
	if s.readOnly("create panel") {
		return "", false
	}
	next, id := s.builder.CreatePanel(s.doc)
	s.publish("create panel", next)
	s.tel.Event(telemetry.PanelCreated, map[string]any{"panels": next.Len()})
	s.log.Info("panel created", slog.String("panel", string(id)), slog.Int("order", next.Len()-1))
	return id, true
}

// DeletePanel removes a panel and resets any gesture involving it.
func (s *Session) DeletePanel(panel domain.PanelID) {
	if s.readOnly("delete panel") || !s.doc.Has(panel) {
		return
	}
	if s.gesture.Involves(panel) {
		s.abortGesture()
	}
	if s.reorder.Involves(panel) {
		s.reorder.Cancel()
	}
	if s.selectedPanel == panel {
		s.selectedPanel = ""
		s.menuOpen = false
	}
	next := s.sel.Reconcile(domain.DeletePanel(s.doc, panel))
	s.publish("delete panel", next)
	s.tel.Event(telemetry.PanelDeleted, map[string]any{"panels": next.Len()})
	s.log.Info("panel deleted", slog.String("panel", string(panel)))
}

func (s *Session) SetPanelTheme(panel domain.PanelID, themeID string) {
	if s.readOnly("set theme") {
		return
	}
	s.publish("change theme", s.builder.SetPanelTheme(s.doc, panel, themeID))
}

// TapPanel toggles the panel selection. Suppressed while a reorder drag is
// armed so the grip press never doubles as a tap.
func (s *Session) TapPanel(panel domain.PanelID) {
	if s.preview || s.reorder.Armed() || !s.doc.Has(panel) {
		return
	}
	if s.selectedPanel == panel {
		s.selectedPanel = ""
		s.menuOpen = false
		return
	}
	s.selectedPanel = panel
}

// MoveUp and MoveDown are the discrete reorder path. They stay available
// during a reorder drag, which they cancel.
func (s *Session) MoveUp(panel domain.PanelID) { s.movePanel(panel, -1) }

func (s *Session) MoveDown(panel domain.PanelID) { s.movePanel(panel, 1) }

func (s *Session) movePanel(panel domain.PanelID, delta int) {
	if s.readOnly("move panel") {
		return
	}
	if s.reorder.Armed() {
		s.reorder.Cancel()
		s.tel.Event(telemetry.ReorderCanceled, nil)
	}
	var next domain.Document
	if delta < 0 {
		next = reorder.MoveUp(s.doc, panel)
	} else {
		next = reorder.MoveDown(s.doc, panel)
	}
	if s.publish("move panel", next) {
		s.tel.Event(telemetry.PanelMoved, map[string]any{"delta": delta})
	}
}

// Bubbles

// ToggleBubbleMenu opens or closes the bubble-kind menu of the selected panel.
func (s *Session) ToggleBubbleMenu() {
	if s.preview || s.selectedPanel == "" {
		s.menuOpen = false
		return
	}
	s.menuOpen = !s.menuOpen
}

func (s *Session) AddBubble(panel domain.PanelID, kind domain.BubbleKind) (domain.BubbleID, bool) {
	if s.readOnly("add bubble") {
		return "", false
	}
	s.menuOpen = false
	next, id, ok := s.builder.AddBubble(s.doc, panel, kind)
	if !ok {
		return "", false
	}
	s.publish("add bubble", next)
	b, _ := next.Bubble(panel, id)
	s.tel.Event(telemetry.BubbleAdded, map[string]any{"kind": string(b.Kind)})
	s.log.Debug("bubble added", slog.String("panel", string(panel)), slog.String("bubble", string(id)))
	return id, true
}

func (s *Session) UpdateBubbleText(panel domain.PanelID, bubble domain.BubbleID, text string) {
	if s.readOnly("edit text") {
		return
	}
	s.publish("edit text", domain.UpdateBubbleText(s.doc, panel, bubble, text))
}

func (s *Session) DeleteBubble(panel domain.PanelID, bubble domain.BubbleID) {
	if s.readOnly("delete bubble") {
		return
	}
	s.resetGestureOn(domain.BubbleRef(panel, bubble))
	next := s.sel.Reconcile(domain.DeleteBubble(s.doc, panel, bubble))
	if s.publish("delete bubble", next) {
		s.tel.Event(telemetry.BubbleDeleted, nil)
	}
}

// Images

// ImageReady is the acquisition callback: the blob replaces any previous
// image of the panel.
func (s *Session) ImageReady(panel domain.PanelID, blob domain.BlobRef) {
	if s.readOnly("set image") || !s.doc.Has(panel) {
		return
	}
	ref := domain.ImageRef(panel)
	s.resetGestureOn(ref)
	doc := s.doc
	if s.sel.IsActive(ref) {
		doc = s.sel.Clear(doc)
	}
	if s.publish("set image", domain.SetImage(doc, panel, blob)) {
		s.tel.Event(telemetry.ImageSet, nil)
	}
}

func (s *Session) ClearImage(panel domain.PanelID) {
	if s.readOnly("clear image") {
		return
	}
	s.resetGestureOn(domain.ImageRef(panel))
	next := s.sel.Reconcile(domain.ClearImage(s.doc, panel))
	if s.publish("clear image", next) {
		s.tel.Event(telemetry.ImageCleared, nil)
	}
}

func (s *Session) resetGestureOn(ref domain.ElementRef) {
	if t, ok := s.gesture.Target(); ok && t == ref {
		s.abortGesture()
	}
}

// abortGesture drops the element gesture without an undo step of its own;
// the deletion that caused it records the moved state.
func (s *Session) abortGesture() {
	s.gesture.Reset()
	s.gestureMoved, s.gestureBefore = false, domain.Document{}
}

// Selection

// TapElement selects an element.
func (s *Session) TapElement(ref domain.ElementRef) bool {
	if s.preview || s.gesture.Mode() != gesture.Idle {
		return false
	}
	next, ok := s.sel.Select(s.doc, ref)
	s.publish("", next)
	return ok
}

// ClearSelection deselects any element, e.g. on a tap on empty canvas.
func (s *Session) ClearSelection() {
	if s.preview || s.gesture.Mode() != gesture.Idle {
		return
	}
	s.publish("", s.sel.Clear(s.doc))
}

// Pointer input. The renderer resolves what is under the pointer and calls
// the matching Down handler; Move, Up, Cancel and CaptureLost go to whatever
// gesture is active.

// PointerDownElement starts moving an element from its body.
func (s *Session) PointerDownElement(ref domain.ElementRef, at pointer.Sample) bool {
	if s.preview || s.reorder.Armed() {
		return false
	}
	before := s.doc
	next, ok := s.gesture.BeginMove(s.doc, ref, at)
	s.publish("", next)
	if ok {
		s.gestureBefore, s.gestureMoved = before, false
	}
	return ok
}

// PointerDownResize starts resizing the selected element from its handle.
func (s *Session) PointerDownResize(ref domain.ElementRef, at pointer.Sample) bool {
	if s.preview || s.reorder.Armed() {
		return false
	}
	next, ok := s.gesture.BeginResize(s.doc, ref, at)
	if ok {
		s.gestureBefore, s.gestureMoved = s.doc, false
	}
	s.publish("", next)
	return ok
}

// PointerDownGrip arms a reorder drag from a panel's grip handle. It clears
// the element and panel selections and closes the bubble menu.
func (s *Session) PointerDownGrip(panel domain.PanelID, at pointer.Sample) bool {
	if s.preview || s.gesture.Mode() != gesture.Idle || !s.doc.Has(panel) {
		return false
	}
	if !s.reorder.Begin(panel, at) {
		return false
	}
	s.selectedPanel = ""
	s.menuOpen = false
	s.publish("", s.sel.Clear(s.doc))
	return true
}

// PointerMove advances the active gesture.
func (s *Session) PointerMove(at pointer.Sample) {
	switch {
	case s.reorder.Armed():
		s.reorder.Update(at, s.layout)
	case s.gesture.Mode() != gesture.Idle:
		mode := s.gesture.Mode()
		next, changed := s.gesture.Update(s.doc, at)
		if changed {
			s.gestureMoved = true
			s.publish("", next)
		}
		if s.gesture.Mode() == gesture.Idle {
			// the target vanished or lost selection underneath the gesture
			s.finishGesture(mode)
		}
	}
}

// PointerUp ends the active gesture, committing a reorder if there is a valid
// hover target.
func (s *Session) PointerUp() {
	if s.reorder.Armed() {
		from := s.doc
		next, ok := s.reorder.Commit(s.doc)
		if ok && s.publish("reorder panels", next) {
			s.tel.Event(telemetry.PanelReordered, map[string]any{"panels": from.Len()})
		}
		return
	}
	mode := s.gesture.Mode()
	if !s.gesture.End() {
		return
	}
	s.finishGesture(mode)
}

// PointerCancel aborts the active gesture. A reorder is discarded; element
// moves were applied live and are kept, as on release.
func (s *Session) PointerCancel() {
	if s.reorder.Armed() {
		s.reorder.Cancel()
		s.tel.Event(telemetry.ReorderCanceled, nil)
		return
	}
	mode := s.gesture.Mode()
	s.gesture.Reset()
	if mode != gesture.Idle {
		s.finishGesture(mode)
	}
}

// CaptureLost guards against a missed release.
func (s *Session) CaptureLost() {
	s.log.Debug("pointer capture lost")
	s.PointerCancel()
}

func (s *Session) finishGesture(mode gesture.Mode) {
	moved := s.gestureMoved
	before := s.gestureBefore
	s.gestureMoved, s.gestureBefore = false, domain.Document{}
	if !moved {
		return
	}
	s.recordGesture(mode, before)
}

func (s *Session) recordGesture(mode gesture.Mode, before domain.Document) {
	label, event := "move element", telemetry.ElementMoved
	if mode == gesture.Resizing {
		label, event = "resize element", telemetry.ElementResized
	}
	s.record(label, before)
	s.tel.Event(event, nil)
}

// History

// Undo restores the snapshot before the last change. Ignored mid-gesture.
func (s *Session) Undo() bool { return s.travel(true) }

// Redo re-applies the last undone change. Ignored mid-gesture.
func (s *Session) Redo() bool { return s.travel(false) }

func (s *Session) travel(back bool) bool {
	if s.preview || s.reorder.Armed() || s.gesture.Mode() != gesture.Idle {
		return false
	}
	var (
		doc   domain.Document
		label string
		ok    bool
		event = telemetry.Undo
	)
	if back {
		doc, label, ok = s.history.Undo(s.doc)
	} else {
		doc, label, ok = s.history.Redo(s.doc)
		event = telemetry.Redo
	}
	if !ok {
		return false
	}
	if s.selectedPanel != "" && !doc.Has(s.selectedPanel) {
		s.selectedPanel = ""
		s.menuOpen = false
	}
	s.publish("", s.sel.Reconcile(doc))
	s.tel.Event(event, nil)
	s.log.Debug("history travel", slog.String("label", label), slog.Bool("undo", back))
	return true
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Preview

// SetPreview switches the read-only preview. Entering it aborts any gesture.
func (s *Session) SetPreview(on bool) {
	if on == s.preview {
		return
	}
	if on {
		s.PointerCancel()
		s.menuOpen = false
	}
	s.preview = on
}

func (s *Session) Preview() bool { return s.preview }

// Event loop

// Run applies events from ch in arrival order until ch is closed or ctx is
// done.
func (s *Session) Run(ctx context.Context, ch <-chan Event) error {
	ctx = applog.ContextWithSession(ctx, s.id)
	l := applog.WithComponent("editor")
	l.DebugContext(ctx, "event loop started")
	defer l.DebugContext(ctx, "event loop stopped")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			ev.Apply(s)
		}
	}
}

// CrashSummary implements crash.Source.
func (s *Session) CrashSummary() crash.Summary {
	sum := crash.Summary{
		Session: s.id,
		Panels:  s.doc.Len(),
		Gesture: s.gesture.Mode().String(),
		Reorder: s.reorder.Armed(),
	}
	for _, p := range s.doc.Panels {
		sum.Bubbles += len(p.Bubbles)
		if p.Image != nil {
			sum.Images++
		}
	}
	if c, ok := s.tel.(interface{ Tally() map[string]int }); ok {
		sum.Events = c.Tally()
	}
	if b, err := json.Marshal(s.doc); err == nil {
		sum.Document = b
	}
	return sum
}
