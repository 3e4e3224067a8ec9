/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/editor"
	"gostoryboard/internal/geom"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/pointer"
	"gostoryboard/internal/reorder"
	"gostoryboard/internal/trace"
)

// Layout defaults.
const (
	DefaultWidth = 400.0
	DefaultRow   = 100.0
	DefaultGap   = 10.0
)

// Result summarizes a replay.
type Result struct {
	Steps    int
	Failures []string
	Document domain.Document
}

// ErrExpectations is returned when any expect step failed.
var ErrExpectations = errors.New("replay expectations failed")

// HitMode maps the script layout onto the reorder hit test.
func (sc *Script) HitMode() reorder.HitMode {
	if sc.Layout == "grid" {
		return reorder.Grid
	}
	return reorder.Column
}

type runner struct {
	ctx      context.Context
	tracer   oteltrace.Tracer
	panels   map[string]domain.PanelID
	bubbles  map[string]domain.BubbleID
	steps    int
	failures []string
	log      *slog.Logger
}

// Run feeds the script to s through its event loop. The feeder and the loop
// run in one errgroup so a cancelled ctx stops both. s must not be used
// concurrently until Run returns.
func Run(ctx context.Context, s *editor.Session, sc *Script) (Result, error) {
	if sc.ViewScale > 0 {
		s.SetViewScale(sc.ViewScale)
	}
	tracer := trace.Tracer("replay")
	ctx, span := tracer.Start(ctx, "replay "+sc.Name, oteltrace.WithAttributes(
		attribute.String("replay.layout", sc.Layout),
		attribute.Int("replay.steps", len(sc.Steps)),
	))
	defer span.End()
	r := &runner{
		ctx:     ctx,
		tracer:  tracer,
		panels:  make(map[string]domain.PanelID),
		bubbles: make(map[string]domain.BubbleID),
		log:     applog.WithComponent("replay").With(slog.String("script", sc.Name)),
	}
	ch := make(chan editor.Event)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx, ch) })
	g.Go(func() error {
		defer close(ch)
		for i, st := range sc.Steps {
			select {
			case ch <- r.event(i+1, st):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "interrupted")
		return Result{}, fmt.Errorf("replay %q: %w", sc.Name, err)
	}
	res := Result{Steps: r.steps, Failures: r.failures, Document: s.Snapshot()}
	span.SetAttributes(attribute.Int("replay.failures", len(r.failures)))
	if len(r.failures) > 0 {
		span.SetStatus(codes.Error, "expectations failed")
		return res, fmt.Errorf("%w: %s", ErrExpectations, strings.Join(r.failures, "; "))
	}
	return res, nil
}

// panel resolves an alias. Unknown aliases are used verbatim, which makes
// them stale ids: the editor treats them as no-ops.
func (r *runner) panel(alias string) domain.PanelID {
	if id, ok := r.panels[alias]; ok {
		return id
	}
	return domain.PanelID(alias)
}

func (r *runner) bubble(alias string) domain.BubbleID {
	if id, ok := r.bubbles[alias]; ok {
		return id
	}
	return domain.BubbleID(alias)
}

func (r *runner) element(st Step) domain.ElementRef {
	if st.Image {
		return domain.ImageRef(r.panel(st.Panel))
	}
	return domain.BubbleRef(r.panel(st.Panel), r.bubble(st.Bubble))
}

// event wraps one step. Aliases are resolved inside the event so they see
// the effects of every earlier step.
func (r *runner) event(n int, st Step) editor.Event {
	return editor.EventFunc(func(s *editor.Session) {
		r.steps++
		r.log.Debug("step", slog.Int("n", n), slog.String("op", st.Op))
		_, span := r.tracer.Start(r.ctx, st.Op, oteltrace.WithAttributes(attribute.Int("replay.step", n)))
		failed := len(r.failures)
		r.apply(n, st, s)
		if len(r.failures) > failed {
			span.SetStatus(codes.Error, strings.Join(r.failures[failed:], "; "))
		}
		span.End()
	})
}

func (r *runner) apply(n int, st Step, s *editor.Session) {
	at := pointer.At(st.X, st.Y)
	switch st.Op {
	case OpCreatePanel:
		if id, ok := s.CreatePanel(); ok && st.As != "" {
			r.panels[st.As] = id
		}
	case OpDeletePanel:
		s.DeletePanel(r.panel(st.Panel))
	case OpTheme:
		s.SetPanelTheme(r.panel(st.Panel), st.Theme)
	case OpAddBubble:
		if id, ok := s.AddBubble(r.panel(st.Panel), domain.BubbleKind(st.Kind)); ok && st.As != "" {
			r.bubbles[st.As] = id
		}
	case OpText:
		s.UpdateBubbleText(r.panel(st.Panel), r.bubble(st.Bubble), st.Text)
	case OpDeleteBubble:
		s.DeleteBubble(r.panel(st.Panel), r.bubble(st.Bubble))
	case OpImage:
		editor.ImageReady{Panel: r.panel(st.Panel), Blob: domain.BlobRef(st.Blob)}.Apply(s)
	case OpClearImage:
		s.ClearImage(r.panel(st.Panel))
	case OpTapPanel:
		s.TapPanel(r.panel(st.Panel))
	case OpTapElement:
		s.TapElement(r.element(st))
	case OpMenu:
		s.ToggleBubbleMenu()
	case OpDown:
		ev := editor.Pointer{Phase: pointer.Down, At: at, Panel: r.panel(st.Panel)}
		switch st.On {
		case OnGrip:
			ev.Target = editor.OnGrip
		case OnPanel:
			ev.Target = editor.OnPanel
		case OnElement:
			ev.Target, ev.Element = editor.OnElement, r.element(st)
		case OnResize:
			ev.Target, ev.Element = editor.OnResizeHandle, r.element(st)
		}
		ev.Apply(s)
	case OpMove:
		editor.Pointer{Phase: pointer.Move, At: at}.Apply(s)
	case OpUp:
		editor.Pointer{Phase: pointer.Up, At: at}.Apply(s)
	case OpCancel:
		editor.Pointer{Phase: pointer.Cancel}.Apply(s)
	case OpCaptureLost:
		editor.Pointer{Phase: pointer.CaptureLost}.Apply(s)
	case OpMoveUp:
		s.MoveUp(r.panel(st.Panel))
	case OpMoveDown:
		s.MoveDown(r.panel(st.Panel))
	case OpUndo:
		s.Undo()
	case OpRedo:
		s.Redo()
	case OpPreview:
		s.SetPreview(st.Enable)
	case OpLayout:
		s.SetLayout(layoutFor(s.Snapshot().IDs(), st))
	case OpExpect:
		for _, f := range r.check(st, s.Snapshot()) {
			r.failures = append(r.failures, fmt.Sprintf("step %d: %s", n, f))
		}
	}
}

func layoutFor(ids []domain.PanelID, st Step) []reorder.Bounds {
	w, row, gap := st.Width, st.Row, st.Gap
	if w <= 0 {
		w = DefaultWidth
	}
	if row <= 0 {
		row = DefaultRow
	}
	if gap <= 0 {
		gap = DefaultGap
	}
	if st.Columns <= 1 {
		return reorder.ColumnLayout(ids, w, row, gap)
	}
	out := make([]reorder.Bounds, len(ids))
	for i, id := range ids {
		c, r := i%st.Columns, i/st.Columns
		out[i] = reorder.Bounds{Panel: id, Rect: geom.R(float64(c)*(w+gap), float64(r)*(row+gap), w, row)}
	}
	return out
}

func (r *runner) check(st Step, doc domain.Document) []string {
	e := st.Expect
	var fails []string
	failf := func(format string, args ...any) { fails = append(fails, fmt.Sprintf(format, args...)) }

	if e.Order != nil {
		want := make([]domain.PanelID, len(e.Order))
		for i, a := range e.Order {
			want[i] = r.panel(a)
		}
		if got := doc.IDs(); !slices.Equal(got, want) {
			failf("order: want %v, got %v", want, got)
		}
	}
	if e.Panels != nil && doc.Len() != *e.Panels {
		failf("panels: want %d, got %d", *e.Panels, doc.Len())
	}
	if st.Panel == "" {
		return fails
	}
	p, ok := doc.Panel(r.panel(st.Panel))
	if !ok {
		return append(fails, fmt.Sprintf("panel %s does not exist", st.Panel))
	}
	if e.Bubbles != nil && len(p.Bubbles) != *e.Bubbles {
		failf("bubbles on %s: want %d, got %d", st.Panel, *e.Bubbles, len(p.Bubbles))
	}
	if e.HasImage != nil && (p.Image != nil) != *e.HasImage {
		failf("image on %s: want %t", st.Panel, *e.HasImage)
	}
	if e.Theme != nil && p.BackgroundThemeID != *e.Theme {
		failf("theme of %s: want %s, got %s", st.Panel, *e.Theme, p.BackgroundThemeID)
	}

	var x, y, w, h float64
	var selected bool
	var text *string
	switch {
	case st.Image:
		if p.Image == nil {
			return append(fails, fmt.Sprintf("panel %s has no image", st.Panel))
		}
		x, y, w, h, selected = p.Image.X, p.Image.Y, p.Image.Width, p.Image.Height, p.Image.Selected
	case st.Bubble != "":
		b, ok := doc.Bubble(p.ID, r.bubble(st.Bubble))
		if !ok {
			return append(fails, fmt.Sprintf("bubble %s does not exist", st.Bubble))
		}
		x, y, w, h, selected, text = b.X, b.Y, b.Width, b.Height, b.Selected, &b.Text
	default:
		return fails
	}
	cmp := func(name string, want *float64, got float64) {
		if want != nil && geom.Round(got, 6) != geom.Round(*want, 6) {
			failf("%s: want %g, got %g", name, *want, got)
		}
	}
	cmp("x", e.X, x)
	cmp("y", e.Y, y)
	cmp("width", e.Width, w)
	cmp("height", e.Height, h)
	if e.Selected != nil && selected != *e.Selected {
		failf("selected: want %t, got %t", *e.Selected, selected)
	}
	if e.Text != nil && text != nil && *text != *e.Text {
		failf("text: want %q, got %q", *e.Text, *text)
	}
	return fails
}
