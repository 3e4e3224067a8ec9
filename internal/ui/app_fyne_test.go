//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests drive the storyboard widget with synthetic Fyne events. They are
// gated behind the "fyne" build tag so CI (which is headless) does not need
// Fyne or a display. To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"math"
	"math/rand/v2"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/editor"
	"gostoryboard/internal/theme"
)

func newBoard(t *testing.T, panels int) (*Storyboard, *editor.Session) {
	t.Helper()
	test.NewTempApp(t)
	s := editor.New(editor.Options{
		SessionID: "ui-test",
		IDs:       &domain.Sequence{},
		Themes:    theme.Builtin(),
		Rand:      rand.New(rand.NewPCG(3, 4)),
	})
	for i := 0; i < panels; i++ {
		s.CreatePanel()
	}
	sb := NewStoryboard(s, theme.Builtin(), 1)
	sb.Resize(fyne.NewSize(PanelWidth+2*Margin, 1200))
	return sb, s
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func drag(sb *Storyboard, from, to fyne.Position) {
	sb.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: to},
		Dragged:    fyne.Delta{DX: to.X - from.X, DY: to.Y - from.Y},
	})
	sb.DragEnd()
}

func TestStoryboard_GripDragReorders(t *testing.T) {
	sb, s := newBoard(t, 3)
	ids := s.Snapshot().IDs()

	third := sb.view.PanelRect(2)
	drag(sb, fyne.NewPos(20, 20), fyne.NewPos(20, float32(third.Y+40)))

	got := s.Snapshot().IDs()
	want := []domain.PanelID{ids[1], ids[2], ids[0]}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after drag = %v, want %v", got, want)
		}
	}
	if s.Visual().Reorder.Active() {
		t.Fatalf("reorder still armed after drag end")
	}
}

func TestStoryboard_ElementDragMovesBubble(t *testing.T) {
	sb, s := newBoard(t, 1)
	p := s.Snapshot().Panels[0].ID
	bid, ok := s.AddBubble(p, domain.BubbleSpeech)
	if !ok {
		t.Fatalf("add bubble failed")
	}
	b0, _ := s.Snapshot().Bubble(p, bid)

	from := fyne.NewPos(float32(Margin+b0.X+10), float32(Margin+b0.Y+10))
	drag(sb, from, fyne.NewPos(from.X+30, from.Y+40))

	b1, _ := s.Snapshot().Bubble(p, bid)
	if !near(b1.X, b0.X+30) || !near(b1.Y, b0.Y+40) {
		t.Fatalf("bubble at (%v,%v), want (%v,%v)", b1.X, b1.Y, b0.X+30, b0.Y+40)
	}
	if !b1.Selected {
		t.Fatalf("dragged bubble should be selected")
	}
	if !s.CanUndo() {
		t.Fatalf("drag should leave an undo step")
	}
}

func TestStoryboard_TapTogglesPanelSelection(t *testing.T) {
	sb, s := newBoard(t, 2)
	second := sb.view.PanelRect(1)
	at := &fyne.PointEvent{Position: fyne.NewPos(float32(second.X+second.W-20), float32(second.Y+second.H-20))}

	sb.Tapped(at)
	if got, want := s.Visual().SelectedPanel, s.Snapshot().Panels[1].ID; got != want {
		t.Fatalf("selected panel = %q, want %q", got, want)
	}
	sb.Tapped(at)
	if s.Visual().SelectedPanel != "" {
		t.Fatalf("second tap should deselect")
	}
}

func TestStoryboard_BodyDragDoesNothing(t *testing.T) {
	sb, s := newBoard(t, 2)
	before := s.Snapshot()
	drag(sb, fyne.NewPos(400, 300), fyne.NewPos(400, 500))
	if s.Visual().SelectedPanel != "" || s.CanUndo() || s.Snapshot().IDs()[0] != before.IDs()[0] {
		t.Fatalf("dragging a panel body should not change anything")
	}
}

func TestStoryboard_ScrollClampsToContent(t *testing.T) {
	sb, _ := newBoard(t, 1)
	sb.Resize(fyne.NewSize(PanelWidth+2*Margin, 200))
	sb.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: -10000}})
	maxY := sb.view.ContentHeight(1) - 200
	if sb.view.ScrollY != maxY {
		t.Fatalf("ScrollY = %v, want %v", sb.view.ScrollY, maxY)
	}
	sb.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 10000}})
	if sb.view.ScrollY != 0 {
		t.Fatalf("ScrollY = %v, want 0", sb.view.ScrollY)
	}
}

func TestStoryboard_RendererBuildsScene(t *testing.T) {
	sb, s := newBoard(t, 2)
	s.AddBubble(s.Snapshot().Panels[0].ID, domain.BubbleShout)
	r := test.WidgetRenderer(sb)
	r.Layout(sb.Size())
	// background + per panel gradient, grip and frame, plus box+text for the bubble
	if n := len(r.Objects()); n < 1+2*3+2 {
		t.Fatalf("renderer produced %d objects", n)
	}
}
