//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"image/color"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	fynetheme "fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/editor"
	"gostoryboard/internal/geom"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/pointer"
	"gostoryboard/internal/theme"
	"gostoryboard/internal/version"
)

// Run starts the desktop editor and blocks until the window is closed.
func Run(opts Options) error {
	if opts.Themes == nil {
		opts.Themes = theme.Builtin()
	}
	if opts.Session == nil {
		opts.Session = editor.New(editor.Options{Themes: opts.Themes})
	}
	l := applog.WithComponent("ui")
	a := app.NewWithID("gostoryboard")
	w := a.NewWindow("Go Storyboard " + version.String())

	s := opts.Session
	sb := NewStoryboard(s, opts.Themes, opts.Scale)
	status := widget.NewLabel("")
	updateStatus := func() {
		v := s.Visual()
		doc := s.Snapshot()
		parts := []string{fmt.Sprintf("%d panels", doc.Len())}
		if v.SelectedPanel != "" {
			if p, ok := doc.Panel(v.SelectedPanel); ok {
				parts = append(parts, fmt.Sprintf("panel %d selected", p.Order+1))
			}
		}
		if v.Preview {
			parts = append(parts, "preview")
		}
		status.SetText(strings.Join(parts, " · "))
	}

	themeSelect := widget.NewSelect(opts.Themes.IDs(), func(id string) {
		if p := s.Visual().SelectedPanel; p != "" {
			s.SetPanelTheme(p, id)
		}
	})
	themeSelect.PlaceHolder = "Background"

	addBubble := func(kind domain.BubbleKind) func() {
		return func() {
			p := s.Visual().SelectedPanel
			if p == "" {
				dialog.ShowInformation("Add Bubble", "Select a panel first.", w)
				return
			}
			s.AddBubble(p, kind)
			sb.Refresh()
		}
	}

	acquireImage := func() {
		p := s.Visual().SelectedPanel
		if p == "" {
			dialog.ShowInformation("Add Image", "Select a panel first.", w)
			return
		}
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			uri := rc.URI().String()
			_ = rc.Close()
			s.ImageReady(p, domain.BlobRef(uri))
			l.Info("image attached", slog.String("panel", string(p)))
			sb.Refresh()
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"}))
		fd.Show()
	}

	deleteSelected := func() {
		v := s.Visual()
		switch {
		case v.ActiveSelection != nil && v.ActiveSelection.Kind == domain.ElementBubble:
			s.DeleteBubble(v.ActiveSelection.Panel, domain.BubbleID(v.ActiveSelection.ID))
		case v.ActiveSelection != nil:
			s.ClearImage(v.ActiveSelection.Panel)
		case v.SelectedPanel != "":
			s.DeletePanel(v.SelectedPanel)
		}
		sb.Refresh()
	}

	previewBtn := widget.NewToolbarAction(fynetheme.VisibilityIcon(), func() {
		s.SetPreview(!s.Preview())
		sb.Refresh()
	})

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(fynetheme.ContentAddIcon(), func() { s.CreatePanel(); sb.Refresh() }),
		widget.NewToolbarAction(fynetheme.DeleteIcon(), deleteSelected),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(fynetheme.MoveUpIcon(), func() {
			if p := s.Visual().SelectedPanel; p != "" {
				s.MoveUp(p)
				sb.Refresh()
			}
		}),
		widget.NewToolbarAction(fynetheme.MoveDownIcon(), func() {
			if p := s.Visual().SelectedPanel; p != "" {
				s.MoveDown(p)
				sb.Refresh()
			}
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(fynetheme.FileImageIcon(), acquireImage),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(fynetheme.ContentUndoIcon(), func() { s.Undo(); sb.Refresh() }),
		widget.NewToolbarAction(fynetheme.ContentRedoIcon(), func() { s.Redo(); sb.Refresh() }),
		widget.NewToolbarSeparator(),
		previewBtn,
	)
	bubbles := container.NewHBox(
		widget.NewButton("Speech", addBubble(domain.BubbleSpeech)),
		widget.NewButton("Thought", addBubble(domain.BubbleThought)),
		widget.NewButton("Shout", addBubble(domain.BubbleShout)),
		themeSelect,
	)

	sb.OnEditText = func(panel domain.PanelID, bubble domain.BubbleID, text string) {
		entry := widget.NewMultiLineEntry()
		entry.SetText(text)
		form := dialog.NewForm("Bubble Text", "Save", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Text", entry),
		}, func(ok bool) {
			if ok {
				s.UpdateBubbleText(panel, bubble, entry.Text)
				sb.Refresh()
			}
		}, w)
		form.Resize(fyne.NewSize(360, 200))
		form.Show()
	}

	cancel := s.Observe(func(domain.Document) { updateStatus() })
	defer cancel()
	sb.OnChange = func() {
		updateStatus()
		if p, ok := s.Snapshot().Panel(s.Visual().SelectedPanel); ok {
			themeSelect.SetSelected(p.BackgroundThemeID)
		}
	}
	updateStatus()

	top := container.NewVBox(toolbar, bubbles)
	w.SetContent(container.NewBorder(top, status, nil, nil, sb))
	w.Resize(fyne.NewSize(PanelWidth+2*Margin+40, 800))
	l.Info("ui started", slog.String("session", s.ID()))
	w.ShowAndRun()
	return nil
}

// Storyboard renders the panel column of a session and forwards pointer
// input to it.
type Storyboard struct {
	widget.BaseWidget
	s      *editor.Session
	themes *theme.Catalog
	view   View

	dragging bool

	// OnEditText is called on a double tap on a bubble.
	OnEditText func(panel domain.PanelID, bubble domain.BubbleID, text string)
	// OnChange is called after any interaction.
	OnChange func()
}

func NewStoryboard(s *editor.Session, themes *theme.Catalog, scale float64) *Storyboard {
	if scale <= 0 {
		scale = 1
	}
	sb := &Storyboard{s: s, themes: themes, view: View{Scale: scale}}
	s.SetViewScale(scale)
	sb.ExtendBaseWidget(sb)
	return sb
}

func toPt(p fyne.Position) geom.Pt { return geom.Pt{X: float64(p.X), Y: float64(p.Y)} }

func (sb *Storyboard) changed() {
	sb.s.SetLayout(sb.view.Layout(sb.s.Snapshot()))
	sb.Refresh()
	if sb.OnChange != nil {
		sb.OnChange()
	}
}

// Tapped routes a click: panel body toggles the panel selection, an element
// selects it, empty space clears the selection.
func (sb *Storyboard) Tapped(e *fyne.PointEvent) {
	h := sb.view.HitTest(sb.s.Snapshot(), toPt(e.Position))
	switch h.Target {
	case editor.OnElement, editor.OnResizeHandle:
		sb.s.TapElement(h.Element)
	case editor.OnPanel, editor.OnGrip:
		sb.s.TapPanel(h.Panel)
	default:
		sb.s.ClearSelection()
	}
	sb.changed()
}

// DoubleTapped opens the text editor for a bubble.
func (sb *Storyboard) DoubleTapped(e *fyne.PointEvent) {
	doc := sb.s.Snapshot()
	h := sb.view.HitTest(doc, toPt(e.Position))
	if h.Target != editor.OnElement || h.Element.Kind != domain.ElementBubble || sb.s.Preview() {
		return
	}
	b, ok := doc.Bubble(h.Element.Panel, domain.BubbleID(h.Element.ID))
	if ok && sb.OnEditText != nil {
		sb.OnEditText(h.Element.Panel, b.ID, b.Text)
	}
}

// Dragged starts a gesture on the first event, resolving the target at the
// press position, and advances it afterwards.
func (sb *Storyboard) Dragged(e *fyne.DragEvent) {
	cur := pointer.At(float64(e.Position.X), float64(e.Position.Y))
	if !sb.dragging {
		sb.dragging = true
		sb.s.SetLayout(sb.view.Layout(sb.s.Snapshot()))
		start := geom.Pt{X: cur.X - float64(e.Dragged.DX), Y: cur.Y - float64(e.Dragged.DY)}
		h := sb.view.HitTest(sb.s.Snapshot(), start)
		if h.Target == editor.OnPanel || h.Target == editor.OnNothing {
			// dragging the panel body does nothing; only taps toggle it
			return
		}
		editor.Pointer{
			Phase:   pointer.Down,
			At:      pointer.At(start.X, start.Y),
			Target:  h.Target,
			Panel:   h.Panel,
			Element: h.Element,
		}.Apply(sb.s)
	}
	sb.s.PointerMove(cur)
	sb.Refresh()
}

func (sb *Storyboard) DragEnd() {
	sb.dragging = false
	sb.s.PointerUp()
	sb.changed()
}

// Scrolled scrolls the column.
func (sb *Storyboard) Scrolled(e *fyne.ScrollEvent) {
	if sb.dragging {
		return
	}
	maxY := sb.view.ContentHeight(sb.s.Snapshot().Len()) - float64(sb.Size().Height)
	y := sb.view.ScrollY - float64(e.Scrolled.DY)
	if y > maxY {
		y = maxY
	}
	if y < 0 {
		y = 0
	}
	sb.view.ScrollY = y
	sb.changed()
}

func (sb *Storyboard) MinSize() fyne.Size {
	return fyne.NewSize(float32((PanelWidth+2*Margin)*sb.view.scale()), 200)
}

func (sb *Storyboard) CreateRenderer() fyne.WidgetRenderer {
	return &storyboardRenderer{sb: sb}
}

type storyboardRenderer struct {
	sb      *Storyboard
	objects []fyne.CanvasObject
}

func (r *storyboardRenderer) Destroy()                     {}
func (r *storyboardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *storyboardRenderer) MinSize() fyne.Size           { return r.sb.MinSize() }
func (r *storyboardRenderer) Refresh()                     { r.Layout(r.sb.Size()); canvas.Refresh(r.sb) }

var (
	colBackground = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	colSelect     = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	colDrop       = color.RGBA{R: 250, G: 204, B: 21, A: 255}
	colGrip       = color.RGBA{R: 255, G: 255, B: 255, A: 90}
	colBubble     = color.RGBA{R: 255, G: 255, B: 255, A: 240}
	colInk        = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	colShout      = color.RGBA{R: 220, G: 38, B: 38, A: 255}
	colImage      = color.RGBA{R: 0, G: 0, B: 0, A: 60}
)

func place(o fyne.CanvasObject, r geom.Rect) {
	o.Move(fyne.NewPos(float32(r.X), float32(r.Y)))
	o.Resize(fyne.NewSize(float32(r.W), float32(r.H)))
}

func outline(c color.Color, width float32) *canvas.Rectangle {
	rc := canvas.NewRectangle(color.Transparent)
	rc.StrokeColor = c
	rc.StrokeWidth = width
	return rc
}

// Layout rebuilds the scene from the current snapshot. Documents are small,
// so a full rebuild per frame is fine.
func (r *storyboardRenderer) Layout(size fyne.Size) {
	sb := r.sb
	doc := sb.s.Snapshot()
	v := sb.s.Visual()
	scale := sb.view.scale()

	bg := canvas.NewRectangle(colBackground)
	bg.Resize(size)
	objs := []fyne.CanvasObject{bg}

	var dragged []fyne.CanvasObject
	for i, p := range doc.Panels {
		m := sb.view.PanelToScreen(i)
		lift := 0.0
		if v.Reorder.DraggedPanelID == p.ID {
			lift = v.Reorder.DragOffsetY
			m = geom.Translate(0, lift).Mul(m)
		}
		rect := func(x, y, w, h float64) geom.Rect {
			o := m.Apply(geom.Pt{X: x, Y: y})
			return geom.R(o.X, o.Y, w*scale, h*scale)
		}
		var layer []fyne.CanvasObject

		top, bottom := ThemeColors(sb.themes.Get(p.BackgroundThemeID))
		grad := canvas.NewVerticalGradient(top, bottom)
		place(grad, rect(0, 0, PanelWidth, PanelHeight))
		layer = append(layer, grad)

		if img := p.Image; img != nil {
			box := canvas.NewRectangle(colImage)
			box.StrokeColor = colInk
			box.StrokeWidth = 1
			place(box, rect(img.X, img.Y, img.Width, img.Height))
			name := string(img.Source)
			if k := strings.LastIndex(name, "/"); k >= 0 {
				name = name[k+1:]
			}
			label := canvas.NewText(name, colInk)
			label.TextSize = float32(11 * scale)
			place(label, rect(img.X+4, img.Y+4, img.Width-8, 16))
			layer = append(layer, box, label)
		}
		for _, b := range p.Bubbles {
			box := canvas.NewRectangle(colBubble)
			box.StrokeColor = colInk
			box.StrokeWidth = 2
			switch b.Kind {
			case domain.BubbleThought:
				box.CornerRadius = float32(b.Height * scale / 2)
			case domain.BubbleShout:
				box.StrokeColor = colShout
				box.StrokeWidth = 3
			default:
				box.CornerRadius = float32(10 * scale)
			}
			place(box, rect(b.X, b.Y, b.Width, b.Height))
			txt := canvas.NewText(b.Text, colInk)
			txt.TextSize = float32(12 * scale)
			if b.Kind == domain.BubbleShout {
				txt.TextStyle = fyne.TextStyle{Bold: true}
			}
			place(txt, rect(b.X+8, b.Y+8, b.Width-16, b.Height-16))
			layer = append(layer, box, txt)
		}

		if !v.Preview {
			if ref, ok := doc.Selected(); ok && ref.Panel == p.ID {
				if er, ok := elementRect(p, ref); ok {
					sel := outline(colSelect, 2)
					place(sel, rect(er.X, er.Y, er.W, er.H))
					h := handleRect(er)
					handle := canvas.NewRectangle(colSelect)
					place(handle, rect(h.X, h.Y, h.W, h.H))
					layer = append(layer, sel, handle)
				}
			}
			grip := canvas.NewRectangle(colGrip)
			grip.CornerRadius = 4
			place(grip, rect(4, 4, GripSize-8, GripSize-8))
			layer = append(layer, grip)
		}

		frame := outline(colInk, 2)
		switch {
		case v.Reorder.IsDropTarget(p.ID):
			frame = outline(colDrop, 4)
		case v.SelectedPanel == p.ID:
			frame = outline(colSelect, 3)
		}
		place(frame, rect(0, 0, PanelWidth, PanelHeight))
		layer = append(layer, frame)

		if lift != 0 {
			dragged = layer
			continue
		}
		objs = append(objs, layer...)
	}
	// the dragged panel floats above the others
	r.objects = append(objs, dragged...)
}
