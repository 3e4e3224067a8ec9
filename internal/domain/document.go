/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// Mutations in this file are pure: they never modify their input document and
// always return a snapshot satisfying the model invariants. References to
// panels or elements that do not exist are silent no-ops, so late events of a
// gesture racing a deletion cannot break anything.

// ThemeResolver maps a requested background theme id to a recognized one,
// falling back to the default theme for unknown ids.
type ThemeResolver interface {
	Resolve(id string) string
}

// Placement is the window new bubbles are randomly placed in.
type Placement struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

var DefaultPlacement = Placement{MinX: 50, MaxX: 250, MinY: 50, MaxY: 200}

// Builder carries the collaborators needed by mutations that create content.
type Builder struct {
	IDs       IDSource
	Themes    ThemeResolver
	Rand      *rand.Rand
	Placement Placement
}

func (b *Builder) ids() IDSource {
	if b.IDs == nil {
		return UUIDs{}
	}
	return b.IDs
}

func (b *Builder) theme(id string) string {
	if b.Themes == nil {
		return id
	}
	return b.Themes.Resolve(id)
}

func (b *Builder) float64() float64 {
	if b.Rand == nil {
		return rand.Float64()
	}
	return b.Rand.Float64()
}

func (b *Builder) placement() Placement {
	if b.Placement == (Placement{}) {
		return DefaultPlacement
	}
	return b.Placement
}

// CreatePanel appends a panel with the default theme at order N.
func (b *Builder) CreatePanel(doc Document) (Document, PanelID) {
	out := doc.Clone()
	id := b.ids().NewPanelID()
	out.Panels = append(out.Panels, Panel{
		ID:                id,
		Order:             len(out.Panels),
		BackgroundThemeID: b.theme(""),
		Bubbles:           []TextBubble{},
	})
	return normalize(out), id
}

// SetPanelTheme updates the background theme; unknown themes resolve to the default.
func (b *Builder) SetPanelTheme(doc Document, panel PanelID, themeID string) Document {
	i := doc.indexOf(panel)
	if i < 0 {
		return doc
	}
	out := doc.Clone()
	out.Panels[i].BackgroundThemeID = b.theme(themeID)
	return normalize(out)
}

// AddBubble places a new bubble of the given kind at a random position inside
// the placement window. Placement reduces overlap but does not prevent it.
func (b *Builder) AddBubble(doc Document, panel PanelID, kind BubbleKind) (Document, BubbleID, bool) {
	i := doc.indexOf(panel)
	if i < 0 {
		return doc, "", false
	}
	if !kind.Valid() {
		kind = BubbleSpeech
	}
	pl := b.placement()
	out := doc.Clone()
	id := b.ids().NewBubbleID()
	out.Panels[i].Bubbles = append(out.Panels[i].Bubbles, TextBubble{
		ID:     id,
		Text:   DefaultBubbleText,
		X:      pl.MinX + b.float64()*(pl.MaxX-pl.MinX),
		Y:      pl.MinY + b.float64()*(pl.MaxY-pl.MinY),
		Width:  DefaultBubbleWidth,
		Height: DefaultBubbleHeight,
		Kind:   kind,
	})
	return normalize(out), id, true
}

// DeletePanel removes a panel; survivors keep their relative order.
func DeletePanel(doc Document, panel PanelID) Document {
	i := doc.indexOf(panel)
	if i < 0 {
		return doc
	}
	out := doc.Clone()
	out.Panels = append(out.Panels[:i], out.Panels[i+1:]...)
	return normalize(out)
}

// UpdateBubbleText replaces the text of a bubble.
func UpdateBubbleText(doc Document, panel PanelID, bubble BubbleID, text string) Document {
	i, j := doc.bubbleIndex(panel, bubble)
	if j < 0 {
		return doc
	}
	out := doc.Clone()
	out.Panels[i].Bubbles[j].Text = text
	return normalize(out)
}

// DeleteBubble removes a bubble from its panel.
func DeleteBubble(doc Document, panel PanelID, bubble BubbleID) Document {
	i, j := doc.bubbleIndex(panel, bubble)
	if j < 0 {
		return doc
	}
	out := doc.Clone()
	bs := out.Panels[i].Bubbles
	out.Panels[i].Bubbles = append(bs[:j], bs[j+1:]...)
	return normalize(out)
}

// SetImage replaces any existing image with src at the default position and size.
func SetImage(doc Document, panel PanelID, src BlobRef) Document {
	i := doc.indexOf(panel)
	if i < 0 {
		return doc
	}
	out := doc.Clone()
	out.Panels[i].Image = &ImageElement{
		Source: src,
		X:      DefaultImageX,
		Y:      DefaultImageY,
		Width:  DefaultImageWidth,
		Height: DefaultImageHeight,
	}
	return normalize(out)
}

// ClearImage removes the panel's image.
func ClearImage(doc Document, panel PanelID) Document {
	i := doc.indexOf(panel)
	if i < 0 || doc.Panels[i].Image == nil {
		return doc
	}
	out := doc.Clone()
	out.Panels[i].Image = nil
	return normalize(out)
}

// MovePanel splices the panel out of its position and reinserts it at index
// to (clamped to the valid range). Panels between the two positions shift by one.
func MovePanel(doc Document, panel PanelID, to int) Document {
	if !doc.Has(panel) {
		return doc
	}
	out := Normalize(doc)
	from := out.indexOf(panel)
	if to < 0 {
		to = 0
	}
	if to >= len(out.Panels) {
		to = len(out.Panels) - 1
	}
	if to == from {
		return doc
	}
	p := out.Panels[from]
	if to < from {
		copy(out.Panels[to+1:from+1], out.Panels[to:from])
	} else {
		copy(out.Panels[from:to], out.Panels[from+1:to+1])
	}
	out.Panels[to] = p
	for k := range out.Panels {
		out.Panels[k].Order = k
	}
	return normalize(out)
}

// MovePanelBy moves a panel delta positions (-1 earlier, +1 later). Moves past
// either end are clamped, so moving the first panel up is a no-op.
func MovePanelBy(doc Document, panel PanelID, delta int) Document {
	p, ok := doc.Panel(panel)
	if !ok {
		return doc
	}
	return MovePanel(doc, panel, p.Order+delta)
}

// TranslateElement offsets an element's position, clamping at zero.
func TranslateElement(doc Document, ref ElementRef, dx, dy float64) Document {
	return updateElement(doc, ref, func(x, y, w, h *float64) {
		*x += dx
		*y += dy
	})
}

// ResizeElement offsets an element's size, clamping at the element minimum.
func ResizeElement(doc Document, ref ElementRef, dw, dh float64) Document {
	return updateElement(doc, ref, func(x, y, w, h *float64) {
		*w += dw
		*h += dh
	})
}

func updateElement(doc Document, ref ElementRef, fn func(x, y, w, h *float64)) Document {
	if !doc.Exists(ref) {
		return doc
	}
	out := doc.Clone()
	i := out.indexOf(ref.Panel)
	p := &out.Panels[i]
	switch ref.Kind {
	case ElementImage:
		fn(&p.Image.X, &p.Image.Y, &p.Image.Width, &p.Image.Height)
	case ElementBubble:
		for j := range p.Bubbles {
			if string(p.Bubbles[j].ID) == ref.ID {
				b := &p.Bubbles[j]
				fn(&b.X, &b.Y, &b.Width, &b.Height)
				break
			}
		}
	}
	return normalize(out)
}

// ProjectSelection sets the selected flag on the referenced element and clears
// it everywhere else. A nil ref clears every flag.
func ProjectSelection(doc Document, ref *ElementRef) Document {
	out := doc.Clone()
	for i := range out.Panels {
		p := &out.Panels[i]
		if p.Image != nil {
			p.Image.Selected = ref != nil && ref.Kind == ElementImage && ref.Panel == p.ID
		}
		for j := range p.Bubbles {
			b := &p.Bubbles[j]
			b.Selected = ref != nil && ref.Kind == ElementBubble && ref.Panel == p.ID && ref.ID == string(b.ID)
		}
	}
	return out
}

// Renumber sorts panels by their current order (stable) and rewrites order as
// the dense sequence 0..N-1.
func Renumber(doc Document) Document {
	out := doc.Clone()
	renumber(out.Panels)
	return out
}

func renumber(ps []Panel) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Order < ps[j].Order })
	for i := range ps {
		ps[i].Order = i
	}
}

// Normalize renumbers panels and clamps all element geometry to the invariants.
func Normalize(doc Document) Document { return normalize(doc.Clone()) }

// normalize works in place; callers pass a fresh clone.
func normalize(doc Document) Document {
	renumber(doc.Panels)
	for i := range doc.Panels {
		p := &doc.Panels[i]
		if p.Bubbles == nil {
			p.Bubbles = []TextBubble{}
		}
		for j := range p.Bubbles {
			clampBubble(&p.Bubbles[j])
		}
		if p.Image != nil {
			clampImage(p.Image)
		}
	}
	return doc
}

func clampBubble(b *TextBubble) {
	b.X = floor(b.X, 0)
	b.Y = floor(b.Y, 0)
	b.Width = floor(b.Width, BubbleMinWidth)
	b.Height = floor(b.Height, BubbleMinHeight)
}

func clampImage(img *ImageElement) {
	img.X = floor(img.X, 0)
	img.Y = floor(img.Y, 0)
	img.Width = floor(img.Width, ImageMinWidth)
	img.Height = floor(img.Height, ImageMinHeight)
}

// floor returns v, or lo when v is below lo or NaN.
func floor(v, lo float64) float64 {
	if !(v >= lo) {
		return lo
	}
	return v
}

// Validate reports every invariant violation found in doc. Mutations never
// produce violations; this exists for tests and debug checks.
func Validate(doc Document) error {
	var errs []error
	seenOrder := make(map[int]bool, len(doc.Panels))
	seenPanel := make(map[PanelID]bool, len(doc.Panels))
	seenBubble := map[BubbleID]bool{}
	selected := 0
	for i, p := range doc.Panels {
		if p.Order != i {
			errs = append(errs, fmt.Errorf("panel %s: order %d at position %d", p.ID, p.Order, i))
		}
		if p.Order < 0 || p.Order >= len(doc.Panels) || seenOrder[p.Order] {
			errs = append(errs, fmt.Errorf("panel %s: order %d not dense", p.ID, p.Order))
		}
		seenOrder[p.Order] = true
		if seenPanel[p.ID] {
			errs = append(errs, fmt.Errorf("panel %s: duplicate id", p.ID))
		}
		seenPanel[p.ID] = true
		for _, b := range p.Bubbles {
			if seenBubble[b.ID] {
				errs = append(errs, fmt.Errorf("bubble %s: duplicate id", b.ID))
			}
			seenBubble[b.ID] = true
			if b.X < 0 || b.Y < 0 {
				errs = append(errs, fmt.Errorf("bubble %s: negative position (%g,%g)", b.ID, b.X, b.Y))
			}
			if b.Width < BubbleMinWidth || b.Height < BubbleMinHeight {
				errs = append(errs, fmt.Errorf("bubble %s: size %gx%g below minimum", b.ID, b.Width, b.Height))
			}
			if b.Selected {
				selected++
			}
		}
		if img := p.Image; img != nil {
			if img.X < 0 || img.Y < 0 {
				errs = append(errs, fmt.Errorf("panel %s image: negative position (%g,%g)", p.ID, img.X, img.Y))
			}
			if img.Width < ImageMinWidth || img.Height < ImageMinHeight {
				errs = append(errs, fmt.Errorf("panel %s image: size %gx%g below minimum", p.ID, img.Width, img.Height))
			}
			if img.Selected {
				selected++
			}
		}
	}
	if selected > 1 {
		errs = append(errs, fmt.Errorf("%d elements selected, at most one allowed", selected))
	}
	return errors.Join(errs...)
}

func (d Document) bubbleIndex(panel PanelID, bubble BubbleID) (int, int) {
	i := d.indexOf(panel)
	if i < 0 {
		return -1, -1
	}
	for j, b := range d.Panels[i].Bubbles {
		if b.ID == bubble {
			return i, j
		}
	}
	return i, -1
}
