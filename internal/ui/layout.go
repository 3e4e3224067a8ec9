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
	"strconv"
	"strings"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/editor"
	"gostoryboard/internal/geom"
	"gostoryboard/internal/reorder"
	"gostoryboard/internal/theme"
)

// Options configures the desktop editor.
type Options struct {
	Session *editor.Session
	Themes  *theme.Catalog
	// Scale is the initial zoom of the storyboard column.
	Scale float64
}

// Storyboard geometry in panel units. Panels are stacked in one column.
const (
	PanelWidth  = 480.0
	PanelHeight = 320.0
	PanelGap    = 24.0
	Margin      = 16.0
	// GripSize is the square reorder handle in each panel's top-left corner.
	GripSize = 28.0
	// HandleSize is the resize handle on the selected element's bottom-right corner.
	HandleSize = 14.0
)

// View maps panel units to screen pixels: a uniform zoom and a vertical
// scroll offset in pixels.
type View struct {
	Scale   float64
	ScrollY float64
}

func (v View) scale() float64 {
	if v.Scale <= 0 {
		return 1
	}
	return v.Scale
}

// PanelToScreen returns the transform of the panel at display index i.
func (v View) PanelToScreen(i int) geom.Affine2D {
	s := v.scale()
	origin := geom.Translate(Margin, Margin+float64(i)*(PanelHeight+PanelGap))
	return geom.Translate(0, -v.ScrollY).Mul(geom.Scale(s, s)).Mul(origin)
}

// PanelRect returns the on-screen rectangle of the panel at index i.
func (v View) PanelRect(i int) geom.Rect {
	m := v.PanelToScreen(i)
	p0 := m.Apply(geom.Pt{})
	p1 := m.Apply(geom.Pt{X: PanelWidth, Y: PanelHeight})
	return geom.R(p0.X, p0.Y, p1.X-p0.X, p1.Y-p0.Y)
}

// ContentHeight is the scrollable height of the column in pixels.
func (v View) ContentHeight(panels int) float64 {
	return (2*Margin + float64(panels)*(PanelHeight+PanelGap)) * v.scale()
}

// Layout reports the panel bounds for the reorder hover test.
func (v View) Layout(doc domain.Document) []reorder.Bounds {
	out := make([]reorder.Bounds, len(doc.Panels))
	for i, p := range doc.Panels {
		out[i] = reorder.Bounds{Panel: p.ID, Rect: v.PanelRect(i)}
	}
	return out
}

// Hit is what lies under a screen point.
type Hit struct {
	Target  editor.Target
	Panel   domain.PanelID
	Element domain.ElementRef
}

// HitTest resolves a screen point against the rendered document. Within a
// panel the grip wins, then the selected element's resize handle, then
// bubbles (topmost first), then the image, then the panel body.
func (v View) HitTest(doc domain.Document, pt geom.Pt) Hit {
	for i, p := range doc.Panels {
		if !v.PanelRect(i).Contains(pt) {
			continue
		}
		local := v.PanelToScreen(i).Invert().Apply(pt)
		h := Hit{Target: editor.OnPanel, Panel: p.ID}
		if geom.R(0, 0, GripSize, GripSize).Contains(local) {
			h.Target = editor.OnGrip
			return h
		}
		if ref, ok := doc.Selected(); ok && ref.Panel == p.ID {
			if r, ok := elementRect(p, ref); ok && handleRect(r).Contains(local) {
				h.Target, h.Element = editor.OnResizeHandle, ref
				return h
			}
		}
		for j := len(p.Bubbles) - 1; j >= 0; j-- {
			b := p.Bubbles[j]
			if geom.R(b.X, b.Y, b.Width, b.Height).Contains(local) {
				h.Target, h.Element = editor.OnElement, domain.BubbleRef(p.ID, b.ID)
				return h
			}
		}
		if img := p.Image; img != nil && geom.R(img.X, img.Y, img.Width, img.Height).Contains(local) {
			h.Target, h.Element = editor.OnElement, domain.ImageRef(p.ID)
		}
		return h
	}
	return Hit{Target: editor.OnNothing}
}

func elementRect(p domain.Panel, ref domain.ElementRef) (geom.Rect, bool) {
	if ref.Kind == domain.ElementImage {
		if p.Image == nil {
			return geom.Rect{}, false
		}
		return geom.R(p.Image.X, p.Image.Y, p.Image.Width, p.Image.Height), true
	}
	for _, b := range p.Bubbles {
		if string(b.ID) == ref.ID {
			return geom.R(b.X, b.Y, b.Width, b.Height), true
		}
	}
	return geom.Rect{}, false
}

func handleRect(r geom.Rect) geom.Rect {
	m := r.Max()
	return geom.R(m.X-HandleSize/2, m.Y-HandleSize/2, HandleSize, HandleSize)
}

// ParseHex parses #rrggbb or #rgb.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// ThemeColors returns the gradient end points of a theme, grey when the
// theme has no usable gradient.
func ThemeColors(t theme.Theme) (top, bottom color.RGBA) {
	top, bottom = color.RGBA{R: 200, G: 200, B: 200, A: 255}, color.RGBA{R: 150, G: 150, B: 150, A: 255}
	if len(t.Gradient) == 0 {
		return top, bottom
	}
	if c, err := ParseHex(t.Gradient[0]); err == nil {
		top, bottom = c, c
	}
	if c, err := ParseHex(t.Gradient[len(t.Gradient)-1]); err == nil {
		bottom = c
	}
	return top, bottom
}
