/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the in-memory document model of the storyboard editor:
// an ordered list of panels, each holding free-placed text bubbles and at
// most one image. Coordinates are panel-local pixels.

type PanelID string

type BubbleID string

// BlobRef is an opaque reference to image data handed over by the image
// acquisition collaborator (a data URL, a cache key, ...).
type BlobRef string

// BubbleKind selects the visual style of a text bubble.
type BubbleKind string

const (
	BubbleSpeech  BubbleKind = "speech"
	BubbleThought BubbleKind = "thought"
	BubbleShout   BubbleKind = "shout"
)

// Valid reports whether k is one of the known bubble kinds.
func (k BubbleKind) Valid() bool {
	switch k {
	case BubbleSpeech, BubbleThought, BubbleShout:
		return true
	}
	return false
}

// ElementKind discriminates the two placeable element types.
type ElementKind string

const (
	ElementBubble ElementKind = "bubble"
	ElementImage  ElementKind = "image"
)

// ImageElementID is the element id of a panel's image. Images are unique per
// panel, so the panel id plus this constant identifies one.
const ImageElementID = "image"

// Size floors and defaults.
const (
	BubbleMinWidth  = 60.0
	BubbleMinHeight = 30.0
	ImageMinWidth   = 50.0
	ImageMinHeight  = 50.0

	DefaultBubbleWidth  = 120.0
	DefaultBubbleHeight = 60.0
	DefaultBubbleText   = "Type here..."

	DefaultImageX      = 50.0
	DefaultImageY      = 50.0
	DefaultImageWidth  = 200.0
	DefaultImageHeight = 150.0
)

// Document is the canonical ordered collection of panels. Panels are kept
// sorted by Order and Order is always the dense sequence 0..N-1.
type Document struct {
	Panels []Panel `json:"panels"`
}

// Panel is one frame of the storyboard.
type Panel struct {
	ID                PanelID       `json:"id"`
	Order             int           `json:"order"`
	BackgroundThemeID string        `json:"backgroundTheme"`
	Bubbles           []TextBubble  `json:"bubbles"`
	Image             *ImageElement `json:"image,omitempty"`
}

// TextBubble is a lettering element placed on a panel.
type TextBubble struct {
	ID       BubbleID   `json:"id"`
	Text     string     `json:"text"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Kind     BubbleKind `json:"kind"`
	Selected bool       `json:"selected,omitempty"`
}

// ImageElement is the optional picture placed on a panel.
type ImageElement struct {
	Source   BlobRef `json:"source"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Selected bool    `json:"selected,omitempty"`
}

// ElementRef addresses a bubble or an image anywhere in the document.
type ElementRef struct {
	Panel PanelID     `json:"panel"`
	Kind  ElementKind `json:"kind"`
	ID    string      `json:"id"`
}

// BubbleRef builds a reference to a bubble.
func BubbleRef(panel PanelID, id BubbleID) ElementRef {
	return ElementRef{Panel: panel, Kind: ElementBubble, ID: string(id)}
}

// ImageRef builds a reference to a panel's image.
func ImageRef(panel PanelID) ElementRef {
	return ElementRef{Panel: panel, Kind: ElementImage, ID: ImageElementID}
}

// Clone returns a deep copy that shares no slices or pointers with d.
func (d Document) Clone() Document {
	out := Document{Panels: make([]Panel, len(d.Panels))}
	for i, p := range d.Panels {
		out.Panels[i] = p.clone()
	}
	return out
}

func (p Panel) clone() Panel {
	c := p
	c.Bubbles = append([]TextBubble(nil), p.Bubbles...)
	if p.Image != nil {
		img := *p.Image
		c.Image = &img
	}
	return c
}

// Len returns the panel count.
func (d Document) Len() int { return len(d.Panels) }

// Panel returns the panel with the given id.
func (d Document) Panel(id PanelID) (Panel, bool) {
	if i := d.indexOf(id); i >= 0 {
		return d.Panels[i], true
	}
	return Panel{}, false
}

// Has reports whether a panel with the given id exists.
func (d Document) Has(id PanelID) bool { return d.indexOf(id) >= 0 }

// IDs returns panel ids in display order.
func (d Document) IDs() []PanelID {
	ids := make([]PanelID, len(d.Panels))
	for i, p := range d.Panels {
		ids[i] = p.ID
	}
	return ids
}

// Bubble returns the bubble addressed by panel and id.
func (d Document) Bubble(panel PanelID, id BubbleID) (TextBubble, bool) {
	p, ok := d.Panel(panel)
	if !ok {
		return TextBubble{}, false
	}
	for _, b := range p.Bubbles {
		if b.ID == id {
			return b, true
		}
	}
	return TextBubble{}, false
}

// Exists reports whether ref points to an element present in d.
func (d Document) Exists(ref ElementRef) bool {
	switch ref.Kind {
	case ElementBubble:
		_, ok := d.Bubble(ref.Panel, BubbleID(ref.ID))
		return ok
	case ElementImage:
		p, ok := d.Panel(ref.Panel)
		return ok && ref.ID == ImageElementID && p.Image != nil
	}
	return false
}

// Selected returns the reference of the element flagged as selected, if any.
func (d Document) Selected() (ElementRef, bool) {
	for _, p := range d.Panels {
		if p.Image != nil && p.Image.Selected {
			return ImageRef(p.ID), true
		}
		for _, b := range p.Bubbles {
			if b.Selected {
				return BubbleRef(p.ID, b.ID), true
			}
		}
	}
	return ElementRef{}, false
}

func (d Document) indexOf(id PanelID) int {
	for i := range d.Panels {
		if d.Panels[i].ID == id {
			return i
		}
	}
	return -1
}
