/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedThemes map[string]bool

func (f fixedThemes) Resolve(id string) string {
	if f[id] {
		return id
	}
	return "city"
}

func newBuilder(seed uint64) *Builder {
	return &Builder{
		IDs:    &Sequence{},
		Themes: fixedThemes{"city": true, "forest": true, "space": true},
		Rand:   rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

func orders(d Document) []int {
	out := make([]int, len(d.Panels))
	for i, p := range d.Panels {
		out[i] = p.Order
	}
	return out
}

func seed(t *testing.T, b *Builder, n int) (Document, []PanelID) {
	t.Helper()
	var doc Document
	ids := make([]PanelID, 0, n)
	for range n {
		var id PanelID
		doc, id = b.CreatePanel(doc)
		ids = append(ids, id)
	}
	return doc, ids
}

func TestCreatePanel_AppendsWithNextOrder(t *testing.T) {
	b := newBuilder(1)
	doc, ids := seed(t, b, 3)

	require.Len(t, doc.Panels, 3)
	assert.Equal(t, []int{0, 1, 2}, orders(doc))
	assert.Equal(t, ids, doc.IDs())
	assert.Equal(t, "city", doc.Panels[0].BackgroundThemeID)
	assert.NotNil(t, doc.Panels[0].Bubbles)
}

func TestMutationsDoNotTouchInput(t *testing.T) {
	b := newBuilder(2)
	doc, ids := seed(t, b, 2)
	doc, bid, ok := b.AddBubble(doc, ids[0], BubbleSpeech)
	require.True(t, ok)
	before := doc.Clone()

	_ = TranslateElement(doc, BubbleRef(ids[0], bid), 10, 10)
	_ = UpdateBubbleText(doc, ids[0], bid, "changed")
	_ = DeletePanel(doc, ids[1])
	_ = SetImage(doc, ids[1], "blob:1")
	_ = MovePanel(doc, ids[0], 1)
	_ = ProjectSelection(doc, &ElementRef{Panel: ids[0], Kind: ElementBubble, ID: string(bid)})

	assert.Equal(t, before, doc)
}

func TestDeletePanel_RenumbersSurvivors(t *testing.T) {
	b := newBuilder(3)
	doc, ids := seed(t, b, 4)

	doc = DeletePanel(doc, ids[1])
	assert.Equal(t, []PanelID{ids[0], ids[2], ids[3]}, doc.IDs())
	assert.Equal(t, []int{0, 1, 2}, orders(doc))

	again := DeletePanel(doc, ids[1])
	assert.Equal(t, doc, again, "deleting an absent panel is a no-op")
}

func TestSetPanelTheme(t *testing.T) {
	b := newBuilder(4)
	doc, ids := seed(t, b, 1)

	doc = b.SetPanelTheme(doc, ids[0], "forest")
	assert.Equal(t, "forest", doc.Panels[0].BackgroundThemeID)

	doc = b.SetPanelTheme(doc, ids[0], "no-such-theme")
	assert.Equal(t, "city", doc.Panels[0].BackgroundThemeID)

	same := b.SetPanelTheme(doc, "panel-missing", "space")
	assert.Equal(t, doc, same)
}

func TestAddBubble_DefaultsAndPlacementWindow(t *testing.T) {
	b := newBuilder(5)
	doc, ids := seed(t, b, 1)
	for range 50 {
		var ok bool
		doc, _, ok = b.AddBubble(doc, ids[0], BubbleThought)
		require.True(t, ok)
	}
	for _, bb := range doc.Panels[0].Bubbles {
		assert.Equal(t, DefaultBubbleWidth, bb.Width)
		assert.Equal(t, DefaultBubbleHeight, bb.Height)
		assert.Equal(t, DefaultBubbleText, bb.Text)
		assert.Equal(t, BubbleThought, bb.Kind)
		assert.GreaterOrEqual(t, bb.X, 50.0)
		assert.Less(t, bb.X, 250.0)
		assert.GreaterOrEqual(t, bb.Y, 50.0)
		assert.Less(t, bb.Y, 200.0)
	}

	_, id, ok := b.AddBubble(doc, "panel-missing", BubbleSpeech)
	assert.False(t, ok)
	assert.Empty(t, id)

	doc, id, _ = b.AddBubble(doc, ids[0], BubbleKind("whisper"))
	got, _ := doc.Bubble(ids[0], id)
	assert.Equal(t, BubbleSpeech, got.Kind, "unknown kinds fall back to speech")
}

func TestBubbleIDsAreUnique(t *testing.T) {
	b := &Builder{}
	doc, _ := b.CreatePanel(Document{})
	pid := doc.Panels[0].ID
	seen := map[BubbleID]bool{}
	for range 100 {
		var id BubbleID
		doc, id, _ = b.AddBubble(doc, pid, BubbleShout)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.NoError(t, Validate(doc))
}

func TestStaleBubbleUpdateIsNoOp(t *testing.T) {
	b := newBuilder(6)
	doc, ids := seed(t, b, 1)
	doc, bid, _ := b.AddBubble(doc, ids[0], BubbleSpeech)
	doc = DeleteBubble(doc, ids[0], bid)
	before := doc.Clone()

	doc = UpdateBubbleText(doc, ids[0], bid, "late keystroke")
	doc = DeleteBubble(doc, ids[0], bid)
	doc = TranslateElement(doc, BubbleRef(ids[0], bid), 5, 5)
	doc = ResizeElement(doc, BubbleRef(ids[0], bid), 5, 5)

	assert.Equal(t, before, doc)
}

func TestImageLifecycle(t *testing.T) {
	b := newBuilder(7)
	doc, ids := seed(t, b, 1)

	doc = SetImage(doc, ids[0], "blob:a")
	doc = TranslateElement(doc, ImageRef(ids[0]), 30, 30)
	doc = SetImage(doc, ids[0], "blob:b")
	img := doc.Panels[0].Image
	require.NotNil(t, img)
	assert.Equal(t, BlobRef("blob:b"), img.Source)
	assert.Equal(t, ImageElement{Source: "blob:b", X: 50, Y: 50, Width: 200, Height: 150}, *img)

	doc = ClearImage(doc, ids[0])
	assert.Nil(t, doc.Panels[0].Image)
	assert.False(t, doc.Exists(ImageRef(ids[0])))
	assert.Equal(t, doc, ClearImage(doc, ids[0]))
}

func TestClampingIsIdempotentAtTheFloor(t *testing.T) {
	b := newBuilder(8)
	doc, ids := seed(t, b, 1)
	doc, bid, _ := b.AddBubble(doc, ids[0], BubbleSpeech)
	doc = SetImage(doc, ids[0], "blob")
	ref := BubbleRef(ids[0], bid)

	doc = TranslateElement(doc, ref, -10000, -10000)
	doc = ResizeElement(doc, ref, -10000, -10000)
	doc = ResizeElement(doc, ImageRef(ids[0]), -10000, -10000)
	bb, _ := doc.Bubble(ids[0], bid)
	assert.Equal(t, 0.0, bb.X)
	assert.Equal(t, 0.0, bb.Y)
	assert.Equal(t, BubbleMinWidth, bb.Width)
	assert.Equal(t, BubbleMinHeight, bb.Height)
	assert.Equal(t, ImageMinWidth, doc.Panels[0].Image.Width)
	assert.Equal(t, ImageMinHeight, doc.Panels[0].Image.Height)

	again := TranslateElement(doc, ref, -10000, -10000)
	again = ResizeElement(again, ref, -10000, -10000)
	assert.Equal(t, doc, again)

	nan := TranslateElement(doc, ref, math.NaN(), 0)
	bb, _ = nan.Bubble(ids[0], bid)
	assert.Equal(t, 0.0, bb.X)
}

func TestMovePanel_SpliceSemantics(t *testing.T) {
	b := newBuilder(9)
	doc, ids := seed(t, b, 4)
	a, bb, c, d := ids[0], ids[1], ids[2], ids[3]

	moved := MovePanel(doc, a, 2)
	assert.Equal(t, []PanelID{bb, c, a, d}, moved.IDs())
	assert.Equal(t, []int{0, 1, 2, 3}, orders(moved))

	back := MovePanel(moved, a, 0)
	assert.Equal(t, []PanelID{a, bb, c, d}, back.IDs())

	clamped := MovePanel(doc, bb, 99)
	assert.Equal(t, []PanelID{a, c, d, bb}, clamped.IDs())
}

func TestMovePanelBy_Boundaries(t *testing.T) {
	b := newBuilder(10)
	doc, ids := seed(t, b, 3)

	assert.Equal(t, doc, MovePanelBy(doc, ids[0], -1))
	assert.Equal(t, doc, MovePanelBy(doc, ids[2], +1))
	assert.Equal(t, []PanelID{ids[1], ids[0], ids[2]}, MovePanelBy(doc, ids[0], +1).IDs())
	assert.Equal(t, []PanelID{ids[0], ids[2], ids[1]}, MovePanelBy(doc, ids[2], -1).IDs())
}

func TestOrderDensityUnderRandomOperations(t *testing.T) {
	b := newBuilder(11)
	r := rand.New(rand.NewPCG(42, 7))
	var doc Document
	for step := range 2000 {
		ids := doc.IDs()
		switch op := r.IntN(5); {
		case op == 0 || len(ids) == 0:
			doc, _ = b.CreatePanel(doc)
		case op == 1:
			doc = DeletePanel(doc, ids[r.IntN(len(ids))])
		case op == 2:
			doc = MovePanel(doc, ids[r.IntN(len(ids))], r.IntN(len(ids)))
		case op == 3:
			doc = MovePanelBy(doc, ids[r.IntN(len(ids))], r.IntN(3)-1)
		default:
			doc = DeletePanel(doc, "panel-stale")
		}
		require.NoError(t, Validate(doc), "step %d", step)
		for i, p := range doc.Panels {
			require.Equal(t, i, p.Order, "step %d", step)
		}
	}
}

func TestProjectSelection_Exclusive(t *testing.T) {
	b := newBuilder(12)
	doc, ids := seed(t, b, 2)
	doc, b1, _ := b.AddBubble(doc, ids[0], BubbleSpeech)
	doc, b2, _ := b.AddBubble(doc, ids[1], BubbleSpeech)
	doc = SetImage(doc, ids[1], "blob")

	refs := []ElementRef{BubbleRef(ids[0], b1), BubbleRef(ids[1], b2), ImageRef(ids[1]), BubbleRef(ids[0], b1)}
	for _, ref := range refs {
		doc = ProjectSelection(doc, &ref)
		got, ok := doc.Selected()
		require.True(t, ok)
		assert.Equal(t, ref, got)
		assert.NoError(t, Validate(doc))
	}
	doc = ProjectSelection(doc, nil)
	_, ok := doc.Selected()
	assert.False(t, ok)
}

func TestValidate_ReportsViolations(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "a", Order: 0, Bubbles: []TextBubble{{ID: "x", X: -1, Width: 10, Height: 10, Selected: true}}},
		{ID: "b", Order: 5, Image: &ImageElement{Width: 50, Height: 50, Selected: true}},
	}}
	err := Validate(doc)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "not dense")
	assert.Contains(t, msg, "negative position")
	assert.Contains(t, msg, "below minimum")
	assert.Contains(t, msg, "2 elements selected")

	assert.NoError(t, Validate(Normalize(ProjectSelection(doc, nil))))
}
