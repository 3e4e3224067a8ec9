/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostoryboard/internal/domain"
	"gostoryboard/internal/pointer"
	"gostoryboard/internal/selection"
)

type fixture struct {
	doc    domain.Document
	sel    *selection.Manager
	eng    *Engine
	bubble domain.ElementRef
	image  domain.ElementRef
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := &domain.Builder{IDs: &domain.Sequence{}}
	var doc domain.Document
	doc, p1 := b.CreatePanel(doc)
	doc, p2 := b.CreatePanel(doc)
	doc, bid, ok := b.AddBubble(doc, p1, domain.BubbleSpeech)
	require.True(t, ok)
	doc = domain.SetImage(doc, p2, "blob:img")
	sel := &selection.Manager{}
	return &fixture{doc: doc, sel: sel, eng: New(sel), bubble: domain.BubbleRef(p1, bid), image: domain.ImageRef(p2)}
}

func (f *fixture) bubbleState(t *testing.T) domain.TextBubble {
	t.Helper()
	b, ok := f.doc.Bubble(f.bubble.Panel, domain.BubbleID(f.bubble.ID))
	require.True(t, ok)
	return b
}

func (f *fixture) imageState(t *testing.T) domain.ImageElement {
	t.Helper()
	p, ok := f.doc.Panel(f.image.Panel)
	require.True(t, ok)
	require.NotNil(t, p.Image)
	return *p.Image
}

func TestMove_IncrementalDeltasAndClamp(t *testing.T) {
	f := newFixture(t)
	start := f.bubbleState(t)

	var ok bool
	f.doc, ok = f.eng.BeginMove(f.doc, f.bubble, pointer.At(100, 100))
	require.True(t, ok)
	assert.Equal(t, Moving, f.eng.Mode())
	assert.True(t, f.bubbleState(t).Selected, "move start selects the element")

	f.doc, _ = f.eng.Update(f.doc, pointer.At(110, 100))
	f.doc, _ = f.eng.Update(f.doc, pointer.At(130, 100))
	got := f.bubbleState(t)
	assert.InDelta(t, start.X+30, got.X, 1e-9)
	assert.InDelta(t, start.Y, got.Y, 1e-9)

	f.doc, _ = f.eng.Update(f.doc, pointer.At(130, -400))
	got = f.bubbleState(t)
	assert.Equal(t, 0.0, got.Y)
	assert.Equal(t, start.Width, got.Width, "move never resizes")

	assert.True(t, f.eng.End())
	assert.Equal(t, Idle, f.eng.Mode())
	after, changed := f.eng.Update(f.doc, pointer.At(500, 500))
	assert.False(t, changed)
	assert.Equal(t, f.doc, after)
}

func TestResize_RequiresSelectionAndClamps(t *testing.T) {
	f := newFixture(t)

	_, ok := f.eng.BeginResize(f.doc, f.image, pointer.At(0, 0))
	assert.False(t, ok, "resize handle is only live on the selected element")

	f.doc, _ = f.sel.Select(f.doc, f.image)
	f.doc, ok = f.eng.BeginResize(f.doc, f.image, pointer.At(300, 300))
	require.True(t, ok)
	f.doc, _ = f.eng.Update(f.doc, pointer.At(320, 310))
	img := f.imageState(t)
	assert.Equal(t, 220.0, img.Width)
	assert.Equal(t, 160.0, img.Height)
	assert.Equal(t, 50.0, img.X, "resize never moves")

	f.doc, _ = f.eng.Update(f.doc, pointer.At(-680, -690))
	img = f.imageState(t)
	assert.Equal(t, domain.ImageMinWidth, img.Width)
	assert.Equal(t, domain.ImageMinHeight, img.Height)

	before := f.doc
	f.doc, _ = f.eng.Update(f.doc, pointer.At(-1680, -1690))
	assert.Equal(t, before, f.doc, "floor is idempotent")
	f.eng.End()
}

func TestConflictingStartsAreIgnored(t *testing.T) {
	f := newFixture(t)
	var ok bool
	f.doc, ok = f.eng.BeginMove(f.doc, f.bubble, pointer.At(0, 0))
	require.True(t, ok)

	_, ok = f.eng.BeginResize(f.doc, f.bubble, pointer.At(0, 0))
	assert.False(t, ok)
	_, ok = f.eng.BeginMove(f.doc, f.image, pointer.At(0, 0))
	assert.False(t, ok)
	assert.Equal(t, Moving, f.eng.Mode())
	target, _ := f.eng.Target()
	assert.Equal(t, f.bubble, target)

	start := f.bubbleState(t)
	f.doc, _ = f.eng.Update(f.doc, pointer.At(5, 5))
	got := f.bubbleState(t)
	assert.Equal(t, start.Width, got.Width)
	assert.InDelta(t, start.X+5, got.X, 1e-9)
}

func TestTargetDeletedMidGestureResets(t *testing.T) {
	f := newFixture(t)
	f.doc, _ = f.eng.BeginMove(f.doc, f.bubble, pointer.At(0, 0))
	f.doc = domain.DeleteBubble(f.doc, f.bubble.Panel, domain.BubbleID(f.bubble.ID))

	after, changed := f.eng.Update(f.doc, pointer.At(50, 50))
	assert.False(t, changed)
	assert.Equal(t, f.doc, after)
	assert.Equal(t, Idle, f.eng.Mode())
	assert.False(t, f.eng.End())
}

func TestViewScaleConvertsScreenDeltas(t *testing.T) {
	f := newFixture(t)
	f.eng.SetViewScale(2)
	start := f.bubbleState(t)

	f.doc, _ = f.eng.BeginMove(f.doc, f.bubble, pointer.At(0, 0))
	f.doc, _ = f.eng.Update(f.doc, pointer.At(40, 20))
	got := f.bubbleState(t)
	assert.InDelta(t, start.X+20, got.X, 1e-9)
	assert.InDelta(t, start.Y+10, got.Y, 1e-9)
	assert.True(t, f.eng.Involves(f.bubble.Panel))
	assert.False(t, f.eng.Involves(f.image.Panel))
}
