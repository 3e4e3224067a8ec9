/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"gostoryboard/internal/domain"
	"gostoryboard/internal/pointer"
	"gostoryboard/internal/reorder"
)

// Event is one unit of work for Session.Run.
type Event interface {
	Apply(s *Session)
}

// EventFunc adapts a function to Event.
type EventFunc func(s *Session)

func (f EventFunc) Apply(s *Session) { f(s) }

// ImageReady is delivered by the image acquisition collaborator.
type ImageReady struct {
	Panel domain.PanelID
	Blob  domain.BlobRef
}

func (e ImageReady) Apply(s *Session) { s.ImageReady(e.Panel, e.Blob) }

// Target says what a pointer-down landed on.
type Target int

const (
	OnNothing Target = iota
	OnPanel
	OnGrip
	OnElement
	OnResizeHandle
)

// Pointer is a device-agnostic pointer event. Element and Panel are only
// read for Down.
type Pointer struct {
	Phase   pointer.Phase
	At      pointer.Sample
	Target  Target
	Panel   domain.PanelID
	Element domain.ElementRef
}

func (e Pointer) Apply(s *Session) {
	switch e.Phase {
	case pointer.Down:
		switch e.Target {
		case OnGrip:
			s.PointerDownGrip(e.Panel, e.At)
		case OnElement:
			s.PointerDownElement(e.Element, e.At)
		case OnResizeHandle:
			s.PointerDownResize(e.Element, e.At)
		case OnPanel:
			s.TapPanel(e.Panel)
		default:
			s.ClearSelection()
		}
	case pointer.Move:
		s.PointerMove(e.At)
	case pointer.Up:
		s.PointerUp()
	case pointer.Cancel:
		s.PointerCancel()
	case pointer.CaptureLost:
		s.CaptureLost()
	}
}

// Layout reports new panel bounds from the renderer.
type Layout []reorder.Bounds

func (e Layout) Apply(s *Session) { s.SetLayout(e) }
