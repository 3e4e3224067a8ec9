/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package selection tracks the single active element of a document. The
// active element is projected into the elements' Selected flags, which is all
// a renderer needs to decide where to draw resize handles and delete buttons.
package selection

import "gostoryboard/internal/domain"

// Manager holds at most one active element reference. The zero value has
// nothing selected.
type Manager struct {
	active *domain.ElementRef
}

// Active returns the currently selected element.
func (m *Manager) Active() (domain.ElementRef, bool) {
	if m.active == nil {
		return domain.ElementRef{}, false
	}
	return *m.active, true
}

// IsActive reports whether ref is the selected element.
func (m *Manager) IsActive(ref domain.ElementRef) bool {
	return m.active != nil && *m.active == ref
}

// Select makes ref the only selected element of doc. A stale ref clears the
// selection instead and reports false.
func (m *Manager) Select(doc domain.Document, ref domain.ElementRef) (domain.Document, bool) {
	if !doc.Exists(ref) {
		return m.Clear(doc), false
	}
	r := ref
	m.active = &r
	return domain.ProjectSelection(doc, m.active), true
}

// Clear deselects everything.
func (m *Manager) Clear(doc domain.Document) domain.Document {
	m.active = nil
	if _, has := doc.Selected(); !has {
		return doc
	}
	return domain.ProjectSelection(doc, nil)
}

// Reconcile drops the selection when its element no longer exists in doc and
// re-projects the flags. Called after structural changes such as deletions or
// undo.
func (m *Manager) Reconcile(doc domain.Document) domain.Document {
	if m.active != nil && !doc.Exists(*m.active) {
		m.active = nil
	}
	if m.active == nil {
		return m.Clear(doc)
	}
	return domain.ProjectSelection(doc, m.active)
}

// Involves reports whether the selection lives on the given panel.
func (m *Manager) Involves(panel domain.PanelID) bool {
	return m.active != nil && m.active.Panel == panel
}
