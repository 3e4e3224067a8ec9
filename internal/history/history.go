/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gostoryboard/internal/domain"
	applog "gostoryboard/internal/log"
)

// Entry is an encoded document state captured before a labelled change.
// Size is estimated as len(Blob).
type Entry struct {
	Label string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo entries kept (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces changes with the same label recorded within the
	// interval into one undo step.
	MinInterval time.Duration
}

// Manager keeps in-memory undo/redo stacks of document snapshots.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo []Entry
	redo []Entry
	// bytes held by both stacks
	totalBytes int
	log        *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, log: applog.WithComponent("history")}
}

// Record captures before, the state preceding a change named label. A change
// with the same label within MinInterval of the previous one is folded into
// it, keeping the older state. Any new change invalidates redo.
func (m *Manager) Record(label string, before domain.Document, ts time.Time) error {
	blob, err := json.Marshal(before)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked()
	if n := len(m.undo); n > 0 {
		last := &m.undo[n-1]
		if last.Label == label && ts.Sub(last.TS) < m.cfg.MinInterval {
			last.TS = ts
			return nil
		}
	}
	m.undo = append(m.undo, Entry{Label: label, Blob: blob, TS: ts})
	m.totalBytes += len(blob)
	m.enforceCapsLocked()
	return nil
}

// Undo restores the state before the latest change; current goes to redo.
func (m *Manager) Undo(current domain.Document) (domain.Document, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swapLocked(&m.undo, &m.redo, current)
}

// Redo re-applies the latest undone change; current goes back to undo.
func (m *Manager) Redo(current domain.Document) (domain.Document, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, label, ok := m.swapLocked(&m.redo, &m.undo, current)
	if ok {
		m.enforceCapsLocked()
	}
	return doc, label, ok
}

func (m *Manager) swapLocked(from, to *[]Entry, current domain.Document) (domain.Document, string, bool) {
	for len(*from) > 0 {
		n := len(*from)
		e := (*from)[n-1]
		*from = (*from)[:n-1]
		m.totalBytes -= len(e.Blob)
		var doc domain.Document
		if err := json.Unmarshal(e.Blob, &doc); err != nil {
			m.log.Error("dropping unreadable snapshot", slog.String("label", e.Label), slog.Any("err", err))
			continue
		}
		cur, err := json.Marshal(current)
		if err != nil {
			m.log.Error("encode current snapshot", slog.Any("err", err))
			return current, "", false
		}
		*to = append(*to, Entry{Label: e.Label, Blob: cur, TS: e.TS})
		m.totalBytes += len(cur)
		return domain.Normalize(doc), e.Label, true
	}
	return current, "", false
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo = nil, nil
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes, undoDepth, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) dropRedoLocked() {
	for _, e := range m.redo {
		m.totalBytes -= len(e.Blob)
	}
	m.redo = nil
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.undo) > m.cfg.MaxDepth {
		toDrop := len(m.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= len(m.undo[i].Blob)
		}
		m.undo = append([]Entry{}, m.undo[toDrop:]...)
	}
	// Keep at least the newest entry even if it alone exceeds the cap.
	for m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Blob)
		m.undo = m.undo[1:]
	}
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}
