/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource hands out session-unique identifiers. Ids are never reused.
type IDSource interface {
	NewPanelID() PanelID
	NewBubbleID() BubbleID
}

// UUIDs generates random UUID based ids, e.g. "panel-0b6f...".
type UUIDs struct{}

func (UUIDs) NewPanelID() PanelID   { return PanelID("panel-" + uuid.NewString()) }
func (UUIDs) NewBubbleID() BubbleID { return BubbleID("bubble-" + uuid.NewString()) }

// Sequence generates deterministic ids "panel-1", "bubble-1", ... from a
// shared counter. Useful for replays and tests.
type Sequence struct{ n atomic.Int64 }

func (s *Sequence) NewPanelID() PanelID { return PanelID(fmt.Sprintf("panel-%d", s.n.Add(1))) }
func (s *Sequence) NewBubbleID() BubbleID {
	return BubbleID(fmt.Sprintf("bubble-%d", s.n.Add(1)))
}
