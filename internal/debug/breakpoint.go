// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package debug

import (
	"fmt"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

// BreakpointType distinguishes the breakpoint variants.
type BreakpointType string

const (
	// BreakpointLine pauses whenever the position matches.
	BreakpointLine BreakpointType = "line"

	// BreakpointConditional pauses whenever its expression is truthy.
	BreakpointConditional BreakpointType = "conditional"

	// BreakpointHitCount pauses according to how often its position matched.
	BreakpointHitCount BreakpointType = "hit_count"
)

// HitMode selects when a hit-count breakpoint pauses.
type HitMode string

const (
	// HitEqual pauses when the hit count equals the target.
	HitEqual HitMode = "="

	// HitModulo pauses when the hit count is a multiple of the target.
	HitModulo HitMode = "%"

	// HitAtLeast pauses on every hit once the count reaches the target.
	HitAtLeast HitMode = ">="
)

// ParseHitMode parses "=", "%", or ">=". The words "eq", "mod", and "gte"
// are accepted as well for use on command lines.
func ParseHitMode(s string) (HitMode, error) {
	switch s {
	case "=", "==", "eq":
		return HitEqual, nil
	case "%", "mod":
		return HitModulo, nil
	case ">=", "gte":
		return HitAtLeast, nil
	default:
		return "", &stepwiseerrors.ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("unknown hit-count mode %q", s),
			Hint:    `use one of "=", "%", ">="`,
		}
	}
}

func (m HitMode) matches(hits, count int) bool {
	switch m {
	case HitEqual:
		return hits == count
	case HitModulo:
		return hits%count == 0
	case HitAtLeast:
		return hits >= count
	default:
		return false
	}
}

// Breakpoint is one of the three breakpoint variants, tagged by Type.
// Only the fields relevant to Type are set.
type Breakpoint struct {
	ID         int            `json:"id"`
	Type       BreakpointType `json:"type"`
	At         int            `json:"at,omitempty"`
	Expression string         `json:"expression,omitempty"`
	Count      int            `json:"count,omitempty"`
	Mode       HitMode        `json:"mode,omitempty"`

	// Hits is the number of matching ShouldPause calls. It never decreases.
	Hits int `json:"hits,omitempty"`
}

// String describes the breakpoint for display.
func (b Breakpoint) String() string {
	switch b.Type {
	case BreakpointLine:
		return fmt.Sprintf("#%d at %d", b.ID, b.At)
	case BreakpointConditional:
		return fmt.Sprintf("#%d when %s", b.ID, b.Expression)
	case BreakpointHitCount:
		return fmt.Sprintf("#%d at %d hits %s %d (hit %d times)", b.ID, b.At, b.Mode, b.Count, b.Hits)
	default:
		return fmt.Sprintf("#%d", b.ID)
	}
}

// Logpoint formats and emits a message when its position matches. It never
// pauses.
type Logpoint struct {
	ID       int    `json:"id"`
	At       int    `json:"at"`
	Template string `json:"template"`
}
