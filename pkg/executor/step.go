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

package executor

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle status of a step.
type Status string

const (
	// StatusPending marks a step that has not been reached yet.
	StatusPending Status = "pending"

	// StatusActive marks an ordinary operation step.
	StatusActive Status = "active"

	// StatusCompleted marks the final step of a successful run.
	StatusCompleted Status = "completed"

	// StatusError marks the final step of a run whose body failed.
	StatusError Status = "error"
)

// OpKind is the logical operation a step records. Its integer value is
// stable and usable as a breakpoint position key.
type OpKind int

const (
	OpCompare OpKind = iota + 1
	OpSwap
	OpAssign
	OpAccess
	OpComplete
	OpError
)

// String returns the operation name.
func (k OpKind) String() string {
	switch k {
	case OpCompare:
		return "compare"
	case OpSwap:
		return "swap"
	case OpAssign:
		return "assign"
	case OpAccess:
		return "access"
	case OpComplete:
		return "complete"
	case OpError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k OpKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ParseOpKind returns the kind with the given name.
func ParseOpKind(name string) (OpKind, error) {
	for k := OpCompare; k <= OpError; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind: %s", name)
}

// FrameOp records a call-frame transition the body made before a step.
type FrameOp struct {
	// Push is true for Enter and false for Leave.
	Push bool `json:"push"`

	// Name is the logical function name (empty for Leave).
	Name string `json:"name,omitempty"`

	// Line is the logical line of the call site.
	Line int `json:"line,omitempty"`

	// Locals are the arguments the frame was entered with.
	Locals map[string]any `json:"locals,omitempty"`
}

// ExecutionStep is one immutable record of a single logical operation.
// The Variables map and AffectedNodes slice are owned by the step; callers
// must treat them as read-only.
type ExecutionStep struct {
	// Index is the zero-based ordinal of the step in its run.
	Index int `json:"index"`

	// Description is a human-readable summary of the operation.
	Description string `json:"description"`

	// AffectedNodes are the array positions the operation touched.
	AffectedNodes []int `json:"affectedNodes"`

	// Status is the step status.
	Status Status `json:"status"`

	// Kind is the logical operation.
	Kind OpKind `json:"kind"`

	// Variables are the bindings after the operation: array, comparisons,
	// swaps, accesses, step, and every tracked local.
	Variables map[string]any `json:"variables,omitempty"`

	// Frames are call-frame transitions made since the previous step.
	Frames []FrameOp `json:"frames,omitempty"`
}

// Array returns the working array recorded in the step, if any.
func (s ExecutionStep) Array() []int {
	arr, _ := s.Variables[VarArray].([]int)
	return arr
}

// Standard variable names present in every step.
const (
	VarArray       = "array"
	VarComparisons = "comparisons"
	VarSwaps       = "swaps"
	VarAccesses    = "accesses"
	VarStep        = "step"
)

// StandardVariables lists the variable names every step carries.
var StandardVariables = []string{VarArray, VarComparisons, VarSwaps, VarAccesses, VarStep}
