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
	"errors"
	"fmt"
	"maps"
	"slices"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

// errStopped unwinds a body whose consumer stopped pulling.
var errStopped = errors.New("step sequence stopped")

// abort carries an error out of a suspended body. It is only ever
// recovered by run.guard.
type abort struct{ err error }

// run is the mutable state of one pass of a body over a working array.
type run struct {
	name        string
	array       []int
	comparisons int
	swaps       int
	accesses    int
	produced    int
	maxSteps    int
	locals      map[string]any
	frames      []FrameOp
	err         error
	yield       func(ExecutionStep, error) bool
}

func newRun(name string, input []int, maxSteps int) *run {
	return &run{
		name:     name,
		array:    slices.Clone(input),
		maxSteps: maxSteps,
		locals:   make(map[string]any),
	}
}

// guard runs fn and converts an abort raised inside it into an error.
// Any other panic from the body is reported as an error as well.
func (r *run) guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if a, ok := rec.(abort); ok {
				err = a.err
				return
			}
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}

// admit aborts the body when one more step would exceed the ceiling.
func (r *run) admit() {
	if r.maxSteps > 0 && r.produced >= r.maxSteps {
		panic(abort{&stepwiseerrors.LimitExceededError{Limit: r.maxSteps, Produced: r.produced + 1}})
	}
}

// emit produces one step and suspends until the consumer pulls again.
func (r *run) emit(kind OpKind, status Status, description string, nodes ...int) {
	r.admit()
	step := ExecutionStep{
		Index:         r.produced,
		Description:   description,
		AffectedNodes: slices.Clone(nodes),
		Status:        status,
		Kind:          kind,
		Variables:     r.variables(),
		Frames:        r.frames,
	}
	if step.AffectedNodes == nil {
		step.AffectedNodes = []int{}
	}
	r.frames = nil
	r.produced++
	if !r.yield(step, nil) {
		panic(abort{errStopped})
	}
}

func (r *run) variables() map[string]any {
	vars := make(map[string]any, len(StandardVariables)+len(r.locals))
	for k, v := range r.locals {
		if arr, ok := v.([]int); ok {
			v = slices.Clone(arr)
		}
		vars[k] = v
	}
	vars[VarArray] = slices.Clone(r.array)
	vars[VarComparisons] = r.comparisons
	vars[VarSwaps] = r.swaps
	vars[VarAccesses] = r.accesses
	vars[VarStep] = r.produced
	return vars
}

func (r *run) check(op string, indexes ...int) {
	for _, i := range indexes {
		if i < 0 || i >= len(r.array) {
			panic(abort{&stepwiseerrors.ValidationError{
				Field:   "index",
				Message: fmt.Sprintf("%s: index %d out of range [0,%d)", op, i, len(r.array)),
			}})
		}
	}
	r.admit()
}

// Ops is the handle an algorithm body uses to touch the working array.
// Each method other than Len, Track, Forget, Enter, and Leave produces
// exactly one step.
type Ops struct {
	r *run
}

// Len returns the length of the working array. It does not produce a step.
func (o *Ops) Len() int {
	return len(o.r.array)
}

// Get reads the element at i.
func (o *Ops) Get(i int) int {
	o.r.check("get", i)
	o.r.accesses++
	v := o.r.array[i]
	o.r.emit(OpAccess, StatusActive, fmt.Sprintf("Read position %d (%d)", i, v), i)
	return v
}

// Set writes v at position i.
func (o *Ops) Set(i, v int) {
	o.r.check("set", i)
	o.r.accesses++
	o.r.array[i] = v
	o.r.emit(OpAssign, StatusActive, fmt.Sprintf("Set position %d to %d", i, v), i)
}

// Compare compares the elements at i and j and returns -1, 0, or +1.
func (o *Ops) Compare(i, j int) int {
	o.r.check("compare", i, j)
	o.r.comparisons++
	a, b := o.r.array[i], o.r.array[j]
	o.r.emit(OpCompare, StatusActive, fmt.Sprintf("Compare positions %d and %d (%d vs %d)", i, j, a, b), i, j)
	return cmpInt(a, b)
}

// Less reports whether the element at i is smaller than the element at j.
func (o *Ops) Less(i, j int) bool {
	return o.Compare(i, j) < 0
}

// CompareValues compares two values held outside the working array, such
// as in a merge buffer. The nodes are recorded as the affected positions.
func (o *Ops) CompareValues(a, b int, nodes ...int) int {
	o.r.check("compare", nodes...)
	o.r.comparisons++
	o.r.emit(OpCompare, StatusActive, fmt.Sprintf("Compare %d with %d", a, b), nodes...)
	return cmpInt(a, b)
}

// Swap exchanges the elements at i and j.
func (o *Ops) Swap(i, j int) {
	o.r.check("swap", i, j)
	o.r.swaps++
	o.r.array[i], o.r.array[j] = o.r.array[j], o.r.array[i]
	o.r.emit(OpSwap, StatusActive, fmt.Sprintf("Swap positions %d and %d", i, j), i, j)
}

// Track binds a local variable so that it appears in subsequent steps.
func (o *Ops) Track(name string, value any) {
	o.r.locals[name] = value
}

// Forget removes a local variable binding.
func (o *Ops) Forget(name string) {
	delete(o.r.locals, name)
}

// Enter records a call into a logical function. The transition is attached
// to the next step produced.
func (o *Ops) Enter(name string, line int, args map[string]any) {
	o.r.frames = append(o.r.frames, FrameOp{Push: true, Name: name, Line: line, Locals: maps.Clone(args)})
}

// Leave records a return from the innermost logical function.
func (o *Ops) Leave() {
	o.r.frames = append(o.r.frames, FrameOp{})
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
