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
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

func collect(t *testing.T, e *Executor) []ExecutionStep {
	t.Helper()
	var steps []ExecutionStep
	for step, err := range e.Steps() {
		require.NoError(t, err)
		steps = append(steps, step)
	}
	return steps
}

func mustLookup(t *testing.T, name string) Algorithm {
	t.Helper()
	algo, err := Lookup(name)
	require.NoError(t, err)
	return algo
}

func TestExecutor_BubbleSortSequence(t *testing.T) {
	e := New()
	require.NoError(t, e.Load(mustLookup(t, "bubble"), []int{5, 2, 1}))

	steps := collect(t, e)
	require.Len(t, steps, 7)

	wantKinds := []OpKind{OpCompare, OpSwap, OpCompare, OpSwap, OpCompare, OpSwap, OpComplete}
	for i, step := range steps {
		assert.Equal(t, i, step.Index)
		assert.Equal(t, wantKinds[i], step.Kind, "step %d", i)
	}

	assert.Equal(t, []int{0, 1}, steps[0].AffectedNodes)
	assert.Equal(t, "Compare positions 0 and 1 (5 vs 2)", steps[0].Description)
	assert.Equal(t, []int{2, 5, 1}, steps[1].Array())
	assert.Equal(t, 2, steps[3].Variables[VarSwaps])
	assert.Equal(t, 1, steps[3].Variables[VarSwaps].(int)-steps[1].Variables[VarSwaps].(int))
	assert.Equal(t, StatusActive, steps[5].Status)

	last := steps[len(steps)-1]
	assert.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, []int{1, 2, 5}, last.Array())
	assert.Empty(t, last.AffectedNodes)

	state := e.State()
	assert.True(t, state.Done)
	assert.NoError(t, state.Err)
	assert.Equal(t, 7, state.TotalSteps)
	assert.Equal(t, 6, state.Step)
	assert.Equal(t, 3, state.Comparisons)
	assert.Equal(t, 3, state.Swaps)
	assert.Equal(t, []int{1, 2, 5}, state.Array)

	_, _, err := e.Step()
	assert.ErrorIs(t, err, io.EOF)
}

func TestExecutor_StepsCarryStandardVariables(t *testing.T) {
	e := New()
	require.NoError(t, e.Load(mustLookup(t, "selection"), []int{3, 1, 2}))

	step, state, err := e.Step()
	require.NoError(t, err)
	for _, name := range StandardVariables {
		assert.Contains(t, step.Variables, name)
	}
	assert.Contains(t, step.Variables, "i")
	assert.Contains(t, step.Variables, "j")
	assert.Equal(t, 0, step.Variables[VarStep])
	assert.Equal(t, 0, state.Step)
	assert.False(t, state.Done)
}

func TestExecutor_StepVariablesAreIsolated(t *testing.T) {
	e := New()
	require.NoError(t, e.Load(mustLookup(t, "bubble"), []int{2, 1}))

	first, _, err := e.Step()
	require.NoError(t, err)
	first.Array()[0] = 99

	second, _, err := e.Step()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, second.Array())
	assert.Equal(t, []int{2, 1}, e.input)
}

func TestExecutor_InputIsCopied(t *testing.T) {
	input := []int{3, 2, 1}
	e := New()
	require.NoError(t, e.Load(mustLookup(t, "insertion"), input))
	collect(t, e)

	assert.Equal(t, []int{3, 2, 1}, input)
	assert.Equal(t, []int{1, 2, 3}, e.State().Array)
}

func TestExecutor_ResetIsDeterministic(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			e := New()
			require.NoError(t, e.Load(mustLookup(t, name), []int{4, 9, 1, 7, 1, 3}))

			first := collect(t, e)
			e.Reset()
			second := collect(t, e)
			assert.Equal(t, first, second)

			// Reset partway through.
			e.Reset()
			for range 3 {
				_, _, err := e.Step()
				require.NoError(t, err)
			}
			e.Reset()
			assert.Equal(t, -1, e.State().Step)
			third := collect(t, e)
			assert.Equal(t, first, third)
		})
	}
}

func TestExecutor_MaxSteps(t *testing.T) {
	t.Run("exceeded", func(t *testing.T) {
		e := New(WithConfig(Config{MaxSteps: 3, BreakOnError: true}))
		require.NoError(t, e.Load(mustLookup(t, "bubble"), []int{5, 2, 1}))

		for range 3 {
			_, _, err := e.Step()
			require.NoError(t, err)
		}
		_, state, err := e.Step()
		var limit *stepwiseerrors.LimitExceededError
		require.ErrorAs(t, err, &limit)
		assert.Equal(t, 3, limit.Limit)
		assert.Equal(t, 4, limit.Produced)
		assert.True(t, state.Done)
		assert.Equal(t, 1, state.Swaps, "limited operation must not mutate state")

		_, _, again := e.Step()
		assert.Equal(t, err, again)
	})

	t.Run("exact limit completes", func(t *testing.T) {
		e := New(WithConfig(Config{MaxSteps: 7}))
		state, err := e.Execute(context.Background(), mustLookup(t, "bubble"), []int{5, 2, 1})
		require.NoError(t, err)
		assert.Equal(t, 7, state.TotalSteps)
	})

	t.Run("non-terminating body", func(t *testing.T) {
		spin := Algorithm{Name: "spin", Body: func(ops *Ops) error {
			for {
				ops.Get(0)
			}
		}}
		e := New(WithConfig(Config{MaxSteps: 50, BreakOnError: false}))
		_, err := e.Execute(context.Background(), spin, []int{1})
		var limit *stepwiseerrors.LimitExceededError
		assert.ErrorAs(t, err, &limit)
	})
}

func TestExecutor_BodyErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := Algorithm{Name: "failing", Body: func(ops *Ops) error {
		ops.Compare(0, 1)
		return boom
	}}

	t.Run("break on error", func(t *testing.T) {
		e := New()
		require.NoError(t, e.Load(failing, []int{1, 2}))

		_, _, err := e.Step()
		require.NoError(t, err)

		_, state, err := e.Step()
		var execErr *stepwiseerrors.ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "failing", execErr.Algorithm)
		assert.Equal(t, 1, execErr.Step)
		assert.True(t, state.Done)
	})

	t.Run("capture error", func(t *testing.T) {
		e := New(WithConfig(Config{BreakOnError: false}))
		require.NoError(t, e.Load(failing, []int{1, 2}))

		steps := collect(t, e)
		require.Len(t, steps, 2)
		assert.Equal(t, OpError, steps[1].Kind)
		assert.Equal(t, StatusError, steps[1].Status)

		state := e.State()
		assert.True(t, state.Done)
		assert.ErrorIs(t, state.Err, boom)
	})

	t.Run("panic becomes execution error", func(t *testing.T) {
		panicking := Algorithm{Name: "panicking", Body: func(ops *Ops) error {
			panic("unexpected")
		}}
		e := New()
		_, err := e.Execute(context.Background(), panicking, []int{1})
		var execErr *stepwiseerrors.ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Contains(t, err.Error(), "unexpected")
	})
}

func TestExecutor_OutOfBounds(t *testing.T) {
	for _, breakOnError := range []bool{true, false} {
		e := New(WithConfig(Config{BreakOnError: breakOnError}))
		oob := Algorithm{Name: "oob", Body: func(ops *Ops) error {
			ops.Swap(0, 5)
			return nil
		}}
		require.NoError(t, e.Load(oob, []int{1, 2}))

		_, _, err := e.Step()
		var validation *stepwiseerrors.ValidationError
		require.ErrorAs(t, err, &validation, "breakOnError=%v", breakOnError)
		assert.Contains(t, validation.Message, "index 5 out of range")
		assert.Equal(t, []int{1, 2}, e.State().Array)
	}
}

func TestExecutor_LoadValidation(t *testing.T) {
	e := New()

	err := e.Load(Algorithm{Name: "empty"}, []int{1})
	var validation *stepwiseerrors.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "algorithm", validation.Field)

	err = e.Load(mustLookup(t, "bubble"), []int{})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "input", validation.Field)

	_, _, err = e.Step()
	var stateErr *stepwiseerrors.StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestExecutor_ExecuteRejectsOverflowingFloats(t *testing.T) {
	_, err := New().Execute(context.Background(), mustLookup(t, "bubble"), []float64{2, 1e300})
	var validation *stepwiseerrors.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "input[1]", validation.Field)
	assert.Contains(t, validation.Message, "overflows int")
}

func TestExecutor_Close(t *testing.T) {
	e := New()
	require.NoError(t, e.Load(mustLookup(t, "bubble"), []int{3, 2, 1}))
	_, _, err := e.Step()
	require.NoError(t, err)

	e.Close()
	_, _, err = e.Step()
	var stateErr *stepwiseerrors.StateError
	require.ErrorAs(t, err, &stateErr)

	e.Reset()
	_, _, err = e.Step()
	assert.NoError(t, err)
}

func TestExecutor_ExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	_, err := e.Execute(ctx, mustLookup(t, "quick"), []int{3, 1, 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_FramesBalance(t *testing.T) {
	for _, name := range []string{"merge", "quick"} {
		t.Run(name, func(t *testing.T) {
			e := New()
			require.NoError(t, e.Load(mustLookup(t, name), []int{6, 3, 8, 1, 9, 2}))

			depth, maxDepth := 0, 0
			for step, err := range e.Steps() {
				require.NoError(t, err)
				for _, f := range step.Frames {
					if f.Push {
						depth++
						assert.Equal(t, name+"Sort", f.Name)
						assert.Contains(t, f.Locals, "lo")
					} else {
						depth--
					}
					require.GreaterOrEqual(t, depth, 0)
					maxDepth = max(maxDepth, depth)
				}
			}
			assert.Zero(t, depth)
			assert.Greater(t, maxDepth, 1)
		})
	}
}

type countingRecorder struct {
	kinds map[string]int
}

func (c *countingRecorder) RecordStep(_ context.Context, algorithm, kind string) {
	c.kinds[algorithm+"/"+kind]++
}

func TestExecutor_Recorder(t *testing.T) {
	rec := &countingRecorder{kinds: map[string]int{}}
	e := New(WithRecorder(rec))

	_, err := e.Execute(context.Background(), mustLookup(t, "bubble"), []int{5, 2, 1})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"bubble/compare":  3,
		"bubble/swap":     3,
		"bubble/complete": 1,
	}, rec.kinds)
}

func TestOpKind(t *testing.T) {
	for k := OpCompare; k <= OpError; k++ {
		parsed, err := ParseOpKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, 1, int(OpCompare))
	assert.Equal(t, 5, int(OpComplete))

	_, err := ParseOpKind("teleport")
	assert.Error(t, err)

	data, err := OpSwap.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"swap"`, string(data))
}
