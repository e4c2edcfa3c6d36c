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

package expression

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/stepwise/pkg/errors"
)

func stepBindings() map[string]any {
	return map[string]any{
		"array":       []int{5, 2, 1},
		"swaps":       2,
		"comparisons": 3,
		"accesses":    0,
		"i":           1,
		"name":        "bubble",
		"frame":       map[string]any{"name": "partition", "line": 4},
	}
}

func TestEvaluator_Arithmetic(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"addition", "swaps + comparisons", 5},
		{"multiplication", "swaps * 10", 20},
		{"modulo", "comparisons % 2", 1},
		{"precedence", "1 + swaps * 3", 7},
		{"float division", "swaps / 4", 0.5},
		{"negation", "-swaps", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Comparison(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"greater than", "swaps > 1", true},
		{"greater than false", "swaps > 2", false},
		{"less or equal", "comparisons <= 3", true},
		{"equality", `name == "bubble"`, true},
		{"inequality", "i != 1", false},
		{"logical and", "swaps > 1 && i == 1", true},
		{"logical or", "swaps > 5 || i == 1", true},
		{"not", "!(swaps > 5)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Access(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"index", "array[2]", 1},
		{"negative index", "array[-1]", 1},
		{"length property", "array.length", 3},
		{"length in comparison", "array.length == 3", true},
		{"length helper", "length(array)", 3},
		{"member", "frame.name", "partition"},
		{"member index", `frame["line"]`, 4},
		{"index with variable", "array[i]", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_CollectionBuiltins(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"len", "len(array)", 3},
		{"max", "max(array)", 5},
		{"min", "min(array)", 1},
		{"filter length", "len(filter(array, # > 1))", 2},
		{"count", "count(array, # > 1)", 2},
		{"all", "all(array, # > 0)", true},
		{"any", "any(array, # == 2)", true},
		{"none", "none(array, # > 10)", true},
		{"first", "first(array)", 5},
		{"last", "last(array)", 1},
		{"sum", "sum(array)", 8},
		{"has element", "has(array, 2)", true},
		{"has missing", "has(array, 9)", false},
		{"has key", `has(frame, "line")`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Sandbox(t *testing.T) {
	e := New()
	ctx := stepBindings()

	// Builtins outside the whitelist are not callable.
	blocked := []string{
		`map(array, # * 2)`,
		`sort(array)`,
		`toJSON(array)`,
		`now()`,
		`env("HOME")`,
	}

	for _, src := range blocked {
		t.Run(src, func(t *testing.T) {
			_, err := e.Evaluate(src, ctx)
			require.Error(t, err)

			var evalErr *errors.EvaluationError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, src, evalErr.Expression)
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		name      string
		expr      string
		wantPhase string
	}{
		{"empty", "", "compile"},
		{"syntax", "swaps >", "compile"},
		{"undefined comparison", "missing > 1", "run"},
		{"index out of range", "array[10]", "run"},
		{"member of int", "swaps.foo", "run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, ctx)
			require.Error(t, err)
			assert.Nil(t, got)

			var evalErr *errors.EvaluationError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, tt.wantPhase, evalErr.Phase)
		})
	}
}

func TestEvaluator_UndefinedVariableIsNil(t *testing.T) {
	e := New()

	got, err := e.Evaluate("missing", map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = e.Evaluate("missing == nil", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestEvaluator_EvaluateBool(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		expr string
		want bool
	}{
		{"swaps > 1", true},
		{"swaps", true},
		{"accesses", false},
		{"array", true},
		{`""`, false},
		{"missing", false},
		{"filter(array, # > 10)", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.EvaluateBool(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := e.EvaluateBool("swaps >", ctx)
	assert.Error(t, err)
}

func TestEvaluator_Cache(t *testing.T) {
	e := New()
	ctx := stepBindings()

	_, err := e.Evaluate("swaps > 1", ctx)
	require.NoError(t, err)
	_, err = e.Evaluate("swaps > 1", map[string]any{"swaps": 0})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())

	_, err = e.Evaluate("swaps < 1", ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, e.CacheSize())

	e.ClearCache()
	assert.Equal(t, 0, e.CacheSize())
}

func TestEvaluator_ConcurrentUse(t *testing.T) {
	e := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := e.Evaluate("swaps * 2", map[string]any{"swaps": n})
			assert.NoError(t, err)
			assert.Equal(t, n*2, got)
		}(i)
	}
	wg.Wait()
}

func TestEvaluator_Validate(t *testing.T) {
	e := New()

	assert.NoError(t, e.Validate("swaps > 1"))
	assert.NoError(t, e.Validate("anything.at.all"))
	assert.Error(t, e.Validate("swaps >"))
	assert.Error(t, e.Validate(""))
	assert.Error(t, e.Validate("sort(array)"))
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"true", true, true},
		{"false", false, false},
		{"zero int", 0, false},
		{"int", 3, true},
		{"zero float", 0.0, false},
		{"float", 0.5, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"empty slice", []int{}, false},
		{"slice", []int{1}, true},
		{"empty map", map[string]any{}, false},
		{"struct", struct{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.v))
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int and float", 1, 1.0, true},
		{"int and int64", 3, int64(3), true},
		{"different numbers", 1, 1.5, false},
		{"number and string", 1, "1", false},
		{"nil and nil", nil, nil, true},
		{"nil and zero", nil, 0, false},
		{"strings", "a", "a", true},
		{"int and float slices", []int{1, 2}, []any{1.0, 2.0}, true},
		{"slice lengths", []int{1, 2}, []int{1}, false},
		{"maps", map[string]any{"x": 1}, map[string]any{"x": 1.0}, true},
		{"map values differ", map[string]any{"x": 1}, map[string]any{"x": 2}, false},
		{"map keys differ", map[string]any{"x": 1}, map[string]any{"y": 1}, false},
		{"bools", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}
