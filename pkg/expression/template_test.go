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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	e := New()
	ctx := stepBindings()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain text", "no placeholders", "no placeholders"},
		{"single value", "swaps={swaps}", "swaps=2"},
		{"multiple values", "{swaps}/{comparisons}", "2/3"},
		{"collection as json", "array={array}", "array=[5,2,1]"},
		{"expression", "next={swaps + 1}", "next=3"},
		{"string value", "algo {name}", "algo bubble"},
		{"whitespace trimmed", "{ swaps }", "2"},
		{"escaped braces", "{{literal}} {swaps}", "{literal} 2"},
		{"nested map literal", `{ {"a": swaps}.a }`, "2"},
		{"nil value", "{missing}", "nil"},
		{"bool value", "{swaps > 1}", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Format(tt.template, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_BadSegmentDoesNotAbort(t *testing.T) {
	e := New()

	got, err := e.Format("a={swaps >} b={swaps}", stepBindings())
	require.NoError(t, err)
	assert.Contains(t, got, "a=<error: ")
	assert.Contains(t, got, "b=2")
}

func TestFormat_Unterminated(t *testing.T) {
	e := New()

	got, err := e.Format("swaps={swaps", stepBindings())
	require.Error(t, err)
	assert.Equal(t, "swaps={swaps", got)
}

func TestSegments(t *testing.T) {
	got, err := Segments("swaps={ swaps } {{literal}} m={ {'k': 1}.k }")
	require.NoError(t, err)
	assert.Equal(t, []string{"swaps", "{'k': 1}.k"}, got)

	got, err = Segments("no segments")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Segments("a={b")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, "nil"},
		{"string", "x", "x"},
		{"bool", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"float", 2.5, "2.5"},
		{"slice", []int{1, 2}, "[1,2]"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.v))
		})
	}
}

func TestBuildContext(t *testing.T) {
	variables := map[string]any{"swaps": 1, "status": "shadowed"}
	meta := map[string]any{StepIndexKey: 4, StatusKey: "active"}

	ctx := BuildContext(variables, meta)

	assert.Equal(t, 1, ctx["swaps"])
	assert.Equal(t, 4, ctx[StepIndexKey])
	assert.Equal(t, "shadowed", ctx[StatusKey], "step variables take precedence")

	ctx["swaps"] = 99
	assert.Equal(t, 1, variables["swaps"], "BuildContext returns a new map")
}

func TestBuildContext_Nil(t *testing.T) {
	ctx := BuildContext(nil, nil)
	require.NotNil(t, ctx)
	assert.Empty(t, ctx)
}

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"swaps > 1", []string{"swaps"}},
		{"swaps > 1 && i < array.length", []string{"swaps", "i", "array"}},
		{"has(array, x)", []string{"array", "x"}},
		{"count(array, # > limit)", []string{"array", "limit"}},
		{"frame.name == \"f\"", []string{"frame"}},
		{"1 + 2", nil},
		{"swaps + swaps", []string{"swaps"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Identifiers(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Identifiers("swaps >")
	assert.Error(t, err)
}

func TestValidateReferences(t *testing.T) {
	known := []string{"array", "swaps", "comparisons"}

	assert.NoError(t, ValidateReferences("swaps > 1 && array[0] == 1", known))
	assert.NoError(t, ValidateReferences("1 < 2", known))

	err := ValidateReferences("swaps > k", known)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k")
}
