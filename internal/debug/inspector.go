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
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/tombee/stepwise/pkg/expression"
)

// Inspector provides utilities for inspecting a variable map.
type Inspector struct {
	vars map[string]any
}

// NewInspector creates a new inspector for the given variables.
func NewInspector(vars map[string]any) *Inspector {
	return &Inspector{vars: vars}
}

// Get retrieves a value by dotted path. Path segments address map keys or,
// for slices, zero-based indexes (e.g. "array.2").
func (i *Inspector) Get(path string) (any, bool) {
	var current any = i.vars
	for _, part := range strings.Split(path, ".") {
		next, ok := child(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(v any, key string) (any, bool) {
	if m, ok := v.(map[string]any); ok {
		value, found := m[key]
		return value, found
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= rv.Len() {
		return nil, false
	}
	return rv.Index(idx).Interface(), true
}

// Keys returns the top-level variable names in sorted order.
func (i *Inspector) Keys() []string {
	keys := make([]string, 0, len(i.vars))
	for k := range i.vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Format formats a value for display.
func (i *Inspector) Format(value any) (string, error) {
	bytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format value: %w", err)
	}
	return string(bytes), nil
}

// FormatContext formats every variable for display.
func (i *Inspector) FormatContext() (string, error) {
	return i.Format(i.vars)
}

// Summary returns one line per variable with its compact value.
func (i *Inspector) Summary() string {
	var b strings.Builder
	for _, key := range i.Keys() {
		fmt.Fprintf(&b, "  %s = %s\n", key, expression.Render(i.vars[key]))
	}
	return b.String()
}
