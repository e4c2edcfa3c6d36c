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

// Reserved binding names added by BuildContext. Step variables with the
// same name take precedence.
const (
	StepIndexKey   = "stepIndex"
	DescriptionKey = "description"
	StatusKey      = "status"
	AffectedKey    = "affected"
)

// BuildContext creates the flat binding map an expression is evaluated
// against. The step's own variables are exposed at top level; step metadata
// fills in reserved keys only when the variables don't already define them.
//
// The returned map is new, but values are shared with variables. Callers
// that store the map must deep-copy it.
//
// Structure:
//
//	{
//	    "array": [1, 2, 5],
//	    "swaps": 2,
//	    "i": 0,
//	    "stepIndex": 3,
//	    "description": "Swap positions 1 and 2",
//	    "status": "active",
//	    "affected": [1, 2]
//	}
func BuildContext(variables map[string]any, meta map[string]any) map[string]any {
	ctx := make(map[string]any, len(variables)+len(meta))

	for k, v := range meta {
		ctx[k] = v
	}
	for k, v := range variables {
		ctx[k] = v
	}

	return ctx
}
