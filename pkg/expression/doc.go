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

// Package expression provides sandboxed evaluation of watch, condition and
// logpoint expressions against a flat set of variable bindings.
//
// Expressions are compiled by expr-lang/expr with every builtin disabled
// except a small read-only whitelist. Host functions are never reachable
// from an expression, so a user-authored diagnostic string can only read
// the bindings it is given.
//
// Supported syntax:
//
//	swaps > 1 && comparisons < 10
//	array[0] <= array[1]
//	array.length == 3
//	max(array) - min(array)
//	count(array, # > 2)
//	len(filter(array, # % 2 == 0))
//	has(array, 5)
//
// Evaluation failures are always returned as *errors.EvaluationError and
// never panic, because they originate from optional diagnostics that must
// not abort algorithm execution.
//
// The evaluator caches compiled expressions for performance.
package expression
