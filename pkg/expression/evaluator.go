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
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/stepwise/pkg/errors"
)

// Builtins is the whitelist of expr builtins that stay enabled. All of them
// are pure functions over their arguments.
var Builtins = []string{
	"len", "max", "min", "abs",
	"filter", "count", "all", "any", "none",
	"first", "last", "sum",
}

// helpers are the read-only host functions callable from an expression.
var helpers = []string{"has", "length"}

// maxNodes bounds the size of a compiled expression.
const maxNodes = 1000

// Evaluator compiles and evaluates expressions.
// It is safe for concurrent use; the program cache is shared.
type Evaluator struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// New creates a new expression evaluator.
func New() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate evaluates an expression against the given bindings and returns
// its value. The returned error, if any, is always an *errors.EvaluationError.
//
// Example:
//
//	bindings := map[string]any{"swaps": 2, "array": []int{1, 2, 5}}
//	v, err := eval.Evaluate("swaps > 1 && array[0] == 1", bindings)
func (e *Evaluator) Evaluate(expression string, bindings map[string]any) (result any, err error) {
	if expression == "" {
		return nil, &errors.EvaluationError{
			Expression: expression,
			Phase:      "compile",
			Message:    "expression is empty",
		}
	}

	program, err := e.compile(expression)
	if err != nil {
		return nil, &errors.EvaluationError{
			Expression: expression,
			Phase:      "compile",
			Message:    err.Error(),
			Cause:      err,
		}
	}

	// expr recovers its own runtime panics, but custom helpers see arbitrary
	// reflection input.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &errors.EvaluationError{
				Expression: expression,
				Phase:      "run",
				Message:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	if bindings == nil {
		bindings = map[string]any{}
	}

	result, err = expr.Run(program, bindings)
	if err != nil {
		return nil, &errors.EvaluationError{
			Expression: expression,
			Phase:      "run",
			Message:    err.Error(),
			Cause:      err,
		}
	}

	return result, nil
}

// EvaluateBool evaluates an expression and reports whether its value is truthy.
// nil, false, zero numbers, empty strings and empty collections are falsy.
func (e *Evaluator) EvaluateBool(expression string, bindings map[string]any) (bool, error) {
	v, err := e.Evaluate(expression, bindings)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Validate compiles an expression without evaluating it.
func (e *Evaluator) Validate(expression string) error {
	if expression == "" {
		return &errors.EvaluationError{Expression: expression, Phase: "compile", Message: "expression is empty"}
	}
	if _, err := e.compile(expression); err != nil {
		return &errors.EvaluationError{
			Expression: expression,
			Phase:      "compile",
			Message:    err.Error(),
			Cause:      err,
		}
	}
	return nil
}

// compile compiles an expression and caches the result.
func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	if err := checkCalls(tree); err != nil {
		return nil, err
	}

	prog, err := expr.Compile(expression, compileOptions()...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = prog
	e.mu.Unlock()

	return prog, nil
}

func compileOptions() []expr.Option {
	opts := []expr.Option{
		expr.Env(map[string]any{}),
		// Bindings vary per step, so identifiers are resolved at run time
		expr.AllowUndefinedVariables(),
		expr.DisableAllBuiltins(),
		expr.MaxNodes(maxNodes),
		expr.Patch(lengthPatcher{}),
		expr.Function("has", hasFunc),
		expr.Function("length", lengthFunc),
	}
	for _, name := range Builtins {
		opts = append(opts, expr.EnableBuiltin(name))
	}
	return opts
}

// checkCalls rejects any call that is not a whitelisted builtin or helper.
// Undefined variables are allowed, so without this an unknown function
// would only fail once evaluated.
func checkCalls(tree *parser.Tree) error {
	guard := &callGuard{}
	ast.Walk(&tree.Node, guard)
	return guard.err
}

type callGuard struct {
	err error
}

func (g *callGuard) Visit(node *ast.Node) {
	if g.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.BuiltinNode:
		if !slices.Contains(Builtins, n.Name) {
			g.err = fmt.Errorf("function %s is not allowed", n.Name)
		}
	case *ast.CallNode:
		ident, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			g.err = fmt.Errorf("method calls are not allowed")
			return
		}
		if !slices.Contains(helpers, ident.Value) {
			g.err = fmt.Errorf("function %s is not allowed", ident.Value)
		}
	}
}

// lengthPatcher rewrites `x.length` into `len(x)`.
type lengthPatcher struct{}

func (lengthPatcher) Visit(node *ast.Node) {
	member, ok := (*node).(*ast.MemberNode)
	if !ok || member.Optional {
		return
	}
	prop, ok := member.Property.(*ast.StringNode)
	if !ok || prop.Value != "length" {
		return
	}
	ast.Patch(node, &ast.BuiltinNode{
		Name:      "len",
		Arguments: []ast.Node{member.Node},
	})
}

// ClearCache clears the expression cache.
// This is mainly useful for testing.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]*vm.Program)
	e.mu.Unlock()
}

// CacheSize returns the number of cached expressions.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Truthy reports whether v counts as true in a condition.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}
