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
	"slices"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Identifiers returns the unique variable names an expression reads, in
// order of first appearance. Function names and predicate placeholders (#)
// are excluded.
func Identifiers(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expression, err)
	}

	// Walk is post-order, so callees are gathered in a first pass.
	callees := &calleeCollector{}
	ast.Walk(&tree.Node, callees)

	c := &identCollector{callees: callees.nodes}
	ast.Walk(&tree.Node, c)
	return c.names, nil
}

type calleeCollector struct {
	nodes []ast.Node
}

func (c *calleeCollector) Visit(node *ast.Node) {
	if call, ok := (*node).(*ast.CallNode); ok {
		c.nodes = append(c.nodes, call.Callee)
	}
}

type identCollector struct {
	callees []ast.Node
	names   []string
}

func (c *identCollector) Visit(node *ast.Node) {
	n, ok := (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	for _, callee := range c.callees {
		if callee == ast.Node(n) {
			return
		}
	}
	if n.Value == "" || strings.HasPrefix(n.Value, "#") || strings.HasPrefix(n.Value, "$") {
		return
	}
	if !slices.Contains(c.names, n.Value) {
		c.names = append(c.names, n.Value)
	}
}

// ValidateReferences checks that every identifier an expression reads is
// in the known set. Returns an error naming the unknown identifiers.
//
// Example:
//
//	err := ValidateReferences("swaps > 1 && k == 0", []string{"swaps", "array"})
//	// Returns error (k is not known)
func ValidateReferences(expression string, known []string) error {
	names, err := Identifiers(expression)
	if err != nil {
		return err
	}

	var unknown []string
	for _, name := range names {
		if !slices.Contains(known, name) {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf(
			"expression references unknown variable(s): %s (known: %s)",
			strings.Join(unknown, ", "),
			strings.Join(known, ", "),
		)
	}

	return nil
}
