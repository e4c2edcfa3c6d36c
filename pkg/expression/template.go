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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tombee/stepwise/pkg/errors"
)

// Format renders a logpoint template. Every {expr} segment is evaluated
// against bindings and replaced with its value; "{{" and "}}" produce
// literal braces. Braces nested inside a segment (map literals) are kept
// balanced.
//
// A segment that cannot be evaluated renders as "<error: ...>" so that one
// bad sub-expression never hides the rest of the message. The returned
// error is non-nil only when the template itself is malformed (an
// unterminated segment); the partially rendered message is still returned.
//
// Example:
//
//	Format("swaps={swaps} head={array[0]}", bindings)
//	=> "swaps=2 head=1"
func (e *Evaluator) Format(template string, bindings map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := matchingBrace(template, i)
			if end < 0 {
				b.WriteString(template[i:])
				return b.String(), &errors.EvaluationError{
					Expression: template,
					Phase:      "compile",
					Message:    fmt.Sprintf("unterminated '{' at offset %d", i),
				}
			}
			src := strings.TrimSpace(template[i+1 : end])
			v, err := e.Evaluate(src, bindings)
			if err != nil {
				b.WriteString("<error: ")
				b.WriteString(err.Error())
				b.WriteByte('>')
			} else {
				b.WriteString(Render(v))
			}
			i = end
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

// Segments returns the source of every {expr} segment in template, in
// order. Escaped braces are skipped.
func Segments(template string) ([]string, error) {
	var out []string
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case (c == '{' || c == '}') && i+1 < len(template) && template[i+1] == c:
			i++
		case c == '{':
			end := matchingBrace(template, i)
			if end < 0 {
				return out, &errors.EvaluationError{
					Expression: template,
					Phase:      "compile",
					Message:    fmt.Sprintf("unterminated '{' at offset %d", i),
				}
			}
			out = append(out, strings.TrimSpace(template[i+1:end]))
			i = end
		}
	}
	return out, nil
}

// matchingBrace returns the index of the '}' closing the '{' at start, or -1.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := byte(0)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Render converts a value to its display form in a logpoint message.
// - Strings are rendered as-is
// - Numbers and booleans use their literal form
// - nil becomes "nil"
// - Collections are rendered as compact JSON
func Render(value any) string {
	switch v := value.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
