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
	"fmt"
	"math"
	"reflect"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

// Normalize converts a caller-supplied sequence into a fresh []int.
// It accepts slices and arrays of any integer type, floats holding
// integral values, and []any mixing those.
func Normalize(input any) ([]int, error) {
	if input == nil {
		return nil, notSequence(input)
	}
	if ints, ok := input.([]int); ok {
		if len(ints) == 0 {
			return nil, emptyInput()
		}
		out := make([]int, len(ints))
		copy(out, ints)
		return out, nil
	}

	v := reflect.ValueOf(input)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, notSequence(input)
	}
	if v.Len() == 0 {
		return nil, emptyInput()
	}

	out := make([]int, v.Len())
	for i := range v.Len() {
		n, err := toInt(v.Index(i))
		if err != nil {
			return nil, &stepwiseerrors.ValidationError{
				Field:   fmt.Sprintf("input[%d]", i),
				Message: err.Error(),
				Hint:    "sequence elements must be integers",
			}
		}
		out[i] = n
	}
	return out, nil
}

func toInt(v reflect.Value) (int, error) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, fmt.Errorf("element is nil")
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt {
			return 0, fmt.Errorf("element %d overflows int", u)
		}
		return int(u), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("element %v is not an integer", f)
		}
		// -MinInt is 2^63 (or 2^31) and exactly representable; MaxInt is not.
		if f < float64(math.MinInt) || f >= -float64(math.MinInt) {
			return 0, fmt.Errorf("element %v overflows int", f)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("element of type %s is not a number", v.Type())
	}
}

func notSequence(input any) error {
	return &stepwiseerrors.ValidationError{
		Field:   "input",
		Message: fmt.Sprintf("expected a sequence of integers, got %T", input),
		Hint:    "pass a list such as [5, 2, 1]",
	}
}

func emptyInput() error {
	return &stepwiseerrors.ValidationError{
		Field:   "input",
		Message: "sequence must not be empty",
		Hint:    "pass at least one element",
	}
}
