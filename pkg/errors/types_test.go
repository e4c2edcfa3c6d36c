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

package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *stepwiseerrors.ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &stepwiseerrors.ValidationError{
				Field:   "input",
				Message: "sequence must not be empty",
				Hint:    "pass at least one element",
			},
			wantMsg: "validation failed on input: sequence must not be empty",
		},
		{
			name: "without field",
			err: &stepwiseerrors.ValidationError{
				Message: "index 7 out of range",
			},
			wantMsg: "validation failed: index 7 out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestExecutionError(t *testing.T) {
	cause := errors.New("boom")
	err := &stepwiseerrors.ExecutionError{Algorithm: "bubble", Step: 4, Cause: cause}

	if got, want := err.Error(), "bubble failed after 4 steps: boom"; got != want {
		t.Errorf("ExecutionError.Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("ExecutionError should unwrap to its cause")
	}

	anonymous := &stepwiseerrors.ExecutionError{Cause: cause}
	if !strings.HasPrefix(anonymous.Error(), "algorithm failed") {
		t.Errorf("expected default algorithm name, got %q", anonymous.Error())
	}
}

func TestLimitExceededError(t *testing.T) {
	err := &stepwiseerrors.LimitExceededError{Limit: 10, Produced: 11}

	if got, want := err.Error(), "step limit exceeded: produced 11 steps, limit is 10"; got != want {
		t.Errorf("LimitExceededError.Error() = %q, want %q", got, want)
	}
	if err.Suggestion() == "" {
		t.Error("expected a suggestion for limit errors")
	}
}

func TestEvaluationError(t *testing.T) {
	cause := errors.New("unexpected token")
	err := &stepwiseerrors.EvaluationError{
		Expression: "swaps >",
		Phase:      "compile",
		Message:    "unexpected token",
		Cause:      cause,
	}

	if got, want := err.Error(), `cannot evaluate "swaps >" (compile): unexpected token`; got != want {
		t.Errorf("EvaluationError.Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("EvaluationError should unwrap to its cause")
	}
}

func TestStateError(t *testing.T) {
	err := &stepwiseerrors.StateError{Operation: "PopCallFrame", Reason: "call stack is empty"}
	if got, want := err.Error(), "invalid state for PopCallFrame: call stack is empty"; got != want {
		t.Errorf("StateError.Error() = %q, want %q", got, want)
	}
}

func TestConfigError(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := &stepwiseerrors.ConfigError{Key: "debug.max_snapshots", Reason: "must be positive", Cause: cause}

	if got, want := err.Error(), "config error at debug.max_snapshots: must be positive"; got != want {
		t.Errorf("ConfigError.Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("ConfigError should unwrap to its cause")
	}

	noKey := &stepwiseerrors.ConfigError{Reason: "empty file"}
	if got, want := noKey.Error(), "config error: empty file"; got != want {
		t.Errorf("ConfigError.Error() = %q, want %q", got, want)
	}
}

func TestErrorClassifier(t *testing.T) {
	tests := []struct {
		err      stepwiseerrors.ErrorClassifier
		wantType string
	}{
		{&stepwiseerrors.ValidationError{}, "validation"},
		{&stepwiseerrors.ExecutionError{}, "execution"},
		{&stepwiseerrors.LimitExceededError{}, "limit_exceeded"},
		{&stepwiseerrors.EvaluationError{}, "evaluation"},
		{&stepwiseerrors.StateError{}, "state"},
		{&stepwiseerrors.NotFoundError{}, "not_found"},
		{&stepwiseerrors.ConfigError{}, "config"},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			if got := tt.err.ErrorType(); got != tt.wantType {
				t.Errorf("ErrorType() = %q, want %q", got, tt.wantType)
			}
			if tt.err.IsRetryable() {
				t.Errorf("%s errors should not be retryable", tt.wantType)
			}
		})
	}
}

func TestUserVisibleErrors(t *testing.T) {
	visible := []stepwiseerrors.UserVisibleError{
		&stepwiseerrors.ValidationError{Message: "bad", Hint: "fix it"},
		&stepwiseerrors.LimitExceededError{Limit: 1, Produced: 2},
		&stepwiseerrors.ConfigError{Reason: "bad"},
	}

	for _, err := range visible {
		t.Run(fmt.Sprintf("%T", err), func(t *testing.T) {
			if !err.IsUserVisible() {
				t.Error("expected error to be user visible")
			}
			if err.UserMessage() == "" {
				t.Error("expected a user message")
			}
			if err.Suggestion() == "" {
				t.Error("expected a suggestion")
			}
		})
	}
}
