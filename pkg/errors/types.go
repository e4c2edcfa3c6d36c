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

package errors

import (
	"fmt"
)

// ValidationError represents bad input at a call boundary.
// Use this for non-sequence or empty executor input, out-of-bounds index
// references from an algorithm body, and invalid breakpoint parameters.
type ValidationError struct {
	// Field identifies which input failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Hint provides actionable guidance for fixing the error
	Hint string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ValidationError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ValidationError) Suggestion() string { return e.Hint }

// ExecutionError wraps a failure raised by an algorithm body.
type ExecutionError struct {
	// Algorithm is the name of the algorithm that failed (may be empty)
	Algorithm string

	// Step is the number of steps produced before the failure
	Step int

	// Cause is the error returned (or the value panicked) by the body
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	name := e.Algorithm
	if name == "" {
		name = "algorithm"
	}
	return fmt.Sprintf("%s failed after %d steps: %v", name, e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ExecutionError) ErrorType() string { return "execution" }

// IsRetryable implements ErrorClassifier.
func (e *ExecutionError) IsRetryable() bool { return false }

// LimitExceededError is returned when an executor produces more steps than
// its configured ceiling. It usually means the algorithm body never terminates.
type LimitExceededError struct {
	// Limit is the configured maximum number of steps
	Limit int

	// Produced is the number of steps produced when the limit tripped
	Produced int
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("step limit exceeded: produced %d steps, limit is %d", e.Produced, e.Limit)
}

// ErrorType implements ErrorClassifier.
func (e *LimitExceededError) ErrorType() string { return "limit_exceeded" }

// IsRetryable implements ErrorClassifier.
func (e *LimitExceededError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *LimitExceededError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *LimitExceededError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *LimitExceededError) Suggestion() string {
	return "check the algorithm for a loop that never terminates, or raise max_steps"
}

// EvaluationError represents a watch, condition, or logpoint expression
// that could not be parsed or evaluated. Callers recover from it locally.
type EvaluationError struct {
	// Expression is the source text that failed
	Expression string

	// Phase is "compile" or "run"
	Phase string

	// Message is the human-readable error description
	Message string

	// Cause is the underlying error from the expression engine
	Cause error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("cannot evaluate %q (%s): %s", e.Expression, e.Phase, e.Message)
	}
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expression, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *EvaluationError) ErrorType() string { return "evaluation" }

// IsRetryable implements ErrorClassifier.
func (e *EvaluationError) IsRetryable() bool { return false }

// StateError represents a contract violation by the caller, such as
// popping an empty call stack.
type StateError struct {
	// Operation is the method that was called
	Operation string

	// Reason explains which contract was violated
	Reason string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state for %s: %s", e.Operation, e.Reason)
}

// ErrorType implements ErrorClassifier.
func (e *StateError) ErrorType() string { return "state" }

// IsRetryable implements ErrorClassifier.
func (e *StateError) IsRetryable() bool { return false }

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "algorithm", "snapshot", "breakpoint")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// ConfigError represents configuration problems.
// Use this for session file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "debug.max_snapshots")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string {
	return "run 'stepwise validate <file>' to check the session file"
}
