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

package shared

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/tombee/stepwise/pkg/errors"
)

// Exit codes for stepwise commands
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitInvalidSession  = 2
	ExitNotFound        = 3
	ExitInterrupted     = 130 // 128 + SIGINT
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for failed runs
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidSessionError creates an error for bad session files or flags
func NewInvalidSessionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidSession,
		Message: msg,
		Cause:   cause,
	}
}

// NewNotFoundError creates an error for missing runs or algorithms
func NewNotFoundError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitNotFound,
		Message: msg,
		Cause:   cause,
	}
}

// NewInterruptedError creates an error for runs stopped by a signal
func NewInterruptedError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInterrupted,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if pkgerrors.IsNotFound(err) {
		return ExitNotFound
	}
	var cfgErr *pkgerrors.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitInvalidSession
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitExecutionFailed
}

// ReportError writes err and any user-facing suggestion to w.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, "Error:", msg)
	}
	printUserVisibleSuggestion(w, err)
}

// HandleExitError reports err on stderr and exits with its code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	ReportError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// printUserVisibleSuggestion checks if an error implements UserVisibleError
// and prints the suggestion if available.
func printUserVisibleSuggestion(w io.Writer, err error) {
	// Walk the error chain to find a UserVisibleError
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				if suggestion := userErr.Suggestion(); suggestion != "" {
					fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
				}
			}
			return
		}
		err = errors.Unwrap(err)
	}
}
