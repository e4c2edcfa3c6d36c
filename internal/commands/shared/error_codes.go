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

import pkgerrors "github.com/tombee/stepwise/pkg/errors"

// Error codes for structured JSON output
const (
	// Session errors (E001-E099)
	ErrorCodeInvalidSession    = "E001" // Session failed validation
	ErrorCodeInvalidYAML       = "E002" // Invalid YAML syntax
	ErrorCodeInvalidExpression = "E003" // Watch, condition or template does not compile

	// Execution errors (E100-E199)
	ErrorCodeExecutionFailed = "E101" // Algorithm body failed
	ErrorCodeStepLimit       = "E102" // max_steps exceeded
	ErrorCodeInterrupted     = "E103" // Run aborted or interrupted

	// Input errors (E300-E399)
	ErrorCodeInvalidInput = "E301" // Input is not a non-empty sequence
	ErrorCodeFileNotFound = "E303" // File not found

	// Resource errors (E400-E499)
	ErrorCodeNotFound = "E401" // Run or algorithm not found
	ErrorCodeInternal = "E402" // Internal error
)

// ErrorCodeFor maps an error to its JSON error code.
func ErrorCodeFor(err error) string {
	if err == nil {
		return ""
	}

	switch pkgerrors.TypeOf(err) {
	case "validation":
		return ErrorCodeInvalidInput
	case "limit_exceeded":
		return ErrorCodeStepLimit
	case "evaluation":
		return ErrorCodeInvalidExpression
	case "not_found":
		return ErrorCodeNotFound
	case "config":
		return ErrorCodeInvalidSession
	case "execution":
		return ErrorCodeExecutionFailed
	}

	switch ExitCode(err) {
	case ExitInvalidSession:
		return ErrorCodeInvalidSession
	case ExitNotFound:
		return ErrorCodeNotFound
	case ExitInterrupted:
		return ErrorCodeInterrupted
	default:
		return ErrorCodeExecutionFailed
	}
}
