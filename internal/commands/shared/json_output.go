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
	"encoding/json"
	"errors"
	"io"

	pkgerrors "github.com/tombee/stepwise/pkg/errors"
)

// JSONVersion is the envelope version of every JSON response.
const JSONVersion = "1.0"

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// NewJSONResponse returns an envelope for command.
func NewJSONResponse(command string, success bool) JSONResponse {
	return JSONResponse{Version: JSONVersion, Command: command, Success: success}
}

// JSONError represents a structured error with code, message, key, and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Key        string `json:"key,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// EmitJSON writes response to w as indented JSON.
func EmitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONError writes a failed envelope carrying errs.
func EmitJSONError(w io.Writer, command string, errs []JSONError) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	return EmitJSON(w, errorResponse{
		JSONResponse: NewJSONResponse(command, false),
		Errors:       errs,
	})
}

// JSONErrors flattens err into structured errors. Joined errors produce
// one entry each; config errors carry their key.
func JSONErrors(err error) []JSONError {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []JSONError
		for _, e := range joined.Unwrap() {
			out = append(out, JSONErrors(e)...)
		}
		return out
	}

	var cfgErr *pkgerrors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Cause != nil {
		if inner, ok := cfgErr.Cause.(interface{ Unwrap() []error }); ok {
			return JSONErrors(errors.Join(inner.Unwrap()...))
		}
	}

	je := JSONError{Code: ErrorCodeFor(err), Message: err.Error()}
	if cfgErr != nil {
		je.Key = cfgErr.Key
	}
	var userErr pkgerrors.UserVisibleError
	if errors.As(err, &userErr) && userErr.IsUserVisible() {
		je.Suggestion = userErr.Suggestion()
	}
	return []JSONError{je}
}
