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

package validate

import (
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/completion"
	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/config"
)

// fileResult is the outcome of validating one session file.
type fileResult struct {
	Path      string             `json:"path"`
	Valid     bool               `json:"valid"`
	Algorithm string             `json:"algorithm,omitempty"`
	Errors    []shared.JSONError `json:"errors,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <pattern>...",
		Short: "Validate session files",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Validate checks that session files parse, name a known algorithm, carry
a non-empty input, and that every breakpoint condition, watch, and logpoint
template compiles.

Patterns may use ** to match any number of directories. Expressions that
read variables the algorithm never binds are reported as warnings; with
--strict they fail validation.`,
		Example: `  # Example 1: Validate one session
  stepwise validate session.yaml

  # Example 2: Validate every session below a directory
  stepwise validate 'sessions/**/*.yaml'

  # Example 3: Machine-readable results
  stepwise validate session.yaml --json | jq '.files[].errors'`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completion.CompleteSessionFiles,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat lint warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, patterns []string, strict bool) error {
	useJSON := shared.GetJSON()

	var (
		results []fileResult
		missing []string
		invalid int
	)
	for _, pattern := range patterns {
		paths, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return shared.NewInvalidSessionError(fmt.Sprintf("invalid pattern %q", pattern), err)
		}
		if len(paths) == 0 {
			missing = append(missing, pattern)
			continue
		}
		for _, path := range paths {
			r := validateFile(path, strict)
			if !r.Valid {
				invalid++
			}
			results = append(results, r)
		}
	}

	if useJSON {
		type validateResponse struct {
			shared.JSONResponse
			Files     []fileResult `json:"files"`
			Unmatched []string     `json:"unmatched,omitempty"`
		}
		if results == nil {
			results = []fileResult{}
		}
		resp := validateResponse{
			JSONResponse: shared.NewJSONResponse("validate", invalid == 0 && len(missing) == 0),
			Files:        results,
			Unmatched:    missing,
		}
		if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		printResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results, missing)
	}

	message := ""
	switch {
	case invalid > 0:
		if !useJSON {
			message = fmt.Sprintf("%d of %d session files failed validation", invalid, len(results))
		}
		return &shared.ExitError{Code: shared.ExitInvalidSession, Message: message}
	case len(missing) > 0:
		if !useJSON {
			message = fmt.Sprintf("no files match %q", missing[0])
		}
		return &shared.ExitError{Code: shared.ExitNotFound, Message: message}
	}
	return nil
}

func validateFile(path string, strict bool) fileResult {
	r := fileResult{Path: path}

	s, err := config.Load(path)
	if err != nil {
		r.Errors = shared.JSONErrors(err)
		return r
	}
	r.Algorithm = s.Algorithm
	r.Warnings = s.Lint()
	r.Valid = !strict || len(r.Warnings) == 0
	return r
}

func printResults(out, errOut io.Writer, results []fileResult, missing []string) {
	for _, r := range results {
		switch {
		case r.Valid:
			fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("%s (%s)", r.Path, r.Algorithm)))
		case len(r.Errors) == 0:
			fmt.Fprintln(errOut, shared.RenderError(r.Path+": lint warnings in strict mode"))
		default:
			fmt.Fprintln(errOut, shared.RenderError(r.Path))
		}
		for _, e := range r.Errors {
			if e.Key != "" {
				fmt.Fprintf(errOut, "  %s: %s\n", e.Key, e.Message)
			} else {
				fmt.Fprintf(errOut, "  %s\n", e.Message)
			}
			if e.Suggestion != "" {
				fmt.Fprintf(errOut, "    Suggestion: %s\n", e.Suggestion)
			}
		}
		for _, w := range r.Warnings {
			fmt.Fprintln(out, "  "+shared.RenderWarn(w))
		}
	}
	for _, pattern := range missing {
		fmt.Fprintln(errOut, shared.RenderError(fmt.Sprintf("%s: no matching files", pattern)))
	}
}
