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

package run

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/cli/render"
	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/runner"
)

type runResponse struct {
	shared.JSONResponse
	RunID       string             `json:"run_id"`
	Recorded    bool               `json:"recorded"`
	Algorithm   string             `json:"algorithm"`
	Status      string             `json:"status"`
	Input       []int              `json:"input"`
	Output      []int              `json:"output"`
	Steps       int                `json:"steps"`
	Comparisons int                `json:"comparisons"`
	Swaps       int                `json:"swaps"`
	Accesses    int                `json:"accesses"`
	Pauses      int                `json:"pauses"`
	Snapshots   int                `json:"snapshots"`
	Logs        []string           `json:"logs"`
	DurationMS  int64              `json:"duration_ms"`
	Errors      []shared.JSONError `json:"errors,omitempty"`
}

func newResponse(result *runner.Result, recorded bool, exitErr *shared.ExitError) runResponse {
	resp := runResponse{
		JSONResponse: shared.NewJSONResponse("run", exitErr == nil),
		RunID:        result.RunID,
		Recorded:     recorded,
		Algorithm:    result.Algorithm,
		Status:       result.Status,
		Input:        result.Input,
		Output:       result.State.Array,
		Steps:        result.State.TotalSteps,
		Comparisons:  result.State.Comparisons,
		Swaps:        result.State.Swaps,
		Accesses:     result.State.Accesses,
		Pauses:       result.Pauses,
		Snapshots:    len(result.Snapshots),
		Logs:         result.Logs,
		DurationMS:   result.Duration.Milliseconds(),
	}
	if resp.Logs == nil {
		resp.Logs = []string{}
	}
	if exitErr != nil {
		resp.Errors = shared.JSONErrors(exitErr.Cause)
	}
	return resp
}

// printResult writes the text summary of a run. With --quiet only the
// final array is printed.
func printResult(w io.Writer, result *runner.Result, bars *render.Renderer, recorded bool) {
	if shared.GetQuiet() {
		fmt.Fprintln(w, result.State.Array)
		return
	}

	if bars != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, bars.RenderArray(result.State.Array, nil))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", shared.Bold.Render(result.Algorithm), shared.RenderStatus(result.Status))
	fmt.Fprintf(w, "  %s %v\n", shared.RenderLabel("input: "), result.Input)
	fmt.Fprintf(w, "  %s %v\n", shared.RenderLabel("output:"), result.State.Array)
	fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("ops:   "), shared.Summary(
		result.State.TotalSteps, result.State.Comparisons, result.State.Swaps, result.State.Accesses))
	if result.Pauses > 0 {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("pauses:"), shared.Count(result.Pauses))
	}
	if n := len(result.Snapshots); n > 0 {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("snaps: "), shared.Count(n))
	}
	fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("time:  "), shared.FormatDuration(result.Duration))
	if recorded {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("run:   "), result.RunID)
	}
}

// emitError reports err as JSON when --json is set. The returned error
// keeps the exit code but carries no message, so it is not printed twice.
func emitError(cmd *cobra.Command, err error) error {
	return emitErrorTo(cmd.OutOrStdout(), err)
}

func emitErrorTo(w io.Writer, err error) error {
	if !shared.GetJSON() || err == nil {
		return err
	}

	errs := shared.JSONErrors(err)
	var exitErr *shared.ExitError
	if errors.As(err, &exitErr) && exitErr.Cause != nil {
		errs = shared.JSONErrors(exitErr.Cause)
	}
	if emitErr := shared.EmitJSONError(w, "run", errs); emitErr != nil {
		return emitErr
	}
	return &shared.ExitError{Code: shared.ExitCode(err)}
}
