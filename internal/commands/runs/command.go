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

// Package runs implements the runs command group over the run store.
package runs

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/completion"
	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/store"
)

// DefaultLimit is the number of runs listed when --limit is not given.
const DefaultLimit = 20

// NewCommand creates the runs command group.
func NewCommand() *cobra.Command {
	var (
		db     string
		filter store.RunFilter
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and manage recorded runs",
		Annotations: map[string]string{
			"group": "management",
		},
		Long: `List runs recorded with 'stepwise run --record', newest first.

See also: stepwise run, stepwise history`,
		Example: `  # Example 1: List recent runs
  stepwise runs

  # Example 2: Failed quick sort runs
  stepwise runs --status failed --algorithm quick

  # Example 3: Show one run
  stepwise runs show 3f0c...

  # Example 4: Run IDs as JSON
  stepwise runs --json | jq -r '.runs[].id'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, db, func(ctx context.Context, backend store.Backend) error {
				return listRuns(ctx, cmd.OutOrStdout(), backend, filter)
			})
		},
	}

	cmd.PersistentFlags().StringVar(&db, "db", "", "Run database path (default: data directory)")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Filter by status (running, completed, failed, aborted)")
	cmd.Flags().StringVar(&filter.Algorithm, "algorithm", "", "Filter by algorithm")
	cmd.Flags().IntVar(&filter.Limit, "limit", DefaultLimit, "Maximum number of runs to list (0 = all)")
	_ = cmd.RegisterFlagCompletionFunc("status", completion.CompleteRunStatus)
	_ = cmd.RegisterFlagCompletionFunc("algorithm", completion.CompleteAlgorithms)

	cmd.AddCommand(newShowCommand(&db))
	cmd.AddCommand(newDeleteCommand(&db))

	return cmd
}

func newShowCommand(db *string) *cobra.Command {
	return &cobra.Command{
		Use:               "show <run-id>",
		Short:             "Show run details",
		Long:              `Display a recorded run with its counters and snapshot count.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteRunIDs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *db, func(ctx context.Context, backend store.Backend) error {
				return showRun(ctx, cmd.OutOrStdout(), backend, args[0])
			})
		},
	}
}

func newDeleteCommand(db *string) *cobra.Command {
	return &cobra.Command{
		Use:               "delete <run-id>",
		Aliases:           []string{"rm"},
		Short:             "Delete a run and its snapshots",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteRunIDs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *db, func(ctx context.Context, backend store.Backend) error {
				if err := backend.DeleteRun(ctx, args[0]); err != nil {
					return lookupError(err)
				}
				if shared.GetJSON() {
					type deleteResponse struct {
						shared.JSONResponse
						ID string `json:"id"`
					}
					return shared.EmitJSON(cmd.OutOrStdout(), deleteResponse{
						JSONResponse: shared.NewJSONResponse("runs delete", true),
						ID:           args[0],
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("deleted "+args[0]))
				return nil
			})
		},
	}
}

func withStore(cmd *cobra.Command, db string, fn func(context.Context, store.Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	backend, err := shared.OpenStore(db)
	if err != nil {
		return shared.NewExecutionError("failed to open run store", err)
	}
	defer backend.Close()

	return fn(ctx, backend)
}

func lookupError(err error) error {
	if shared.ExitCode(err) == shared.ExitNotFound {
		return shared.NewNotFoundError("no such run", err)
	}
	return shared.NewExecutionError("run store failed", err)
}

func listRuns(ctx context.Context, w io.Writer, backend store.Backend, filter store.RunFilter) error {
	runs, err := backend.ListRuns(ctx, filter)
	if err != nil {
		return shared.NewExecutionError("failed to list runs", err)
	}

	if shared.GetJSON() {
		type listResponse struct {
			shared.JSONResponse
			Runs []*store.Run `json:"runs"`
		}
		if runs == nil {
			runs = []*store.Run{}
		}
		return shared.EmitJSON(w, listResponse{
			JSONResponse: shared.NewJSONResponse("runs", true),
			Runs:         runs,
		})
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tALGORITHM\tSTATUS\tSTEPS\tDURATION\tSTARTED")
	for _, r := range runs {
		started := "-"
		if r.StartedAt != nil {
			started = r.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Algorithm, r.Status, shared.Count(r.Steps), shared.FormatDuration(r.Duration()), started)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, w io.Writer, backend store.Backend, id string) error {
	run, err := backend.GetRun(ctx, id)
	if err != nil {
		return lookupError(err)
	}
	snaps, err := backend.ListSnapshots(ctx, id)
	if err != nil {
		return lookupError(err)
	}

	if shared.GetJSON() {
		type showResponse struct {
			shared.JSONResponse
			Run       *store.Run `json:"run"`
			Snapshots int        `json:"snapshots"`
		}
		return shared.EmitJSON(w, showResponse{
			JSONResponse: shared.NewJSONResponse("runs show", true),
			Run:          run,
			Snapshots:    len(snaps),
		})
	}

	label := func(s string) string { return shared.RenderLabel(fmt.Sprintf("%-11s", s)) }
	fmt.Fprintf(w, "%s %s\n", label("Run ID:"), run.ID)
	fmt.Fprintf(w, "%s %s\n", label("Algorithm:"), run.Algorithm)
	fmt.Fprintf(w, "%s %s\n", label("Status:"), shared.RenderStatus(run.Status))
	fmt.Fprintf(w, "%s %v\n", label("Input:"), run.Input)
	if run.Output != nil {
		fmt.Fprintf(w, "%s %v\n", label("Output:"), run.Output)
	}
	fmt.Fprintf(w, "%s %s\n", label("Operations:"), shared.Summary(run.Steps, run.Comparisons, run.Swaps, run.Accesses))
	fmt.Fprintf(w, "%s %s\n", label("Pauses:"), shared.Count(run.Pauses))
	fmt.Fprintf(w, "%s %s\n", label("Snapshots:"), shared.Count(len(snaps)))
	if run.StartedAt != nil {
		fmt.Fprintf(w, "%s %s\n", label("Started:"), run.StartedAt.Local().Format(time.RFC3339))
	}
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(w, "%s %s\n", label("Duration:"), shared.FormatDuration(d))
	}
	if run.Error != "" {
		fmt.Fprintf(w, "%s %s\n", label("Error:"), shared.StatusError.Render(run.Error))
	}
	return nil
}
