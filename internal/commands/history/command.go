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

// Package history implements the history command, which queries the
// snapshots of a live or recorded run with jq.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/completion"
	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/jq"
	"github.com/tombee/stepwise/internal/runner"
	"github.com/tombee/stepwise/internal/store"
	"github.com/tombee/stepwise/pkg/executor"
)

// NewCommand creates the history command
func NewCommand() *cobra.Command {
	var (
		session shared.SessionFlags
		query   string
		runID   string
		db      string
	)

	cmd := &cobra.Command{
		Use:   "history [algorithm]",
		Short: "Query the snapshot history of a run",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `History runs a session with automatic snapshots, or loads the snapshots
of a recorded run with --run, and prints them or evaluates a jq query
over them.

The query input is the array of snapshots. Each snapshot has seq,
step_index, variables (array, comparisons, swaps, accesses, step, and the
algorithm's locals), stack, and captured_at.`,
		Example: `  # Example 1: List the snapshots of a live run
  stepwise history bubble --input 5,2,1

  # Example 2: Swap count after every snapshot
  stepwise history quick -i 9,3,7,1 --query '[.[].variables.swaps]'

  # Example 3: Query a recorded run
  stepwise history --run 3f0c... --query 'map(select(.variables.swaps > 2)) | length'`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.CompleteAlgorithmArg,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var snaps []*store.Snapshot
			if runID != "" {
				if len(args) > 0 {
					return shared.NewInvalidSessionError("--run cannot be combined with an algorithm", nil)
				}
				stored, err := loadStored(ctx, db, runID)
				if err != nil {
					return err
				}
				snaps = stored
			} else {
				var algorithm string
				if len(args) > 0 {
					algorithm = args[0]
				}
				live, err := runLive(ctx, cmd, algorithm, &session)
				if err != nil {
					return err
				}
				snaps = live
			}

			if query != "" {
				return runQuery(ctx, cmd.OutOrStdout(), query, snaps)
			}
			return printSnapshots(cmd.OutOrStdout(), snaps)
		},
	}

	session.Register(cmd.Flags())
	cmd.Flags().StringVar(&query, "query", "", "jq expression evaluated over the snapshot array")
	cmd.Flags().StringVar(&runID, "run", "", "Load the snapshots of a recorded run")
	cmd.Flags().StringVar(&db, "db", "", "Run database path (default: data directory)")
	_ = cmd.RegisterFlagCompletionFunc("run", completion.CompleteRunIDs)

	return cmd
}

// runLive runs the session with automatic snapshots and no pauses.
func runLive(ctx context.Context, cmd *cobra.Command, algorithm string, flags *shared.SessionFlags) ([]*store.Snapshot, error) {
	s, err := shared.LoadSession(cmd.Flags(), algorithm, flags)
	if err != nil {
		return nil, err
	}
	s.Debug.AutoSnapshot = true
	if err := shared.ValidateSession(s); err != nil {
		return nil, err
	}

	result, err := runner.Run(ctx, s, runner.Options{
		Logger: shared.NewLogger(cmd.ErrOrStderr(), s.Logging()),
	})
	if result == nil {
		return nil, shared.NewExecutionError("failed to start run", err)
	}
	switch {
	case result.Status == store.StatusAborted:
		return nil, shared.NewInterruptedError("run aborted", err)
	case err != nil:
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderWarn(fmt.Sprintf("run failed after %d steps: %v", result.State.TotalSteps, err)))
	}
	return store.FromDebug(result.RunID, result.Snapshots), nil
}

func loadStored(ctx context.Context, db, runID string) ([]*store.Snapshot, error) {
	backend, err := shared.OpenStore(db)
	if err != nil {
		return nil, shared.NewExecutionError("failed to open run store", err)
	}
	defer backend.Close()

	snaps, err := backend.ListSnapshots(ctx, runID)
	if err != nil {
		if shared.ExitCode(err) == shared.ExitNotFound {
			return nil, shared.NewNotFoundError("no such run", err)
		}
		return nil, shared.NewExecutionError("failed to load snapshots", err)
	}
	return snaps, nil
}

func runQuery(ctx context.Context, w io.Writer, query string, snaps []*store.Snapshot) error {
	if snaps == nil {
		snaps = []*store.Snapshot{}
	}
	result, err := jq.NewExecutor(0, 0).Execute(ctx, query, snaps)
	if err != nil {
		return shared.NewInvalidSessionError("query failed", err)
	}

	if shared.GetJSON() {
		type queryResponse struct {
			shared.JSONResponse
			Query  string `json:"query"`
			Result any    `json:"result"`
		}
		return shared.EmitJSON(w, queryResponse{
			JSONResponse: shared.NewJSONResponse("history", true),
			Query:        query,
			Result:       result,
		})
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format query result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printSnapshots(w io.Writer, snaps []*store.Snapshot) error {
	if shared.GetJSON() {
		type historyResponse struct {
			shared.JSONResponse
			Snapshots []*store.Snapshot `json:"snapshots"`
		}
		if snaps == nil {
			snaps = []*store.Snapshot{}
		}
		return shared.EmitJSON(w, historyResponse{
			JSONResponse: shared.NewJSONResponse("history", true),
			Snapshots:    snaps,
		})
	}

	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTEP\tCOMPARISONS\tSWAPS\tARRAY")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%d\t%d\t%v\t%v\t%v\n", s.Seq, s.StepIndex,
			s.Variables[executor.VarComparisons], s.Variables[executor.VarSwaps], s.Variables[executor.VarArray])
	}
	return tw.Flush()
}
