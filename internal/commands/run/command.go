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
	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/completion"
	"github.com/tombee/stepwise/internal/commands/shared"
)

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var (
		session       shared.SessionFlags
		opts          Options
		noInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "run [algorithm]",
		Short: "Run an algorithm under the debugger",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Run executes a sorting algorithm step by step with breakpoints,
watches, and logpoints installed from flags and the --config session file.

Breakpoints:
  --break N           Pause at position N
  --when EXPR         Pause whenever EXPR is true, e.g. 'swaps > 3'
  --hit N:COUNT:MODE  Pause at N on its COUNT-th hit (= , >= or %)

Positions are step ordinals by default. With --position kind they are
operation kinds: compare=1, swap=2, assign=3, access=4, complete=5, error=6.

Watches and logpoints:
  --watch EXPR        Print EXPR whenever its value changes
  --log N:TEMPLATE    Print TEMPLATE at position N, e.g. '2:i={i} j={j}'

Pausing:
  By default a breakpoint hit is reported and the run continues. With
  --interactive each pause opens a prompt with continue, next, inspect,
  context, stack, snapshots, restore, query, and abort.

Recording:
  --record stores the run and its snapshots in the run database
  (default $XDG_DATA_HOME/stepwise/runs.db). See 'stepwise runs'.`,
		Example: `  # Example 1: Sort with a breakpoint on the third step
  stepwise run bubble --input 5,2,1 --break 3

  # Example 2: Watch the swap count and pause when it passes 2
  stepwise run quick -i 9,3,7,1 --watch swaps --when 'swaps > 2' --interactive

  # Example 3: Animate every step at 5 steps per second
  stepwise run heap -i 4,8,1,6 --animate --speed 5

  # Example 4: Run a session file and record it
  stepwise run --config session.yaml --record

  # Example 5: Machine-readable result
  stepwise run merge -i 3,1,2 --json | jq '.output'`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.CompleteAlgorithmArg,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// --json implies --no-interactive
			if shared.GetJSON() || noInteractive {
				opts.Interactive = false
			}

			var algorithm string
			if len(args) > 0 {
				algorithm = args[0]
			}

			s, err := shared.LoadSession(cmd.Flags(), algorithm, &session)
			if err != nil {
				return emitError(cmd, err)
			}
			if s.Algorithm == "" && shared.CanPrompt(noInteractive) {
				name, err := pickAlgorithm()
				if err != nil {
					return err
				}
				s.Algorithm = name
			}
			if err := shared.ValidateSession(s); err != nil {
				return emitError(cmd, err)
			}

			return Execute(cmd.Context(), s, opts, StreamsFor(cmd))
		},
	}

	session.Register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", false, "Open a debugger prompt at every pause")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Disable prompts, including the algorithm picker")
	cmd.Flags().BoolVar(&opts.Visualize, "visualize", false, "Draw the array as bars at every pause and at the end")
	cmd.Flags().BoolVar(&opts.Animate, "animate", false, "Draw the array after every step")
	cmd.Flags().Float64Var(&opts.Speed, "speed", DefaultSpeed, "Steps per second with --animate")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "Print Prometheus metrics to stderr when the run ends")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Store the run and its snapshots")
	cmd.Flags().StringVar(&opts.DB, "db", "", "Run database path (default: data directory; ':memory:' for none)")
	cmd.Flags().StringVar(&opts.OTLPEndpoint, "otlp-endpoint", "", "Export spans to an OTLP collector at HOST:PORT")
	cmd.Flags().StringVar(&opts.OTLPProtocol, "otlp-protocol", "grpc", "OTLP protocol: grpc or http")
	cmd.Flags().BoolVar(&opts.OTLPInsecure, "otlp-insecure", false, "Connect to the OTLP collector without TLS")
	_ = cmd.RegisterFlagCompletionFunc("position", completion.CompletePositionModes)
	_ = cmd.RegisterFlagCompletionFunc("otlp-protocol", completion.CompleteOTLPProtocols)

	return cmd
}
