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

package watch

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tombee/stepwise/internal/commands/completion"
	"github.com/tombee/stepwise/internal/commands/run"
	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/config"
	"github.com/tombee/stepwise/internal/filewatcher"
)

// Options configures a watch loop.
type Options struct {
	// Run is passed to every run. Interactive prompts are never used.
	Run run.Options

	// Debounce is the quiet period after a write before re-running
	Debounce time.Duration
}

// NewCommand creates the watch command
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "watch <session-file>",
		Short: "Re-run a session file whenever it changes",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Watch runs a session file, then validates and runs it again every time
the file is saved. Validation errors are printed and watching continues,
so the file can be fixed in place.

Press Ctrl-C to stop.`,
		Example: `  # Example 1: Re-run a session on save
  stepwise watch session.yaml

  # Example 2: Draw bars at each pause and record every run
  stepwise watch session.yaml --visualize --record`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteSessionFiles,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Watch(ctx, args[0], opts, run.StreamsFor(cmd))
		},
	}

	cmd.Flags().BoolVar(&opts.Run.Visualize, "visualize", false, "Draw the array as bars at every pause and at the end")
	cmd.Flags().BoolVar(&opts.Run.Record, "record", false, "Store every run and its snapshots")
	cmd.Flags().StringVar(&opts.Run.DB, "db", "", "Run database path (default: data directory)")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", filewatcher.DefaultDebounceDelay, "Quiet period after a write before re-running")

	return cmd
}

// Watch runs the session at path once and again after every change
// until ctx is cancelled. Run failures are reported and do not stop the
// loop. Every run shares one session ID.
func Watch(ctx context.Context, path string, opts Options, streams run.Streams) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := shared.NewLogger(streams.Err, nil)
	w, err := filewatcher.New(path, filewatcher.Config{
		Logger:        logger,
		DebounceDelay: opts.Debounce,
	})
	if err != nil {
		return shared.NewNotFoundError("cannot watch session file", err)
	}
	defer w.Close()

	runOpts := opts.Run
	runOpts.Interactive = false
	runOpts.Animate = false
	if runOpts.SessionID == "" {
		runOpts.SessionID = uuid.NewString()
	}

	runs := 0
	once := func() {
		runs++
		if runs > 1 {
			fmt.Fprintln(streams.Out)
		}
		fmt.Fprintln(streams.Out, shared.RenderInfo(fmt.Sprintf("run %d: %s", runs, path)))
		if err := runFile(ctx, path, runOpts, streams); err != nil {
			shared.ReportError(streams.Err, err)
		}
	}

	once()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changes():
			once()
		}
	}
}

func runFile(ctx context.Context, path string, opts run.Options, streams run.Streams) error {
	s, err := config.Load(path)
	if err != nil {
		return shared.NewInvalidSessionError("invalid session", err)
	}
	return run.Execute(ctx, s, opts, streams)
}
