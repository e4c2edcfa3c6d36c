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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tombee/stepwise/internal/cli/render"
	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/config"
	"github.com/tombee/stepwise/internal/debug"
	"github.com/tombee/stepwise/internal/log"
	"github.com/tombee/stepwise/internal/runner"
	"github.com/tombee/stepwise/internal/store"
	"github.com/tombee/stepwise/internal/tracing"
	pkgerrors "github.com/tombee/stepwise/pkg/errors"
	"github.com/tombee/stepwise/pkg/executor"
)

// DefaultSpeed is the --animate rate in steps per second.
const DefaultSpeed = 10

// Options are the run flags that are not part of the session.
type Options struct {
	Interactive bool
	Visualize   bool
	Animate     bool
	Speed       float64
	Metrics     bool
	Trace       bool
	Record      bool
	DB          string

	OTLPEndpoint string
	OTLPProtocol string
	OTLPInsecure bool

	// SessionID groups runs started by one process, such as the runs of
	// one watch command.
	SessionID string
}

// Streams are the readers and writers a run talks to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StreamsFor returns the streams of cmd.
func StreamsFor(cmd *cobra.Command) Streams {
	return Streams{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
}

// Execute runs a validated session and prints the outcome. Interrupts
// cancel the run; an interrupted run is still recorded.
func Execute(ctx context.Context, s *config.Session, opts Options, streams Streams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Animate && opts.Speed <= 0 {
		return emitErrorTo(streams.Out, shared.NewInvalidSessionError(
			"invalid --speed", fmt.Errorf("must be positive, got %g", opts.Speed)))
	}

	logger := shared.NewLogger(streams.Err, s.Logging())
	jsonMode := shared.GetJSON()

	telemetry, err := newTelemetry(ctx, opts, streams.Err)
	if err != nil {
		return emitErrorTo(streams.Out, shared.NewExecutionError("failed to start telemetry", err))
	}
	if telemetry != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush telemetry", log.Error(err))
			}
		}()
	}

	var backend store.Backend
	if opts.Record {
		backend, err = shared.OpenStore(opts.DB)
		if err != nil {
			return emitErrorTo(streams.Out, shared.NewExecutionError("failed to open run store", err))
		}
		defer backend.Close()
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ropts := runner.Options{
		SessionID: sessionID,
		Logger:    logger,
		Telemetry: telemetry,
		Store:     backend,
	}
	if !jsonMode && !shared.GetQuiet() {
		ropts.Events = streams.Out
	}

	var bars *render.Renderer
	if (opts.Visualize || opts.Animate) && !jsonMode {
		bars = render.NewRenderer()
	}
	ropts.NewPauser = newPauser(opts, streams, bars)
	if opts.Animate && bars != nil {
		ropts.OnStep = animate(ctx, streams.Out, bars, opts.Speed)
	}

	result, runErr := runner.Run(ctx, s, ropts)
	if result == nil {
		return emitErrorTo(streams.Out, setupError(runErr))
	}

	if opts.Metrics && telemetry != nil {
		if err := telemetry.WriteMetrics(streams.Err); err != nil {
			logger.Warn("failed to write metrics", log.Error(err))
		}
	}

	exitErr := runError(result, runErr)
	if jsonMode {
		if err := shared.EmitJSON(streams.Out, newResponse(result, opts.Record, exitErr)); err != nil {
			return err
		}
		if exitErr != nil {
			return &shared.ExitError{Code: exitErr.Code}
		}
		return nil
	}

	printResult(streams.Out, result, bars, opts.Record)
	if exitErr != nil {
		return exitErr
	}
	return nil
}

// newTelemetry builds a provider when any telemetry flag is set.
func newTelemetry(ctx context.Context, opts Options, errOut io.Writer) (*tracing.Provider, error) {
	if !opts.Metrics && !opts.Trace && opts.OTLPEndpoint == "" {
		return nil, nil
	}

	version, _, _ := shared.GetVersion()
	cfg := tracing.Config{ServiceVersion: version, PrettyPrint: true}
	if opts.Trace {
		cfg.TraceWriter = errOut
	}
	if opts.OTLPEndpoint != "" {
		cfg.OTLP = &tracing.OTLPConfig{
			Endpoint: opts.OTLPEndpoint,
			Protocol: opts.OTLPProtocol,
			Insecure: opts.OTLPInsecure,
		}
	}
	return tracing.NewProvider(cfg)
}

// newPauser picks how pauses are handled. The interactive shell reads
// commands from the input stream; otherwise the run continues, after
// drawing the paused array when visualizing.
func newPauser(opts Options, streams Streams, bars *render.Renderer) func(*debug.Controller) debug.Pauser {
	return func(ctrl *debug.Controller) debug.Pauser {
		var next debug.Pauser
		if opts.Interactive {
			next = debug.NewShell(ctrl, streams.In, streams.Out)
		}
		if !opts.Visualize || bars == nil {
			return next
		}
		return debug.PauserFunc(func(ctx context.Context, info debug.PauseInfo) (debug.Command, error) {
			fmt.Fprintln(streams.Out, shared.RenderPaused(pauseBanner(info)))
			fmt.Fprint(streams.Out, bars.RenderArray(info.Step.Array(), info.Step.AffectedNodes))
			if next == nil {
				return debug.CommandContinue, nil
			}
			return next.Pause(ctx, info)
		})
	}
}

func pauseBanner(info debug.PauseInfo) string {
	if info.Breakpoint != nil {
		return fmt.Sprintf("paused at step %d on %s", info.Step.Index, info.Breakpoint.String())
	}
	return fmt.Sprintf("paused at step %d", info.Step.Index)
}

// animate draws every step, limited to speed steps per second.
func animate(ctx context.Context, w io.Writer, bars *render.Renderer, speed float64) func(executor.ExecutionStep, executor.State) error {
	limiter := rate.NewLimiter(rate.Limit(speed), 1)
	return func(step executor.ExecutionStep, _ executor.State) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprint(w, bars.RenderStep(step))
		return err
	}
}

// setupError maps a failure before the first step to an exit error.
func setupError(err error) *shared.ExitError {
	var exitErr *shared.ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var valErr *pkgerrors.ValidationError
	if errors.As(err, &valErr) {
		return shared.NewInvalidSessionError("invalid session", err)
	}
	switch shared.ExitCode(err) {
	case shared.ExitNotFound:
		return shared.NewNotFoundError("algorithm not found", err)
	case shared.ExitInvalidSession:
		return shared.NewInvalidSessionError("invalid session", err)
	}
	return shared.NewExecutionError("failed to start run", err)
}

// runError maps the outcome of a started run to an exit error, or nil
// when the run completed.
func runError(result *runner.Result, err error) *shared.ExitError {
	switch result.Status {
	case store.StatusCompleted:
		if err != nil {
			return shared.NewExecutionError("run completed but was not saved", err)
		}
		return nil
	case store.StatusAborted:
		if err == nil {
			err = context.Canceled
		}
		return shared.NewInterruptedError("run aborted", err)
	}
	if err == nil {
		err = result.State.Err
	}
	return shared.NewExecutionError("run failed", err)
}
