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

// Package runner executes one debugging session end to end. It builds the
// executor, controller, and driver for a session, wires telemetry and run
// history around them, and reports the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/stepwise/internal/config"
	"github.com/tombee/stepwise/internal/debug"
	"github.com/tombee/stepwise/internal/log"
	"github.com/tombee/stepwise/internal/store"
	"github.com/tombee/stepwise/internal/tracing"
	"github.com/tombee/stepwise/pkg/executor"
	"github.com/tombee/stepwise/pkg/expression"
)

// Options configures a session run.
type Options struct {
	// RunID identifies the run. A UUID is generated when empty.
	RunID string

	// SessionID groups runs started by one process.
	SessionID string

	// Pauser handles pauses. Nil continues immediately.
	Pauser debug.Pauser

	// NewPauser builds the pauser from the session's controller, for
	// pausers such as the interactive shell that inspect it. It takes
	// precedence over Pauser.
	NewPauser func(ctrl *debug.Controller) debug.Pauser

	// OnStep is called for every step after the controller has seen it.
	OnStep func(step executor.ExecutionStep, state executor.State) error

	// Events receives one line per logpoint message, watch change, and
	// breakpoint hit. Nil discards them.
	Events io.Writer

	Logger    *slog.Logger
	Telemetry *tracing.Provider

	// Store records the run and its snapshots when set.
	Store store.Backend

	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// Result is the outcome of a session run.
type Result struct {
	RunID     string
	Algorithm string
	Input     []int
	State     executor.State
	Status    string
	Err       error
	Pauses    int
	Logs      []string
	Snapshots []debug.Snapshot
	Duration  time.Duration
}

// Run executes the session. Setup failures return a nil Result. Once the
// run has started the Result is always returned, and the error is the
// run's own failure, if any.
func Run(ctx context.Context, s *config.Session, opts Options) (*Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	algo, err := executor.Lookup(s.Algorithm)
	if err != nil {
		return nil, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = log.WithRunContext(logger, runID, algo.Name)
	if opts.SessionID != "" {
		logger = log.WithSession(logger, opts.SessionID)
	}

	execOpts := []executor.Option{
		executor.WithConfig(s.Executor),
		executor.WithLogger(log.WithComponent(logger, "executor")),
	}
	ctrlOpts := []debug.ControllerOption{
		debug.WithLogger(log.WithComponent(logger, "controller")),
		debug.WithEvaluator(expression.New()),
		debug.WithClock(now),
	}
	adapterOpts := debug.AdapterOptions{
		Position: s.PositionMode(),
		OnStep:   opts.OnStep,
		RunID:    runID,
		Logger:   log.WithComponent(logger, "driver"),
	}
	if opts.Telemetry != nil {
		metrics := opts.Telemetry.Metrics()
		tracer := opts.Telemetry.Tracer("runner")
		execOpts = append(execOpts, executor.WithRecorder(metrics), executor.WithTracer(tracer))
		ctrlOpts = append(ctrlOpts, debug.WithRecorder(metrics))
		adapterOpts.Tracer = tracer
		adapterOpts.Recorder = metrics
	}

	exec := executor.New(execOpts...)
	if err := exec.Load(algo, s.Input); err != nil {
		return nil, err
	}
	defer exec.Close()

	ctrl := debug.NewController(s.Debug.Options, ctrlOpts...)
	defer ctrl.Dispose()
	if err := s.Install(ctrl); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Algorithm: algo.Name,
		Input:     exec.State().Array,
	}

	var events io.Writer = io.Discard
	if opts.Events != nil {
		events = opts.Events
	}
	defer subscribe(ctrl, events, result)()

	pauser := opts.Pauser
	if opts.NewPauser != nil {
		pauser = opts.NewPauser(ctrl)
	}
	adapterOpts.Pauser = debug.PauserFunc(func(ctx context.Context, info debug.PauseInfo) (debug.Command, error) {
		result.Pauses++
		if pauser == nil {
			return debug.CommandContinue, nil
		}
		return pauser.Pause(ctx, info)
	})

	started := now()
	var rec *store.Run
	if opts.Store != nil {
		rec = store.NewRun(runID, opts.SessionID, algo.Name, result.Input, started)
		if err := opts.Store.CreateRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}

	adapter := debug.NewAdapter(exec, ctrl, adapterOpts)
	state, runErr := adapter.Run(ctx)

	result.State = state
	result.Err = runErr
	result.Status = Status(state, runErr, adapter.IsAborted())
	result.Snapshots = ctrl.Snapshots()
	result.Duration = now().Sub(started)

	if rec != nil {
		if err := persist(opts.Store, rec, result, now()); err != nil {
			logger.Warn("failed to save run", log.Error(err))
			return result, errors.Join(runErr, err)
		}
	}
	return result, runErr
}

// Status classifies the outcome of a run.
func Status(state executor.State, err error, aborted bool) string {
	switch {
	case aborted, errors.Is(err, context.Canceled):
		return store.StatusAborted
	case err != nil, state.Err != nil:
		return store.StatusFailed
	default:
		return store.StatusCompleted
	}
}

// persist stores the final run state and snapshots. It uses a fresh
// context so an interrupted run is still recorded.
func persist(backend store.Backend, rec *store.Run, result *Result, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec.Finish(result.State, result.Status, result.Err, result.Pauses, at)
	if err := backend.UpdateRun(ctx, rec); err != nil {
		return err
	}
	if len(result.Snapshots) == 0 {
		return nil
	}
	return backend.SaveSnapshots(ctx, rec.ID, store.FromDebug(rec.ID, result.Snapshots))
}

func subscribe(ctrl *debug.Controller, w io.Writer, result *Result) func() {
	unsubs := []func(){
		debug.Listen(ctrl.Bus(), func(e debug.LogpointHit) error {
			result.Logs = append(result.Logs, e.Message)
			_, err := fmt.Fprintf(w, "[log] step %d: %s\n", e.Position, e.Message)
			return err
		}),
		debug.Listen(ctrl.Bus(), func(e debug.WatchTriggered) error {
			_, err := fmt.Fprintf(w, "[watch] %s: %s -> %s\n",
				e.Watch.Expression, expression.Render(e.OldValue), expression.Render(e.NewValue))
			return err
		}),
		debug.Listen(ctrl.Bus(), func(e debug.BreakpointHit) error {
			_, err := fmt.Fprintf(w, "[break] %s at step %d\n", e.Breakpoint.String(), e.Context.StepIndex)
			return err
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
