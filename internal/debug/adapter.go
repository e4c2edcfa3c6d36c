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

package debug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/stepwise/internal/tracing"
	"github.com/tombee/stepwise/pkg/executor"
)

// PositionMode selects the key passed to ShouldPause for each step.
type PositionMode string

const (
	// PositionIndex uses the step ordinal.
	PositionIndex PositionMode = "index"

	// PositionKind uses the operation kind code (compare=1, swap=2,
	// assign=3, access=4, complete=5, error=6).
	PositionKind PositionMode = "kind"
)

// ParsePositionMode parses "index" or "kind". The empty string selects
// PositionIndex.
func ParsePositionMode(s string) (PositionMode, error) {
	switch PositionMode(s) {
	case "", PositionIndex:
		return PositionIndex, nil
	case PositionKind:
		return PositionKind, nil
	default:
		return "", fmt.Errorf("unknown position mode %q (want index or kind)", s)
	}
}

// PauseInfo describes a paused step.
type PauseInfo struct {
	Step     executor.ExecutionStep
	State    executor.State
	Position int

	// Breakpoint is the breakpoint that fired, or nil when single-stepping.
	Breakpoint *Breakpoint
}

// Pauser decides how to proceed from a paused step. It is called
// synchronously; the run does not advance until it returns.
type Pauser interface {
	Pause(ctx context.Context, info PauseInfo) (Command, error)
}

// PauserFunc adapts a function to Pauser.
type PauserFunc func(ctx context.Context, info PauseInfo) (Command, error)

// Pause implements Pauser.
func (f PauserFunc) Pause(ctx context.Context, info PauseInfo) (Command, error) {
	return f(ctx, info)
}

// RunRecorder receives run lifecycle metrics.
type RunRecorder interface {
	RecordRunStart(ctx context.Context, runID, algorithm string)
	RecordRunComplete(ctx context.Context, runID, algorithm, status string, duration time.Duration)
	RecordPause(ctx context.Context, command string)
}

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	// Position selects the ShouldPause key. Defaults to PositionIndex.
	Position PositionMode

	// Pauser handles pauses. Nil continues immediately.
	Pauser Pauser

	// OnStep is called for every step after the controller has seen it.
	OnStep func(step executor.ExecutionStep, state executor.State) error

	// RunID identifies the run in logs and spans.
	RunID string

	Logger   *slog.Logger
	Tracer   trace.Tracer
	Recorder RunRecorder
}

// Adapter drives an executor through a controller. It pulls one step at a
// time, feeds it to the controller, and hands pauses to its Pauser.
type Adapter struct {
	exec     *executor.Executor
	ctrl     *Controller
	position PositionMode
	pauser   Pauser
	onStep   func(executor.ExecutionStep, executor.State) error
	runID    string
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder RunRecorder

	// stepping is set by CommandNext and pauses the following step.
	stepping bool

	// aborted indicates execution was aborted by the pauser.
	aborted bool
}

// NewAdapter creates an adapter for a loaded executor.
func NewAdapter(exec *executor.Executor, ctrl *Controller, opts AdapterOptions) *Adapter {
	a := &Adapter{
		exec:     exec,
		ctrl:     ctrl,
		position: opts.Position,
		pauser:   opts.Pauser,
		onStep:   opts.OnStep,
		runID:    opts.RunID,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		recorder: opts.Recorder,
	}
	if a.position == "" {
		a.position = PositionIndex
	}
	if a.pauser == nil {
		a.pauser = PauserFunc(func(context.Context, PauseInfo) (Command, error) {
			return CommandContinue, nil
		})
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("github.com/tombee/stepwise/internal/debug")
	}
	return a
}

// Run drives the executor to completion. It returns context.Canceled when
// the pauser aborts, and stops between steps when ctx is done.
func (a *Adapter) Run(ctx context.Context) (state executor.State, err error) {
	algorithm := a.exec.State().Algorithm
	start := time.Now()

	ctx, span := tracing.StartRun(ctx, a.tracer, a.runID, algorithm)
	if a.recorder != nil {
		a.recorder.RecordRunStart(ctx, a.runID, algorithm)
	}
	defer func() {
		status := runStatus(state, err, a.aborted)
		if a.recorder != nil {
			a.recorder.RecordRunComplete(ctx, a.runID, algorithm, status, time.Since(start))
		}
		span.SetAttributes(map[string]any{
			"run.steps":       state.TotalSteps,
			"run.comparisons": state.Comparisons,
			"run.swaps":       state.Swaps,
			"run.status":      status,
		})
		span.End(err)
		a.logger.Info("run finished",
			slog.String("algorithm", algorithm),
			slog.String("status", status),
			slog.Int("steps", state.TotalSteps),
			slog.Duration("duration", time.Since(start)))
	}()

	var lastHit *BreakpointHit
	unsubscribe := Listen(a.ctrl.Bus(), func(e BreakpointHit) error {
		lastHit = &e
		return nil
	})
	defer unsubscribe()

	a.ctrl.PushCallFrame(algorithm, 0, map[string]any{"input": a.exec.State().Array})

	for {
		if err := ctx.Err(); err != nil {
			return a.exec.State(), err
		}

		step, st, err := a.exec.Step()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, err
		}

		if err := a.applyFrames(step.Frames); err != nil {
			return st, err
		}
		if err := a.ctrl.UpdateContext(step, step.Index, step.Variables); err != nil {
			return st, err
		}
		if a.onStep != nil {
			if err := a.onStep(step, st); err != nil {
				return st, err
			}
		}

		position := a.positionOf(step)
		lastHit = nil
		hit, err := a.ctrl.ShouldPause(position)
		if err != nil {
			return st, err
		}
		if !hit && !a.stepping {
			continue
		}

		info := PauseInfo{Step: step, State: st, Position: position}
		if lastHit != nil {
			bp := lastHit.Breakpoint
			info.Breakpoint = &bp
			span.AddEvent("breakpoint", map[string]any{
				"breakpoint.id":   bp.ID,
				"breakpoint.type": string(bp.Type),
				"step.index":      step.Index,
				"position":        position,
			})
		}

		cmd, err := a.pause(ctx, info)
		if err != nil {
			return st, err
		}
		switch cmd {
		case CommandNext:
			a.stepping = true
		case CommandAbort:
			a.aborted = true
			a.logger.Info("execution aborted", slog.Int("step_index", step.Index))
			return st, context.Canceled
		default:
			a.stepping = false
		}
	}

	if _, err := a.ctrl.PopCallFrame(); err != nil {
		return a.exec.State(), err
	}
	return a.exec.State(), nil
}

// pause hands a paused step to the pauser and waits for its decision.
func (a *Adapter) pause(ctx context.Context, info PauseInfo) (Command, error) {
	attrs := []any{slog.Int("step_index", info.Step.Index), slog.Int("position", info.Position)}
	if info.Breakpoint != nil {
		attrs = append(attrs, slog.Int("breakpoint_id", info.Breakpoint.ID))
	}
	a.logger.Debug("paused", attrs...)

	a.ctrl.Pause()
	cmd, err := a.pauser.Pause(ctx, info)
	a.ctrl.Resume()
	if err != nil {
		return "", err
	}
	if a.recorder != nil {
		a.recorder.RecordPause(ctx, string(cmd))
	}
	return cmd, nil
}

func (a *Adapter) applyFrames(frames []executor.FrameOp) error {
	for _, f := range frames {
		if f.Push {
			a.ctrl.PushCallFrame(f.Name, f.Line, f.Locals)
			continue
		}
		if _, err := a.ctrl.PopCallFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) positionOf(step executor.ExecutionStep) int {
	if a.position == PositionKind {
		return int(step.Kind)
	}
	return step.Index
}

// IsAborted returns true if execution was aborted.
func (a *Adapter) IsAborted() bool {
	return a.aborted
}

func runStatus(state executor.State, err error, aborted bool) string {
	switch {
	case aborted:
		return "aborted"
	case err != nil, state.Err != nil:
		return "failed"
	default:
		return "completed"
	}
}
