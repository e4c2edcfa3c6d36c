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

package executor

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
)

const tracerName = "github.com/tombee/stepwise/pkg/executor"

// Func is an algorithm body. It performs its work through ops and returns
// an error to fail the run.
type Func func(ops *Ops) error

// Algorithm is a named algorithm body.
type Algorithm struct {
	// Name identifies the algorithm in logs, errors, and the registry.
	Name string `json:"name"`

	// Description is a one-line summary.
	Description string `json:"description,omitempty"`

	// Locals lists the local variables the body tracks, in addition to
	// the standard variables every step carries.
	Locals []string `json:"locals,omitempty"`

	// Body is the algorithm itself.
	Body Func `json:"-"`
}

// Config holds executor settings.
type Config struct {
	// MaxSteps caps the number of steps a run may produce. Zero means
	// unlimited.
	MaxSteps int `yaml:"max_steps" json:"max_steps"`

	// BreakOnError makes a body failure end the sequence with an error.
	// When false the failure is captured in State.Err and the sequence
	// ends with a single error-status step.
	BreakOnError bool `yaml:"break_on_error" json:"break_on_error"`
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{BreakOnError: true}
}

// StepRecorder receives one call per step produced.
type StepRecorder interface {
	RecordStep(ctx context.Context, algorithm string, kind string)
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfig sets the executor configuration.
func WithConfig(cfg Config) Option {
	return func(e *Executor) { e.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets a step recorder, typically a metrics collector.
func WithRecorder(rec StepRecorder) Option {
	return func(e *Executor) { e.recorder = rec }
}

// WithTracer sets the tracer used by Execute.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// State is a point-in-time view of a run.
type State struct {
	Algorithm   string `json:"algorithm"`
	Array       []int  `json:"array"`
	Step        int    `json:"step"`
	TotalSteps  int    `json:"totalSteps"`
	Comparisons int    `json:"comparisons"`
	Swaps       int    `json:"swaps"`
	Accesses    int    `json:"accesses"`
	Done        bool   `json:"done"`
	Err         error  `json:"-"`
}

// Executor produces the steps of one algorithm over one input.
type Executor struct {
	cfg      Config
	logger   *slog.Logger
	recorder StepRecorder
	tracer   trace.Tracer

	algo   Algorithm
	input  []int
	loaded bool

	run   *run
	next  func() (ExecutionStep, error, bool)
	stop  func()
	last  int
	final bool
	ended bool
	fatal error
}

// New creates an executor with no algorithm loaded.
func New(opts ...Option) *Executor {
	e := &Executor{
		cfg:    DefaultConfig(),
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),
		last:   -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the executor configuration.
func (e *Executor) Config() Config {
	return e.cfg
}

// Load validates input and prepares algo to run over a copy of it.
// Any run in progress is discarded.
func (e *Executor) Load(algo Algorithm, input any) error {
	if algo.Body == nil {
		return &stepwiseerrors.ValidationError{
			Field:   "algorithm",
			Message: "algorithm has no body",
		}
	}
	arr, err := Normalize(input)
	if err != nil {
		return err
	}

	e.algo = algo
	e.input = arr
	e.loaded = true
	e.Reset()

	e.logger.Debug("algorithm loaded",
		slog.String("algorithm", algo.Name),
		slog.Int("size", len(arr)),
		slog.Int("max_steps", e.cfg.MaxSteps))
	return nil
}

// Reset restarts the loaded algorithm from the original input. The steps
// produced after Reset are identical to those of the first run.
func (e *Executor) Reset() {
	e.Close()
	e.last = -1
	e.final = false
	e.ended = false
	e.fatal = nil
	if !e.loaded {
		return
	}
	e.run = newRun(e.algo.Name, e.input, e.cfg.MaxSteps)
	e.next, e.stop = iter.Pull2(e.run.sequence(e.algo.Body, e.cfg.BreakOnError))
}

// Close releases the suspended body. Step fails after Close until Reset
// or Load is called.
func (e *Executor) Close() {
	if e.stop != nil {
		e.stop()
	}
	e.next, e.stop = nil, nil
}

// Step advances exactly one logical operation. It returns io.EOF once the
// final step has been produced.
func (e *Executor) Step() (ExecutionStep, State, error) {
	if !e.loaded {
		return ExecutionStep{}, e.State(), &stepwiseerrors.StateError{Operation: "step", Reason: "no algorithm loaded"}
	}
	if e.fatal != nil {
		return ExecutionStep{}, e.State(), e.fatal
	}
	if e.ended {
		return ExecutionStep{}, e.State(), io.EOF
	}
	if e.next == nil {
		return ExecutionStep{}, e.State(), &stepwiseerrors.StateError{Operation: "step", Reason: "executor is closed"}
	}

	step, err, ok := e.next()
	if !ok {
		e.ended = true
		e.Close()
		return ExecutionStep{}, e.State(), io.EOF
	}
	if err != nil {
		e.fatal = err
		e.Close()
		e.logger.Debug("run failed", slog.String("algorithm", e.algo.Name), slog.Any("error", err))
		return ExecutionStep{}, e.State(), err
	}

	e.last = step.Index
	if step.Kind == OpComplete || step.Kind == OpError {
		e.final = true
	}
	if e.recorder != nil {
		e.recorder.RecordStep(context.Background(), e.algo.Name, step.Kind.String())
	}
	return step, e.State(), nil
}

// Steps returns the remaining steps as a sequence. Iteration ends after the
// final step or after the first error.
func (e *Executor) Steps() iter.Seq2[ExecutionStep, error] {
	return func(yield func(ExecutionStep, error) bool) {
		for {
			step, _, err := e.Step()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(step, err) || err != nil {
				return
			}
		}
	}
}

// Execute loads algo over input and runs it to completion.
func (e *Executor) Execute(ctx context.Context, algo Algorithm, input any) (State, error) {
	ctx, span := e.tracer.Start(ctx, "executor.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("algorithm.name", algo.Name)),
	)
	defer span.End()

	fail := func(err error) (State, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return e.State(), err
	}

	if err := e.Load(algo, input); err != nil {
		return fail(err)
	}
	for {
		if err := ctx.Err(); err != nil {
			e.Close()
			return fail(err)
		}
		_, _, err := e.Step()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
	}

	state := e.State()
	span.SetAttributes(
		attribute.Int("algorithm.steps", state.TotalSteps),
		attribute.Int("algorithm.comparisons", state.Comparisons),
		attribute.Int("algorithm.swaps", state.Swaps),
	)
	if state.Err != nil {
		span.SetStatus(codes.Error, state.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return state, nil
}

// State returns a snapshot of the current run.
func (e *Executor) State() State {
	state := State{Algorithm: e.algo.Name, Step: e.last}
	if e.run == nil {
		return state
	}
	state.Array = slices.Clone(e.run.array)
	state.TotalSteps = e.last + 1
	state.Comparisons = e.run.comparisons
	state.Swaps = e.run.swaps
	state.Accesses = e.run.accesses
	state.Done = e.final || e.fatal != nil
	state.Err = e.fatal
	if state.Err == nil {
		state.Err = e.run.err
	}
	return state
}

// sequence runs body to completion, yielding one step per operation and a
// final completion or error step.
func (r *run) sequence(body Func, breakOnError bool) iter.Seq2[ExecutionStep, error] {
	return func(yield func(ExecutionStep, error) bool) {
		r.yield = yield
		err := r.guard(func() error { return body(&Ops{r: r}) })

		switch {
		case err == nil:
			err = r.guard(func() error {
				r.emit(OpComplete, StatusCompleted, "Completed")
				return nil
			})
		case isFatal(err):
		case breakOnError:
			err = r.wrap(err)
		default:
			r.err = r.wrap(err)
			err = r.guard(func() error {
				r.emit(OpError, StatusError, "Failed: "+r.err.Error())
				return nil
			})
		}

		if err != nil && !errors.Is(err, errStopped) {
			yield(ExecutionStep{}, err)
		}
	}
}

func (r *run) wrap(err error) error {
	return &stepwiseerrors.ExecutionError{Algorithm: r.name, Step: r.produced, Cause: err}
}

func isFatal(err error) bool {
	var validation *stepwiseerrors.ValidationError
	var limit *stepwiseerrors.LimitExceededError
	return errors.Is(err, errStopped) || errors.As(err, &validation) || errors.As(err, &limit)
}
