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
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	stepwiseerrors "github.com/tombee/stepwise/pkg/errors"
	"github.com/tombee/stepwise/pkg/executor"
	"github.com/tombee/stepwise/pkg/expression"
)

// Recorder receives controller activity, typically a metrics collector.
type Recorder interface {
	RecordBreakpointHit(ctx context.Context, breakpointType string)
	RecordWatchTrigger(ctx context.Context)
	RecordLogpoint(ctx context.Context)
	RecordSnapshot(ctx context.Context)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEvaluator shares an expression evaluator, and its program cache,
// between controllers.
func WithEvaluator(eval *expression.Evaluator) ControllerOption {
	return func(c *Controller) {
		if eval != nil {
			c.eval = eval
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(rec Recorder) ControllerOption {
	return func(c *Controller) { c.recorder = rec }
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the breakpoints, watches, logpoints, call stack, and
// snapshot history of one debugging session. It is driven entirely by
// its caller and is not safe for concurrent use.
type Controller struct {
	opts     Options
	logger   *slog.Logger
	eval     *expression.Evaluator
	recorder Recorder
	now      func() time.Time
	bus      *Bus

	nextID      int
	breakpoints []*Breakpoint
	logpoints   []*Logpoint
	watches     []*Watch

	ctx       Context
	bindings  map[string]any
	stack     []CallFrame
	snapshots *ring
	paused    bool
	disposed  bool
}

// NewController creates a controller. Zero sizes in opts are replaced by
// their defaults.
func NewController(opts Options, options ...ControllerOption) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		opts:      opts,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		bus:       NewBus(),
		bindings:  map[string]any{},
		snapshots: newRing(opts.MaxSnapshots),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.eval == nil {
		c.eval = expression.New()
	}
	return c
}

// Options returns the effective options.
func (c *Controller) Options() Options {
	return c.opts
}

func (c *Controller) allocID() int {
	c.nextID++
	return c.nextID
}

// AddLineBreakpoint pauses whenever ShouldPause is called with at.
func (c *Controller) AddLineBreakpoint(at int) int {
	if c.disposed {
		return 0
	}
	bp := &Breakpoint{ID: c.allocID(), Type: BreakpointLine, At: at}
	c.breakpoints = append(c.breakpoints, bp)
	c.logger.Debug("breakpoint added", slog.Int("breakpoint_id", bp.ID), slog.String("type", string(bp.Type)), slog.Int("at", at))
	return bp.ID
}

// AddConditionalBreakpoint pauses whenever expr is truthy against the live
// context. An expression that fails to compile never fires.
func (c *Controller) AddConditionalBreakpoint(expr string) int {
	if c.disposed {
		return 0
	}
	if err := c.eval.Validate(expr); err != nil {
		c.logger.Warn("conditional breakpoint will never fire", slog.String("expression", expr), slog.Any("error", err))
	}
	bp := &Breakpoint{ID: c.allocID(), Type: BreakpointConditional, Expression: expr}
	c.breakpoints = append(c.breakpoints, bp)
	c.logger.Debug("breakpoint added", slog.Int("breakpoint_id", bp.ID), slog.String("type", string(bp.Type)), slog.String("expression", expr))
	return bp.ID
}

// AddHitCountBreakpoint pauses at position at according to mode once it
// has been reached count times.
func (c *Controller) AddHitCountBreakpoint(at, count int, mode HitMode) (int, error) {
	if count <= 0 {
		return 0, &stepwiseerrors.ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("hit count must be positive, got %d", count),
		}
	}
	mode, err := ParseHitMode(string(mode))
	if err != nil {
		return 0, err
	}
	if c.disposed {
		return 0, nil
	}
	bp := &Breakpoint{ID: c.allocID(), Type: BreakpointHitCount, At: at, Count: count, Mode: mode}
	c.breakpoints = append(c.breakpoints, bp)
	c.logger.Debug("breakpoint added", slog.Int("breakpoint_id", bp.ID), slog.String("type", string(bp.Type)), slog.Int("at", at), slog.Int("count", count), slog.String("mode", string(mode)))
	return bp.ID, nil
}

// AddLogpoint emits a formatted message whenever ShouldPause is called with
// at and no breakpoint matches.
func (c *Controller) AddLogpoint(at int, template string) int {
	if c.disposed {
		return 0
	}
	lp := &Logpoint{ID: c.allocID(), At: at, Template: template}
	c.logpoints = append(c.logpoints, lp)
	return lp.ID
}

// RemoveBreakpoint removes the breakpoint or logpoint with the given id.
func (c *Controller) RemoveBreakpoint(id int) bool {
	if i := slices.IndexFunc(c.breakpoints, func(bp *Breakpoint) bool { return bp.ID == id }); i >= 0 {
		c.breakpoints = slices.Delete(c.breakpoints, i, i+1)
		return true
	}
	if i := slices.IndexFunc(c.logpoints, func(lp *Logpoint) bool { return lp.ID == id }); i >= 0 {
		c.logpoints = slices.Delete(c.logpoints, i, i+1)
		return true
	}
	return false
}

// Breakpoints returns copies of the registered breakpoints in creation order.
func (c *Controller) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(c.breakpoints))
	for i, bp := range c.breakpoints {
		out[i] = *bp
	}
	return out
}

// Logpoints returns copies of the registered logpoints in creation order.
func (c *Controller) Logpoints() []Logpoint {
	out := make([]Logpoint, len(c.logpoints))
	for i, lp := range c.logpoints {
		out[i] = *lp
	}
	return out
}

// AddWatch registers a watch expression.
func (c *Controller) AddWatch(expr string, notifyOnChange bool) int {
	if c.disposed {
		return 0
	}
	w := &Watch{ID: c.allocID(), Expression: expr, NotifyOnChange: notifyOnChange}
	c.watches = append(c.watches, w)
	return w.ID
}

// RemoveWatch removes the watch with the given id.
func (c *Controller) RemoveWatch(id int) bool {
	i := slices.IndexFunc(c.watches, func(w *Watch) bool { return w.ID == id })
	if i < 0 {
		return false
	}
	c.watches = slices.Delete(c.watches, i, i+1)
	return true
}

// Watches returns copies of the registered watches in creation order.
func (c *Controller) Watches() []Watch {
	out := make([]Watch, len(c.watches))
	for i, w := range c.watches {
		out[i] = w.copy()
	}
	return out
}

// UpdateContext makes step the live context and re-evaluates every watch.
// A watch whose value changed records the new value and, when it notifies
// on change, emits WatchTriggered. The first handler error is returned.
func (c *Controller) UpdateContext(step executor.ExecutionStep, stepIndex int, variables map[string]any) error {
	if c.disposed {
		return nil
	}

	c.ctx = Context{Step: step, StepIndex: stepIndex, Variables: variables}
	c.bindings = expression.BuildContext(variables, map[string]any{
		expression.StepIndexKey:   stepIndex,
		expression.DescriptionKey: step.Description,
		expression.StatusKey:      string(step.Status),
		expression.AffectedKey:    step.AffectedNodes,
	})

	for _, w := range c.watches {
		value, err := c.eval.Evaluate(w.Expression, c.bindings)
		if err != nil {
			c.logger.Debug("watch unevaluable", slog.Int("watch_id", w.ID), slog.String("expression", w.Expression), slog.Any("error", err))
			continue
		}
		if w.HasValue && expression.Equal(w.LastValue, value) {
			continue
		}

		old := w.LastValue
		w.LastValue = deepCopy(value)
		w.HasValue = true

		if !w.NotifyOnChange {
			continue
		}
		if c.recorder != nil {
			c.recorder.RecordWatchTrigger(context.Background())
		}
		if err := c.bus.Emit(WatchTriggered{Watch: w.copy(), OldValue: old, NewValue: deepCopy(value)}); err != nil {
			return err
		}
	}

	if c.opts.AutoSnapshot && stepIndex%c.opts.SnapshotInterval == 0 {
		c.CaptureSnapshot()
	}
	return nil
}

// ShouldPause reports whether execution should pause at position. Line
// breakpoints are checked first, then conditional breakpoints, then
// hit-count breakpoints. Every hit-count breakpoint at position counts the
// call even when an earlier breakpoint already matched. When nothing
// matches, logpoints at position emit their messages.
func (c *Controller) ShouldPause(position int) (bool, error) {
	if c.disposed {
		return false, nil
	}

	var hit *Breakpoint
	for _, bp := range c.breakpoints {
		if bp.Type == BreakpointLine && bp.At == position {
			hit = bp
			break
		}
	}
	if hit == nil {
		for _, bp := range c.breakpoints {
			if bp.Type != BreakpointConditional {
				continue
			}
			ok, err := c.eval.EvaluateBool(bp.Expression, c.bindings)
			if err != nil {
				c.logger.Debug("condition unevaluable", slog.Int("breakpoint_id", bp.ID), slog.String("expression", bp.Expression), slog.Any("error", err))
				continue
			}
			if ok {
				hit = bp
				break
			}
		}
	}
	for _, bp := range c.breakpoints {
		if bp.Type != BreakpointHitCount || bp.At != position {
			continue
		}
		bp.Hits++
		if hit == nil && bp.Mode.matches(bp.Hits, bp.Count) {
			hit = bp
		}
	}

	if hit != nil {
		c.paused = true
		c.logger.Debug("breakpoint hit", slog.Int("breakpoint_id", hit.ID), slog.Int("position", position), slog.Int("step_index", c.ctx.StepIndex))
		if c.recorder != nil {
			c.recorder.RecordBreakpointHit(context.Background(), string(hit.Type))
		}
		return true, c.bus.Emit(BreakpointHit{
			Context:    c.Context(),
			Breakpoint: *hit,
			Position:   position,
			Timestamp:  c.now(),
		})
	}

	for _, lp := range c.logpoints {
		if lp.At != position {
			continue
		}
		msg, err := c.eval.Format(lp.Template, c.bindings)
		if err != nil {
			c.logger.Debug("logpoint template incomplete", slog.Int("logpoint_id", lp.ID), slog.Any("error", err))
		}
		if c.recorder != nil {
			c.recorder.RecordLogpoint(context.Background())
		}
		if err := c.bus.Emit(LogpointHit{Logpoint: *lp, Message: msg, Position: position}); err != nil {
			return false, err
		}
	}
	return false, nil
}

// PushCallFrame pushes a logical call frame. locals are deep-copied.
func (c *Controller) PushCallFrame(name string, line int, locals map[string]any) {
	if c.disposed || !c.opts.CallStackEnabled() {
		return
	}
	c.stack = append(c.stack, CallFrame{Name: name, Line: line, Locals: deepCopyMap(locals)})
}

// PopCallFrame pops the innermost call frame. Popping an empty stack is a
// *errors.StateError.
func (c *Controller) PopCallFrame() (CallFrame, error) {
	if c.disposed || !c.opts.CallStackEnabled() {
		return CallFrame{}, nil
	}
	if len(c.stack) == 0 {
		return CallFrame{}, &stepwiseerrors.StateError{Operation: "PopCallFrame", Reason: "call stack is empty"}
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return top, nil
}

// CallStack returns a copy of the call stack, outermost frame first.
func (c *Controller) CallStack() []CallFrame {
	return copyFrames(c.stack)
}

// CaptureSnapshot records a deep copy of the live context. The oldest
// snapshot is evicted once MaxSnapshots are held.
func (c *Controller) CaptureSnapshot() Snapshot {
	if c.disposed {
		return Snapshot{}
	}
	s := Snapshot{
		StepIndex: c.ctx.StepIndex,
		Variables: deepCopyMap(c.ctx.Variables),
		Stack:     copyFrames(c.stack),
		Timestamp: c.now(),
	}
	c.snapshots.push(s)
	if c.recorder != nil {
		c.recorder.RecordSnapshot(context.Background())
	}
	return s.copy()
}

// Snapshots returns copies of the retained snapshots, oldest first.
func (c *Controller) Snapshots() []Snapshot {
	return c.snapshots.items()
}

// SnapshotCount returns the number of retained snapshots.
func (c *Controller) SnapshotCount() int {
	return c.snapshots.len()
}

// RestoreSnapshot returns a copy of the i-th retained snapshot, oldest
// first. The live context is not changed.
func (c *Controller) RestoreSnapshot(i int) (Snapshot, error) {
	s, ok := c.snapshots.at(i)
	if !ok {
		return Snapshot{}, &stepwiseerrors.NotFoundError{Resource: "snapshot", ID: strconv.Itoa(i)}
	}
	return s.copy(), nil
}

// Context returns a copy of the live context.
func (c *Controller) Context() Context {
	out := c.ctx
	out.Variables = deepCopyMap(c.ctx.Variables)
	return out
}

// Bindings returns the expression bindings of the live context: the step
// variables plus stepIndex, description, status, and affected.
func (c *Controller) Bindings() map[string]any {
	return deepCopyMap(c.bindings)
}

// Pause marks the controller paused for inspection.
func (c *Controller) Pause() {
	if !c.disposed {
		c.paused = true
	}
}

// Resume clears the paused mark.
func (c *Controller) Resume() {
	c.paused = false
}

// IsPaused reports whether the controller is paused.
func (c *Controller) IsPaused() bool {
	return c.paused
}

// EvaluateExpression evaluates expr against the live context.
func (c *Controller) EvaluateExpression(expr string) (any, error) {
	if c.disposed {
		return nil, &stepwiseerrors.StateError{Operation: "EvaluateExpression", Reason: "controller is disposed"}
	}
	return c.eval.Evaluate(expr, c.bindings)
}

// On subscribes h to events of kind.
func (c *Controller) On(kind EventKind, h Handler) func() {
	if c.disposed {
		return func() {}
	}
	return c.bus.On(kind, h)
}

// Bus returns the controller's event bus.
func (c *Controller) Bus() *Bus {
	return c.bus
}

// Dispose clears all state and subscribers. It is safe to call more than
// once, and every other method remains safe to call afterwards.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.breakpoints = nil
	c.logpoints = nil
	c.watches = nil
	c.stack = nil
	c.snapshots.reset()
	c.bus.Clear()
	c.ctx = Context{}
	c.bindings = map[string]any{}
	c.paused = false
	c.logger.Debug("controller disposed")
}

// IsDisposed reports whether Dispose has been called.
func (c *Controller) IsDisposed() bool {
	return c.disposed
}
