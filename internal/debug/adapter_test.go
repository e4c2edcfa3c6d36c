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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/stepwise/pkg/executor"
)

func loadExecutor(t *testing.T, name string, input []int) *executor.Executor {
	t.Helper()
	algo, err := executor.Lookup(name)
	require.NoError(t, err)
	exec := executor.New()
	require.NoError(t, exec.Load(algo, input))
	t.Cleanup(exec.Close)
	return exec
}

// script returns a pauser that replays cmds and records the paused steps.
func script(paused *[]int, cmds ...Command) Pauser {
	return PauserFunc(func(_ context.Context, info PauseInfo) (Command, error) {
		*paused = append(*paused, info.Step.Index)
		if len(cmds) == 0 {
			return CommandContinue, nil
		}
		cmd := cmds[0]
		cmds = cmds[1:]
		return cmd, nil
	})
}

func TestParsePositionMode(t *testing.T) {
	for in, want := range map[string]PositionMode{"": PositionIndex, "index": PositionIndex, "kind": PositionKind} {
		got, err := ParsePositionMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePositionMode("line")
	assert.Error(t, err)
}

func TestAdapter_RunToCompletion(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())

	steps := 0
	a := NewAdapter(exec, ctrl, AdapterOptions{
		OnStep: func(step executor.ExecutionStep, state executor.State) error {
			assert.Equal(t, steps, step.Index)
			assert.Equal(t, step.Index+1, state.TotalSteps)
			steps++
			return nil
		},
	})

	state, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Equal(t, []int{1, 2, 5}, state.Array)
	assert.Equal(t, 7, steps)
	assert.Equal(t, 7, state.TotalSteps)
	assert.False(t, a.IsAborted())
	assert.Empty(t, ctrl.CallStack())
	assert.Equal(t, 6, ctrl.Context().StepIndex)
}

func TestAdapter_LineBreakpoint(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	id := ctrl.AddLineBreakpoint(2)

	var paused []int
	var infos []PauseInfo
	pauser := PauserFunc(func(ctx context.Context, info PauseInfo) (Command, error) {
		paused = append(paused, info.Step.Index)
		infos = append(infos, info)
		assert.True(t, ctrl.IsPaused())
		return CommandContinue, nil
	})

	_, err := NewAdapter(exec, ctrl, AdapterOptions{Pauser: pauser}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, paused)
	require.NotNil(t, infos[0].Breakpoint)
	assert.Equal(t, id, infos[0].Breakpoint.ID)
	assert.Equal(t, 2, infos[0].Position)
	assert.False(t, ctrl.IsPaused())
}

func TestAdapter_NextSteps(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	ctrl.AddLineBreakpoint(1)

	var paused []int
	var stepped []bool
	pauser := PauserFunc(func(_ context.Context, info PauseInfo) (Command, error) {
		paused = append(paused, info.Step.Index)
		stepped = append(stepped, info.Breakpoint == nil)
		if len(paused) < 3 {
			return CommandNext, nil
		}
		return CommandContinue, nil
	})

	_, err := NewAdapter(exec, ctrl, AdapterOptions{Pauser: pauser}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, paused)
	assert.Equal(t, []bool{false, true, true}, stepped)
}

func TestAdapter_Abort(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	ctrl.AddLineBreakpoint(3)

	var paused []int
	a := NewAdapter(exec, ctrl, AdapterOptions{Pauser: script(&paused, CommandAbort)})
	state, err := a.Run(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, a.IsAborted())
	assert.Equal(t, []int{3}, paused)
	assert.Equal(t, 4, state.TotalSteps)
	assert.False(t, state.Done)
}

func TestAdapter_SwapConditionFirstPause(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	ctrl.AddConditionalBreakpoint("swaps > 1")

	var paused []int
	_, err := NewAdapter(exec, ctrl, AdapterOptions{Pauser: script(&paused)}).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, paused)
	assert.Equal(t, 3, paused[0])
}

func TestAdapter_KindPosition(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	_, err := ctrl.AddHitCountBreakpoint(int(executor.OpCompare), 2, HitModulo)
	require.NoError(t, err)

	var positions []int
	var paused []int
	pauser := PauserFunc(func(_ context.Context, info PauseInfo) (Command, error) {
		paused = append(paused, info.Step.Index)
		positions = append(positions, info.Position)
		return CommandContinue, nil
	})

	a := NewAdapter(exec, ctrl, AdapterOptions{Position: PositionKind, Pauser: pauser})
	_, err = a.Run(context.Background())
	require.NoError(t, err)

	// Compares are steps 0, 2 and 4; every second one pauses.
	assert.Equal(t, []int{2}, paused)
	assert.Equal(t, []int{int(executor.OpCompare)}, positions)
	assert.Equal(t, 3, ctrl.Breakpoints()[0].Hits)
}

func TestAdapter_CancelledContext(t *testing.T) {
	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())

	a := NewAdapter(exec, ctrl, AdapterOptions{
		OnStep: func(step executor.ExecutionStep, _ executor.State) error {
			if step.Index == 1 {
				cancel()
			}
			return nil
		},
	})
	state, err := a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, a.IsAborted())
	assert.Equal(t, 2, state.TotalSteps)
}

func TestAdapter_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("on step", func(t *testing.T) {
		exec := loadExecutor(t, "bubble", []int{2, 1})
		a := NewAdapter(exec, NewController(DefaultOptions()), AdapterOptions{
			OnStep: func(executor.ExecutionStep, executor.State) error { return boom },
		})
		_, err := a.Run(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("pauser", func(t *testing.T) {
		exec := loadExecutor(t, "bubble", []int{2, 1})
		ctrl := NewController(DefaultOptions())
		ctrl.AddLineBreakpoint(0)
		a := NewAdapter(exec, ctrl, AdapterOptions{
			Pauser: PauserFunc(func(context.Context, PauseInfo) (Command, error) { return "", boom }),
		})
		_, err := a.Run(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("event handler", func(t *testing.T) {
		exec := loadExecutor(t, "bubble", []int{2, 1})
		ctrl := NewController(DefaultOptions())
		ctrl.AddWatch("swaps", true)
		ctrl.On(KindWatchTriggered, func(Event) error { return boom })
		_, err := NewAdapter(exec, ctrl, AdapterOptions{}).Run(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("executor", func(t *testing.T) {
		exec := executor.New(executor.WithConfig(executor.Config{MaxSteps: 2, BreakOnError: true}))
		algo, err := executor.Lookup("bubble")
		require.NoError(t, err)
		require.NoError(t, exec.Load(algo, []int{5, 4, 3, 2, 1}))
		_, err = NewAdapter(exec, NewController(DefaultOptions()), AdapterOptions{}).Run(context.Background())
		assert.Error(t, err)
	})
}

func TestAdapter_CallStackFollowsFrames(t *testing.T) {
	for _, name := range []string{"merge", "quick"} {
		t.Run(name, func(t *testing.T) {
			exec := loadExecutor(t, name, []int{4, 7, 1, 9, 3, 3, 8})
			ctrl := NewController(DefaultOptions())

			maxDepth := 0
			a := NewAdapter(exec, ctrl, AdapterOptions{
				OnStep: func(executor.ExecutionStep, executor.State) error {
					stack := ctrl.CallStack()
					require.NotEmpty(t, stack)
					assert.Equal(t, name, stack[0].Name)
					maxDepth = max(maxDepth, len(stack))
					return nil
				},
			})
			state, err := a.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []int{1, 3, 3, 4, 7, 8, 9}, state.Array)
			assert.Greater(t, maxDepth, 2, "recursive calls should push frames")
			assert.Empty(t, ctrl.CallStack())
		})
	}
}

func TestAdapter_RecordsAndTraces(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	exec := loadExecutor(t, "bubble", []int{5, 2, 1})
	ctrl := NewController(DefaultOptions())
	ctrl.AddLineBreakpoint(1)
	ctrl.AddLineBreakpoint(5)

	rec := &fakeRunRecorder{}
	var paused []int
	a := NewAdapter(exec, ctrl, AdapterOptions{
		RunID:    "run-1",
		Pauser:   script(&paused, CommandNext, CommandContinue, CommandContinue),
		Tracer:   tp.Tracer("test"),
		Recorder: rec,
	})
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 5}, paused)
	assert.Equal(t, []string{"next", "continue", "continue"}, rec.pauses)
	assert.Equal(t, "run-1", rec.started)
	assert.Equal(t, "completed", rec.status)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "run: bubble", spans[0].Name)
	breakpoints := 0
	for _, ev := range spans[0].Events {
		if ev.Name == "breakpoint" {
			breakpoints++
		}
	}
	assert.Equal(t, 2, breakpoints, "single steps are not breakpoint events")
}

func TestRunStatus(t *testing.T) {
	assert.Equal(t, "completed", runStatus(executor.State{Done: true}, nil, false))
	assert.Equal(t, "failed", runStatus(executor.State{}, errors.New("x"), false))
	assert.Equal(t, "failed", runStatus(executor.State{Err: errors.New("captured")}, nil, false))
	assert.Equal(t, "aborted", runStatus(executor.State{}, context.Canceled, true))
}

type fakeRunRecorder struct {
	started string
	status  string
	pauses  []string
}

func (f *fakeRunRecorder) RecordRunStart(_ context.Context, runID, _ string) { f.started = runID }

func (f *fakeRunRecorder) RecordRunComplete(_ context.Context, _, _, status string, _ time.Duration) {
	f.status = status
}

func (f *fakeRunRecorder) RecordPause(_ context.Context, command string) {
	f.pauses = append(f.pauses, command)
}
