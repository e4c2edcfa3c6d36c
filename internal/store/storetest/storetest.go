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

// Package storetest holds behaviour tests shared by every store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/stepwise/internal/debug"
	"github.com/tombee/stepwise/internal/store"
	pkgerrors "github.com/tombee/stepwise/pkg/errors"
	"github.com/tombee/stepwise/pkg/executor"
)

// Run exercises a backend created fresh for each subtest.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b store.Backend)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CreateDuplicate", testCreateDuplicate},
		{"Update", testUpdate},
		{"NotFound", testNotFound},
		{"ListOrderAndFilter", testList},
		{"Snapshots", testSnapshots},
		{"DeleteCascades", testDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			t.Cleanup(func() { _ = b.Close() })
			tt.fn(t, b)
		})
	}
}

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func finished(id, algorithm, status string) *store.Run {
	run := store.NewRun(id, "session-1", algorithm, []int{5, 2, 1}, start)
	state := executor.State{Array: []int{1, 2, 5}, TotalSteps: 7, Comparisons: 3, Swaps: 3, Accesses: 12}
	run.Finish(state, status, nil, 1, start.Add(2*time.Second))
	return run
}

func testCreateAndGet(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateRun(ctx, finished("r1", "bubble", store.StatusCompleted)))

	got, err := b.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "bubble", got.Algorithm)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, []int{5, 2, 1}, got.Input)
	assert.Equal(t, []int{1, 2, 5}, got.Output)
	assert.Equal(t, 7, got.Steps)
	assert.Equal(t, 3, got.Comparisons)
	assert.Equal(t, 3, got.Swaps)
	assert.Equal(t, 12, got.Accesses)
	assert.Equal(t, 1, got.Pauses)
	assert.Equal(t, 2*time.Second, got.Duration())
	assert.False(t, got.CreatedAt.IsZero())
}

func testCreateDuplicate(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateRun(ctx, finished("r1", "bubble", store.StatusCompleted)))
	assert.Error(t, b.CreateRun(ctx, finished("r1", "bubble", store.StatusCompleted)))
}

func testUpdate(t *testing.T, b store.Backend) {
	ctx := context.Background()
	run := store.NewRun("r1", "", "quick", []int{3, 1}, start)
	require.NoError(t, b.CreateRun(ctx, run))

	run.Finish(executor.State{Array: []int{1, 3}, TotalSteps: 4}, store.StatusAborted, context.Canceled, 1, start.Add(time.Second))
	require.NoError(t, b.UpdateRun(ctx, run))

	got, err := b.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAborted, got.Status)
	assert.Equal(t, "context canceled", got.Error)
	assert.Equal(t, []int{1, 3}, got.Output)
	require.NotNil(t, got.CompletedAt)
}

func testNotFound(t *testing.T, b store.Backend) {
	ctx := context.Background()

	_, err := b.GetRun(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err), "GetRun: %v", err)

	err = b.UpdateRun(ctx, &store.Run{ID: "missing", Algorithm: "bubble", Status: store.StatusRunning})
	assert.True(t, pkgerrors.IsNotFound(err), "UpdateRun: %v", err)

	assert.True(t, pkgerrors.IsNotFound(b.DeleteRun(ctx, "missing")))
	assert.True(t, pkgerrors.IsNotFound(b.SaveSnapshots(ctx, "missing", nil)))

	_, err = b.ListSnapshots(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func testList(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateRun(ctx, finished("r1", "bubble", store.StatusCompleted)))
	require.NoError(t, b.CreateRun(ctx, finished("r2", "quick", store.StatusFailed)))
	require.NoError(t, b.CreateRun(ctx, finished("r3", "bubble", store.StatusCompleted)))
	require.NoError(t, b.CreateRun(ctx, finished("r4", "bubble", store.StatusAborted)))

	ids := func(filter store.RunFilter) []string {
		runs, err := b.ListRuns(ctx, filter)
		require.NoError(t, err)
		var out []string
		for _, r := range runs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"r4", "r3", "r2", "r1"}, ids(store.RunFilter{}))
	assert.Equal(t, []string{"r4", "r3", "r1"}, ids(store.RunFilter{Algorithm: "bubble"}))
	assert.Equal(t, []string{"r3", "r1"}, ids(store.RunFilter{Status: store.StatusCompleted}))
	assert.Equal(t, []string{"r3", "r2"}, ids(store.RunFilter{Limit: 2, Offset: 1}))
	assert.Empty(t, ids(store.RunFilter{Algorithm: "heap"}))
}

func testSnapshots(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateRun(ctx, finished("r1", "bubble", store.StatusCompleted)))

	first := store.FromDebug("r1", []debug.Snapshot{
		{StepIndex: 2, Variables: map[string]any{"swaps": 1, "array": []int{2, 5, 1}}, Timestamp: start},
		{StepIndex: 3, Variables: map[string]any{"swaps": 2}, Stack: []debug.CallFrame{{Name: "bubble", Line: 0}}},
	})
	require.NoError(t, b.SaveSnapshots(ctx, "r1", first))
	require.NoError(t, b.SaveSnapshots(ctx, "r1", store.FromDebug("r1", []debug.Snapshot{{StepIndex: 6}})))

	snaps, err := b.ListSnapshots(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	for i, s := range snaps {
		assert.Equal(t, i, s.Seq)
		assert.Equal(t, "r1", s.RunID)
	}
	assert.Equal(t, 2, snaps[0].StepIndex)
	assert.EqualValues(t, 1, snaps[0].Variables["swaps"])
	assert.Len(t, snaps[0].Variables["array"], 3)
	assert.True(t, start.Equal(snaps[0].CapturedAt))
	require.Len(t, snaps[1].Stack, 1)
	assert.Equal(t, "bubble", snaps[1].Stack[0].Name)
	assert.Equal(t, 6, snaps[2].StepIndex)
}

func testDelete(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateRun(ctx, finished("r1", "bubble", store.StatusCompleted)))
	require.NoError(t, b.CreateRun(ctx, finished("r2", "bubble", store.StatusCompleted)))
	require.NoError(t, b.SaveSnapshots(ctx, "r1", store.FromDebug("r1", []debug.Snapshot{{StepIndex: 1}})))

	require.NoError(t, b.DeleteRun(ctx, "r1"))

	_, err := b.GetRun(ctx, "r1")
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = b.ListSnapshots(ctx, "r1")
	assert.True(t, pkgerrors.IsNotFound(err))

	runs, err := b.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)
}
