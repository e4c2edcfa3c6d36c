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

package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/stepwise/internal/commands/shared"
	"github.com/tombee/stepwise/internal/store"
	"github.com/tombee/stepwise/internal/store/sqlite"
	"github.com/tombee/stepwise/pkg/executor"
)

func seed(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")
	backend, err := sqlite.New(sqlite.Config{Path: db})
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		id, algorithm, status string
	}{
		{"run-a", "bubble", store.StatusCompleted},
		{"run-b", "quick", store.StatusFailed},
		{"run-c", "quick", store.StatusCompleted},
	} {
		at := start.Add(time.Duration(i) * time.Minute)
		r := store.NewRun(tc.id, "", tc.algorithm, []int{3, 1, 2}, at)
		require.NoError(t, backend.CreateRun(ctx, r))

		var runErr error
		if tc.status == store.StatusFailed {
			runErr = errors.New("boom")
		}
		r.Finish(executor.State{Array: []int{1, 2, 3}, TotalSteps: 7, Swaps: 2}, tc.status, runErr, 1, at.Add(time.Second))
		require.NoError(t, backend.UpdateRun(ctx, r))
	}
	require.NoError(t, backend.SaveSnapshots(ctx, "run-a", []*store.Snapshot{
		{StepIndex: 0, Variables: map[string]any{"swaps": 0}, CapturedAt: start},
	}))
	return db
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func listIDs(t *testing.T, out string) []string {
	t.Helper()
	var resp struct {
		Runs []store.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	ids := make([]string, 0, len(resp.Runs))
	for _, r := range resp.Runs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestRuns_List(t *testing.T) {
	shared.ResetFlagsForTest()
	shared.SetJSONForTest(true)
	defer shared.ResetFlagsForTest()
	db := seed(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "all", args: nil, want: []string{"run-c", "run-b", "run-a"}},
		{name: "status", args: []string{"--status", "completed"}, want: []string{"run-c", "run-a"}},
		{name: "algorithm", args: []string{"--algorithm", "quick"}, want: []string{"run-c", "run-b"}},
		{name: "limit", args: []string{"--limit", "1"}, want: []string{"run-c"}},
		{name: "no match", args: []string{"--algorithm", "heap"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--db", db}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, listIDs(t, out))
		})
	}
}

func TestRuns_ListText(t *testing.T) {
	shared.ResetFlagsForTest()
	db := seed(t)

	out, err := execute(t, "--db", db, "--status", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "ALGORITHM")
	assert.Contains(t, out, "run-b")
	assert.NotContains(t, out, "run-a")

	out, err = execute(t, "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Equal(t, "No runs found\n", out)
}

func TestRuns_Show(t *testing.T) {
	shared.ResetFlagsForTest()
	db := seed(t)

	out, err := execute(t, "show", "run-b", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "quick")
	assert.Contains(t, out, "[failed]")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "7 steps")

	shared.SetJSONForTest(true)
	defer shared.ResetFlagsForTest()
	out, err = execute(t, "show", "run-a", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Run       store.Run `json:"run"`
		Snapshots int       `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "bubble", resp.Run.Algorithm)
	assert.Equal(t, []int{1, 2, 3}, resp.Run.Output)
	assert.Equal(t, 1, resp.Snapshots)
	assert.Equal(t, time.Second, resp.Run.Duration())
}

func TestRuns_Delete(t *testing.T) {
	shared.ResetFlagsForTest()
	db := seed(t)

	out, err := execute(t, "delete", "run-a", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted run-a")

	_, err = execute(t, "show", "run-a", "--db", db)
	require.Error(t, err)
	assert.Equal(t, shared.ExitNotFound, shared.ExitCode(err))

	_, err = execute(t, "rm", "run-a", "--db", db)
	require.Error(t, err)
	assert.Equal(t, shared.ExitNotFound, shared.ExitCode(err))
}
