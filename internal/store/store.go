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

// Package store persists completed runs and their snapshots.
//
// # Interface Hierarchy
//
// Interfaces are segregated so callers can depend on the minimum they need:
//
//   - RunStore (core): CreateRun, GetRun, UpdateRun
//   - RunLister: ListRuns, DeleteRun
//   - SnapshotStore: SaveSnapshots, ListSnapshots
//   - io.Closer: Close
//
// Backend composes all of them. The memory and sqlite subpackages provide
// implementations.
package store

import (
	"context"
	"io"
	"time"

	"github.com/tombee/stepwise/internal/debug"
	"github.com/tombee/stepwise/pkg/executor"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// RunStore is the core interface for run storage.
type RunStore interface {
	// CreateRun stores a new run. It fails if the ID already exists.
	CreateRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// UpdateRun replaces an existing run.
	UpdateRun(ctx context.Context, run *Run) error
}

// RunLister lists and deletes runs.
type RunLister interface {
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// DeleteRun deletes a run and its snapshots.
	DeleteRun(ctx context.Context, id string) error
}

// SnapshotStore stores the snapshots captured during a run.
type SnapshotStore interface {
	// SaveSnapshots appends snapshots to a run. Seq is assigned by the store.
	SaveSnapshots(ctx context.Context, runID string, snapshots []*Snapshot) error

	// ListSnapshots returns the snapshots of a run in capture order.
	ListSnapshots(ctx context.Context, runID string) ([]*Snapshot, error)
}

// Backend is the full storage interface.
type Backend interface {
	RunStore
	RunLister
	SnapshotStore
	io.Closer
}

// Run is a stored run.
type Run struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id,omitempty"`
	Algorithm   string     `json:"algorithm"`
	Status      string     `json:"status"`
	Input       []int      `json:"input"`
	Output      []int      `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	Steps       int        `json:"steps"`
	Comparisons int        `json:"comparisons"`
	Swaps       int        `json:"swaps"`
	Accesses    int        `json:"accesses"`
	Pauses      int        `json:"pauses"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Duration returns the wall time of a finished run, or zero.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// RunFilter contains filtering options for listing runs.
type RunFilter struct {
	Status    string
	Algorithm string
	Limit     int
	Offset    int
}

// Snapshot is a stored controller snapshot.
type Snapshot struct {
	RunID      string            `json:"run_id"`
	Seq        int               `json:"seq"`
	StepIndex  int               `json:"step_index"`
	Variables  map[string]any    `json:"variables"`
	Stack      []debug.CallFrame `json:"stack,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewRun returns a running run for the given input.
func NewRun(id, sessionID, algorithm string, input []int, now time.Time) *Run {
	started := now
	return &Run{
		ID:        id,
		SessionID: sessionID,
		Algorithm: algorithm,
		Status:    StatusRunning,
		Input:     append([]int(nil), input...),
		StartedAt: &started,
	}
}

// Finish records the final state of the run.
func (r *Run) Finish(state executor.State, status string, runErr error, pauses int, now time.Time) {
	completed := now
	r.Status = status
	r.Output = append([]int(nil), state.Array...)
	r.Steps = state.TotalSteps
	r.Comparisons = state.Comparisons
	r.Swaps = state.Swaps
	r.Accesses = state.Accesses
	r.Pauses = pauses
	r.CompletedAt = &completed

	switch {
	case runErr != nil:
		r.Error = runErr.Error()
	case state.Err != nil:
		r.Error = state.Err.Error()
	}
}

// FromDebug converts controller snapshots for storage, numbered from zero.
// Backends renumber them on save.
func FromDebug(runID string, snapshots []debug.Snapshot) []*Snapshot {
	out := make([]*Snapshot, 0, len(snapshots))
	for i, s := range snapshots {
		out = append(out, &Snapshot{
			RunID:      runID,
			Seq:        i,
			StepIndex:  s.StepIndex,
			Variables:  s.Variables,
			Stack:      s.Stack,
			CapturedAt: s.Timestamp,
		})
	}
	return out
}

// Matches reports whether a run passes the status and algorithm filters.
func (f RunFilter) Matches(r *Run) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Algorithm != "" && r.Algorithm != f.Algorithm {
		return false
	}
	return true
}
