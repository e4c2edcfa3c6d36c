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

// Package memory provides an in-memory run store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tombee/stepwise/internal/store"
	pkgerrors "github.com/tombee/stepwise/pkg/errors"
)

var _ store.Backend = (*Backend)(nil)

// Backend is an in-memory storage backend.
type Backend struct {
	mu        sync.RWMutex
	runs      map[string]*store.Run
	order     []string
	snapshots map[string][]*store.Snapshot
	now       func() time.Time
}

// New creates a new in-memory backend.
func New() *Backend {
	return &Backend{
		runs:      make(map[string]*store.Run),
		snapshots: make(map[string][]*store.Snapshot),
		now:       time.Now,
	}
}

// CreateRun creates a new run.
func (b *Backend) CreateRun(ctx context.Context, run *store.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.runs[run.ID]; exists {
		return fmt.Errorf("run already exists: %s", run.ID)
	}

	run.CreatedAt = b.now()
	run.UpdatedAt = run.CreatedAt
	b.runs[run.ID] = cloneRun(run)
	b.order = append(b.order, run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (b *Backend) GetRun(ctx context.Context, id string) (*store.Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	run, exists := b.runs[id]
	if !exists {
		return nil, &pkgerrors.NotFoundError{Resource: "run", ID: id}
	}
	return cloneRun(run), nil
}

// UpdateRun updates an existing run.
func (b *Backend) UpdateRun(ctx context.Context, run *store.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, exists := b.runs[run.ID]
	if !exists {
		return &pkgerrors.NotFoundError{Resource: "run", ID: run.ID}
	}

	run.CreatedAt = existing.CreatedAt
	run.UpdatedAt = b.now()
	b.runs[run.ID] = cloneRun(run)
	return nil
}

// ListRuns lists runs newest first.
func (b *Backend) ListRuns(ctx context.Context, filter store.RunFilter) ([]*store.Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []*store.Run
	skipped := 0
	for i := len(b.order) - 1; i >= 0; i-- {
		run := b.runs[b.order[i]]
		if !filter.Matches(run) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, cloneRun(run))
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// DeleteRun deletes a run and its snapshots.
func (b *Backend) DeleteRun(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.runs[id]; !exists {
		return &pkgerrors.NotFoundError{Resource: "run", ID: id}
	}

	delete(b.runs, id)
	delete(b.snapshots, id)
	for i, rid := range b.order {
		if rid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// SaveSnapshots appends snapshots to a run.
func (b *Backend) SaveSnapshots(ctx context.Context, runID string, snapshots []*store.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.runs[runID]; !exists {
		return &pkgerrors.NotFoundError{Resource: "run", ID: runID}
	}

	next := len(b.snapshots[runID])
	for _, s := range snapshots {
		s.RunID = runID
		s.Seq = next
		next++
		saved := *s
		b.snapshots[runID] = append(b.snapshots[runID], &saved)
	}
	return nil
}

// ListSnapshots returns the snapshots of a run in capture order.
func (b *Backend) ListSnapshots(ctx context.Context, runID string) ([]*store.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.runs[runID]; !exists {
		return nil, &pkgerrors.NotFoundError{Resource: "run", ID: runID}
	}

	out := make([]*store.Snapshot, 0, len(b.snapshots[runID]))
	for _, s := range b.snapshots[runID] {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

// Close is a no-op for the memory backend.
func (b *Backend) Close() error {
	return nil
}

func cloneRun(run *store.Run) *store.Run {
	c := *run
	c.Input = append([]int(nil), run.Input...)
	c.Output = append([]int(nil), run.Output...)
	return &c
}
