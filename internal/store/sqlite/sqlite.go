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

// Package sqlite provides a SQLite run store backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/stepwise/internal/store"
	pkgerrors "github.com/tombee/stepwise/pkg/errors"
)

var _ store.Backend = (*Backend)(nil)

// timeLayout keeps fractional seconds so durations survive a round trip.
const timeLayout = time.RFC3339Nano

// Backend is a SQLite storage backend.
type Backend struct {
	db  *sql.DB
	now func() time.Time
}

// Config contains SQLite connection configuration.
type Config struct {
	// Path is the database file path. ":memory:" opens a private database.
	Path string

	// WAL enables Write-Ahead Logging mode.
	WAL bool
}

// New opens the database, applies pragmas and runs migrations.
func New(cfg Config) (*Backend, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes; a single connection also keeps
	// ":memory:" databases alive for the lifetime of the backend.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	b := &Backend{db: db, now: time.Now}

	if err := b.configurePragmas(ctx, cfg.WAL && cfg.Path != ":memory:"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}

	if err := b.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return b, nil
}

func (b *Backend) configurePragmas(ctx context.Context, enableWAL bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := b.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (b *Backend) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			algorithm TEXT NOT NULL,
			status TEXT NOT NULL,
			input TEXT,
			output TEXT,
			error TEXT,
			steps INTEGER DEFAULT 0,
			comparisons INTEGER DEFAULT 0,
			swaps INTEGER DEFAULT 0,
			accesses INTEGER DEFAULT 0,
			pauses INTEGER DEFAULT 0,
			started_at TEXT,
			completed_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_algorithm ON runs(algorithm)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			step_index INTEGER NOT NULL,
			variables TEXT,
			stack TEXT,
			captured_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
	}

	for _, migration := range migrations {
		if _, err := b.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateRun creates a new run.
func (b *Backend) CreateRun(ctx context.Context, run *store.Run) error {
	inputJSON, outputJSON, err := marshalArrays(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (id, session_id, algorithm, status, input, output, error,
			steps, comparisons, swaps, accesses, pauses,
			started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := b.now().UTC()
	_, err = b.db.ExecContext(ctx, query,
		run.ID, nullString(run.SessionID), run.Algorithm, run.Status,
		inputJSON, outputJSON, nullString(run.Error),
		run.Steps, run.Comparisons, run.Swaps, run.Accesses, run.Pauses,
		formatTime(run.StartedAt), formatTime(run.CompletedAt),
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("run already exists: %s", run.ID)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}

	run.CreatedAt = now
	run.UpdatedAt = now
	return nil
}

const selectRun = `
	SELECT id, session_id, algorithm, status, input, output, error,
		steps, comparisons, swaps, accesses, pauses,
		started_at, completed_at, created_at, updated_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*store.Run, error) {
	var run store.Run
	var sessionID, inputJSON, outputJSON, errorStr sql.NullString
	var startedAt, completedAt, createdAt, updatedAt sql.NullString

	err := row.Scan(
		&run.ID, &sessionID, &run.Algorithm, &run.Status,
		&inputJSON, &outputJSON, &errorStr,
		&run.Steps, &run.Comparisons, &run.Swaps, &run.Accesses, &run.Pauses,
		&startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.SessionID = sessionID.String
	run.Error = errorStr.String

	if inputJSON.Valid && inputJSON.String != "" {
		if err := json.Unmarshal([]byte(inputJSON.String), &run.Input); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input: %w", err)
		}
	}
	if outputJSON.Valid && outputJSON.String != "" {
		if err := json.Unmarshal([]byte(outputJSON.String), &run.Output); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output: %w", err)
		}
	}

	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt)
	if t := parseTime(createdAt); t != nil {
		run.CreatedAt = *t
	}
	if t := parseTime(updatedAt); t != nil {
		run.UpdatedAt = *t
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (b *Backend) GetRun(ctx context.Context, id string) (*store.Run, error) {
	run, err := scanRun(b.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &pkgerrors.NotFoundError{Resource: "run", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// UpdateRun updates an existing run.
func (b *Backend) UpdateRun(ctx context.Context, run *store.Run) error {
	inputJSON, outputJSON, err := marshalArrays(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE runs SET
			session_id = ?, algorithm = ?, status = ?, input = ?, output = ?, error = ?,
			steps = ?, comparisons = ?, swaps = ?, accesses = ?, pauses = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := b.now().UTC()
	result, err := b.db.ExecContext(ctx, query,
		nullString(run.SessionID), run.Algorithm, run.Status,
		inputJSON, outputJSON, nullString(run.Error),
		run.Steps, run.Comparisons, run.Swaps, run.Accesses, run.Pauses,
		formatTime(run.StartedAt), formatTime(run.CompletedAt), now.Format(timeLayout),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &pkgerrors.NotFoundError{Resource: "run", ID: run.ID}
	}

	run.UpdatedAt = now
	return nil
}

// ListRuns lists runs newest first.
func (b *Backend) ListRuns(ctx context.Context, filter store.RunFilter) ([]*store.Run, error) {
	query := selectRun + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Algorithm != "" {
		query += ` AND algorithm = ?`
		args = append(args, filter.Algorithm)
	}

	query += ` ORDER BY rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a run. Its snapshots are removed by the foreign key.
func (b *Backend) DeleteRun(ctx context.Context, id string) error {
	result, err := b.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &pkgerrors.NotFoundError{Resource: "run", ID: id}
	}
	return nil
}

// SaveSnapshots appends snapshots to a run in one transaction.
func (b *Backend) SaveSnapshots(ctx context.Context, runID string, snapshots []*store.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return &pkgerrors.NotFoundError{Resource: "run", ID: runID}
	}

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM snapshots WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("failed to read snapshot sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (run_id, seq, step_index, variables, stack, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		varsJSON, err := json.Marshal(s.Variables)
		if err != nil {
			return fmt.Errorf("failed to marshal variables: %w", err)
		}
		var stackJSON []byte
		if len(s.Stack) > 0 {
			if stackJSON, err = json.Marshal(s.Stack); err != nil {
				return fmt.Errorf("failed to marshal stack: %w", err)
			}
		}

		s.RunID = runID
		s.Seq = next
		next++

		captured := s.CapturedAt.UTC().Format(timeLayout)
		if _, err := stmt.ExecContext(ctx, runID, s.Seq, s.StepIndex, string(varsJSON), nullBytes(stackJSON), captured); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	return tx.Commit()
}

// ListSnapshots returns the snapshots of a run in capture order.
func (b *Backend) ListSnapshots(ctx context.Context, runID string) ([]*store.Snapshot, error) {
	if _, err := b.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT seq, step_index, variables, stack, captured_at
		FROM snapshots WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*store.Snapshot
	for rows.Next() {
		s := &store.Snapshot{RunID: runID}
		var varsJSON, stackJSON, captured sql.NullString
		if err := rows.Scan(&s.Seq, &s.StepIndex, &varsJSON, &stackJSON, &captured); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if varsJSON.Valid && varsJSON.String != "" {
			if err := json.Unmarshal([]byte(varsJSON.String), &s.Variables); err != nil {
				return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
			}
		}
		if stackJSON.Valid && stackJSON.String != "" {
			if err := json.Unmarshal([]byte(stackJSON.String), &s.Stack); err != nil {
				return nil, fmt.Errorf("failed to unmarshal stack: %w", err)
			}
		}
		if t := parseTime(captured); t != nil {
			s.CapturedAt = *t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

func marshalArrays(run *store.Run) (string, sql.NullString, error) {
	inputJSON, err := json.Marshal(run.Input)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to marshal input: %w", err)
	}
	if run.Output == nil {
		return string(inputJSON), sql.NullString{}, nil
	}
	outputJSON, err := json.Marshal(run.Output)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to marshal output: %w", err)
	}
	return string(inputJSON), sql.NullString{String: string(outputJSON), Valid: true}, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
