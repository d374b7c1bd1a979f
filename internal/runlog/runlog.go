// Package runlog persists batch-run history to sqlite: one row per
// orchestrated run and one per group outcome. It is an observer only —
// the stitching core never depends on it and disabling it changes no
// composite byte.
package runlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/stitchwork/internal/imagery"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the run log at path and applies any pending
// migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RunRecord summarizes one orchestrated batch.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	ImageCount     int
	GroupCount     int
	DiscardedCount int
	FallbackMode   string
}

// RecordBatch writes a run row plus one row per group outcome in a
// single transaction.
func (db *DB) RecordBatch(rec RunRecord, result *imagery.BatchResult) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, image_count, group_count, discarded_count, fallback_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
		rec.ImageCount, rec.GroupCount, rec.DiscardedCount, rec.FallbackMode)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}

	for _, outcome := range result.Outcomes {
		members, err := json.Marshal(outcome.Members)
		if err != nil {
			return fmt.Errorf("encode members for group %s: %w", outcome.GroupID, err)
		}
		var width, height int
		if outcome.Composite != nil {
			width, height = outcome.Composite.W, outcome.Composite.H
		}
		_, err = tx.Exec(`
			INSERT INTO group_outcomes (group_id, run_id, members, method, success, width, height)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			outcome.GroupID.String(), rec.RunID, string(members), outcome.Method,
			outcome.Composite != nil, width, height)
		if err != nil {
			return fmt.Errorf("insert group %s: %w", outcome.GroupID, err)
		}
	}

	return tx.Commit()
}

// GroupRow is one persisted group outcome.
type GroupRow struct {
	GroupID string
	RunID   string
	Members []string
	Method  string
	Success bool
	Width   int
	Height  int
}

// GroupsForRun returns the recorded outcomes for one run, insertion
// order.
func (db *DB) GroupsForRun(runID string) ([]GroupRow, error) {
	rows, err := db.Query(`
		SELECT group_id, run_id, members, method, success, width, height
		FROM group_outcomes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupRow
	for rows.Next() {
		var g GroupRow
		var members string
		if err := rows.Scan(&g.GroupID, &g.RunID, &members, &g.Method, &g.Success, &g.Width, &g.Height); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
			return nil, fmt.Errorf("decode members for group %s: %w", g.GroupID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RunCount returns the number of recorded runs.
func (db *DB) RunCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}
