// Package journal persists run reports to SQLite and keeps a review queue of
// studios whose match was ambiguous at some source.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentstation/utc"
	_ "modernc.org/sqlite"

	"github.com/agentstation/studiosync/pkg/errors"
	"github.com/agentstation/studiosync/pkg/matcher"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Journal is a SQLite-backed run journal.
type Journal struct {
	db *sql.DB
}

// Connect opens the database at path.
func Connect(path string) (*sql.DB, error) {
	return sql.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(500)&_pragma=foreign_keys(1)", path))
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := Connect(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, DDL); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("migrate", path, err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RunSummary is one recorded run.
type RunSummary struct {
	ID         string                `json:"id" yaml:"id"`
	StartedAt  utc.Time              `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time              `json:"finished_at" yaml:"finished_at"`
	DryRun     bool                  `json:"dry_run" yaml:"dry_run"`
	Mode       string                `json:"mode" yaml:"mode"`
	Counts     map[pkgsync.State]int `json:"counts" yaml:"counts"`
}

// ReviewItem is a studio waiting for a human to pick among candidates.
type ReviewItem struct {
	ID         int64               `json:"id" yaml:"id"`
	RunID      string              `json:"run_id" yaml:"run_id"`
	StudioID   string              `json:"studio_id" yaml:"studio_id"`
	Name       string              `json:"name" yaml:"name"`
	Source     sources.ID          `json:"source" yaml:"source"`
	Candidates []matcher.Candidate `json:"candidates" yaml:"candidates"`
	CreatedAt  utc.Time            `json:"created_at" yaml:"created_at"`
}

// Record stores a report and queues its ambiguous matches for review. A
// studio already pending review for a source is not queued twice.
func (j *Journal) Record(ctx context.Context, r *pkgsync.Report) (err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("begin", "journal", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	srcs, _ := json.Marshal(r.Sources)
	counts, _ := json.Marshal(r.Counts)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, dry_run, mode, sources, counts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.Time, r.FinishedAt.Time, r.DryRun, string(r.Mode), string(srcs), string(counts),
	); err != nil {
		return errors.WrapIO("insert", "runs", err)
	}

	now := utc.Now().Time
	for i, o := range r.Outcomes {
		detail, err := json.Marshal(o)
		if err != nil {
			return errors.WrapParse("json", "outcome", err)
		}
		var outErr sql.NullString
		if o.Error != "" {
			outErr = sql.NullString{String: o.Error, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outcomes (run_id, seq, studio_id, name, state, detail, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, o.StudioID, o.Name, string(o.State), string(detail), outErr,
		); err != nil {
			return errors.WrapIO("insert", "outcomes", err)
		}

		for _, sm := range o.Matches {
			if sm.Result.Outcome != matcher.Ambiguous {
				continue
			}
			candidates, _ := json.Marshal(sm.Result.Candidates)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO review_queue (run_id, studio_id, name, source, candidates, created_at)
				 SELECT ?, ?, ?, ?, ?, ?
				 WHERE NOT EXISTS (
				     SELECT 1 FROM review_queue WHERE studio_id = ? AND source = ? AND resolved_at IS NULL
				 )`,
				r.RunID, o.StudioID, o.Name, string(sm.Source), string(candidates), now,
				o.StudioID, string(sm.Source),
			); err != nil {
				return errors.WrapIO("insert", "review_queue", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.WrapIO("commit", "journal", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, mode, counts FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.WrapIO("query", "runs", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s               RunSummary
			started, finish time.Time
			counts          string
		)
		if err := rows.Scan(&s.ID, &started, &finish, &s.DryRun, &s.Mode, &counts); err != nil {
			return nil, errors.WrapIO("scan", "runs", err)
		}
		s.StartedAt = utc.New(started)
		s.FinishedAt = utc.New(finish)
		if err := json.Unmarshal([]byte(counts), &s.Counts); err != nil {
			return nil, errors.WrapParse("json", "runs.counts", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Outcomes returns the outcomes recorded for a run in processing order.
func (j *Journal) Outcomes(ctx context.Context, runID string) ([]pkgsync.Outcome, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT detail FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.WrapIO("query", "outcomes", err)
	}
	defer rows.Close()

	var out []pkgsync.Outcome
	for rows.Next() {
		var detail string
		if err := rows.Scan(&detail); err != nil {
			return nil, errors.WrapIO("scan", "outcomes", err)
		}
		var o pkgsync.Outcome
		if err := json.Unmarshal([]byte(detail), &o); err != nil {
			return nil, errors.WrapParse("json", "outcomes.detail", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Pending returns unresolved review items, oldest first.
func (j *Journal) Pending(ctx context.Context) ([]ReviewItem, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, studio_id, name, source, candidates, created_at
		 FROM review_queue WHERE resolved_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, errors.WrapIO("query", "review_queue", err)
	}
	defer rows.Close()

	var out []ReviewItem
	for rows.Next() {
		var (
			item       ReviewItem
			source     string
			candidates string
			created    time.Time
		)
		if err := rows.Scan(&item.ID, &item.RunID, &item.StudioID, &item.Name, &source, &candidates, &created); err != nil {
			return nil, errors.WrapIO("scan", "review_queue", err)
		}
		item.Source = sources.ID(source)
		item.CreatedAt = utc.New(created)
		if err := json.Unmarshal([]byte(candidates), &item.Candidates); err != nil {
			return nil, errors.WrapParse("json", "review_queue.candidates", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Resolve marks a review item as handled.
func (j *Journal) Resolve(ctx context.Context, id int64) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE review_queue SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`, utc.Now().Time, id)
	if err != nil {
		return errors.WrapIO("update", "review_queue", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("review item", fmt.Sprint(id))
	}
	return nil
}
