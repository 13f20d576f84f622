// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tracker records completed (site, keyword) searches so repeated
// runs inside the completion window skip work already done.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

const table = "history"

// ErrClosed is returned by operations on a closed Tracker.
var ErrClosed = errors.New("tracker is closed")

// Tracker is the completion history backed by SQLite. It is safe for
// concurrent use; writes are serialized by the connection pool limit.
type Tracker struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
	now    func() time.Time
}

// Open opens or creates the history database at path and ensures the
// schema exists.
func Open(path string) (*Tracker, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	t := &Tracker{db: db, now: time.Now}
	if err := t.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return t, nil
}

func (t *Tracker) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS history (
			site_name TEXT NOT NULL,
			keyword TEXT NOT NULL,
			directory TEXT NOT NULL,
			completed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (site_name, keyword, completed_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_completed_at ON history(completed_at)`,
	}
	for _, stmt := range statements {
		if _, err := t.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Close releases the database. Further calls return ErrClosed.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}

// runner returns the database for use under the read lock, or ErrClosed.
func (t *Tracker) runner() (*sql.DB, func(), error) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return nil, nil, ErrClosed
	}
	return t.db, t.mu.RUnlock, nil
}

// IsDone reports whether site and keyword completed within window of now.
// The directory a run wrote to plays no part in the decision.
func (t *Tracker) IsDone(ctx context.Context, site, keyword string, window time.Duration) (bool, error) {
	db, release, err := t.runner()
	if err != nil {
		return false, err
	}
	defer release()

	query, args, err := sq.Select("COUNT(*)").
		From(table).
		Where(sq.Eq{"site_name": site, "keyword": keyword}).
		Where(sq.GtOrEq{"completed_at": t.now().Add(-window).UTC()}).
		ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("querying history for %s/%s: %w", site, keyword, err)
	}
	return n > 0, nil
}

// MarkDone records a completion. A zero CompletedAt is stamped with now.
func (t *Tracker) MarkDone(ctx context.Context, rec types.CompletionRecord) error {
	db, release, err := t.runner()
	if err != nil {
		return err
	}
	defer release()

	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = t.now()
	}
	_, err = sq.Insert(table).
		Options("OR IGNORE").
		Columns("site_name", "keyword", "directory", "completed_at").
		Values(rec.Site, rec.Keyword, rec.Directory, rec.CompletedAt.UTC()).
		RunWith(db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("recording %s/%s: %w", rec.Site, rec.Keyword, err)
	}
	return nil
}

// Prune deletes records older than retentionDays and returns how many
// were removed. A non-positive retention keeps everything.
func (t *Tracker) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	db, release, err := t.runner()
	if err != nil {
		return 0, err
	}
	defer release()

	cutoff := t.now().AddDate(0, 0, -retentionDays).UTC()
	res, err := sq.Delete(table).
		Where(sq.Lt{"completed_at": cutoff}).
		RunWith(db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

// List returns every record, newest first.
func (t *Tracker) List(ctx context.Context) ([]types.CompletionRecord, error) {
	db, release, err := t.runner()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := sq.Select("site_name", "keyword", "directory", "completed_at").
		From(table).
		OrderBy("completed_at DESC", "site_name", "keyword").
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []types.CompletionRecord
	for rows.Next() {
		var rec types.CompletionRecord
		if err := rows.Scan(&rec.Site, &rec.Keyword, &rec.Directory, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
