package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quantbot/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at   INTEGER NOT NULL,
	screen       TEXT    NOT NULL,
	threshold    REAL    NOT NULL,
	timeframe    TEXT    NOT NULL,
	short_window INTEGER NOT NULL,
	long_window  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS backtest_results (
	run_id       INTEGER NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	rank         INTEGER NOT NULL,
	symbol       TEXT    NOT NULL,
	total_return REAL    NOT NULL,
	max_drawdown REAL    NOT NULL,
	exposures    INTEGER NOT NULL,
	bars         INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; modernc's driver serializes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts run and its results in one transaction. Results are stored
// with their position in run.Results as rank.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *BacktestRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO backtest_runs (started_at, screen, threshold, timeframe, short_window, long_window)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UnixMilli(), run.Screen, run.Threshold, run.Timeframe, run.ShortWindow, run.LongWindow)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO backtest_results (run_id, rank, symbol, total_return, max_drawdown, exposures, bars)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range run.Results {
		if _, err := stmt.ExecContext(ctx, id, i+1, r.Symbol, r.TotalReturn, r.MaxDrawdown, r.Exposures, r.Bars); err != nil {
			return fmt.Errorf("inserting result %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	run.ID = id
	return nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, screen, threshold, timeframe, short_window, long_window
		 FROM backtest_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []BacktestRun
	for rows.Next() {
		var (
			r  BacktestRun
			ms int64
		)
		if err := rows.Scan(&r.ID, &ms, &r.Screen, &r.Threshold, &r.Timeframe, &r.ShortWindow, &r.LongWindow); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(ms).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the results of runID ordered by rank.
func (s *SQLiteStore) RunResults(ctx context.Context, runID int64) ([]domain.BacktestResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, total_return, max_drawdown, exposures, bars
		 FROM backtest_results WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.BacktestResult
	for rows.Next() {
		var r domain.BacktestResult
		if err := rows.Scan(&r.Symbol, &r.TotalReturn, &r.MaxDrawdown, &r.Exposures, &r.Bars); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
