package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id       TEXT PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER,
			source       TEXT,
			period       TEXT,
			total        INTEGER,
			matched      INTEGER,
			no_match     INTEGER,
			excluded     INTEGER,
			fetch_errors INTEGER,
			invalid      INTEGER,
			canceled     INTEGER,
			export_path  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS scan_matches (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL,
			code     TEXT NOT NULL,
			name     TEXT,
			category TEXT NOT NULL,
			label    TEXT,
			bar_date TEXT,
			close    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_run ON scan_matches(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_code ON scan_matches(code)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(sum *model.ScanSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	canceled := 0
	if sum.Canceled {
		canceled = 1
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO scan_runs
		(run_id, started_at, finished_at, source, period, total,
		 matched, no_match, excluded, fetch_errors, invalid, canceled, export_path)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sum.RunID, sum.StartedAt.Unix(), sum.FinishedAt.Unix(), sum.Source, sum.Period, sum.Total,
		sum.Counts[model.StatusMatched], sum.Counts[model.StatusNoMatch], sum.Counts[model.StatusExcluded],
		sum.Counts[model.StatusFetchError], sum.Counts[model.StatusInvalid],
		canceled, sum.ExportPath,
	)
	return err
}

// RecordMatches inserts all rows in one transaction.
func (r *SQLiteRecorder) RecordMatches(rows []output.Row) error {
	if len(rows) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO scan_matches
		(run_id, code, name, category, label, bar_date, close)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.Exec(row.RunID, row.Code, row.Name, row.Category, row.Label, row.Date, row.Close); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert match %s/%s: %w", row.Code, row.Category, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns the newest runs first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, started_at, finished_at, source, period, total,
		matched, no_match, excluded, fetch_errors, invalid
		FROM scan_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                                            RunRecord
			started, finished                              int64
			matched, noMatch, excluded, fetchErrs, invalid int
		)
		if err := rows.Scan(&rec.RunID, &started, &finished, &rec.Source, &rec.Period, &rec.Total,
			&matched, &noMatch, &excluded, &fetchErrs, &invalid); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(started, 0)
		rec.FinishedAt = time.Unix(finished, 0)
		rec.Counts = map[model.ScanStatus]int{
			model.StatusMatched:    matched,
			model.StatusNoMatch:    noMatch,
			model.StatusExcluded:   excluded,
			model.StatusFetchError: fetchErrs,
			model.StatusInvalid:    invalid,
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
