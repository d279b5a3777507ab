package trainer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// RunRecord is one row of training history.
type RunRecord struct {
	ID          int64     `json:"id"`
	Version     string    `json:"version"`
	RangeFrom   time.Time `json:"range_from"`
	RangeTo     time.Time `json:"range_to"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DatasetSize int       `json:"dataset_size"`
	NNAccuracy  float64   `json:"nn_accuracy"`
	RFAccuracy  float64   `json:"rf_accuracy"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// RunLog keeps training history in a standalone SQLite file, separate
// from the main store so a wiped data database does not erase the
// training audit trail.
type RunLog struct {
	db *sql.DB
}

func NewRunLog(path string) (*RunLog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("run log path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS training_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL,
		range_from INTEGER NOT NULL DEFAULT 0,
		range_to INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		dataset_size INTEGER NOT NULL,
		nn_accuracy REAL,
		rf_accuracy REAL,
		status TEXT NOT NULL,
		error TEXT
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run log schema: %w", err)
	}
	return &RunLog{db: db}, nil
}

func (l *RunLog) Close() error {
	return l.db.Close()
}

// Record appends one run.
func (l *RunLog) Record(ctx context.Context, rec RunRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO training_runs
		 (version, range_from, range_to, started_at, finished_at, dataset_size, nn_accuracy, rf_accuracy, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Version, rec.RangeFrom.Unix(), rec.RangeTo.Unix(),
		rec.StartedAt.Unix(), rec.FinishedAt.Unix(), rec.DatasetSize,
		rec.NNAccuracy, rec.RFAccuracy, rec.Status, rec.Error)
	return err
}

// Recent lists the newest runs first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, version, range_from, range_to, started_at, finished_at, dataset_size, nn_accuracy, rf_accuracy, status, error
		 FROM training_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var from, to, started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Version, &from, &to, &started, &finished,
			&rec.DatasetSize, &rec.NNAccuracy, &rec.RFAccuracy, &rec.Status, &rec.Error); err != nil {
			return nil, err
		}
		rec.RangeFrom = time.Unix(from, 0).UTC()
		rec.RangeTo = time.Unix(to, 0).UTC()
		rec.StartedAt = time.Unix(started, 0).UTC()
		rec.FinishedAt = time.Unix(finished, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
