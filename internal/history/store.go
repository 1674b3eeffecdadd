package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"starlint/internal/analysis"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Run is one persisted analysis run.
type Run struct {
	RunID          string
	SchemaVersion  int
	Timestamp      time.Time
	WorkspaceRoot  string
	FileCount      int
	ViolationCount int
}

// Store persists analysis runs and their violations in a local sqlite file so
// watch-mode results can be compared over time.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun records one completed run together with all of its violations and
// returns the generated run id.
func (s *Store) SaveRun(root string, fileCount int, results map[string][]analysis.Violation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()
	now := time.Now().UTC()

	total := 0
	for _, vs := range results {
		total += len(vs)
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			`INSERT INTO runs (run_id, schema_version, ts_utc, workspace_root, file_count, violation_count) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, SchemaVersion, now.Format(time.RFC3339Nano), root, fileCount, total,
		); err != nil {
			_ = tx.Rollback()
			return err
		}

		for _, vs := range results {
			for _, v := range vs {
				if _, err := tx.Exec(
					`INSERT INTO violations (run_id, file, line, "check", message) VALUES (?, ?, ?, ?, ?)`,
					runID, v.File, v.Line, v.Check, v.Message,
				); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// LoadRuns returns runs ordered oldest first, optionally restricted to those
// at or after since.
func (s *Store) LoadRuns(since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT run_id, schema_version, ts_utc, workspace_root, file_count, violation_count FROM runs`
	args := make([]any, 0, 1)
	if !since.IsZero() {
		query += ` WHERE ts_utc >= ?`
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY ts_utc ASC`

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run   Run
			tsRaw string
		)
		if err := rows.Scan(&run.RunID, &run.SchemaVersion, &tsRaw, &run.WorkspaceRoot, &run.FileCount, &run.ViolationCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadViolations returns the violations recorded for one run, grouped by file.
func (s *Store) LoadViolations(runID string) (map[string][]analysis.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load violations", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT file, line, "check", message FROM violations WHERE run_id = ? ORDER BY file ASC, line ASC`,
			runID,
		)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]analysis.Violation)
	for rows.Next() {
		var v analysis.Violation
		if err := rows.Scan(&v.File, &v.Line, &v.Check, &v.Message); err != nil {
			return nil, fmt.Errorf("scan violation row: %w", err)
		}
		out[v.File] = append(out[v.File], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violation rows: %w", err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
