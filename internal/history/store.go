// Package history records the verdicts of detection, validation, comparison
// and capture runs in a local SQLite database so regressions can be traced
// over time.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultPath is the database location relative to the project root.
const DefaultPath = ".snapshots/history.db"

// Kind identifies the command that produced a run.
type Kind string

const (
	KindDetect  Kind = "detect"
	KindVerify  Kind = "verify"
	KindCompare Kind = "compare"
	KindCapture Kind = "capture"
)

// Run is one recorded verdict.
type Run struct {
	ID           string
	Kind         Kind
	ArtifactPath string
	Context      string
	Valid        bool
	Confidence   float64
	Summary      string
	Details      map[string]any
	CreatedAt    time.Time
}

// Stats aggregates the recorded runs.
type Stats struct {
	Total             int
	Valid             int
	Invalid           int
	AverageConfidence float64
	ByKind            map[Kind]int
	LastRun           time.Time
}

// Store manages the SQLite history database
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must be first so later statements wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath, now: time.Now}
	if err := s.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// execWithRetry retries "database is locked" failures with exponential backoff.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Record stores run, assigning an ID and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	details := "{}"
	if len(run.Details) > 0 {
		data, err := json.Marshal(run.Details)
		if err != nil {
			return fmt.Errorf("marshal run details: %w", err)
		}
		details = string(data)
	}

	query := `INSERT INTO runs
		(id, kind, artifact_path, context, valid, confidence, summary, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, string(run.Kind), run.ArtifactPath, run.Context,
		run.Valid, run.Confidence, run.Summary, details, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const selectRuns = `SELECT id, kind, artifact_path, context, valid, confidence, summary, details, created_at FROM runs`

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	return s.query(ctx, selectRuns+` ORDER BY created_at DESC LIMIT ?`, limitOrAll(limit))
}

// ForContext returns up to limit runs recorded for contextName, newest first.
func (s *Store) ForContext(ctx context.Context, contextName string, limit int) ([]*Run, error) {
	return s.query(ctx, selectRuns+` WHERE context = ? ORDER BY created_at DESC LIMIT ?`, contextName, limitOrAll(limit))
}

// limitOrAll maps a non-positive limit to SQLite's "no limit".
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run     Run
			kind    string
			runCtx  sql.NullString
			summary sql.NullString
			details sql.NullString
		)
		if err := rows.Scan(&run.ID, &kind, &run.ArtifactPath, &runCtx, &run.Valid,
			&run.Confidence, &summary, &details, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Kind = Kind(kind)
		run.Context = runCtx.String
		run.Summary = summary.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &run.Details); err != nil {
				return nil, fmt.Errorf("unmarshal run details: %w", err)
			}
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Stats summarises every recorded run.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByKind: make(map[Kind]int)}

	var (
		valid sql.NullInt64
		avg   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN valid THEN 1 ELSE 0 END), AVG(confidence) FROM runs`,
	).Scan(&stats.Total, &valid, &avg)
	if err != nil {
		return nil, fmt.Errorf("query run totals: %w", err)
	}
	stats.Valid = int(valid.Int64)
	stats.Invalid = stats.Total - stats.Valid
	stats.AverageConfidence = avg.Float64

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM runs GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query runs by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		stats.ByKind[Kind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kind counts: %w", err)
	}

	if stats.Total > 0 {
		runs, err := s.Recent(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) > 0 {
			stats.LastRun = runs[0].CreatedAt
		}
	}
	return stats, nil
}
