package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS evaluation_passes (
	pass_id          TEXT PRIMARY KEY,
	execution_id     TEXT NOT NULL,
	total_evaluated  INTEGER NOT NULL,
	failure_count    INTEGER NOT NULL,
	summary          TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_passes_execution ON evaluation_passes(execution_id, created_at);

CREATE TABLE IF NOT EXISTS expression_attempts (
	pass_id     TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	expression  TEXT NOT NULL,
	PRIMARY KEY (pass_id, seq),
	FOREIGN KEY (pass_id) REFERENCES evaluation_passes(pass_id)
);

CREATE TABLE IF NOT EXISTS expression_results (
	pass_id       TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	expression    TEXT NOT NULL,
	level         TEXT NOT NULL,
	description   TEXT NOT NULL,
	cause         TEXT,
	timestamp_ms  INTEGER NOT NULL,
	PRIMARY KEY (pass_id, seq),
	FOREIGN KEY (pass_id) REFERENCES evaluation_passes(pass_id)
);
`
// #endregion schema

// createdLayout sorts lexically in time order, unlike RFC3339Nano.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store keeps reports of completed evaluation passes in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region save-pass
// SavePass snapshots a finished summary and stores it under executionID.
// The returned record carries the new pass ID.
func (s *Store) SavePass(executionID string, sum *summary.EvaluationSummary) (PassRecord, error) {
	rec := PassRecord{
		PassID:         uuid.New().String(),
		ExecutionID:    executionID,
		TotalEvaluated: sum.TotalEvaluated(),
		FailureCount:   sum.FailureCount(),
		Summary:        sum.String(),
		CreatedAt:      s.now().UTC(),
		Attempted:      sum.Attempted(),
		Failed:         sum.FailedExpressions(),
		Results:        sum.Results(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return PassRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO evaluation_passes (pass_id, execution_id, total_evaluated, failure_count, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.PassID, rec.ExecutionID, rec.TotalEvaluated, rec.FailureCount, rec.Summary,
		rec.CreatedAt.Format(createdLayout),
	)
	if err != nil {
		return PassRecord{}, fmt.Errorf("insert pass: %w", err)
	}

	for i, expr := range rec.Attempted {
		_, err = tx.Exec(
			`INSERT INTO expression_attempts (pass_id, seq, expression) VALUES (?, ?, ?)`,
			rec.PassID, i, expr,
		)
		if err != nil {
			return PassRecord{}, fmt.Errorf("insert attempt: %w", err)
		}
	}

	seq := 0
	for _, expr := range rec.Failed {
		for _, r := range rec.Results[expr] {
			var cause interface{}
			if r.Cause != summary.KindNone {
				cause = string(r.Cause)
			}
			_, err = tx.Exec(
				`INSERT INTO expression_results (pass_id, seq, expression, level, description, cause, timestamp_ms)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.PassID, seq, expr, r.Level.String(), r.Description, cause, r.TimestampMillis(),
			)
			if err != nil {
				return PassRecord{}, fmt.Errorf("insert result: %w", err)
			}
			seq++
		}
	}

	if err := tx.Commit(); err != nil {
		return PassRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}
// #endregion save-pass

// #region get-pass
// GetPass loads one pass with its attempts and results.
func (s *Store) GetPass(passID string) (PassRecord, error) {
	var rec PassRecord
	var createdStr string
	err := s.db.QueryRow(
		`SELECT pass_id, execution_id, total_evaluated, failure_count, summary, created_at
		 FROM evaluation_passes WHERE pass_id = ?`, passID,
	).Scan(&rec.PassID, &rec.ExecutionID, &rec.TotalEvaluated, &rec.FailureCount, &rec.Summary, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return PassRecord{}, fmt.Errorf("get pass %s: %w", passID, ErrPassNotFound)
	}
	if err != nil {
		return PassRecord{}, fmt.Errorf("get pass %s: %w", passID, err)
	}
	if rec.CreatedAt, err = time.Parse(createdLayout, createdStr); err != nil {
		return PassRecord{}, fmt.Errorf("get pass %s: parse created_at: %w", passID, err)
	}

	if rec.Attempted, err = s.loadAttempts(passID); err != nil {
		return PassRecord{}, err
	}
	if rec.Failed, rec.Results, err = s.loadResults(passID); err != nil {
		return PassRecord{}, err
	}
	return rec, nil
}

func (s *Store) loadAttempts(passID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT expression FROM expression_attempts WHERE pass_id = ? ORDER BY seq ASC`, passID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var expr string
		if err := rows.Scan(&expr); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, expr)
	}
	return out, rows.Err()
}

func (s *Store) loadResults(passID string) ([]string, map[string][]summary.Result, error) {
	rows, err := s.db.Query(
		`SELECT expression, level, description, cause, timestamp_ms
		 FROM expression_results WHERE pass_id = ? ORDER BY seq ASC`, passID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var order []string
	results := make(map[string][]summary.Result)
	for rows.Next() {
		var expr, levelStr, desc string
		var cause sql.NullString
		var ms int64
		if err := rows.Scan(&expr, &levelStr, &desc, &cause, &ms); err != nil {
			return nil, nil, fmt.Errorf("scan result: %w", err)
		}
		level, err := summary.ParseLevel(levelStr)
		if err != nil {
			return nil, nil, fmt.Errorf("scan result: %w", err)
		}
		if _, seen := results[expr]; !seen {
			order = append(order, expr)
		}
		r := summary.Result{
			Level:       level,
			Timestamp:   time.UnixMilli(ms).UTC(),
			Description: desc,
		}
		if cause.Valid {
			r.Cause = summary.Kind(cause.String)
		}
		results[expr] = append(results[expr], r)
	}
	return order, results, rows.Err()
}
// #endregion get-pass

// #region list-passes
// ListPasses returns the most recent passes for executionID, newest first.
// An empty executionID lists passes for every execution.
func (s *Store) ListPasses(executionID string, limit int) ([]PassRecord, error) {
	query := `SELECT pass_id, execution_id, total_evaluated, failure_count, summary, created_at
		 FROM evaluation_passes`
	var args []interface{}
	if executionID != "" {
		query += ` WHERE execution_id = ?`
		args = append(args, executionID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		var rec PassRecord
		var createdStr string
		if err := rows.Scan(&rec.PassID, &rec.ExecutionID, &rec.TotalEvaluated, &rec.FailureCount, &rec.Summary, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		created, err := time.Parse(createdLayout, createdStr)
		if err != nil {
			return nil, fmt.Errorf("pass %s: parse created_at: %w", rec.PassID, err)
		}
		rec.CreatedAt = created
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-passes
