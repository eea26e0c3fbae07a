// Package postgres persists QC run records. The engine itself never needs a
// database; this adapter is wired only when DATABASE_URL is configured.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"studyqc/domain/core"
	"studyqc/ports"
)

// runRepository implements ports.RunRepository over a qc_runs table
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a postgres-backed run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

const runColumns = `
	id, study_key, status, started_at, completed_at, duration_ms,
	COALESCE(input_fingerprint, '') AS input_fingerprint,
	COALESCE(output_fingerprint, '') AS output_fingerprint,
	input_rows, flagged_rows, total_changes, total_warnings,
	COALESCE(error, '') AS error,
	COALESCE(report_json::text, '') AS report_json`

// Create inserts a new run record
func (r *runRepository) Create(ctx context.Context, rec *ports.RunRecord) error {
	query := `INSERT INTO qc_runs (
		id, study_key, status, started_at, completed_at, duration_ms,
		input_fingerprint, output_fingerprint, input_rows, flagged_rows,
		total_changes, total_warnings, error, report_json
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.StudyKey, rec.Status, rec.StartedAt.Time(), completedAt(rec),
		rec.DurationMs, rec.InputFingerprint, rec.OutputFingerprint,
		rec.InputRows, rec.FlaggedRows, rec.TotalChanges, rec.TotalWarnings,
		rec.Error, reportParam(rec),
	)
	if err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	return nil
}

// Update overwrites an existing run record
func (r *runRepository) Update(ctx context.Context, rec *ports.RunRecord) error {
	query := `UPDATE qc_runs SET
		study_key = $2, status = $3, started_at = $4, completed_at = $5,
		duration_ms = $6, input_fingerprint = $7, output_fingerprint = $8,
		input_rows = $9, flagged_rows = $10, total_changes = $11,
		total_warnings = $12, error = $13, report_json = $14
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.StudyKey, rec.Status, rec.StartedAt.Time(), completedAt(rec),
		rec.DurationMs, rec.InputFingerprint, rec.OutputFingerprint,
		rec.InputRows, rec.FlaggedRows, rec.TotalChanges, rec.TotalWarnings,
		rec.Error, reportParam(rec),
	)
	if err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, rec.ID)
	}
	return nil
}

// GetByID retrieves one run record
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	query := `SELECT` + runColumns + ` FROM qc_runs WHERE id = $1`

	rec, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	return rec, nil
}

// List retrieves run records newest first, honoring the filters
func (r *runRepository) List(ctx context.Context, filters ports.RunFilters) ([]*ports.RunRecord, error) {
	query, args := listQuery(filters)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	var records []*ports.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// listQuery builds the filtered SELECT with positional args
func listQuery(filters ports.RunFilters) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`SELECT` + runColumns + ` FROM qc_runs`)

	var conds []string
	var args []interface{}
	if filters.StudyKey != nil {
		args = append(args, *filters.StudyKey)
		conds = append(conds, fmt.Sprintf("study_key = $%d", len(args)))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	b.WriteString(" ORDER BY started_at DESC, id DESC")
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*ports.RunRecord, error) {
	var rec ports.RunRecord
	var startedAt time.Time
	var finishedAt sql.NullTime
	var reportJSON string

	err := row.Scan(
		&rec.ID, &rec.StudyKey, &rec.Status, &startedAt, &finishedAt,
		&rec.DurationMs, &rec.InputFingerprint, &rec.OutputFingerprint,
		&rec.InputRows, &rec.FlaggedRows, &rec.TotalChanges, &rec.TotalWarnings,
		&rec.Error, &reportJSON,
	)
	if err != nil {
		return nil, err
	}

	rec.StartedAt = core.NewTimestamp(startedAt)
	if finishedAt.Valid {
		ts := core.NewTimestamp(finishedAt.Time)
		rec.CompletedAt = &ts
	}
	if reportJSON != "" {
		rec.ReportJSON = []byte(reportJSON)
	}
	return &rec, nil
}

func completedAt(rec *ports.RunRecord) sql.NullTime {
	if rec.CompletedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: rec.CompletedAt.Time(), Valid: true}
}

// reportParam passes the report JSON as text so the jsonb cast happens
// server side; an empty report stores NULL.
func reportParam(rec *ports.RunRecord) sql.NullString {
	if len(rec.ReportJSON) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(rec.ReportJSON), Valid: true}
}
