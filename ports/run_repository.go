package ports

import (
	"context"

	"studyqc/domain/core"
)

// RunStatus tracks a QC run through its lifecycle
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the persisted outcome of one QC run. The full report is kept
// as a JSON document alongside the queryable columns.
type RunRecord struct {
	ID                core.RunID       `db:"id" json:"id"`
	StudyKey          core.StudyKey    `db:"study_key" json:"study_key"`
	Status            RunStatus        `db:"status" json:"status"`
	StartedAt         core.Timestamp   `db:"started_at" json:"started_at"`
	CompletedAt       *core.Timestamp  `db:"completed_at" json:"completed_at,omitempty"`
	DurationMs        int64            `db:"duration_ms" json:"duration_ms"`
	InputFingerprint  core.DatasetHash `db:"input_fingerprint" json:"input_fingerprint"`
	OutputFingerprint core.DatasetHash `db:"output_fingerprint" json:"output_fingerprint,omitempty"`
	InputRows         int              `db:"input_rows" json:"input_rows"`
	FlaggedRows       int              `db:"flagged_rows" json:"flagged_rows"`
	TotalChanges      int              `db:"total_changes" json:"total_changes"`
	TotalWarnings     int              `db:"total_warnings" json:"total_warnings"`
	Error             string           `db:"error" json:"error,omitempty"`
	ReportJSON        []byte           `db:"report_json" json:"-"`
}

// RunFilters narrows run listings
type RunFilters struct {
	StudyKey *core.StudyKey
	Status   *RunStatus
	Limit    int
	Offset   int
}

// RunRepository defines the interface for run-history storage
type RunRepository interface {
	Create(ctx context.Context, rec *RunRecord) error
	Update(ctx context.Context, rec *RunRecord) error
	GetByID(ctx context.Context, id core.RunID) (*RunRecord, error)
	List(ctx context.Context, filters RunFilters) ([]*RunRecord, error)
}
