// Package report assembles the per-run QC report: what the engine changed,
// what it flagged, which dictionary variables were missing, and what it had
// to skip. The model renders to markdown for archival and to HTML for the
// API and browser.
package report

import (
	"fmt"

	"studyqc/domain/core"
	"studyqc/domain/dict"
	"studyqc/domain/qc"
)

// DatasetStats describes one dataset's shape at a pipeline stage.
type DatasetStats struct {
	Rows        int              `json:"rows"`
	Columns     int              `json:"columns"`
	Fingerprint core.DatasetHash `json:"fingerprint,omitempty"`
}

// ColumnProfile holds descriptive statistics for one numeric column of the
// corrected dataset. Missing counts null, non-numeric, and sentinel cells.
type ColumnProfile struct {
	Column   string  `json:"column"`
	Count    int     `json:"count"`
	Missing  int     `json:"missing"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	NormalP  float64 `json:"normal_p"`
	Outliers int     `json:"outliers"`
}

// Report is the full outcome of one QC run.
type Report struct {
	RunID        core.RunID      `json:"run_id"`
	StudyKey     core.StudyKey   `json:"study_key"`
	GeneratedAt  core.Timestamp  `json:"generated_at"`
	Input        DatasetStats    `json:"input"`
	Output       DatasetStats    `json:"output"`
	Flagged      DatasetStats    `json:"flagged"`
	ChangeRules  int             `json:"change_rules"`
	WarningRules int             `json:"warning_rules"`
	Summary      qc.Summary      `json:"summary"`
	Renames      []dict.Rename   `json:"renames,omitempty"`
	Events       []qc.Event      `json:"events,omitempty"`
	Profiles     []ColumnProfile `json:"profiles,omitempty"`
}

// Title is the report heading used by both renderers.
func (r Report) Title() string {
	return fmt.Sprintf("Study QC Report: %s", r.StudyKey)
}

// Clean reports a run with nothing corrected, nothing flagged, and no
// skipped rules or evaluation failures.
func (r Report) Clean() bool {
	return r.Summary.TotalChanges() == 0 &&
		r.Summary.TotalWarnings() == 0 &&
		len(r.Events) == 0
}
