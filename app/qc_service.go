package app

import (
	"context"
	"encoding/json"
	"time"

	"studyqc/domain/core"
	"studyqc/domain/dict"
	"studyqc/domain/qc"
	"studyqc/domain/report"
	"studyqc/domain/table"
	"studyqc/internal"
	apperrors "studyqc/internal/errors"
	"studyqc/internal/profiling"
	"studyqc/ports"
)

// QCService orchestrates one study's QC run: acquire the dataset and rule
// tables, normalize column names against the dictionary, apply corrections,
// apply review rules, summarize, export, and record the run.
type QCService struct {
	source   ports.StudySource
	writer   ports.DatasetWriter
	reports  ports.ReportSink
	runs     ports.RunRepository
	profiler *profiling.Profiler
	logger   *internal.Logger
}

// RunRequest defines the inputs and destinations for one QC run. The refs
// are source/sink specific; empty destination refs skip that export. An
// empty DictionaryRef skips normalization and the missing-variables check.
type RunRequest struct {
	StudyKey        core.StudyKey `json:"study_key"`
	DatasetRef      string        `json:"dataset_ref"`
	ChangeRulesRef  string        `json:"change_rules_ref"`
	WarningRulesRef string        `json:"warning_rules_ref"`
	DictionaryRef   string        `json:"dictionary_ref,omitempty"`
	OutputRef       string        `json:"output_ref,omitempty"`
	FlaggedRef      string        `json:"flagged_ref,omitempty"`
	ReportRef       string        `json:"report_ref,omitempty"`
	Profile         bool          `json:"profile,omitempty"`
}

// RunResult is the in-memory outcome of a completed run
type RunResult struct {
	RunID     core.RunID
	Report    report.Report
	Corrected *table.Dataset
	Flagged   *table.Dataset
	Log       *qc.RunLog
}

// NewQCService creates a QC service. The run repository may be nil, in
// which case runs are not recorded.
func NewQCService(source ports.StudySource, writer ports.DatasetWriter, reports ports.ReportSink, runs ports.RunRepository, logger *internal.Logger) *QCService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &QCService{
		source:   source,
		writer:   writer,
		reports:  reports,
		runs:     runs,
		profiler: profiling.NewProfiler(),
		logger:   logger.WithComponent("QCService"),
	}
}

// RunStudy executes the full pipeline for one study
func (s *QCService) RunStudy(ctx context.Context, req RunRequest) (*RunResult, error) {
	startTime := time.Now()
	rec := &ports.RunRecord{
		ID:        core.NewRunID(),
		StudyKey:  req.StudyKey,
		Status:    ports.RunRunning,
		StartedAt: core.Now(),
	}
	s.logger.Info("run %s started for study %s", rec.ID, req.StudyKey)

	if s.runs != nil {
		if err := s.runs.Create(ctx, rec); err != nil {
			return nil, apperrors.Wrap(err, "recording run start")
		}
	}

	ds, err := s.source.ReadDataset(ctx, req.DatasetRef)
	if err != nil {
		return nil, s.fail(ctx, rec, startTime, apperrors.SourceError(req.DatasetRef, err))
	}
	changeRules, err := s.source.ReadChangeRules(ctx, req.ChangeRulesRef)
	if err != nil {
		return nil, s.fail(ctx, rec, startTime, apperrors.SourceError(req.ChangeRulesRef, err))
	}
	warningRules, err := s.source.ReadWarningRules(ctx, req.WarningRulesRef)
	if err != nil {
		return nil, s.fail(ctx, rec, startTime, apperrors.SourceError(req.WarningRulesRef, err))
	}

	var dictionary *dict.Dictionary
	if req.DictionaryRef != "" {
		if dictionary, err = s.source.ReadDictionary(ctx, req.DictionaryRef); err != nil {
			return nil, s.fail(ctx, rec, startTime, apperrors.SourceError(req.DictionaryRef, err))
		}
	}

	var renames []dict.Rename
	var dictVariables []string
	if dictionary != nil {
		renames = dictionary.NormalizeColumns(ds)
		dictVariables = dictionary.Variables()
		if len(renames) > 0 {
			s.logger.Info("run %s normalized %d column names", rec.ID, len(renames))
		}
	}

	inputStats := datasetStats(ds)
	rec.InputFingerprint = inputStats.Fingerprint
	rec.InputRows = inputStats.Rows

	runLog := qc.NewRunLog(s.logger)
	if _, err := qc.ApplyChanges(ds, changeRules, runLog); err != nil {
		return nil, s.fail(ctx, rec, startTime, apperrors.RunFailed(err))
	}
	flagged, err := qc.ApplyWarnings(ds, warningRules, runLog)
	if err != nil {
		return nil, s.fail(ctx, rec, startTime, apperrors.RunFailed(err))
	}

	summary := qc.Summarize(ds, dictVariables)

	rep := report.Report{
		RunID:        rec.ID,
		StudyKey:     req.StudyKey,
		GeneratedAt:  core.Now(),
		Input:        inputStats,
		Output:       datasetStats(ds),
		Flagged:      datasetStats(flagged),
		ChangeRules:  len(changeRules),
		WarningRules: len(warningRules),
		Summary:      summary,
		Renames:      renames,
		Events:       runLog.Events,
	}
	if req.Profile {
		rep.Profiles = s.profiler.ProfileDataset(ds)
	}

	if req.OutputRef != "" {
		if err := s.writer.WriteDataset(ctx, req.OutputRef, ds); err != nil {
			return nil, s.fail(ctx, rec, startTime, apperrors.ExportError(req.OutputRef, err))
		}
	}
	if req.FlaggedRef != "" {
		if err := s.writer.WriteDataset(ctx, req.FlaggedRef, flagged); err != nil {
			return nil, s.fail(ctx, rec, startTime, apperrors.ExportError(req.FlaggedRef, err))
		}
	}
	if req.ReportRef != "" {
		if err := s.reports.WriteReport(ctx, req.ReportRef, rep); err != nil {
			return nil, s.fail(ctx, rec, startTime, apperrors.ExportError(req.ReportRef, err))
		}
	}

	s.complete(ctx, rec, startTime, rep, flagged)
	s.logger.Info("run %s completed: %d changes, %d warnings, %d flagged rows",
		rec.ID, summary.TotalChanges(), summary.TotalWarnings(), flagged.RowCount())

	return &RunResult{
		RunID:     rec.ID,
		Report:    rep,
		Corrected: ds,
		Flagged:   flagged,
		Log:       runLog,
	}, nil
}

func (s *QCService) complete(ctx context.Context, rec *ports.RunRecord, startTime time.Time, rep report.Report, flagged *table.Dataset) {
	now := core.Now()
	rec.Status = ports.RunCompleted
	rec.CompletedAt = &now
	rec.DurationMs = time.Since(startTime).Milliseconds()
	rec.OutputFingerprint = rep.Output.Fingerprint
	rec.FlaggedRows = flagged.RowCount()
	rec.TotalChanges = rep.Summary.TotalChanges()
	rec.TotalWarnings = rep.Summary.TotalWarnings()
	if payload, err := json.Marshal(rep); err == nil {
		rec.ReportJSON = payload
	}

	if s.runs != nil {
		if err := s.runs.Update(ctx, rec); err != nil {
			s.logger.Error("run %s not recorded: %v", rec.ID, err)
		}
	}
}

// fail records the aborted run and returns the cause. Partial mutation is
// not rolled back; the run record marks the output unusable.
func (s *QCService) fail(ctx context.Context, rec *ports.RunRecord, startTime time.Time, cause error) error {
	now := core.Now()
	rec.Status = ports.RunFailed
	rec.CompletedAt = &now
	rec.DurationMs = time.Since(startTime).Milliseconds()
	rec.Error = cause.Error()

	if s.runs != nil {
		if err := s.runs.Update(ctx, rec); err != nil {
			s.logger.Error("run %s failure not recorded: %v", rec.ID, err)
		}
	}
	s.logger.Error("run %s failed: %v", rec.ID, cause)
	return cause
}

func datasetStats(ds *table.Dataset) report.DatasetStats {
	return report.DatasetStats{
		Rows:        ds.RowCount(),
		Columns:     ds.ColumnCount(),
		Fingerprint: ds.Fingerprint(),
	}
}
