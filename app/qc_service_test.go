package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/core"
	"studyqc/domain/report"
	"studyqc/domain/table"
	apperrors "studyqc/internal/errors"
	"studyqc/internal/testkit"
	"studyqc/ports"
)

func sampleSource() *testkit.MemoryStudySource {
	study := testkit.SampleStudy()
	return testkit.NewMemoryStudySource().
		AddDataset("data", study.Dataset).
		AddChangeRules("changes", study.ChangeRules).
		AddWarningRules("warnings", study.WarningRules).
		AddDictionary("dict", study.Dictionary)
}

func sampleRequest() RunRequest {
	return RunRequest{
		StudyKey:        core.StudyKey("SAMPLE-01"),
		DatasetRef:      "data",
		ChangeRulesRef:  "changes",
		WarningRulesRef: "warnings",
		DictionaryRef:   "dict",
	}
}

func TestRunStudyEndToEnd(t *testing.T) {
	repo := testkit.NewMemoryRunRepository()
	svc := NewQCService(sampleSource(), nil, nil, repo, nil)

	res, err := svc.RunStudy(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Report.Summary.TotalChanges())
	assert.Equal(t, 3, res.Report.Summary.TotalWarnings())
	assert.Equal(t, []string{"hdl"}, res.Report.Summary.MissingVariables)
	assert.Empty(t, res.Log.Events, "sample study needs no skips or failures")

	assert.Equal(t, 8, res.Report.Input.Rows)
	assert.Equal(t, 9, res.Report.Input.Columns)
	assert.Equal(t, 16, res.Report.Output.Columns,
		"four change columns and three warning columns added")
	assert.Equal(t, 7, res.Flagged.RowCount(), "only the clean subject drops out")

	smoker, _ := res.Corrected.ColumnValues("smoker")
	assert.Equal(t, table.Num(0), smoker[1], "legacy code recoded")
	sex, _ := res.Corrected.ColumnValues("sex")
	assert.Equal(t, table.Str("M"), sex[2], "lowercase sex capitalized")
	pregnant, _ := res.Corrected.ColumnValues("pregnant")
	assert.Equal(t, table.Num(0), pregnant[3], "male pregnancy cleared")
	weight, _ := res.Corrected.ColumnValues("weight_kg")
	assert.Equal(t, table.Num(81.2), weight[7], "decimal shift corrected")

	rec, err := repo.GetByID(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, ports.RunCompleted, rec.Status)
	assert.Equal(t, 8, rec.InputRows)
	assert.Equal(t, 7, rec.FlaggedRows)
	assert.Equal(t, 4, rec.TotalChanges)
	assert.Equal(t, 3, rec.TotalWarnings)
	assert.NotEmpty(t, rec.ReportJSON)
	assert.NotNil(t, rec.CompletedAt)
}

func TestRunStudyMissingDatasetFails(t *testing.T) {
	repo := testkit.NewMemoryRunRepository()
	svc := NewQCService(sampleSource(), nil, nil, repo, nil)

	req := sampleRequest()
	req.DatasetRef = "absent"

	_, err := svc.RunStudy(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSourceError, apperrors.GetCode(err))

	runs, err := repo.List(context.Background(), ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ports.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRunStudyWithoutRepository(t *testing.T) {
	svc := NewQCService(sampleSource(), nil, nil, nil, nil)

	res, err := svc.RunStudy(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 7, res.Flagged.RowCount())
}

func TestRunStudyWithoutDictionary(t *testing.T) {
	svc := NewQCService(sampleSource(), nil, nil, nil, nil)

	req := sampleRequest()
	req.DictionaryRef = ""

	res, err := svc.RunStudy(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Report.Summary.MissingVariables)
	assert.Empty(t, res.Report.Renames)
}

func TestRunStudyProfile(t *testing.T) {
	svc := NewQCService(sampleSource(), nil, nil, nil, nil)

	req := sampleRequest()
	req.Profile = true

	res, err := svc.RunStudy(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Report.Profiles)

	byName := make(map[string]report.ColumnProfile)
	for _, p := range res.Report.Profiles {
		byName[p.Column] = p
	}
	bmi, ok := byName["bmi"]
	require.True(t, ok)
	assert.Equal(t, 8, bmi.Count)
}

type captureWriter struct {
	datasets map[string]*table.Dataset
	reports  map[string]report.Report
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{
		datasets: make(map[string]*table.Dataset),
		reports:  make(map[string]report.Report),
	}
}

func (c *captureWriter) WriteDataset(_ context.Context, ref string, ds *table.Dataset) error {
	c.datasets[ref] = ds
	return nil
}

func (c *captureWriter) WriteReport(_ context.Context, ref string, rep report.Report) error {
	c.reports[ref] = rep
	return nil
}

func TestRunStudyExports(t *testing.T) {
	sink := newCaptureWriter()
	svc := NewQCService(sampleSource(), sink, sink, nil, nil)

	req := sampleRequest()
	req.OutputRef = "corrected.xlsx"
	req.FlaggedRef = "flagged.csv"
	req.ReportRef = "report.html"

	res, err := svc.RunStudy(context.Background(), req)
	require.NoError(t, err)

	require.Contains(t, sink.datasets, "corrected.xlsx")
	require.Contains(t, sink.datasets, "flagged.csv")
	assert.Equal(t, 8, sink.datasets["corrected.xlsx"].RowCount())
	assert.Equal(t, 7, sink.datasets["flagged.csv"].RowCount())

	rep, ok := sink.reports["report.html"]
	require.True(t, ok)
	assert.Equal(t, res.RunID, rep.RunID)
}
