package ports

import (
	"context"

	"studyqc/domain/report"
	"studyqc/domain/table"
)

// DatasetWriter exports a dataset to external storage. The ref's extension
// picks the format for the file adapters.
type DatasetWriter interface {
	WriteDataset(ctx context.Context, ref string, ds *table.Dataset) error
}

// ReportSink persists a rendered run report
type ReportSink interface {
	WriteReport(ctx context.Context, ref string, rep report.Report) error
}
