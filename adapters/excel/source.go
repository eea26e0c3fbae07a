package excel

import (
	"context"
	"fmt"

	"studyqc/domain/dict"
	"studyqc/domain/rules"
	"studyqc/domain/table"
	"studyqc/internal"
)

// StudySource reads datasets, rule tables, and dictionaries from workbook
// files. It satisfies ports.StudySource; refs follow the package's
// path#sheet convention.
type StudySource struct {
	logger *internal.Logger
}

// NewStudySource creates a workbook-backed study source
func NewStudySource(logger *internal.Logger) *StudySource {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &StudySource{logger: logger.WithComponent("WorkbookSource")}
}

// ReadDataset loads a study table, coercing numeric-looking cells to
// numbers and blank cells to null.
func (s *StudySource) ReadDataset(_ context.Context, ref string) (*table.Dataset, error) {
	rows, err := readRows(ref)
	if err != nil {
		return nil, err
	}
	ds, err := datasetFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	s.logger.Info("read dataset %s (%d columns, %d rows)", ref, ds.ColumnCount(), ds.RowCount())
	return ds, nil
}

// ReadChangeRules loads and parses a correction rule table
func (s *StudySource) ReadChangeRules(_ context.Context, ref string) ([]rules.ChangeRule, error) {
	rows, err := readRows(ref)
	if err != nil {
		return nil, err
	}
	parsed, err := rules.ParseChangeRules(recordsFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	s.logger.Info("read %d correction rules from %s", len(parsed), ref)
	return parsed, nil
}

// ReadWarningRules loads and parses a review rule table
func (s *StudySource) ReadWarningRules(_ context.Context, ref string) ([]rules.WarningRule, error) {
	rows, err := readRows(ref)
	if err != nil {
		return nil, err
	}
	parsed, err := rules.ParseWarningRules(recordsFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	s.logger.Info("read %d review rules from %s", len(parsed), ref)
	return parsed, nil
}

// ReadDictionary loads a data dictionary sheet
func (s *StudySource) ReadDictionary(_ context.Context, ref string) (*dict.Dictionary, error) {
	rows, err := readRows(ref)
	if err != nil {
		return nil, err
	}
	d := dict.New(dict.ParseEntries(recordsFromRows(rows)))
	s.logger.Info("read dictionary %s (%d variables)", ref, d.Len())
	return d, nil
}
