package ports

import (
	"context"

	"studyqc/domain/dict"
	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// DatasetSource acquires a study dataset from external storage. The ref is
// adapter-specific: a file path for the workbook adapters, an object key for
// anything remote.
type DatasetSource interface {
	ReadDataset(ctx context.Context, ref string) (*table.Dataset, error)
}

// RuleSource acquires the correction and review rule tables for a study
type RuleSource interface {
	ReadChangeRules(ctx context.Context, ref string) ([]rules.ChangeRule, error)
	ReadWarningRules(ctx context.Context, ref string) ([]rules.WarningRule, error)
}

// DictionarySource acquires a study's data dictionary
type DictionarySource interface {
	ReadDictionary(ctx context.Context, ref string) (*dict.Dictionary, error)
}

// StudySource is the full acquisition surface the run pipeline needs.
// The workbook adapter satisfies it in one type.
type StudySource interface {
	DatasetSource
	RuleSource
	DictionarySource
}
