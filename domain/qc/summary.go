package qc

import (
	"sort"

	"studyqc/domain/table"
)

// Summary is the per-study report payload: how often each distinct comment
// was applied, split by correction and review, plus the dictionary variables
// the dataset never delivered.
type Summary struct {
	ChangeCounts     map[string]int `json:"change_counts"`
	WarningCounts    map[string]int `json:"warning_counts"`
	MissingVariables []string       `json:"missing_variables"`
}

// Summarize tallies distinct comment strings across all change columns and
// all warning columns. Accumulated cells are split on the comment separator
// first, so a cell holding two comments counts each once. dictVariables is
// the ordered variable list from the study's data dictionary; entries absent
// from the dataset are reported missing.
func Summarize(ds *table.Dataset, dictVariables []string) Summary {
	s := Summary{
		ChangeCounts:  make(map[string]int),
		WarningCounts: make(map[string]int),
	}

	for i, col := range ds.Columns {
		var bucket map[string]int
		switch {
		case IsChangeColumn(col):
			bucket = s.ChangeCounts
		case IsWarningColumn(col):
			bucket = s.WarningCounts
		default:
			continue
		}
		for _, row := range ds.Rows {
			for _, comment := range SplitComments(row[i]) {
				bucket[comment]++
			}
		}
	}

	for _, name := range dictVariables {
		if !ds.HasColumn(name) {
			s.MissingVariables = append(s.MissingVariables, name)
		}
	}
	return s
}

// NoneMissing reports whether every dictionary variable was present
func (s Summary) NoneMissing() bool {
	return len(s.MissingVariables) == 0
}

// TotalChanges returns the total number of change comments applied
func (s Summary) TotalChanges() int {
	return total(s.ChangeCounts)
}

// TotalWarnings returns the total number of warning comments applied
func (s Summary) TotalWarnings() int {
	return total(s.WarningCounts)
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// SortedComments returns a frequency table's comments ordered by descending
// count, ties alphabetical, for stable report rendering.
func SortedComments(counts map[string]int) []string {
	comments := make([]string, 0, len(counts))
	for c := range counts {
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if counts[comments[i]] != counts[comments[j]] {
			return counts[comments[i]] > counts[comments[j]]
		}
		return comments[i] < comments[j]
	})
	return comments
}
