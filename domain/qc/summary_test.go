package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studyqc/domain/table"
)

func TestSummarizeCountsDistinctComments(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "bmi", "bmi.data.change", "bmi.data.warning"},
		[][]table.Value{
			{table.Num(1), table.Num(20), table.Str("recoded"), table.Str("out of range")},
			{table.Num(2), table.Num(21), table.Str("recoded | unit fixed"), table.Null()},
			{table.Num(3), table.Num(22), table.Null(), table.Str("out of range")},
		},
	)

	s := Summarize(ds, nil)

	assert.Equal(t, map[string]int{"recoded": 2, "unit fixed": 1}, s.ChangeCounts,
		"accumulated cells count each comment once")
	assert.Equal(t, map[string]int{"out of range": 2}, s.WarningCounts)
	assert.Equal(t, 3, s.TotalChanges())
	assert.Equal(t, 2, s.TotalWarnings())
}

func TestSummarizeIgnoresDataColumns(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "note"},
		[][]table.Value{{table.Num(1), table.Str("free text")}},
	)

	s := Summarize(ds, nil)

	assert.Empty(t, s.ChangeCounts)
	assert.Empty(t, s.WarningCounts)
}

func TestSummarizeMissingVariables(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "bmi"},
		[][]table.Value{{table.Num(1), table.Num(20)}},
	)

	s := Summarize(ds, []string{"id", "bmi", "weight", "height"})
	assert.Equal(t, []string{"weight", "height"}, s.MissingVariables)
	assert.False(t, s.NoneMissing())

	s = Summarize(ds, []string{"id", "bmi"})
	assert.True(t, s.NoneMissing())
}

func TestSortedComments(t *testing.T) {
	counts := map[string]int{
		"unit fixed":   1,
		"out of range": 3,
		"recoded":      1,
	}

	assert.Equal(t, []string{"out of range", "recoded", "unit fixed"}, SortedComments(counts),
		"descending count, ties alphabetical")
}
