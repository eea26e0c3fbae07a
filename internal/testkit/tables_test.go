package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/rules"
	"studyqc/domain/table"
)

func tableRecords(ds *table.Dataset) []rules.RawRecord {
	records := make([]rules.RawRecord, 0, ds.RowCount())
	for _, row := range ds.CellStrings() {
		rec := make(rules.RawRecord, len(ds.Columns))
		for i, col := range ds.Columns {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records
}

func TestChangeRulesTableRoundTrip(t *testing.T) {
	original := StandardChangeRules()

	parsed, err := rules.ParseChangeRules(tableRecords(ChangeRulesTable(original)))
	require.NoError(t, err)
	require.Len(t, parsed, len(original))

	for i, want := range original {
		got := parsed[i]
		assert.Equal(t, want.Kind, got.Kind, "rule %d kind", i)
		assert.Equal(t, want.Variable, got.Variable, "rule %d variable", i)
		assert.Equal(t, want.CrossVariable, got.CrossVariable, "rule %d cross variable", i)
		assert.Equal(t, want.Trigger, got.Trigger, "rule %d trigger", i)
		assert.Equal(t, want.Condition, got.Condition, "rule %d condition", i)
		assert.Equal(t, want.CrossCondition, got.CrossCondition, "rule %d cross condition", i)
		assert.Equal(t, want.Replacement, got.Replacement, "rule %d replacement", i)
		assert.Equal(t, want.Comment, got.Comment, "rule %d comment", i)
	}
}

func TestWarningRulesTableRoundTrip(t *testing.T) {
	original := StandardWarningRules()

	parsed, err := rules.ParseWarningRules(tableRecords(WarningRulesTable(original)))
	require.NoError(t, err)
	require.Len(t, parsed, len(original))

	for i, want := range original {
		got := parsed[i]
		assert.Equal(t, want.Kind, got.Kind, "rule %d kind", i)
		assert.Equal(t, want.Variable, got.Variable, "rule %d variable", i)
		assert.Equal(t, want.Lower, got.Lower, "rule %d lower", i)
		assert.Equal(t, want.Upper, got.Upper, "rule %d upper", i)
		assert.Equal(t, want.Valid, got.Valid, "rule %d valid set", i)
		assert.Equal(t, want.CrossValue, got.CrossValue, "rule %d cross value", i)
		assert.Equal(t, want.FormulaVariables, got.FormulaVariables, "rule %d formula variables", i)
		assert.Equal(t, want.Formula, got.Formula, "rule %d formula", i)
		assert.Equal(t, want.CommentTarget, got.CommentTarget, "rule %d comment target", i)
	}
}

func TestDictionaryTableShape(t *testing.T) {
	d := StandardDictionary()
	ds := DictionaryTable(d)

	require.NoError(t, ds.Validate())
	assert.Equal(t, []string{"variable", "category", "label"}, ds.Columns)
	assert.Equal(t, d.Len(), ds.RowCount())
	assert.Equal(t, table.Str(d.Entries[0].Variable), ds.Value(0, 0))
}
