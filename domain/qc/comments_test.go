package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/table"
)

func newTestDataset(t *testing.T, columns []string, rows [][]table.Value) *table.Dataset {
	t.Helper()
	ds, err := table.NewDataset(columns, rows)
	require.NoError(t, err)
	return ds
}

func TestEnsureColumn(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "bmi"},
		[][]table.Value{{table.Num(1), table.Num(20)}, {table.Num(2), table.Num(30)}},
	)

	idx := ensureColumn(ds, "bmi.data.change")
	assert.Equal(t, 2, idx)
	for r := range ds.Rows {
		assert.True(t, ds.Value(r, idx).IsNull(), "new column starts null-filled")
	}

	again := ensureColumn(ds, "bmi.data.change")
	assert.Equal(t, idx, again, "existing column is reused")
	assert.Equal(t, 3, ds.ColumnCount())
}

func TestAppendCommentAccumulates(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id"},
		[][]table.Value{{table.Num(1)}},
	)
	col := ensureColumn(ds, "x.data.change")

	appendComment(ds, 0, col, "first")
	assert.Equal(t, table.Str("first"), ds.Value(0, col))

	appendComment(ds, 0, col, "second")
	assert.Equal(t, table.Str("first | second"), ds.Value(0, col))

	assert.Equal(t, []string{"first", "second"}, SplitComments(ds.Value(0, col)))
}

func TestSplitComments(t *testing.T) {
	assert.Nil(t, SplitComments(table.Null()))
	assert.Nil(t, SplitComments(table.Str("")))
	assert.Equal(t, []string{"only"}, SplitComments(table.Str("only")))
	assert.Equal(t, []string{"a", "b", "c"}, SplitComments(table.Str("a | b | c")))
}

func TestPruneEmptyColumns(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "a.data.change", "bmi", "b.data.change"},
		[][]table.Value{
			{table.Num(1), table.Null(), table.Num(20), table.Str("fixed")},
			{table.Num(2), table.Null(), table.Num(30), table.Null()},
		},
	)

	pruneEmptyColumns(ds, ChangeSuffix)

	assert.Equal(t, []string{"id", "bmi", "b.data.change"}, ds.Columns,
		"all-null comment column dropped, rest keep relative order")
	assert.NoError(t, ds.Validate())
}

func TestPruneLeavesOtherSuffixesAlone(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "a.data.warning"},
		[][]table.Value{{table.Num(1), table.Null()}},
	)

	pruneEmptyColumns(ds, ChangeSuffix)
	assert.Equal(t, []string{"id", "a.data.warning"}, ds.Columns)

	pruneEmptyColumns(ds, WarningSuffix)
	assert.Equal(t, []string{"id"}, ds.Columns)
}

func TestReorderPairedByIndex(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "bmi", "bmi.data.change", "weight"},
		[][]table.Value{{table.Num(1), table.Num(20), table.Str("c"), table.Num(70)}},
	)

	require.NoError(t, reorderPairedByIndex(ds, ChangeSuffix))

	// Positional zip: first data column, first comment column, then the rest
	assert.Equal(t, []string{"id", "bmi.data.change", "bmi", "weight"}, ds.Columns)
	assert.NoError(t, ds.Validate())
}

func TestReorderPairedByIndexUnevenCounts(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"a.data.change", "b.data.change", "id"},
		[][]table.Value{{table.Str("x"), table.Str("y"), table.Num(1)}},
	)

	require.NoError(t, reorderPairedByIndex(ds, ChangeSuffix))
	assert.Equal(t, []string{"id", "a.data.change", "b.data.change"}, ds.Columns,
		"extra comment columns follow in original order")
}

func TestReorderPairedByName(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "bmi", "weight", "bmi.data.warning"},
		[][]table.Value{{table.Num(1), table.Num(20), table.Num(70), table.Str("w")}},
	)

	require.NoError(t, reorderPairedByName(ds, WarningSuffix))
	assert.Equal(t, []string{"id", "bmi", "bmi.data.warning", "weight"}, ds.Columns)
}

func TestReorderPairedByNameUnmatchedCommentStays(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"id", "gone.data.warning", "bmi"},
		[][]table.Value{{table.Num(1), table.Str("w"), table.Num(20)}},
	)

	require.NoError(t, reorderPairedByName(ds, WarningSuffix))
	assert.Equal(t, []string{"id", "gone.data.warning", "bmi"}, ds.Columns,
		"comment column with no source variable keeps its position")
}

func TestReorderPairedByNameBothSuffixes(t *testing.T) {
	ds := newTestDataset(t,
		[]string{"bmi.data.warning", "id", "bmi.data.change", "bmi"},
		[][]table.Value{{table.Str("w"), table.Num(1), table.Str("c"), table.Num(20)}},
	)

	require.NoError(t, reorderPairedByName(ds, ChangeSuffix, WarningSuffix))
	assert.Equal(t, []string{"id", "bmi", "bmi.data.change", "bmi.data.warning"}, ds.Columns,
		"change column precedes warning column behind their variable")
}
