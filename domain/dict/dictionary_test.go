package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/rules"
	"studyqc/domain/table"
)

func testDictionary() *Dictionary {
	return New([]Entry{
		{Variable: "id", Category: "identifiers"},
		{Variable: "bmi", Category: "vitals", Label: "body mass index"},
		{Variable: "weight_kg", Category: "vitals"},
		{Variable: "sex", Category: "demographics"},
	})
}

func TestParseEntries(t *testing.T) {
	entries := ParseEntries([]rules.RawRecord{
		{"Variable": "bmi", "Category": "vitals", "Label": "body mass index"},
		{"NAME": "sex", "Group": "demographics"},
		{"variable": "", "category": "blank row"},
	})

	require.Len(t, entries, 2, "blank rows dropped")
	assert.Equal(t, Entry{Variable: "bmi", Category: "vitals", Label: "body mass index"}, entries[0])
	assert.Equal(t, Entry{Variable: "sex", Category: "demographics"}, entries[1])
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	d := testDictionary()

	e, ok := d.Lookup("BMI")
	require.True(t, ok)
	assert.Equal(t, "bmi", e.Variable)

	_, ok = d.Lookup("height")
	assert.False(t, ok)
}

func TestVariablesKeepOrder(t *testing.T) {
	assert.Equal(t, []string{"id", "bmi", "weight_kg", "sex"}, testDictionary().Variables())
}

func TestCategoriesFirstAppearance(t *testing.T) {
	assert.Equal(t, []string{"identifiers", "vitals", "demographics"}, testDictionary().Categories())
}

func TestNormalizeColumns(t *testing.T) {
	ds, err := table.NewDataset(
		[]string{"ID", "Bmi", "sex", "extra"},
		[][]table.Value{{table.Num(1), table.Num(20), table.Str("M"), table.Null()}},
	)
	require.NoError(t, err)

	renames := testDictionary().NormalizeColumns(ds)

	assert.Equal(t, []string{"id", "bmi", "sex", "extra"}, ds.Columns,
		"matching columns take the dictionary casing, others untouched")
	assert.Equal(t, []Rename{{From: "ID", To: "id"}, {From: "Bmi", To: "bmi"}}, renames)
}

func TestNormalizeColumnsKeepsCollidingColumn(t *testing.T) {
	ds, err := table.NewDataset(
		[]string{"bmi", "BMI"},
		[][]table.Value{{table.Num(20), table.Num(21)}},
	)
	require.NoError(t, err)

	renames := testDictionary().NormalizeColumns(ds)

	assert.Empty(t, renames)
	assert.Equal(t, []string{"bmi", "BMI"}, ds.Columns,
		"a rename that would duplicate an existing column is skipped")
}

func TestMissingFrom(t *testing.T) {
	ds, err := table.NewDataset(
		[]string{"id", "bmi"},
		[][]table.Value{{table.Num(1), table.Num(20)}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"weight_kg", "sex"}, testDictionary().MissingFrom(ds))
}
