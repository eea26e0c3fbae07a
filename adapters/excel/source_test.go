package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"studyqc/domain/table"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTempWorkbook(t *testing.T, name string, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(sheet, cell, v))
			}
		}
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadDatasetCSV(t *testing.T) {
	path := writeTempCSV(t, "study.csv", "id,bmi,sex\n1,24.5,M\n2,,F\n")
	src := NewStudySource(nil)

	ds, err := src.ReadDataset(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "bmi", "sex"}, ds.Columns)
	require.Equal(t, 2, ds.RowCount())
	assert.Equal(t, table.Num(24.5), ds.Value(0, 1))
	assert.True(t, ds.Value(1, 1).IsNull(), "blank cell reads as null")
	assert.Equal(t, table.Str("M"), ds.Value(0, 2))
}

func TestReadDatasetCSVPadsShortRows(t *testing.T) {
	path := writeTempCSV(t, "ragged.csv", "id,weight\n1,80\n2\n")
	src := NewStudySource(nil)

	ds, err := src.ReadDataset(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, ds.RowCount())
	assert.True(t, ds.Value(1, 1).IsNull())
}

func TestReadDatasetSkipsBlankRowsAndUnnamedColumns(t *testing.T) {
	path := writeTempCSV(t, "messy.csv", "id,,bmi\n1,junk,20\n,,\n2,junk,21\n")
	src := NewStudySource(nil)

	ds, err := src.ReadDataset(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "bmi"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, table.Num(20), ds.Value(0, 1))
}

func TestReadDatasetXLSXSheetSelection(t *testing.T) {
	path := writeTempWorkbook(t, "study.xlsx", map[string][][]interface{}{
		"data": {
			{"id", "bmi"},
			{1, 24.5},
			{2, 31.0},
		},
	})
	src := NewStudySource(nil)

	ds, err := src.ReadDataset(context.Background(), path+"#data")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "bmi"}, ds.Columns)
	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, table.Num(24.5), ds.Value(0, 1))

	// Bare ref falls back to the first sheet.
	ds2, err := src.ReadDataset(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, ds2.Columns)
}

func TestReadDatasetMissingFile(t *testing.T) {
	src := NewStudySource(nil)
	_, err := src.ReadDataset(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestReadDatasetDuplicateColumns(t *testing.T) {
	path := writeTempCSV(t, "dup.csv", "id,id\n1,2\n")
	src := NewStudySource(nil)
	_, err := src.ReadDataset(context.Background(), path)
	require.Error(t, err)
}

func TestReadChangeRulesCSV(t *testing.T) {
	path := writeTempCSV(t, "changes.csv",
		"variable,kind,trigger,replacement,comment\n"+
			"smoker,direct,\"9,99\",0,legacy missing code\n"+
			"weight,expression,weight > 500,weight / 10,decimal shift\n")
	src := NewStudySource(nil)

	rs, err := src.ReadChangeRules(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "smoker", rs[0].Variable)
	assert.Equal(t, "legacy missing code", rs[0].Comment)
	assert.Equal(t, "weight > 500", rs[1].Condition)
}

func TestReadWarningRulesCSV(t *testing.T) {
	path := writeTempCSV(t, "warnings.csv",
		"variable,kind,min,max,comment\n"+
			"bmi,range,16,50,BMI out of range\n")
	src := NewStudySource(nil)

	rs, err := src.ReadWarningRules(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "bmi", rs[0].Variable)
	require.NotNil(t, rs[0].Lower)
	assert.Equal(t, 16.0, *rs[0].Lower)
}

func TestReadDictionaryCSV(t *testing.T) {
	path := writeTempCSV(t, "dict.csv",
		"Variable,Category,Label\nbmi,vitals,Body mass index\nsex,demographics,\n")
	src := NewStudySource(nil)

	d, err := src.ReadDictionary(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"bmi", "sex"}, d.Variables())
}
