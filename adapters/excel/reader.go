// Package excel reads and writes study tables as XLSX workbooks or CSV
// files. A ref names a file path, optionally followed by "#sheet" to pick a
// workbook sheet ("study.xlsx#changes"). CSV files carry a single table and
// ignore the sheet part.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// splitRef separates the file path from the optional sheet name
func splitRef(ref string) (path, sheet string) {
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// readRows loads the raw cell grid behind a ref. An XLSX ref with no sheet
// part reads the workbook's first sheet.
func readRows(ref string) ([][]string, error) {
	path, sheet := splitRef(ref)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if isCSV(path) {
		return readCSVRows(path)
	}
	return readSheetRows(path, sheet)
}

func readSheetRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// namedColumns trims the header row and drops unnamed columns, returning the
// surviving cell indices alongside the cleaned names.
func namedColumns(header []string) (indices []int, names []string) {
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		indices = append(indices, i)
		names = append(names, name)
	}
	return indices, names
}

// blankRow reports whether every cell is empty after trimming. Workbook
// readers hand back trailing rows of formatting residue; those are not data.
func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// datasetFromRows builds a typed dataset from a raw grid. Cells coerce per
// table.ParseCell; rows shorter than the header pad with null, cells beyond
// the header are ignored.
func datasetFromRows(rows [][]string) (*table.Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty table: no header row")
	}
	indices, names := namedColumns(rows[0])
	if len(names) == 0 {
		return nil, fmt.Errorf("empty table: no named columns")
	}

	var data [][]table.Value
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		cells := make([]table.Value, len(indices))
		for i, col := range indices {
			if col < len(row) {
				cells[i] = table.ParseCell(row[col])
			} else {
				cells[i] = table.Null()
			}
		}
		data = append(data, cells)
	}
	return table.NewDataset(names, data)
}

// recordsFromRows builds header-keyed records from a raw grid, for the rule
// and dictionary parsers.
func recordsFromRows(rows [][]string) []rules.RawRecord {
	if len(rows) < 2 {
		return nil
	}
	indices, names := namedColumns(rows[0])

	var records []rules.RawRecord
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := make(rules.RawRecord, len(names))
		for i, col := range indices {
			if col < len(row) {
				rec[names[i]] = strings.TrimSpace(row[col])
			} else {
				rec[names[i]] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}
