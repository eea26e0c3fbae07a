package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"studyqc/domain/report"
	"studyqc/domain/table"
	"studyqc/internal"
)

// Writer exports datasets and run reports to files, creating parent
// directories as needed. The ref's extension picks the format: .csv or
// .xlsx for datasets; .html, .json, or Markdown for reports. It satisfies
// ports.DatasetWriter and ports.ReportSink.
type Writer struct {
	logger *internal.Logger
}

// NewWriter creates a file-backed export writer
func NewWriter(logger *internal.Logger) *Writer {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Writer{logger: logger.WithComponent("WorkbookWriter")}
}

// WriteDataset writes the dataset as CSV or as a single-sheet workbook
func (w *Writer) WriteDataset(_ context.Context, ref string, ds *table.Dataset) error {
	path, _ := splitRef(ref)
	if err := ensureDir(path); err != nil {
		return err
	}

	var err error
	if isCSV(path) {
		err = writeCSV(path, ds)
	} else {
		err = writeXLSX(path, ds)
	}
	if err != nil {
		return err
	}
	w.logger.Info("wrote dataset %s (%d columns, %d rows)", path, ds.ColumnCount(), ds.RowCount())
	return nil
}

func writeCSV(path string, ds *table.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	for _, row := range ds.CellStrings() {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(path string, ds *table.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := fillSheet(f, "Sheet1", ds); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// Sheet pairs a sheet name with the dataset to place on it
type Sheet struct {
	Name string
	Data *table.Dataset
}

// WriteWorkbook writes several datasets into one workbook, one sheet each.
// The first sheet replaces the workbook's default sheet.
func (w *Writer) WriteWorkbook(_ context.Context, path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}
		if err := fillSheet(f, s.Name, s.Data); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	w.logger.Info("wrote workbook %s (%d sheets)", path, len(sheets))
	return nil
}

func fillSheet(f *excelize.File, sheet string, ds *table.Dataset) error {
	for i, name := range ds.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}

	// Numbers keep their native cell type; null cells stay empty.
	for r := 0; r < ds.RowCount(); r++ {
		for c := 0; c < ds.ColumnCount(); c++ {
			v := ds.Value(r, c)
			if v.IsNull() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			var err error
			if v.IsNumber() {
				err = f.SetCellValue(sheet, cell, v.Num)
			} else {
				err = f.SetCellValue(sheet, cell, v.Str)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteReport renders the report by extension: HTML, JSON, or Markdown
func (w *Writer) WriteReport(_ context.Context, ref string, rep report.Report) error {
	if err := ensureDir(ref); err != nil {
		return err
	}

	var payload []byte
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".html", ".htm":
		payload = report.RenderHTML(rep)
	case ".json":
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		payload = b
	default:
		payload = []byte(report.RenderMarkdown(rep))
	}

	if err := os.WriteFile(ref, payload, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ref, err)
	}
	w.logger.Info("wrote report %s (%d bytes)", ref, len(payload))
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
