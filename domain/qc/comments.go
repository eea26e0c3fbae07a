package qc

import (
	"strings"

	"studyqc/domain/table"
)

// Comment columns are derived provenance columns sitting next to the data
// they annotate. They are created lazily when a rule first matches, appended
// to on later matches, pruned when no rule ever matched, and repositioned
// next to their source variable only as a final pass.
const (
	// ChangeSuffix names the per-variable correction-provenance column
	ChangeSuffix = ".data.change"
	// WarningSuffix names the per-variable review-flag column
	WarningSuffix = ".data.warning"

	// commentSeparator joins accumulated comments; the exact text including
	// surrounding spaces is relied on by downstream summary parsing
	commentSeparator = " | "
)

// ChangeColumnName returns the change-comment column for a variable
func ChangeColumnName(variable string) string { return variable + ChangeSuffix }

// WarningColumnName returns the warning-comment column for a variable
func WarningColumnName(variable string) string { return variable + WarningSuffix }

// IsChangeColumn reports whether a column name is a change-comment column
func IsChangeColumn(name string) bool { return strings.HasSuffix(name, ChangeSuffix) }

// IsWarningColumn reports whether a column name is a warning-comment column
func IsWarningColumn(name string) bool { return strings.HasSuffix(name, WarningSuffix) }

// IsCommentColumn reports whether a column carries comments of either kind
func IsCommentColumn(name string) bool { return IsChangeColumn(name) || IsWarningColumn(name) }

// ensureColumn returns the index of the named column, appending a null-filled
// column when it does not exist yet.
func ensureColumn(ds *table.Dataset, name string) int {
	if idx, ok := ds.ColumnIndex(name); ok {
		return idx
	}
	idx, _ := ds.AddColumn(name, table.Null())
	return idx
}

// appendComment writes text into a comment cell, joining onto any comment
// already there.
func appendComment(ds *table.Dataset, row, col int, text string) {
	current := ds.Value(row, col)
	if current.IsNull() || current.String() == "" {
		ds.SetValue(row, col, table.Str(text))
		return
	}
	ds.SetValue(row, col, table.Str(current.String()+commentSeparator+text))
}

// SplitComments splits an accumulated comment cell back into its parts
func SplitComments(cell table.Value) []string {
	if cell.IsNull() {
		return nil
	}
	text := cell.String()
	if text == "" {
		return nil
	}
	parts := strings.Split(text, commentSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pruneEmptyColumns drops every column with the given suffix whose cells are
// null in all rows, keeping the relative order of everything else.
func pruneEmptyColumns(ds *table.Dataset, suffix string) {
	var drop []string
	for i, col := range ds.Columns {
		if !strings.HasSuffix(col, suffix) {
			continue
		}
		empty := true
		for _, row := range ds.Rows {
			if !row[i].IsNull() {
				empty = false
				break
			}
		}
		if empty {
			drop = append(drop, col)
		}
	}
	ds.DropColumns(drop...)
}

// reorderPairedByIndex zips non-comment and comment columns positionally:
// first data column, first comment column, second data column, and so on,
// with leftovers from the longer list following in their original order.
// This is the coarse arrangement used right after change rules run, before
// names can be trusted to pair columns.
func reorderPairedByIndex(ds *table.Dataset, suffix string) error {
	var dataIdx, commentIdx []int
	for i, col := range ds.Columns {
		if strings.HasSuffix(col, suffix) {
			commentIdx = append(commentIdx, i)
		} else {
			dataIdx = append(dataIdx, i)
		}
	}
	order := make([]int, 0, len(ds.Columns))
	for k := 0; k < len(dataIdx) || k < len(commentIdx); k++ {
		if k < len(dataIdx) {
			order = append(order, dataIdx[k])
		}
		if k < len(commentIdx) {
			order = append(order, commentIdx[k])
		}
	}
	return ds.ReorderColumns(order)
}

// reorderPairedByName places each comment column immediately after the data
// column obtained by stripping its suffix. Comment columns with no matching
// data column stay where they are; data columns without comments are
// untouched. Several suffixes can be arranged in one pass, in the order
// given, so a variable's change column precedes its warning column.
func reorderPairedByName(ds *table.Dataset, suffixes ...string) error {
	matched := make(map[int]bool)
	bySource := make(map[string][]int)
	for _, suffix := range suffixes {
		for i, col := range ds.Columns {
			if !strings.HasSuffix(col, suffix) {
				continue
			}
			source := strings.TrimSuffix(col, suffix)
			if source == "" || !ds.HasColumn(source) {
				continue
			}
			matched[i] = true
			bySource[source] = append(bySource[source], i)
		}
	}

	order := make([]int, 0, len(ds.Columns))
	for i, col := range ds.Columns {
		if matched[i] {
			continue
		}
		order = append(order, i)
		order = append(order, bySource[col]...)
	}
	return ds.ReorderColumns(order)
}
