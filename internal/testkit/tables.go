package testkit

import (
	"fmt"
	"strconv"
	"strings"

	"studyqc/domain/dict"
	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// ChangeRulesTable lays correction rules out in the canonical sheet form
// the loader reads back, so a generated study can be written to a workbook
// and run end to end.
func ChangeRulesTable(ruleSet []rules.ChangeRule) *table.Dataset {
	ds := &table.Dataset{
		Columns: []string{"kind", "variable", "cross_variable", "trigger_values", "condition", "cross_condition", "replacement", "comment"},
	}
	for _, r := range ruleSet {
		ds.Rows = append(ds.Rows, []table.Value{
			table.ParseCell(string(r.Kind)),
			table.Str(r.Variable),
			table.ParseCell(r.CrossVariable),
			table.ParseCell(specString(r.Trigger)),
			table.ParseCell(r.Condition),
			table.ParseCell(r.CrossCondition),
			table.ParseCell(specString(r.Replacement)),
			table.Str(r.Comment),
		})
	}
	return ds
}

// WarningRulesTable lays review rules out in the canonical sheet form
func WarningRulesTable(ruleSet []rules.WarningRule) *table.Dataset {
	ds := &table.Dataset{
		Columns: []string{"kind", "variable", "cross_variable", "lower", "upper", "valid_values", "cross_value", "formula", "formula_variables", "comment_target", "comment"},
	}
	for _, r := range ruleSet {
		ds.Rows = append(ds.Rows, []table.Value{
			table.ParseCell(string(r.Kind)),
			table.Str(r.Variable),
			table.ParseCell(r.CrossVariable),
			table.ParseCell(boundString(r.Lower)),
			table.ParseCell(boundString(r.Upper)),
			table.ParseCell(specString(r.Valid)),
			table.ParseCell(specString(r.CrossValue)),
			table.ParseCell(r.Formula),
			table.ParseCell(strings.Join(r.FormulaVariables, ",")),
			table.ParseCell(r.CommentTarget),
			table.Str(r.Comment),
		})
	}
	return ds
}

// DictionaryTable lays a dictionary out in the canonical sheet form
func DictionaryTable(d *dict.Dictionary) *table.Dataset {
	ds := &table.Dataset{Columns: []string{"variable", "category", "label"}}
	for _, e := range d.Entries {
		ds.Rows = append(ds.Rows, []table.Value{
			table.Str(e.Variable),
			table.ParseCell(e.Category),
			table.ParseCell(e.Label),
		})
	}
	return ds
}

// specString renders a value-set spec the way rule sheets write them:
// a bare number, a comma list, or empty for absent.
func specString(spec any) string {
	switch v := spec.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, specString(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func boundString(b *float64) string {
	if b == nil {
		return ""
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}
