package qc

import (
	"fmt"
	"math"
	"strings"

	"studyqc/domain/qc/expr"
	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// ApplyChanges folds an ordered correction rule set over the dataset. Any
// change-comment columns left over from a previous run are dropped first, so
// re-running the same rule set never compounds old comments. After the fold,
// comment columns are arranged next to the data columns positionally and
// never-matched comment columns are pruned. The dataset is mutated in place
// and returned.
func ApplyChanges(ds *table.Dataset, ruleSet []rules.ChangeRule, log *RunLog) (*table.Dataset, error) {
	dropColumnsWithSuffix(ds, ChangeSuffix)

	for i, rule := range ruleSet {
		var err error
		switch rule.Kind {
		case rules.ChangeDirect:
			err = applyDirectChange(ds, rule, log)
		case rules.ChangeExpression:
			err = applyExpressionChange(ds, rule, log)
		case rules.ChangeCrossVar:
			err = applyCrossVarChange(ds, rule, log)
		default:
			log.UnknownKind(ruleLabel(rule.Comment, rule.Variable), string(rule.Kind))
		}
		if err != nil {
			return ds, fmt.Errorf("change rule %d (%s): %w", i+1, rule.Variable, err)
		}
	}

	if err := reorderPairedByIndex(ds, ChangeSuffix); err != nil {
		return ds, err
	}
	pruneEmptyColumns(ds, ChangeSuffix)
	return ds, ds.Validate()
}

// applyDirectChange replaces values belonging to the trigger set with the
// rule's replacement.
func applyDirectChange(ds *table.Dataset, rule rules.ChangeRule, log *RunLog) error {
	label := ruleLabel(rule.Comment, rule.Variable)
	idx, ok := ds.ColumnIndex(rule.Variable)
	if !ok {
		log.SkippedRule(label, rule.Variable, "variable not in dataset")
		return nil
	}

	set, err := ParseValueSet(rule.Trigger)
	if err != nil {
		return err
	}
	replacement := replacementCell(rule.Replacement)

	commentCol := -1
	for r := range ds.Rows {
		if !ValueInSet(ds.Value(r, idx), set) {
			continue
		}
		ds.SetValue(r, idx, replacement)
		if commentCol < 0 {
			commentCol = ensureColumn(ds, ChangeColumnName(rule.Variable))
		}
		appendComment(ds, r, commentCol, rule.Comment)
	}
	return nil
}

// applyExpressionChange replaces values whose condition expression holds
// with the evaluated replacement, which may itself be a formula over the
// same variable.
func applyExpressionChange(ds *table.Dataset, rule rules.ChangeRule, log *RunLog) error {
	label := ruleLabel(rule.Comment, rule.Variable)
	idx, ok := ds.ColumnIndex(rule.Variable)
	if !ok {
		log.SkippedRule(label, rule.Variable, "variable not in dataset")
		return nil
	}

	cond, err := expr.Parse(rule.Condition)
	if err != nil {
		log.EvalFailure(label, rule.Condition, err)
		return nil
	}

	var replProg *expr.Program
	var replConst table.Value
	switch repl := rule.Replacement.(type) {
	case string:
		replProg, err = expr.Parse(repl)
		if err != nil {
			log.EvalFailure(label, repl, err)
			return nil
		}
	default:
		replConst = replacementCell(rule.Replacement)
	}

	commentCol := -1
	for r := range ds.Rows {
		cell := ds.Value(r, idx)
		outcome, err := cond.EvalSingle(rule.Variable, cell)
		if err != nil {
			log.EvalFailure(label, rule.Condition, err)
			continue
		}
		if !condHolds(outcome) {
			continue
		}

		next := replConst
		if replProg != nil {
			result, err := replProg.EvalSingle(rule.Variable, cell)
			if err != nil {
				log.EvalFailure(label, replProg.Source(), err)
				continue
			}
			next = result.Cell()
		}

		ds.SetValue(r, idx, next)
		if commentCol < 0 {
			commentCol = ensureColumn(ds, ChangeColumnName(rule.Variable))
		}
		appendComment(ds, r, commentCol, rule.Comment)
	}
	return nil
}

// applyCrossVarChange replaces trigger-set values on rows where a second
// variable's own condition also holds. The cross condition is an expression
// when it carries comparison or connective tokens, a value set otherwise.
func applyCrossVarChange(ds *table.Dataset, rule rules.ChangeRule, log *RunLog) error {
	label := ruleLabel(rule.Comment, rule.Variable)
	idx, ok := ds.ColumnIndex(rule.Variable)
	if !ok {
		log.SkippedRule(label, rule.Variable, "variable not in dataset")
		return nil
	}
	crossIdx, ok := ds.ColumnIndex(rule.CrossVariable)
	if !ok {
		log.SkippedRule(label, rule.CrossVariable, "cross variable not in dataset")
		return nil
	}

	set, err := ParseValueSet(rule.Trigger)
	if err != nil {
		return err
	}
	replacement := replacementCell(rule.Replacement)

	var crossProg *expr.Program
	var crossSet []table.Value
	if looksLikeExpression(rule.CrossCondition) {
		crossProg, err = expr.Parse(rule.CrossCondition)
		if err != nil {
			log.EvalFailure(label, rule.CrossCondition, err)
			return nil
		}
	} else {
		crossSet, err = ParseValueSet(rule.CrossCondition)
		if err != nil {
			return err
		}
	}

	commentCol := -1
	for r := range ds.Rows {
		if !ValueInSet(ds.Value(r, idx), set) {
			continue
		}

		crossCell := ds.Value(r, crossIdx)
		crossOK := false
		if crossProg != nil {
			outcome, err := crossProg.EvalSingle(rule.CrossVariable, crossCell)
			if err != nil {
				log.EvalFailure(label, rule.CrossCondition, err)
				continue
			}
			crossOK = condHolds(outcome)
		} else {
			crossOK = ValueInSet(crossCell, crossSet)
		}
		if !crossOK {
			continue
		}

		ds.SetValue(r, idx, replacement)
		if commentCol < 0 {
			commentCol = ensureColumn(ds, ChangeColumnName(rule.Variable))
		}
		appendComment(ds, r, commentCol, rule.Comment)
	}
	return nil
}

// condHolds applies the fail-closed boolean boundary: boolean true and
// non-zero numbers hold; null, NaN, and strings do not.
func condHolds(v expr.Value) bool {
	switch v.Kind {
	case expr.KindBool:
		return v.Bool
	case expr.KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	}
	return false
}

// replacementCell converts a rule's replacement field into a dataset cell
func replacementCell(repl any) table.Value {
	switch v := repl.(type) {
	case float64:
		return table.Num(v)
	case int:
		return table.Num(float64(v))
	case string:
		return table.ParseCell(v)
	case table.Value:
		return v
	}
	return table.Null()
}

// dropColumnsWithSuffix removes every column carrying the suffix, regardless
// of content. Used by the drivers for idempotent re-runs.
func dropColumnsWithSuffix(ds *table.Dataset, suffix string) {
	var drop []string
	for _, col := range ds.Columns {
		if strings.HasSuffix(col, suffix) {
			drop = append(drop, col)
		}
	}
	ds.DropColumns(drop...)
}

// ruleLabel identifies a rule in logs by its comment text, falling back to
// the variable name for rules with no comment.
func ruleLabel(comment, variable string) string {
	if comment != "" {
		return comment
	}
	return variable
}
