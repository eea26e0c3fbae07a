package qc

import (
	"fmt"
	"strings"
	"unicode"

	"studyqc/domain/qc/expr"
	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// sentinelCodes are the universal placeholders for not-applicable, refused,
// and unknown. They are exempt from range checks.
var sentinelCodes = map[float64]bool{666: true, 777: true, 888: true}

// IsSentinel reports whether a numeric value is one of the universal
// placeholder codes. Descriptive statistics exclude these too.
func IsSentinel(n float64) bool {
	return sentinelCodes[n]
}

// ApplyWarnings folds an ordered review rule set over the dataset. Warning
// handlers never mutate study data; they only append to warning-comment
// columns. Pre-existing warning columns and stray "Comments"-prefixed
// columns are dropped first. After the fold, warning columns are paired to
// their variables by name, then change and warning columns together, empty
// warning columns are pruned, and the result is narrowed to rows carrying at
// least one comment of either kind. The returned dataset is the narrowed
// one; the input keeps all rows.
func ApplyWarnings(ds *table.Dataset, ruleSet []rules.WarningRule, log *RunLog) (*table.Dataset, error) {
	dropColumnsWithSuffix(ds, WarningSuffix)
	dropStrayCommentColumns(ds)

	for i, rule := range ruleSet {
		var err error
		switch rule.Kind {
		case rules.WarningRange:
			err = applyRangeWarning(ds, rule, log)
		case rules.WarningValueSet:
			err = applyValueSetWarning(ds, rule, log)
		case rules.WarningCrossVar:
			err = applyCrossVarWarning(ds, rule, log)
		default:
			log.UnknownKind(ruleLabel(rule.Comment, rule.Variable), string(rule.Kind))
		}
		if err != nil {
			return ds, fmt.Errorf("warning rule %d (%s): %w", i+1, rule.Variable, err)
		}
	}

	if err := reorderPairedByName(ds, WarningSuffix); err != nil {
		return ds, err
	}
	if err := reorderPairedByName(ds, ChangeSuffix, WarningSuffix); err != nil {
		return ds, err
	}
	pruneEmptyColumns(ds, WarningSuffix)
	if err := ds.Validate(); err != nil {
		return ds, err
	}

	commentIdx := make([]int, 0, len(ds.Columns))
	for i, col := range ds.Columns {
		if IsCommentColumn(col) {
			commentIdx = append(commentIdx, i)
		}
	}
	flagged := ds.FilterRows(func(row []table.Value) bool {
		for _, i := range commentIdx {
			if !row[i].IsNull() {
				return true
			}
		}
		return false
	})
	return flagged, nil
}

// applyRangeWarning flags values below the lower bound or above the upper
// bound. Null cells, non-numeric cells, and the sentinel codes 666/777/888
// are exempt.
func applyRangeWarning(ds *table.Dataset, rule rules.WarningRule, log *RunLog) error {
	label := ruleLabel(rule.Comment, rule.Variable)
	idx, ok := ds.ColumnIndex(rule.Variable)
	if !ok {
		log.SkippedRule(label, rule.Variable, "variable not in dataset")
		return nil
	}

	commentCol := -1
	for r := range ds.Rows {
		cell := ds.Value(r, idx)
		if cell.IsNull() {
			continue
		}
		n, numeric := cell.Float()
		if !numeric || sentinelCodes[n] {
			continue
		}
		outOfRange := (rule.Lower != nil && n < *rule.Lower) ||
			(rule.Upper != nil && n > *rule.Upper)
		if !outOfRange {
			continue
		}
		if commentCol < 0 {
			commentCol = ensureColumn(ds, WarningColumnName(rule.Target()))
		}
		appendComment(ds, r, commentCol, rule.Comment)
	}
	return nil
}

// applyValueSetWarning flags every row whose value is not a member of the
// valid set. Null cells are not members of anything, so they are flagged.
func applyValueSetWarning(ds *table.Dataset, rule rules.WarningRule, log *RunLog) error {
	label := ruleLabel(rule.Comment, rule.Variable)
	idx, ok := ds.ColumnIndex(rule.Variable)
	if !ok {
		log.SkippedRule(label, rule.Variable, "variable not in dataset")
		return nil
	}

	set, err := ParseValueSet(rule.Valid)
	if err != nil {
		return err
	}

	commentCol := -1
	for r := range ds.Rows {
		if ValueInSet(ds.Value(r, idx), set) {
			continue
		}
		if commentCol < 0 {
			commentCol = ensureColumn(ds, WarningColumnName(rule.Target()))
		}
		appendComment(ds, r, commentCol, rule.Comment)
	}
	return nil
}

// applyCrossVarWarning flags rows where the cross variable matches its
// expected value but the consistency formula fails outright. The rule needs
// the checked variable, the cross variable, and every formula variable
// present; one missing dependency disables the whole rule. A formula error
// or null outcome counts as the formula holding, so such rows are never
// flagged.
func applyCrossVarWarning(ds *table.Dataset, rule rules.WarningRule, log *RunLog) error {
	label := ruleLabel(rule.Comment, rule.Variable)
	if _, ok := ds.ColumnIndex(rule.Variable); !ok {
		log.SkippedRule(label, rule.Variable, "variable not in dataset")
		return nil
	}
	crossIdx, ok := ds.ColumnIndex(rule.CrossVariable)
	if !ok {
		log.SkippedRule(label, rule.CrossVariable, "cross variable not in dataset")
		return nil
	}
	for _, name := range rule.FormulaVariables {
		if !ds.HasColumn(name) {
			log.SkippedRule(label, name, "formula variable not in dataset")
			return nil
		}
	}

	formula, err := expr.Parse(rule.Formula)
	if err != nil {
		log.EvalFailure(label, rule.Formula, err)
		return nil
	}

	matcher, err := newCrossMatcher(rule.CrossValue, rule.CrossVariable, label, log)
	if err != nil {
		return err
	}
	if matcher == nil {
		return nil
	}

	commentCol := -1
	for r := range ds.Rows {
		if !matcher(ds.Value(r, crossIdx)) {
			continue
		}

		outcome, err := formula.Eval(ds.RowBindings(r))
		if err != nil {
			log.EvalFailure(label, rule.Formula, err)
			continue
		}
		if !outcome.IsFalse() {
			continue
		}

		if commentCol < 0 {
			commentCol = ensureColumn(ds, WarningColumnName(rule.Target()))
		}
		appendComment(ds, r, commentCol, rule.Comment)
	}
	return nil
}

// newCrossMatcher builds the cross-variable matcher from the literal form of
// the expected value: a pure-numeric list is numeric membership, a string
// with any character beyond alphanumerics, commas, dots, underscores, and
// spaces is a boolean expression, and anything else is string membership.
// A nil matcher (with nil error) means the expression failed to parse and
// the rule should no-op.
func newCrossMatcher(crossValue any, crossVariable, label string, log *RunLog) (func(table.Value) bool, error) {
	raw, isString := crossValue.(string)
	if isString && !pureNumericList(raw) && hasExpressionChar(raw) {
		prog, err := expr.Parse(raw)
		if err != nil {
			log.EvalFailure(label, raw, err)
			return nil, nil
		}
		return func(cell table.Value) bool {
			outcome, err := prog.EvalSingle(crossVariable, cell)
			if err != nil {
				log.EvalFailure(label, raw, err)
				return false
			}
			return condHolds(outcome)
		}, nil
	}

	set, err := ParseValueSet(crossValue)
	if err != nil {
		return nil, err
	}
	return func(cell table.Value) bool {
		return ValueInSet(cell, set)
	}, nil
}

// pureNumericList reports whether every comma-separated token parses as a
// number.
func pureNumericList(raw string) bool {
	set, err := ParseValueSet(raw)
	if err != nil {
		return false
	}
	for _, v := range set {
		if !v.IsNumber() {
			return false
		}
	}
	return true
}

// hasExpressionChar reports a character that could not appear in a plain
// value list: anything beyond letters, digits, commas, dots, underscores,
// and whitespace.
func hasExpressionChar(raw string) bool {
	return strings.IndexFunc(raw, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return false
		}
		switch r {
		case ',', '.', '_':
			return false
		}
		return true
	}) >= 0
}

// dropStrayCommentColumns removes free-text "Comments" columns that some
// source workbooks carry, so they cannot collide with derived warning
// columns or survive into the flagged-rows output.
func dropStrayCommentColumns(ds *table.Dataset) {
	var drop []string
	for _, col := range ds.Columns {
		if strings.HasPrefix(col, "Comments") {
			drop = append(drop, col)
		}
	}
	ds.DropColumns(drop...)
}
