package rules

import (
	"fmt"
	"strconv"
	"strings"

	"studyqc/domain/core"
)

// RawRecord is one rule-table row keyed by header name, as read from a
// workbook sheet. Field lookup is tolerant of header spelling: case, spaces,
// underscores, and dots are ignored.
type RawRecord map[string]string

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, key)
}

// Field returns the first non-empty value among the candidate header names
func (r RawRecord) Field(names ...string) string {
	for _, want := range names {
		want = normalizeKey(want)
		for key, val := range r {
			if normalizeKey(key) == want && strings.TrimSpace(val) != "" {
				return strings.TrimSpace(val)
			}
		}
	}
	return ""
}

// ParseChangeRules converts raw correction-table rows into typed rules,
// preserving table order. Unknown kind tags are kept verbatim so the driver
// can log them as unrecognized; structurally malformed rows are a load error.
func ParseChangeRules(records []RawRecord) ([]ChangeRule, error) {
	out := make([]ChangeRule, 0, len(records))
	for i, rec := range records {
		rule := ChangeRule{
			Kind:           normalizeChangeKind(rec.Field("kind", "rule_kind", "check_type", "type")),
			Variable:       rec.Field("variable", "var", "field"),
			CrossVariable:  rec.Field("cross_variable", "crossvar", "second_variable"),
			CrossCondition: rec.Field("cross_condition", "cross_values", "cross_value"),
			Condition:      rec.Field("condition", "range", "expression"),
			Comment:        rec.Field("comment", "note", "reason"),
		}
		if rule.Variable == "" {
			return nil, fmt.Errorf("change rule %d: %w: missing variable", i+1, core.ErrInvalidRule)
		}
		if trigger := rec.Field("trigger_values", "trigger", "values", "old_values"); trigger != "" {
			rule.Trigger = trigger
		}
		if repl := rec.Field("replacement", "new_value", "replace_with"); repl != "" {
			if n, err := strconv.ParseFloat(repl, 64); err == nil {
				rule.Replacement = n
			} else {
				rule.Replacement = repl
			}
		}
		out = append(out, rule)
	}
	return out, nil
}

// ParseWarningRules converts raw review-table rows into typed rules,
// preserving table order.
func ParseWarningRules(records []RawRecord) ([]WarningRule, error) {
	out := make([]WarningRule, 0, len(records))
	for i, rec := range records {
		rule := WarningRule{
			Kind:          normalizeWarningKind(rec.Field("kind", "rule_kind", "check_type", "type")),
			Variable:      rec.Field("variable", "var", "field"),
			CrossVariable: rec.Field("cross_variable", "crossvar", "second_variable"),
			Formula:       rec.Field("formula", "consistency", "check"),
			CommentTarget: rec.Field("comment_target", "comment_variable", "target"),
			Comment:       rec.Field("comment", "note", "reason"),
		}
		if rule.Variable == "" {
			return nil, fmt.Errorf("warning rule %d: %w: missing variable", i+1, core.ErrInvalidRule)
		}
		if valid := rec.Field("valid_values", "valid", "allowed_values"); valid != "" {
			rule.Valid = valid
		}
		if cross := rec.Field("cross_value", "cross_values", "expected_value"); cross != "" {
			rule.CrossValue = cross
		}
		if formulaVars := rec.Field("formula_variables", "formula_vars"); formulaVars != "" {
			for _, name := range strings.Split(formulaVars, ",") {
				if name = strings.TrimSpace(name); name != "" {
					rule.FormulaVariables = append(rule.FormulaVariables, name)
				}
			}
		}
		var err error
		if rule.Lower, err = parseBound(rec.Field("lower", "min", "lower_bound")); err != nil {
			return nil, fmt.Errorf("warning rule %d: %w: %v", i+1, core.ErrInvalidRule, err)
		}
		if rule.Upper, err = parseBound(rec.Field("upper", "max", "upper_bound")); err != nil {
			return nil, fmt.Errorf("warning rule %d: %w: %v", i+1, core.ErrInvalidRule, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func parseBound(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("bound %q is not numeric", raw)
	}
	return &n, nil
}

func normalizeChangeKind(tag string) ChangeKind {
	switch normalizeKey(tag) {
	case "direct", "value", "valueset", "substitution", "substitute":
		return ChangeDirect
	case "expression", "expr", "range", "formula":
		return ChangeExpression
	case "crossvar", "cross", "crossvariable", "conditional":
		return ChangeCrossVar
	}
	return ChangeKind(strings.TrimSpace(tag))
}

func normalizeWarningKind(tag string) WarningKind {
	switch normalizeKey(tag) {
	case "range", "bounds", "minmax":
		return WarningRange
	case "valueset", "value", "values", "membership", "allowed":
		return WarningValueSet
	case "crossvar", "cross", "crossvariable", "formula", "consistency":
		return WarningCrossVar
	}
	return WarningKind(strings.TrimSpace(tag))
}
