package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/core"
)

func TestParseChangeRules(t *testing.T) {
	records := []RawRecord{
		{
			"Kind":           "direct",
			"Variable":       "smoker",
			"Trigger Values": "9,99",
			"Replacement":    "0",
			"Comment":        "unknown smoking status recoded",
		},
		{
			"kind":        "expression",
			"variable":    "weight",
			"condition":   "weight > 500",
			"replacement": "weight / 10",
			"comment":     "decimal shift corrected",
		},
		{
			"kind":            "cross",
			"variable":        "pregnant",
			"cross_variable":  "sex",
			"trigger_values":  "1",
			"cross_condition": "M",
			"replacement":     "0",
			"comment":         "pregnancy cleared for male subjects",
		},
	}

	parsed, err := ParseChangeRules(records)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, ChangeDirect, parsed[0].Kind)
	assert.Equal(t, "smoker", parsed[0].Variable)
	assert.Equal(t, "9,99", parsed[0].Trigger)
	assert.Equal(t, 0.0, parsed[0].Replacement, "numeric replacement parses to a number")

	assert.Equal(t, ChangeExpression, parsed[1].Kind)
	assert.Equal(t, "weight > 500", parsed[1].Condition)
	assert.Equal(t, "weight / 10", parsed[1].Replacement, "formula replacement stays a string")

	assert.Equal(t, ChangeCrossVar, parsed[2].Kind)
	assert.Equal(t, "sex", parsed[2].CrossVariable)
	assert.Equal(t, "M", parsed[2].CrossCondition)
}

func TestParseChangeRulesHeaderTolerance(t *testing.T) {
	records := []RawRecord{
		{
			"RULE KIND":  "Direct",
			"VARIABLE":   "site",
			"Old Values": "0",
			"New Value":  "1",
			"Note":       "site zero remapped",
			"Extra Col":  "ignored",
			"check_type": "",
		},
	}

	parsed, err := ParseChangeRules(records)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, ChangeDirect, parsed[0].Kind)
	assert.Equal(t, "site", parsed[0].Variable)
	assert.Equal(t, "0", parsed[0].Trigger)
	assert.Equal(t, 1.0, parsed[0].Replacement)
	assert.Equal(t, "site zero remapped", parsed[0].Comment)
}

func TestParseChangeRulesMissingVariable(t *testing.T) {
	_, err := ParseChangeRules([]RawRecord{{"kind": "direct", "comment": "x"}})
	assert.ErrorIs(t, err, core.ErrInvalidRule)
}

func TestParseChangeRulesUnknownKindKeptVerbatim(t *testing.T) {
	parsed, err := ParseChangeRules([]RawRecord{
		{"kind": "fancy_new_check", "variable": "x", "comment": "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, ChangeKind("fancy_new_check"), parsed[0].Kind)
}

func TestParseWarningRules(t *testing.T) {
	records := []RawRecord{
		{
			"kind":     "range",
			"variable": "bmi",
			"lower":    "16",
			"upper":    "50",
			"comment":  "BMI out of range",
		},
		{
			"kind":         "valueset",
			"variable":     "sex",
			"valid_values": "M,F",
			"comment":      "sex code not recognized",
		},
		{
			"kind":              "crossvar",
			"variable":          "bmi",
			"cross_variable":    "visit",
			"cross_value":       "1",
			"formula":           "bmi == weight / (height * height)",
			"formula_variables": "bmi, weight, height",
			"comment_target":    "bmi",
			"comment":           "BMI inconsistent with height and weight",
		},
	}

	parsed, err := ParseWarningRules(records)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, WarningRange, parsed[0].Kind)
	require.NotNil(t, parsed[0].Lower)
	require.NotNil(t, parsed[0].Upper)
	assert.Equal(t, 16.0, *parsed[0].Lower)
	assert.Equal(t, 50.0, *parsed[0].Upper)
	assert.Equal(t, "bmi", parsed[0].Target(), "comment target defaults to the variable")

	assert.Equal(t, WarningValueSet, parsed[1].Kind)
	assert.Equal(t, "M,F", parsed[1].Valid)

	assert.Equal(t, WarningCrossVar, parsed[2].Kind)
	assert.Equal(t, []string{"bmi", "weight", "height"}, parsed[2].FormulaVariables)
	assert.Equal(t, "1", parsed[2].CrossValue)
}

func TestParseWarningRulesBadBound(t *testing.T) {
	_, err := ParseWarningRules([]RawRecord{
		{"kind": "range", "variable": "bmi", "lower": "sixteen", "comment": "c"},
	})
	assert.ErrorIs(t, err, core.ErrInvalidRule)
}
