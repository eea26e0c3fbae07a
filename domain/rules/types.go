// Package rules defines the declarative QC rule records applied to study
// datasets. A rule set is an ordered sequence; order matters because later
// rules observe the mutations and comments earlier rules produced.
package rules

// ChangeKind selects the handler for a correction rule
type ChangeKind string

const (
	// ChangeDirect replaces values that belong to a trigger value set
	ChangeDirect ChangeKind = "direct"
	// ChangeExpression replaces values whose condition expression holds,
	// with a replacement that may itself be an expression
	ChangeExpression ChangeKind = "expression"
	// ChangeCrossVar replaces trigger-set values when a second variable's
	// own condition holds on the same row
	ChangeCrossVar ChangeKind = "crossvar"
)

// WarningKind selects the handler for a review-flag rule
type WarningKind string

const (
	// WarningRange flags values outside [Lower, Upper]
	WarningRange WarningKind = "range"
	// WarningValueSet flags values outside the valid value set
	WarningValueSet WarningKind = "valueset"
	// WarningCrossVar flags rows where the cross variable matches its
	// expected value but the consistency formula fails
	WarningCrossVar WarningKind = "crossvar"
)

// ChangeRule corrects a known data-entry inconsistency: when its condition
// holds for a row, the target variable is overwritten and the rule's comment
// is appended to the variable's change-comment column. Immutable once loaded.
type ChangeRule struct {
	Kind           ChangeKind `json:"kind"`
	Variable       string     `json:"variable"`
	CrossVariable  string     `json:"cross_variable,omitempty"`
	Trigger        any        `json:"trigger,omitempty"`         // value-set spec (number, "a,b,c", or array)
	Condition      string     `json:"condition,omitempty"`       // boolean expression over the variable
	CrossCondition string     `json:"cross_condition,omitempty"` // value set or expression for the cross variable
	Replacement    any        `json:"replacement"`               // number, or expression string for expression kind
	Comment        string     `json:"comment"`
}

// WarningRule flags a row for manual review without touching its data. The
// comment lands in CommentTarget's warning column, which may differ from the
// checked variable.
type WarningRule struct {
	Kind             WarningKind `json:"kind"`
	Variable         string      `json:"variable"`
	CrossVariable    string      `json:"cross_variable,omitempty"`
	FormulaVariables []string    `json:"formula_variables,omitempty"`
	Valid            any         `json:"valid,omitempty"` // value-set spec for the valueset kind
	Lower            *float64    `json:"lower,omitempty"`
	Upper            *float64    `json:"upper,omitempty"`
	CrossValue       any         `json:"cross_value,omitempty"` // expected value spec for the cross variable
	Formula          string      `json:"formula,omitempty"`     // consistency expression over the whole row
	CommentTarget    string      `json:"comment_target,omitempty"`
	Comment          string      `json:"comment"`
}

// Target returns the variable whose warning column receives this rule's
// comment: CommentTarget when set, the checked variable otherwise.
func (r WarningRule) Target() string {
	if r.CommentTarget != "" {
		return r.CommentTarget
	}
	return r.Variable
}
