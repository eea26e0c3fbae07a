package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"studyqc/domain/table"
)

// Value is an evaluation result: number, string, boolean, or null. Null
// propagates through arithmetic and comparison the way missing study values
// should: any operation touching a missing value stays missing, and the
// caller decides what missing means at its boundary (EvalBool coerces it to
// false).
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Bool bool
}

// Kind tags an evaluation result
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

func null() Value            { return Value{Kind: KindNull} }
func number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func str(s string) Value     { return Value{Kind: KindString, Str: s} }
func boolean(b bool) Value   { return Value{Kind: KindBool, Bool: b} }

// IsNull reports a missing result
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsFalse reports a result that is literally boolean false
func (v Value) IsFalse() bool { return v.Kind == KindBool && !v.Bool }

// IsTrue reports a result that is literally boolean true
func (v Value) IsTrue() bool { return v.Kind == KindBool && v.Bool }

// Cell converts an evaluation result back into a dataset cell. Booleans
// store as 1/0, matching how flag variables are coded in study data.
func (v Value) Cell() table.Value {
	switch v.Kind {
	case KindNumber:
		return table.Num(v.Num)
	case KindString:
		return table.Str(v.Str)
	case KindBool:
		if v.Bool {
			return table.Num(1)
		}
		return table.Num(0)
	}
	return table.Null()
}

// String renders the result for logs
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return "null"
}

// fromCell lifts a dataset cell into the evaluator's value space
func fromCell(c table.Value) Value {
	switch c.Kind {
	case table.KindNumber:
		return number(c.Num)
	case table.KindString:
		return str(c.Str)
	}
	return null()
}

type environment map[string]Value

// Eval evaluates the program against whole-row bindings
func (p *Program) Eval(bindings map[string]table.Value) (Value, error) {
	env := make(environment, len(bindings))
	for name, cell := range bindings {
		env[name] = fromCell(cell)
	}
	return p.root.eval(env)
}

// EvalSingle evaluates the program with one bound variable, the form used by
// range-substitution rules where the expression refers only to its own
// variable.
func (p *Program) EvalSingle(name string, cell table.Value) (Value, error) {
	return p.root.eval(environment{name: fromCell(cell)})
}

// Eval parses and evaluates in one step
func Eval(src string, bindings map[string]table.Value) (Value, error) {
	p, err := Parse(src)
	if err != nil {
		return null(), err
	}
	return p.Eval(bindings)
}

func (n *numberNode) eval(environment) (Value, error) {
	return number(n.val), nil
}

func (n *stringNode) eval(environment) (Value, error) {
	return str(n.val), nil
}

func (n *varNode) eval(env environment) (Value, error) {
	v, ok := env[n.name]
	if !ok {
		return null(), fmt.Errorf("unknown variable %q", n.name)
	}
	return v, nil
}

func (n *unaryNode) eval(env environment) (Value, error) {
	operand, err := n.operand.eval(env)
	if err != nil {
		return null(), err
	}
	switch n.op {
	case tokenMinus:
		if operand.IsNull() {
			return null(), nil
		}
		f, err := asNumber(operand)
		if err != nil {
			return null(), err
		}
		return number(-f), nil
	case tokenNot:
		t, isNull, err := truth(operand)
		if err != nil {
			return null(), err
		}
		if isNull {
			return null(), nil
		}
		return boolean(!t), nil
	}
	return null(), fmt.Errorf("unsupported unary operator")
}

func (n *binaryNode) eval(env environment) (Value, error) {
	switch n.op {
	case tokenAnd, tokenOr:
		return n.evalLogical(env)
	}

	left, err := n.left.eval(env)
	if err != nil {
		return null(), err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return null(), err
	}

	switch n.op {
	case tokenPlus, tokenMinus, tokenStar, tokenSlash:
		return evalArithmetic(n.op, left, right)
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
		return evalComparison(n.op, left, right)
	}
	return null(), fmt.Errorf("unsupported binary operator")
}

// evalLogical implements three-valued and/or: null stands for "unknown" and
// only a determinative side short-circuits (false for and, true for or).
func (n *binaryNode) evalLogical(env environment) (Value, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return null(), err
	}
	lTrue, lNull, err := truth(left)
	if err != nil {
		return null(), err
	}

	if n.op == tokenAnd && !lNull && !lTrue {
		return boolean(false), nil
	}
	if n.op == tokenOr && !lNull && lTrue {
		return boolean(true), nil
	}

	right, err := n.right.eval(env)
	if err != nil {
		return null(), err
	}
	rTrue, rNull, err := truth(right)
	if err != nil {
		return null(), err
	}

	if n.op == tokenAnd {
		if !rNull && !rTrue {
			return boolean(false), nil
		}
		if lNull || rNull {
			return null(), nil
		}
		return boolean(true), nil
	}
	if !rNull && rTrue {
		return boolean(true), nil
	}
	if lNull || rNull {
		return null(), nil
	}
	return boolean(false), nil
}

func evalArithmetic(op tokenKind, left, right Value) (Value, error) {
	if left.IsNull() || right.IsNull() {
		return null(), nil
	}
	a, err := asNumber(left)
	if err != nil {
		return null(), err
	}
	b, err := asNumber(right)
	if err != nil {
		return null(), err
	}
	switch op {
	case tokenPlus:
		return number(a + b), nil
	case tokenMinus:
		return number(a - b), nil
	case tokenStar:
		return number(a * b), nil
	case tokenSlash:
		return number(a / b), nil
	}
	return null(), fmt.Errorf("unsupported arithmetic operator")
}

// evalComparison compares two results. Null on either side stays null, and a
// NaN operand makes the comparison null as well, so downstream boolean
// coercion treats it as not-satisfied rather than tripping a flag.
func evalComparison(op tokenKind, left, right Value) (Value, error) {
	if left.IsNull() || right.IsNull() {
		return null(), nil
	}

	a, aNum := comparableNumber(left)
	b, bNum := comparableNumber(right)
	if aNum && bNum {
		if math.IsNaN(a) || math.IsNaN(b) {
			return null(), nil
		}
		switch op {
		case tokenEq:
			return boolean(a == b), nil
		case tokenNeq:
			return boolean(a != b), nil
		case tokenLt:
			return boolean(a < b), nil
		case tokenLte:
			return boolean(a <= b), nil
		case tokenGt:
			return boolean(a > b), nil
		case tokenGte:
			return boolean(a >= b), nil
		}
	}

	as := textForm(left)
	bs := textForm(right)
	switch op {
	case tokenEq:
		return boolean(as == bs), nil
	case tokenNeq:
		return boolean(as != bs), nil
	case tokenLt:
		return boolean(as < bs), nil
	case tokenLte:
		return boolean(as <= bs), nil
	case tokenGt:
		return boolean(as > bs), nil
	case tokenGte:
		return boolean(as >= bs), nil
	}
	return null(), fmt.Errorf("unsupported comparison operator")
}

// asNumber coerces a result for arithmetic: numbers directly, booleans as
// 1/0, numeric strings through parsing.
func asNumber(v Value) (float64, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("string %q is not numeric", v.Str)
		}
		return n, nil
	}
	return 0, fmt.Errorf("null has no numeric form")
}

// comparableNumber is asNumber without the error path: the bool reports
// whether a numeric comparison is possible.
func comparableNumber(v Value) (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func textForm(v Value) string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// truth resolves a result in boolean context: booleans directly, numbers as
// non-zero, null and NaN as unknown, strings as an error.
func truth(v Value) (isTrue bool, isNull bool, err error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, false, nil
	case KindNumber:
		if math.IsNaN(v.Num) {
			return false, true, nil
		}
		return v.Num != 0, false, nil
	case KindNull:
		return false, true, nil
	}
	return false, false, fmt.Errorf("string %q in boolean context", v.Str)
}
