package table

import (
	"strconv"
	"strings"
)

// Value represents a single dataset cell with deterministic coercion.
// Cells are one of three kinds: a number, a string, or null (missing).
type Value struct {
	Kind ValueKind `json:"kind"`
	Num  float64   `json:"num,omitempty"`
	Str  string    `json:"str,omitempty"`
}

// ValueKind defines the storage type for cells
type ValueKind string

const (
	KindNumber ValueKind = "number"
	KindString ValueKind = "string"
	KindNull   ValueKind = "null"
)

// Num creates a numeric value
func Num(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// Str creates a string value
func Str(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Null creates a null (missing) value
func Null() Value {
	return Value{Kind: KindNull}
}

// IsNull returns true if the value is missing
func (v Value) IsNull() bool {
	return v.Kind == KindNull || v.Kind == ""
}

// IsNumber returns true if the value holds a number
func (v Value) IsNumber() bool {
	return v.Kind == KindNumber
}

// IsString returns true if the value holds a string
func (v Value) IsString() bool {
	return v.Kind == KindString
}

// AsFloat64 returns the numeric value, or 0 if not numeric
func (v Value) AsFloat64() float64 {
	if v.Kind == KindNumber {
		return v.Num
	}
	return 0
}

// AsString returns the string value, or empty string if not a string
func (v Value) AsString() string {
	if v.Kind == KindString {
		return v.Str
	}
	return ""
}

// String returns the canonical cell text: numbers in their shortest decimal
// form, strings verbatim, null as the empty string. This form is what export,
// comment accumulation, and mixed-kind comparison all agree on.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	}
	return ""
}

// Float returns the value as a number where possible: numbers directly,
// strings through a numeric parse. The bool reports success.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Equal compares two values loosely. Null equals only null. Same-kind values
// compare directly. A number and a string compare numerically when the string
// parses as a number, otherwise by canonical text.
func (v Value) Equal(other Value) bool {
	if v.IsNull() || other.IsNull() {
		return v.IsNull() && other.IsNull()
	}
	if v.Kind == other.Kind {
		if v.Kind == KindNumber {
			return v.Num == other.Num
		}
		return v.Str == other.Str
	}
	a, aok := v.Float()
	b, bok := other.Float()
	if aok && bok {
		return a == b
	}
	return v.String() == other.String()
}

// ParseCell converts raw cell text into a typed value: blank text becomes
// null, numeric-looking text becomes a number, everything else stays a string.
func ParseCell(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Null()
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Num(n)
	}
	return Str(raw)
}
