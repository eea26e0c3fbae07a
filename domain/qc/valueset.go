// Package qc implements the rule-application engine for study-record QC:
// value-set parsing, the change and warning rule handlers, comment-column
// bookkeeping, and the per-run summary. Rules are applied strictly in table
// order on a single goroutine; later rules see every mutation and comment an
// earlier rule produced.
package qc

import (
	"strconv"
	"strings"
	"unicode"

	"studyqc/domain/core"
	"studyqc/domain/table"
)

// ParseValueSet normalizes a rule's trigger/valid-values field into a typed
// value list for membership testing. A bare number becomes a singleton, a
// delimited string is split on commas with each token trimmed, and an array
// is used as-is. If any element contains an alphabetic character the whole
// set is coerced to strings; otherwise every element is parsed as a number,
// keeping the verbatim token when the parse fails. The letter rule is a
// single policy applied everywhere value sets appear.
func ParseValueSet(input any) ([]table.Value, error) {
	tokens, err := valueSetTokens(input)
	if err != nil {
		return nil, err
	}

	anyAlpha := false
	for _, tok := range tokens {
		if strings.IndexFunc(tok, unicode.IsLetter) >= 0 {
			anyAlpha = true
			break
		}
	}

	out := make([]table.Value, len(tokens))
	for i, tok := range tokens {
		if anyAlpha {
			out[i] = table.Str(tok)
			continue
		}
		if n, err := strconv.ParseFloat(tok, 64); err == nil {
			out[i] = table.Num(n)
		} else {
			out[i] = table.Str(tok)
		}
	}
	return out, nil
}

func valueSetTokens(input any) ([]string, error) {
	switch v := input.(type) {
	case float64:
		return []string{formatNumber(v)}, nil
	case int:
		return []string{formatNumber(float64(v))}, nil
	case int64:
		return []string{formatNumber(float64(v))}, nil
	case string:
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []string:
		return v, nil
	case []float64:
		tokens := make([]string, len(v))
		for i, n := range v {
			tokens[i] = formatNumber(n)
		}
		return tokens, nil
	case []any:
		tokens := make([]string, len(v))
		for i, elem := range v {
			switch e := elem.(type) {
			case float64:
				tokens[i] = formatNumber(e)
			case int:
				tokens[i] = formatNumber(float64(e))
			case string:
				tokens[i] = e
			case table.Value:
				tokens[i] = e.String()
			default:
				return nil, core.NewValueSetError(elem)
			}
		}
		return tokens, nil
	}
	return nil, core.NewValueSetError(input)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ValueInSet reports loose membership of a cell in a parsed value set
func ValueInSet(v table.Value, set []table.Value) bool {
	for _, member := range set {
		if v.Equal(member) {
			return true
		}
	}
	return false
}

// looksLikeExpression detects a cross-condition that should be evaluated as
// an expression rather than a value set, by the presence of comparison or
// connective tokens.
func looksLikeExpression(s string) bool {
	return strings.ContainsAny(s, "<>=!&|")
}
