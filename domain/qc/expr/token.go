package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
	tokenEq  // ==
	tokenNeq // !=
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd // && or &
	tokenOr  // || or |
	tokenNot // !
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of expression"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenIdent:
		return "identifier"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenStar:
		return "'*'"
	case tokenSlash:
		return "'/'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenEq:
		return "'=='"
	case tokenNeq:
		return "'!='"
	case tokenLt:
		return "'<'"
	case tokenLte:
		return "'<='"
	case tokenGt:
		return "'>'"
	case tokenGte:
		return "'>='"
	case tokenAnd:
		return "'&&'"
	case tokenOr:
		return "'||'"
	case tokenNot:
		return "'!'"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits an expression into tokens. Identifiers follow variable-name
// conventions from study data dictionaries: a letter or underscore followed
// by letters, digits, underscores, or dots.
func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r >= '0' && r <= '9':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at position %d", text, start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, num: n, pos: start})
		case r == '\'' || r == '"':
			quote := r
			start := i
			i++
			var sb strings.Builder
			for i < len(runes) && runes[i] != quote {
				sb.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated string at position %d", start)
			}
			i++
			tokens = append(tokens, token{kind: tokenString, text: sb.String(), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) ||
				runes[i] == '_' || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i]), pos: start})
		default:
			kind, width, err := lexOperator(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: kind, text: string(runes[i : i+width]), pos: i})
			i += width
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(runes)})
	return tokens, nil
}

func lexOperator(runes []rune, i int) (tokenKind, int, error) {
	two := ""
	if i+1 < len(runes) {
		two = string(runes[i : i+2])
	}
	switch two {
	case "==":
		return tokenEq, 2, nil
	case "!=":
		return tokenNeq, 2, nil
	case "<=":
		return tokenLte, 2, nil
	case ">=":
		return tokenGte, 2, nil
	case "&&":
		return tokenAnd, 2, nil
	case "||":
		return tokenOr, 2, nil
	}
	switch runes[i] {
	case '+':
		return tokenPlus, 1, nil
	case '-':
		return tokenMinus, 1, nil
	case '*':
		return tokenStar, 1, nil
	case '/':
		return tokenSlash, 1, nil
	case '(':
		return tokenLParen, 1, nil
	case ')':
		return tokenRParen, 1, nil
	case '<':
		return tokenLt, 1, nil
	case '>':
		return tokenGt, 1, nil
	case '&':
		return tokenAnd, 1, nil
	case '|':
		return tokenOr, 1, nil
	case '!':
		return tokenNot, 1, nil
	}
	return tokenEOF, 0, fmt.Errorf("unexpected character %q at position %d", string(runes[i]), i)
}
