// Package expr implements the restricted condition sublanguage used by QC
// rules: comparisons, boolean connectives, arithmetic, parentheses, literals,
// and variable references. The grammar is a closed contract; there is no
// function-call or code-execution facility.
//
// Precedence, loosest to tightest:
//
//	or:         and ( ("||" | "|") and )*
//	and:        unary-not ( ("&&" | "&") unary-not )*
//	comparison: sum ( ("==" | "!=" | "<" | "<=" | ">" | ">=") sum )?
//	sum:        term ( ("+" | "-") term )*
//	term:       negate ( ("*" | "/") negate )*
//	negate:     "-" negate | primary
//	primary:    NUMBER | STRING | IDENT | "(" or ")"
package expr

import (
	"fmt"
)

type node interface {
	eval(env environment) (Value, error)
}

type numberNode struct{ val float64 }

type stringNode struct{ val string }

type varNode struct{ name string }

type unaryNode struct {
	op      tokenKind
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

// Program is a compiled expression, parsed once and evaluated per row.
type Program struct {
	src  string
	root node
}

// Source returns the original expression text
func (p *Program) Source() string { return p.src }

// Parse compiles an expression into a reusable program
func Parse(src string) (*Program, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("lex %q: %w", src, err)
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("parse %q: unexpected %s at position %d",
			src, p.peek().kind, p.peek().pos)
	}
	return &Program{src: src, root: root}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tokenOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tokenAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.peek().kind == tokenNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: tokenNot, operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
		op := p.next().kind
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseSum() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenPlus || p.peek().kind == tokenMinus {
		op := p.next().kind
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseNegate()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenStar || p.peek().kind == tokenSlash {
		op := p.next().kind
		right, err := p.parseNegate()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNegate() (node, error) {
	if p.peek().kind == tokenMinus {
		p.next()
		operand, err := p.parseNegate()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: tokenMinus, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		return &numberNode{val: t.num}, nil
	case tokenString:
		return &stringNode{val: t.text}, nil
	case tokenIdent:
		return &varNode{name: t.text}, nil
	case tokenLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokenRParen {
			return nil, fmt.Errorf("expected ')' at position %d, got %s", p.peek().pos, p.peek().kind)
		}
		p.next()
		return inner, nil
	}
	return nil, fmt.Errorf("unexpected %s at position %d", t.kind, t.pos)
}

// Variables lists the distinct variable names the expression references, in
// first-appearance order.
func (p *Program) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(n node)
	walk = func(n node) {
		switch v := n.(type) {
		case *varNode:
			if !seen[v.name] {
				seen[v.name] = true
				names = append(names, v.name)
			}
		case *unaryNode:
			walk(v.operand)
		case *binaryNode:
			walk(v.left)
			walk(v.right)
		}
	}
	walk(p.root)
	return names
}
