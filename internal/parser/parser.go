// Package parser implements the recursive-descent expression parser
// (C4): precedence OR < AND < NOT, parenthesised grouping, and the
// WHERE/SUCH THAT/HAVING leaf grammar of spec §4.2. It builds the
// small boolean expression tree defined in internal/ast.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/errtaxonomy"
	"github.com/omniql-engine/esql/internal/schema"
)

// OperandParser resolves a raw leaf operand token (e.g. "quant",
// "nj.state", "cust.quant.avg") into an ast.Operand plus the logical
// type its literal must be parsed as. Each clause kind (WHERE, SUCH
// THAT, HAVING) supplies its own, since the dotted grammar and
// allowed literal types differ between them (spec §4.2).
type OperandParser func(token string) (ast.Operand, schema.LogicalType, error)

type exprParser struct {
	clause  string
	toks    []token
	pos     int
	operand OperandParser
}

// ParseExpr parses a normalised clause body into a boolean expression
// tree with precedence OR < AND < NOT and parenthesised grouping
// (spec §4.2). clause names the owning clause for error messages.
func ParseExpr(clause, body string, operand OperandParser) (ast.Expr, error) {
	toks, err := tokenize(clause, body)
	if err != nil {
		return nil, err
	}
	p := &exprParser{clause: clause, toks: toks, operand: operand}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, errtaxonomy.NewParseError(clause, p.cur().text, "unexpected trailing input")
	}
	return e, nil
}

func (p *exprParser) cur() token  { return p.toks[p.pos] }
func (p *exprParser) advance()    { p.pos++ }

func (p *exprParser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []ast.Expr{left}
	for p.cur().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return ast.Or{Children: children}, nil
}

func (p *exprParser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	children := []ast.Expr{left}
	for p.cur().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return ast.And{Children: children}, nil
}

func (p *exprParser) parseNot() (ast.Expr, error) {
	if p.cur().kind == tokNot {
		p.advance()
		if p.cur().kind == tokNot {
			return nil, errtaxonomy.NewParseError(p.clause, "not not", "doubled NOT operator")
		}
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.Not{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (ast.Expr, error) {
	if p.cur().kind == tokLParen {
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, errtaxonomy.NewParseError(p.clause, p.cur().text, "unbalanced parentheses")
		}
		p.advance()
		return e, nil
	}
	return p.parseLeaf()
}

func (p *exprParser) parseLeaf() (ast.Expr, error) {
	if p.cur().kind != tokIdent {
		return nil, errtaxonomy.NewParseError(p.clause, p.cur().text, "expected an operand")
	}
	operandTok := p.cur().text
	p.advance()

	operand, litType, err := p.operand(operandTok)
	if err != nil {
		return nil, err
	}

	if p.cur().kind != tokOp {
		if litType == schema.Boolean {
			return ast.Compare{Left: operand, Op: ast.Eq, Literal: schema.BoolValue(true)}, nil
		}
		return nil, errtaxonomy.NewParseError(p.clause, p.cur().text, fmt.Sprintf("missing comparator after %q", operandTok))
	}
	opText := p.cur().text
	p.advance()
	op, err := parseCompareOp(opText)
	if err != nil {
		return nil, err
	}

	if p.cur().kind == tokEOF || p.cur().kind == tokAnd || p.cur().kind == tokOr || p.cur().kind == tokRParen {
		return nil, errtaxonomy.NewParseError(p.clause, operandTok, "missing literal operand")
	}
	litTok := p.cur()
	p.advance()

	literal, err := parseLiteral(p.clause, litTok, litType)
	if err != nil {
		return nil, err
	}
	return ast.Compare{Left: operand, Op: op, Literal: literal}, nil
}

func parseCompareOp(s string) (ast.CompareOp, error) {
	switch s {
	case "=":
		return ast.Eq, nil
	case "!=":
		return ast.Neq, nil
	case "<":
		return ast.Lt, nil
	case "<=":
		return ast.Lte, nil
	case ">":
		return ast.Gt, nil
	case ">=":
		return ast.Gte, nil
	default:
		return "", errtaxonomy.NewParseError("", s, fmt.Sprintf("unknown comparator %q", s))
	}
}

func parseLiteral(clause string, tok token, want schema.LogicalType) (schema.Value, error) {
	switch want {
	case schema.Number:
		if tok.kind != tokIdent {
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, "expected a numeric literal")
		}
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, fmt.Sprintf("%q is not a valid number", tok.text))
		}
		return schema.NumberValue(f), nil
	case schema.Date:
		if tok.kind != tokString {
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, "date literal must be quoted as 'YYYY-MM-DD'")
		}
		d, err := schema.ParseDate(tok.text)
		if err != nil {
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, err.Error())
		}
		return schema.DateValue(d), nil
	case schema.String:
		if tok.kind != tokString {
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, "string literal must be quoted")
		}
		return schema.StringValue(tok.text), nil
	case schema.Boolean:
		if tok.kind != tokIdent {
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, "expected true/false")
		}
		switch strings.ToLower(tok.text) {
		case "true":
			return schema.BoolValue(true), nil
		case "false":
			return schema.BoolValue(false), nil
		default:
			return schema.Value{}, errtaxonomy.NewTypeError(clause, tok.text, fmt.Sprintf("%q is not true/false", tok.text))
		}
	default:
		return schema.Value{}, fmt.Errorf("parser: unknown literal type")
	}
}
