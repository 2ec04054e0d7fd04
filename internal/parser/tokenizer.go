package parser

import (
	"fmt"

	"github.com/omniql-engine/esql/internal/errtaxonomy"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokIdent
	tokOp
	tokString
)

type token struct {
	kind tokenKind
	text string
}

// tokenize turns an already-normalised clause body (lower-case and
// whitespace-collapsed outside quotes, per spec §4.1) into a token
// stream for the recursive-descent parser in parser.go.
func tokenize(clause, s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == ' ':
			i++
		case ch == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case ch == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case ch == '\'' || ch == '"':
			j := i + 1
			for j < len(s) && s[j] != ch {
				j++
			}
			if j >= len(s) {
				return nil, errtaxonomy.NewParseError(clause, s[i:], "unterminated quoted literal")
			}
			toks = append(toks, token{tokString, s[i+1 : j]})
			i = j + 1
		case ch == '=' || ch == '!' || ch == '<' || ch == '>':
			j := i + 1
			if j < len(s) && s[j] == '=' {
				j++
			}
			op := s[i:j]
			if op != "=" && op != "!=" && op != "<" && op != "<=" && op != ">" && op != ">=" {
				return nil, errtaxonomy.NewParseError(clause, op, fmt.Sprintf("unrecognised comparator %q", op))
			}
			toks = append(toks, token{tokOp, op})
			i = j
		default:
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			if j == i {
				return nil, errtaxonomy.NewParseError(clause, string(s[i]), fmt.Sprintf("unexpected character %q", s[i]))
			}
			word := s[i:j]
			switch word {
			case "and":
				toks = append(toks, token{tokAnd, word})
			case "or":
				toks = append(toks, token{tokOr, word})
			case "not":
				toks = append(toks, token{tokNot, word})
			default:
				toks = append(toks, token{tokIdent, word})
			}
			i = j
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') ||
		b == '_' || b == '.' || b == '-'
}
