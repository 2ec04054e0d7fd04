package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/errtaxonomy"
)

// ParseFrom extracts the single table identifier named in FROM.
func ParseFrom(body string) (string, error) {
	fields := strings.Fields(body)
	if len(fields) != 1 {
		return "", errtaxonomy.NewParseError("FROM", body, "FROM must name exactly one table")
	}
	return fields[0], nil
}

// ParseOver splits the comma-separated OVER body into its ordered
// group identifiers.
func ParseOver(body string) ([]string, error) {
	parts := strings.Split(body, ",")
	groups := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		g := strings.TrimSpace(p)
		if g == "" {
			return nil, errtaxonomy.NewParseError("OVER", body, "empty group identifier in OVER")
		}
		if seen[g] {
			return nil, errtaxonomy.NewSchemaError("OVER", g, fmt.Sprintf("duplicate group id %q", g))
		}
		seen[g] = true
		groups = append(groups, g)
	}
	return groups, nil
}

// ParseOrderBy parses the non-negative integer depth of an ORDER BY
// clause.
func ParseOrderBy(body string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil || n < 0 {
		return 0, errtaxonomy.NewTypeError("ORDER BY", body, "ORDER BY must be a non-negative integer")
	}
	return n, nil
}

// ParseSelect splits the comma-separated SELECT body into grouping
// column names and aggregate descriptors, each list preserving the
// item's relative order, independent of how columns and aggregates
// are interleaved in the source text (spec §4.5's projection reorders
// to columns-then-aggregates regardless).
func ParseSelect(body string) (columns []string, aggregates []ast.Descriptor, err error) {
	parts := strings.Split(body, ",")
	if len(parts) == 1 && strings.TrimSpace(parts[0]) == "" {
		return nil, nil, errtaxonomy.NewParseError("SELECT", "", "empty SELECT")
	}
	for _, raw := range parts {
		item := strings.TrimSpace(raw)
		if item == "" {
			return nil, nil, errtaxonomy.NewParseError("SELECT", body, "empty SELECT item")
		}
		segs := strings.Split(item, ".")
		switch len(segs) {
		case 1:
			columns = append(columns, segs[0])
		case 2:
			fn, ok := parseAggFunc(segs[1])
			if !ok {
				return nil, nil, errtaxonomy.NewSchemaError("SELECT", item, fmt.Sprintf("unknown aggregate function %q", segs[1]))
			}
			aggregates = append(aggregates, ast.Descriptor{Column: segs[0], Function: fn})
		case 3:
			fn, ok := parseAggFunc(segs[2])
			if !ok {
				return nil, nil, errtaxonomy.NewSchemaError("SELECT", item, fmt.Sprintf("unknown aggregate function %q", segs[2]))
			}
			aggregates = append(aggregates, ast.Descriptor{Group: segs[0], Column: segs[1], Function: fn})
		default:
			return nil, nil, errtaxonomy.NewParseError("SELECT", item, "too many dotted segments in SELECT item")
		}
	}
	return columns, aggregates, nil
}

// ParseSuchThatSections splits the comma-separated SUCH THAT body
// into per-expression sections. Each section is itself parsed with
// ParseExpr using SuchThatOperand; commas inside parentheses are not
// split on.
func ParseSuchThatSections(body string) []string {
	var sections []string
	depth := 0
	start := 0
	inQuote := byte(0)
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			sections = append(sections, strings.TrimSpace(body[start:i]))
			start = i + 1
		}
	}
	sections = append(sections, strings.TrimSpace(body[start:]))
	return sections
}
