// Package validator implements the semantic validator (C5): it
// checks columns, aggregate functions, group references, and operand
// types against the schema, and assembles the validated, immutable
// query plan (internal/ast.Plan) the MF engine consumes. Compile is
// the single entry point tying the lexer (C3), expression parser
// (C4), and these checks together.
package validator

import (
	"fmt"
	"strings"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/errtaxonomy"
	"github.com/omniql-engine/esql/internal/lexer"
	"github.com/omniql-engine/esql/internal/parser"
	"github.com/omniql-engine/esql/internal/schema"
)

// SchemaLoader resolves a FROM table name to its schema, the hook
// through which the table loader's "table not found" error is
// consumed while validating FROM (spec §4.5).
type SchemaLoader func(table string) (*schema.Schema, error)

// Compile runs the full C3->C4->C5 pipeline over raw query text and
// returns a validated plan, ready for the engine, plus the resolved
// schema.
func Compile(raw string, load SchemaLoader) (*ast.Plan, *schema.Schema, error) {
	clauses, err := lexer.Split(raw)
	if err != nil {
		return nil, nil, err
	}

	table, err := parser.ParseFrom(clauses.From)
	if err != nil {
		return nil, nil, err
	}
	sch, err := load(table)
	if err != nil {
		return nil, nil, errtaxonomy.NewSchemaError("FROM", table, err.Error())
	}

	columns, selectAggs, err := parser.ParseSelect(clauses.Select)
	if err != nil {
		return nil, nil, err
	}
	canonicalColumns, err := canonicalizeColumns(sch, columns)
	if err != nil {
		return nil, nil, err
	}

	var groups []string
	if strings.TrimSpace(clauses.Over) != "" {
		groups, err = parser.ParseOver(clauses.Over)
		if err != nil {
			return nil, nil, err
		}
	}
	groupSet := toSet(groups)

	if err := checkAggregates(selectAggs, sch, groupSet); err != nil {
		return nil, nil, err
	}

	var whereExpr ast.Expr
	if strings.TrimSpace(clauses.Where) != "" {
		whereExpr, err = parser.ParseExpr("WHERE", clauses.Where, parser.WhereOperand(sch))
		if err != nil {
			return nil, nil, err
		}
		if err := checkOperatorTypes("WHERE", whereExpr); err != nil {
			return nil, nil, err
		}
	}

	suchThat, err := parseSuchThat(clauses.SuchThat, sch, groups, groupSet)
	if err != nil {
		return nil, nil, err
	}

	var havingExpr ast.Expr
	if strings.TrimSpace(clauses.Having) != "" {
		havingExpr, err = parser.ParseExpr("HAVING", clauses.Having, parser.HavingOperand(sch))
		if err != nil {
			return nil, nil, err
		}
		if err := checkOperatorTypes("HAVING", havingExpr); err != nil {
			return nil, nil, err
		}
		if err := checkHavingLeaves(havingExpr, canonicalColumns, groupSet); err != nil {
			return nil, nil, err
		}
	}

	orderByDepth := 0
	if strings.TrimSpace(clauses.OrderBy) != "" {
		orderByDepth, err = parser.ParseOrderBy(clauses.OrderBy)
		if err != nil {
			return nil, nil, err
		}
	}
	if orderByDepth < 0 || orderByDepth > len(canonicalColumns) {
		return nil, nil, errtaxonomy.NewTypeError("ORDER BY", clauses.OrderBy,
			fmt.Sprintf("ORDER BY %d exceeds %d grouping columns", orderByDepth, len(canonicalColumns)))
	}

	descriptors := unionDescriptors(selectAggs, havingExpr)

	plan := &ast.Plan{
		Table:            table,
		SelectColumns:    canonicalColumns,
		SelectAggregates: selectAggs,
		Descriptors:      descriptors,
		Groups:           groups,
		Where:            whereExpr,
		SuchThat:         suchThat,
		Having:           havingExpr,
		OrderByDepth:     orderByDepth,
	}
	return plan, sch, nil
}

func canonicalizeColumns(sch *schema.Schema, columns []string) ([]string, error) {
	out := make([]string, len(columns))
	for i, c := range columns {
		name, ok := sch.CanonicalName(c)
		if !ok {
			return nil, errtaxonomy.NewSchemaError("SELECT", c, fmt.Sprintf("unknown column %q", c))
		}
		out[i] = name
	}
	return out, nil
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, i := range items {
		s[i] = struct{}{}
	}
	return s
}

// checkAggregates verifies each descriptor's column exists and is
// numeric unless the function is count, and that its group (if any)
// was declared in OVER (spec §4.3).
func checkAggregates(descs []ast.Descriptor, sch *schema.Schema, groups map[string]struct{}) error {
	for i, d := range descs {
		col, ok := sch.Column(d.Column)
		if !ok {
			return errtaxonomy.NewSchemaError("SELECT", d.Column, fmt.Sprintf("unknown column %q", d.Column))
		}
		descs[i].Column = col.Name
		if d.Function != ast.Count && col.Type != schema.Number {
			return errtaxonomy.NewTypeError("SELECT", d.Key(),
				fmt.Sprintf("aggregate %s requires a numeric column, %q is %s", d.Function, d.Column, col.Type))
		}
		if d.Group != "" {
			if _, ok := groups[d.Group]; !ok {
				return errtaxonomy.NewSchemaError("SELECT", d.Group, fmt.Sprintf("unknown group id %q", d.Group))
			}
		}
	}
	return nil
}

// checkOperatorTypes rejects ordering comparators (<, <=, >, >=)
// against non-ordered literal types (string, boolean): spec §3 "only
// equality" for strings/booleans.
func checkOperatorTypes(clause string, e ast.Expr) error {
	switch n := e.(type) {
	case ast.And:
		for _, c := range n.Children {
			if err := checkOperatorTypes(clause, c); err != nil {
				return err
			}
		}
	case ast.Or:
		for _, c := range n.Children {
			if err := checkOperatorTypes(clause, c); err != nil {
				return err
			}
		}
	case ast.Not:
		return checkOperatorTypes(clause, n.Child)
	case ast.Compare:
		ordered := n.Op == ast.Lt || n.Op == ast.Lte || n.Op == ast.Gt || n.Op == ast.Gte
		if ordered && !n.Literal.Type.Ordered() {
			return errtaxonomy.NewTypeError(clause, n.Left.String(),
				fmt.Sprintf("comparator %s is not valid for %s", n.Op, n.Literal.Type))
		}
	}
	return nil
}

// parseSuchThat parses each comma-separated SUCH THAT section,
// requires it refer to exactly one declared group, and strips group
// prefixes once validated.
func parseSuchThat(body string, sch *schema.Schema, groups []string, groupSet map[string]struct{}) (map[string]ast.Expr, error) {
	trimmed := strings.TrimSpace(body)
	if len(groups) == 0 {
		if trimmed != "" {
			return nil, errtaxonomy.NewSchemaError("SUCH THAT", "", "SUCH THAT given without OVER")
		}
		return nil, nil
	}
	if trimmed == "" {
		return nil, errtaxonomy.NewSchemaError("SUCH THAT", "", "OVER declares groups but SUCH THAT is missing")
	}

	result := make(map[string]ast.Expr, len(groups))
	for _, section := range parser.ParseSuchThatSections(trimmed) {
		expr, err := parser.ParseExpr("SUCH THAT", section, parser.SuchThatOperand(sch))
		if err != nil {
			return nil, err
		}
		if err := checkOperatorTypes("SUCH THAT", expr); err != nil {
			return nil, err
		}
		referenced := map[string]struct{}{}
		ast.Groups(expr, referenced)
		if len(referenced) != 1 {
			return nil, errtaxonomy.NewTypeError("SUCH THAT", section,
				fmt.Sprintf("expression must reference exactly one group, found %d", len(referenced)))
		}
		var group string
		for g := range referenced {
			group = g
		}
		if _, ok := groupSet[group]; !ok {
			return nil, errtaxonomy.NewSchemaError("SUCH THAT", group, fmt.Sprintf("unknown group id %q", group))
		}
		if _, dup := result[group]; dup {
			return nil, errtaxonomy.NewSchemaError("SUCH THAT", group, fmt.Sprintf("group %q has multiple SUCH THAT sections", group))
		}
		result[group] = ast.StripGroupPrefix(expr)
	}

	for _, g := range groups {
		if _, ok := result[g]; !ok {
			return nil, errtaxonomy.NewSchemaError("SUCH THAT", g, fmt.Sprintf("group %q has no SUCH THAT clause", g))
		}
	}
	return result, nil
}

// checkHavingLeaves enforces that plain-column HAVING leaves are
// drawn from select_columns (spec §3) and that aggregate leaves
// reference declared groups.
func checkHavingLeaves(e ast.Expr, selectColumns []string, groups map[string]struct{}) error {
	allowed := toSet(selectColumns)
	var walk func(ast.Expr) error
	walk = func(e ast.Expr) error {
		switch n := e.(type) {
		case ast.And:
			for _, c := range n.Children {
				if err := walk(c); err != nil {
					return err
				}
			}
		case ast.Or:
			for _, c := range n.Children {
				if err := walk(c); err != nil {
					return err
				}
			}
		case ast.Not:
			return walk(n.Child)
		case ast.Compare:
			switch o := n.Left.(type) {
			case ast.ColumnOperand:
				if _, ok := allowed[o.Name]; !ok {
					return errtaxonomy.NewSchemaError("HAVING", o.Name,
						fmt.Sprintf("column %q is not a grouping column in SELECT", o.Name))
				}
			case ast.AggregateOperand:
				if o.Group != "" {
					if _, ok := groups[o.Group]; !ok {
						return errtaxonomy.NewSchemaError("HAVING", o.Group, fmt.Sprintf("unknown group id %q", o.Group))
					}
				}
			}
		}
		return nil
	}
	return walk(e)
}

// unionDescriptors computes the engine's descriptor set: SELECT
// aggregates first, then any aggregate leaves referenced only in
// HAVING, each exactly once, in first-seen order (spec §4.3).
func unionDescriptors(selectAggs []ast.Descriptor, having ast.Expr) []ast.Descriptor {
	seen := make(map[string]struct{}, len(selectAggs))
	out := make([]ast.Descriptor, 0, len(selectAggs))
	for _, d := range selectAggs {
		if _, ok := seen[d.Key()]; !ok {
			seen[d.Key()] = struct{}{}
			out = append(out, d)
		}
	}
	if having == nil {
		return out
	}
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case ast.And:
			for _, c := range n.Children {
				walk(c)
			}
		case ast.Or:
			for _, c := range n.Children {
				walk(c)
			}
		case ast.Not:
			walk(n.Child)
		case ast.Compare:
			if a, ok := n.Left.(ast.AggregateOperand); ok {
				d := ast.Descriptor{Group: a.Group, Column: a.Column, Function: a.Function}
				if _, ok := seen[d.Key()]; !ok {
					seen[d.Key()] = struct{}{}
					out = append(out, d)
				}
			}
		}
	}
	walk(having)
	return out
}
