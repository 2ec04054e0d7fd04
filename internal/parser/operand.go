package parser

import (
	"fmt"
	"strings"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/errtaxonomy"
	"github.com/omniql-engine/esql/internal/schema"
)

// WhereOperand builds the OperandParser for WHERE leaves: a bare
// schema column, no dotted form allowed.
func WhereOperand(sch *schema.Schema) OperandParser {
	return func(token string) (ast.Operand, schema.LogicalType, error) {
		if strings.Contains(token, ".") {
			return nil, 0, errtaxonomy.NewParseError("WHERE", token, "WHERE operand must be a bare column")
		}
		col, ok := sch.Column(token)
		if !ok {
			return nil, 0, errtaxonomy.NewSchemaError("WHERE", token, fmt.Sprintf("unknown column %q", token))
		}
		return ast.ColumnOperand{Name: col.Name}, col.Type, nil
	}
}

// SuchThatOperand builds the OperandParser for SUCH THAT leaves:
// <group>.<column>, kept as a GroupColumnOperand until the validator
// has confirmed the expression refers to exactly one group and
// stripped the prefix.
func SuchThatOperand(sch *schema.Schema) OperandParser {
	return func(token string) (ast.Operand, schema.LogicalType, error) {
		parts := strings.Split(token, ".")
		if len(parts) != 2 {
			return nil, 0, errtaxonomy.NewParseError("SUCH THAT", token, "SUCH THAT operand must be <group>.<column>")
		}
		group, colName := parts[0], parts[1]
		col, ok := sch.Column(colName)
		if !ok {
			return nil, 0, errtaxonomy.NewSchemaError("SUCH THAT", token, fmt.Sprintf("unknown column %q", colName))
		}
		return ast.GroupColumnOperand{Group: group, Column: col.Name}, col.Type, nil
	}
}

// HavingOperand builds the OperandParser for HAVING leaves: either a
// plain grouping-column name, or a dotted aggregate reference
// (<column>.<function> for global, <group>.<column>.<function> for
// group-specific). Aggregate literals are always numeric.
func HavingOperand(sch *schema.Schema) OperandParser {
	return func(token string) (ast.Operand, schema.LogicalType, error) {
		parts := strings.Split(token, ".")
		switch len(parts) {
		case 1:
			col, ok := sch.Column(token)
			if !ok {
				return nil, 0, errtaxonomy.NewSchemaError("HAVING", token, fmt.Sprintf("unknown column %q", token))
			}
			return ast.ColumnOperand{Name: col.Name}, col.Type, nil
		case 2:
			col, ok := sch.Column(parts[0])
			if !ok {
				return nil, 0, errtaxonomy.NewSchemaError("HAVING", token, fmt.Sprintf("unknown column %q", parts[0]))
			}
			fn, ok := parseAggFunc(parts[1])
			if !ok {
				return nil, 0, errtaxonomy.NewSchemaError("HAVING", token, fmt.Sprintf("unknown aggregate function %q", parts[1]))
			}
			return ast.AggregateOperand{Column: col.Name, Function: fn}, schema.Number, nil
		case 3:
			col, ok := sch.Column(parts[1])
			if !ok {
				return nil, 0, errtaxonomy.NewSchemaError("HAVING", token, fmt.Sprintf("unknown column %q", parts[1]))
			}
			fn, ok := parseAggFunc(parts[2])
			if !ok {
				return nil, 0, errtaxonomy.NewSchemaError("HAVING", token, fmt.Sprintf("unknown aggregate function %q", parts[2]))
			}
			return ast.AggregateOperand{Group: parts[0], Column: col.Name, Function: fn}, schema.Number, nil
		default:
			return nil, 0, errtaxonomy.NewParseError("HAVING", token, "too many dotted segments in HAVING operand")
		}
	}
}

func parseAggFunc(s string) (ast.AggFunc, bool) {
	switch strings.ToLower(s) {
	case "sum":
		return ast.Sum, true
	case "avg":
		return ast.Avg, true
	case "min":
		return ast.Min, true
	case "max":
		return ast.Max, true
	case "count":
		return ast.Count, true
	default:
		return "", false
	}
}
