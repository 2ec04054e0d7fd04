// Package ast defines the boolean expression tree and query plan
// types of spec §3: the structures the parser (C4) builds, the
// validator (C5) checks, and the engine (C6) evaluates.
package ast

import (
	"fmt"

	"github.com/omniql-engine/esql/internal/schema"
)

// CompareOp is one of the six comparators spec §4.2 allows.
type CompareOp string

const (
	Eq  CompareOp = "="
	Neq CompareOp = "!="
	Lt  CompareOp = "<"
	Lte CompareOp = "<="
	Gt  CompareOp = ">"
	Gte CompareOp = ">="
)

// AggFunc is one of the five aggregate functions spec §3 allows.
type AggFunc string

const (
	Sum   AggFunc = "sum"
	Avg   AggFunc = "avg"
	Min   AggFunc = "min"
	Max   AggFunc = "max"
	Count AggFunc = "count"
)

// Operand is the left-hand side of a Compare node: either a bare
// column reference or a dotted aggregate reference.
type Operand interface {
	operand()
	String() string
}

// ColumnOperand references a raw schema column (WHERE leaves, SUCH
// THAT leaves after the group prefix is stripped, or a plain
// grouping-column HAVING leaf).
type ColumnOperand struct {
	Name string
}

func (ColumnOperand) operand()          {}
func (c ColumnOperand) String() string  { return c.Name }

// GroupColumnOperand is the pre-validation form of a SUCH THAT leaf's
// left operand: <group>.<column>. The validator walks the raw tree to
// enforce "exactly one group per SUCH THAT expression" (spec §4.3),
// then StripGroupPrefix rewrites every GroupColumnOperand down to a
// plain ColumnOperand, matching spec §3's "columns (with group
// prefixes stripped at parse time)".
type GroupColumnOperand struct {
	Group  string
	Column string
}

func (GroupColumnOperand) operand()         {}
func (g GroupColumnOperand) String() string { return fmt.Sprintf("%s.%s", g.Group, g.Column) }

// AggregateOperand references an aggregate descriptor in dot form
// (HAVING leaves only). Group is "" for a global aggregate.
type AggregateOperand struct {
	Group    string
	Column   string
	Function AggFunc
}

func (AggregateOperand) operand() {}

func (a AggregateOperand) String() string {
	if a.Group == "" {
		return fmt.Sprintf("%s.%s", a.Column, a.Function)
	}
	return fmt.Sprintf("%s.%s.%s", a.Group, a.Column, a.Function)
}

// Key returns the canonical aggregate key spec §3 defines:
// "{column}.{function}" for globals, "{group}.{column}.{function}"
// for group-specific.
func (a AggregateOperand) Key() string { return a.String() }

// Expr is the sum type of boolean expression nodes: And, Or, Not,
// Compare.
type Expr interface {
	expr()
}

// And is a conjunction of two or more children.
type And struct{ Children []Expr }

// Or is a disjunction of two or more children.
type Or struct{ Children []Expr }

// Not negates its single child.
type Not struct{ Child Expr }

// Compare is a leaf: left operand, comparator, typed literal.
type Compare struct {
	Left    Operand
	Op      CompareOp
	Literal schema.Value
}

func (And) expr()     {}
func (Or) expr()      {}
func (Not) expr()     {}
func (Compare) expr() {}

// Lookup resolves an Operand to a value during evaluation. Absent
// reports true when the operand denotes a group-specific aggregate
// that never received a matching row (spec §4.4 phase 3): any
// comparison against an absent value is false.
type Lookup func(op Operand) (value schema.Value, absent bool, err error)

// Eval walks an expression tree against a Lookup, implementing the
// WHERE/SUCH THAT/HAVING evaluation spec §4.2 and §4.4 describe.
func Eval(e Expr, lookup Lookup) (bool, error) {
	switch n := e.(type) {
	case And:
		for _, c := range n.Children {
			ok, err := Eval(c, lookup)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, c := range n.Children {
			ok, err := Eval(c, lookup)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Eval(n.Child, lookup)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case Compare:
		return evalCompare(n, lookup)
	default:
		return false, fmt.Errorf("ast: unknown expression node %T", e)
	}
}

func evalCompare(c Compare, lookup Lookup) (bool, error) {
	val, absent, err := lookup(c.Left)
	if err != nil {
		return false, err
	}
	if absent {
		return false, nil
	}
	switch c.Op {
	case Eq:
		return schema.Equal(val, c.Literal), nil
	case Neq:
		return !schema.Equal(val, c.Literal), nil
	case Lt:
		return schema.Compare(val, c.Literal) < 0, nil
	case Lte:
		return schema.Compare(val, c.Literal) <= 0, nil
	case Gt:
		return schema.Compare(val, c.Literal) > 0, nil
	case Gte:
		return schema.Compare(val, c.Literal) >= 0, nil
	default:
		return false, fmt.Errorf("ast: unknown comparator %q", c.Op)
	}
}

// Groups collects the set of group ids a SUCH THAT-scoped expression
// references, walking through operand references that still carry a
// group prefix. Used by the validator to enforce "a SUCH THAT
// expression refers to exactly one group".
func Groups(e Expr, collect map[string]struct{}) {
	switch n := e.(type) {
	case And:
		for _, c := range n.Children {
			Groups(c, collect)
		}
	case Or:
		for _, c := range n.Children {
			Groups(c, collect)
		}
	case Not:
		Groups(n.Child, collect)
	case Compare:
		switch o := n.Left.(type) {
		case AggregateOperand:
			if o.Group != "" {
				collect[o.Group] = struct{}{}
			}
		case GroupColumnOperand:
			collect[o.Group] = struct{}{}
		}
	}
}

// StripGroupPrefix rewrites every GroupColumnOperand leaf in e down
// to a plain ColumnOperand, once the validator has confirmed e refers
// to exactly one group. Used to turn a parsed SUCH THAT expression
// into the form the engine evaluates directly against raw rows.
func StripGroupPrefix(e Expr) Expr {
	switch n := e.(type) {
	case And:
		children := make([]Expr, len(n.Children))
		for i, c := range n.Children {
			children[i] = StripGroupPrefix(c)
		}
		return And{Children: children}
	case Or:
		children := make([]Expr, len(n.Children))
		for i, c := range n.Children {
			children[i] = StripGroupPrefix(c)
		}
		return Or{Children: children}
	case Not:
		return Not{Child: StripGroupPrefix(n.Child)}
	case Compare:
		if g, ok := n.Left.(GroupColumnOperand); ok {
			return Compare{Left: ColumnOperand{Name: g.Column}, Op: n.Op, Literal: n.Literal}
		}
		return n
	default:
		return e
	}
}
