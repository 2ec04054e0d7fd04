// Package result defines the engine's output shape (C7): an ordered
// sequence of rows, each an ordered mapping from output column name
// (a grouping column or an aggregate's canonical key) to a typed
// value or the Absent sentinel (spec §6 "Result shape").
package result

import "github.com/omniql-engine/esql/internal/schema"

// Cell is one value in a result row: either a present typed Value or
// Absent, spec §3's "language's notion of absent (null/none)" for a
// group-specific aggregate that never matched a row.
type Cell struct {
	Value  schema.Value
	Absent bool
}

// Present builds a Cell holding v.
func Present(v schema.Value) Cell { return Cell{Value: v} }

// AbsentCell builds an absent Cell.
func AbsentCell() Cell { return Cell{Absent: true} }

func (c Cell) String() string {
	if c.Absent {
		return ""
	}
	return c.Value.String()
}

// Row is one output record: an ordered mapping of output column name
// to Cell, following the projection order of spec §4.4 phase 5
// (select_columns then select_aggregates).
type Row struct {
	Names  []string
	Values []Cell
}

// Get looks up a named cell in this row.
func (r Row) Get(name string) (Cell, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return Cell{}, false
}

// Table is the final ordered list of result rows.
type Table struct {
	Columns []string
	Rows    []Row
}
