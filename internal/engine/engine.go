// Package engine implements the MF (multi-feature) execution engine
// (C6): the phased grouped-hash aggregation spec §4.4 describes. A
// single compiled plan threads through sequential passes over rows,
// one pass per phase, before the final result table is produced.
package engine

import (
	"fmt"
	"sort"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/errtaxonomy"
	"github.com/omniql-engine/esql/internal/result"
	"github.com/omniql-engine/esql/internal/schema"
	"github.com/omniql-engine/esql/internal/telemetry"
)

// Execute runs a validated plan against a loaded table, producing the
// ordered result table spec §4.4's seven phases (0-6) describe: WHERE filter,
// global aggregation, per-group SUCH THAT passes, AVG finalisation,
// HAVING filter, projection, and ORDER BY.
func Execute(plan *ast.Plan, sch *schema.Schema, rows []schema.Row) (*result.Table, error) {
	telemetry.L().Debugw("executing plan", "table", plan.Table, "rows", len(rows), "groups", plan.Groups)

	filtered, err := filterRows(plan.Where, rows)
	if err != nil {
		return nil, err
	}

	h := newHRows()
	if err := buildGlobalAggregates(plan, filtered, h); err != nil {
		return nil, err
	}
	if err := buildGroupAggregates(plan, filtered, h); err != nil {
		return nil, err
	}

	surviving, err := applyHaving(plan, h.ordered())
	if err != nil {
		return nil, err
	}

	table := project(plan, surviving)
	orderBy(plan, table)
	return table, nil
}

// filterRows applies phase 0 (WHERE), keeping row order.
func filterRows(where ast.Expr, rows []schema.Row) ([]schema.Row, error) {
	if where == nil {
		return rows, nil
	}
	out := make([]schema.Row, 0, len(rows))
	for i, row := range rows {
		ok, err := ast.Eval(where, rowLookup(row))
		if err != nil {
			return nil, errtaxonomy.NewRuntimeError("WHERE", i, err.Error())
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// buildGlobalAggregates is phase 1: every filtered row contributes to
// its grouping key's H-row, updating every global (Group == "")
// descriptor. This is also where H-rows are first created, so a
// grouping key with at least one row always has every global
// descriptor present (spec §8: "Count over any column never produces
// absent for a present H-row").
func buildGlobalAggregates(plan *ast.Plan, rows []schema.Row, h *hrows) error {
	for i, row := range rows {
		key, err := groupKey(plan.SelectColumns, row)
		if err != nil {
			return errtaxonomy.NewRuntimeError("SELECT", i, err.Error())
		}
		hr := h.getOrCreate(encodeKey(key), key)
		for _, d := range plan.Descriptors {
			if d.Group != "" {
				continue
			}
			v, ok := row.Get(d.Column)
			if !ok {
				return errtaxonomy.NewRuntimeError(d.Column, i, fmt.Sprintf("unknown column %q", d.Column))
			}
			hr.acc[d.Key()] = updateAcc(hr.acc[d.Key()], d.Function, v)
		}
	}
	return nil
}

// buildGroupAggregates is phase 2: for every declared group, run a
// dedicated pass filtering rows by that group's SUCH THAT expression
// and fold matching rows into the group's descriptors only. A
// grouping key whose group never matches any row simply never gets an
// accumulator entry for that group's descriptors, which is what makes
// it read as absent later (spec §4.4 phase 3, §8 boundary behaviour).
func buildGroupAggregates(plan *ast.Plan, rows []schema.Row, h *hrows) error {
	for _, group := range plan.Groups {
		suchThat := plan.SuchThat[group]
		descs := descriptorsForGroup(plan.Descriptors, group)
		if len(descs) == 0 {
			continue
		}
		for i, row := range rows {
			ok, err := ast.Eval(suchThat, rowLookup(row))
			if err != nil {
				return errtaxonomy.NewRuntimeError("SUCH THAT", i, err.Error())
			}
			if !ok {
				continue
			}
			key, err := groupKey(plan.SelectColumns, row)
			if err != nil {
				return errtaxonomy.NewRuntimeError("SELECT", i, err.Error())
			}
			hr, exists := h.get(encodeKey(key))
			if !exists {
				// WHERE-filtered rows are the same set phase 1 and
				// phase 2 iterate; a key reaching here always has a
				// phase-1 H-row already.
				hr = h.getOrCreate(encodeKey(key), key)
			}
			for _, d := range descs {
				v, ok := row.Get(d.Column)
				if !ok {
					return errtaxonomy.NewRuntimeError(d.Column, i, fmt.Sprintf("unknown column %q", d.Column))
				}
				hr.acc[d.Key()] = updateAcc(hr.acc[d.Key()], d.Function, v)
			}
		}
	}
	return nil
}

func descriptorsForGroup(descs []ast.Descriptor, group string) []ast.Descriptor {
	var out []ast.Descriptor
	for _, d := range descs {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

func updateAcc(acc *Accumulator, fn ast.AggFunc, v schema.Value) *Accumulator {
	if acc == nil {
		acc = newAccumulator(fn)
	}
	acc.Update(v)
	return acc
}

// groupKey pulls the grouping-column tuple out of a row, in
// SelectColumns order.
func groupKey(columns []string, row schema.Row) ([]schema.Value, error) {
	key := make([]schema.Value, len(columns))
	for i, name := range columns {
		v, ok := row.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		key[i] = v
	}
	return key, nil
}

// rowLookup adapts a raw row to ast.Lookup for WHERE/SUCH THAT
// expressions, whose operands are always plain columns.
func rowLookup(row schema.Row) ast.Lookup {
	return func(op ast.Operand) (schema.Value, bool, error) {
		col, ok := op.(ast.ColumnOperand)
		if !ok {
			return schema.Value{}, false, fmt.Errorf("unexpected operand %T in row-scoped expression", op)
		}
		v, ok := row.Get(col.Name)
		if !ok {
			return schema.Value{}, false, fmt.Errorf("unknown column %q", col.Name)
		}
		return v, false, nil
	}
}

// hrowLookup adapts an H-row to ast.Lookup for HAVING, whose operands
// are either grouping columns or aggregate references.
func hrowLookup(plan *ast.Plan, hr *hrow) ast.Lookup {
	return func(op ast.Operand) (schema.Value, bool, error) {
		switch o := op.(type) {
		case ast.ColumnOperand:
			for i, name := range plan.SelectColumns {
				if name == o.Name {
					return hr.key[i], false, nil
				}
			}
			return schema.Value{}, false, fmt.Errorf("column %q is not a grouping column", o.Name)
		case ast.AggregateOperand:
			d := ast.Descriptor{Group: o.Group, Column: o.Column, Function: o.Function}
			acc, ok := hr.acc[d.Key()]
			if !ok {
				return schema.Value{}, true, nil
			}
			return acc.Value(), false, nil
		default:
			return schema.Value{}, false, fmt.Errorf("unexpected operand %T in HAVING", op)
		}
	}
}

// applyHaving is phase 4: keep H-rows passing the HAVING expression,
// in their existing order. A comparison against an absent aggregate
// evaluates false (ast.Eval / evalCompare), never an error.
func applyHaving(plan *ast.Plan, rows []*hrow) ([]*hrow, error) {
	if plan.Having == nil {
		return rows, nil
	}
	out := make([]*hrow, 0, len(rows))
	for _, hr := range rows {
		ok, err := ast.Eval(plan.Having, hrowLookup(plan, hr))
		if err != nil {
			return nil, errtaxonomy.NewRuntimeError("HAVING", -1, err.Error())
		}
		if ok {
			out = append(out, hr)
		}
	}
	return out, nil
}

// project is phase 5: build the output table, one row per surviving
// H-row, columns in select_columns-then-select_aggregates order.
func project(plan *ast.Plan, rows []*hrow) *result.Table {
	names := make([]string, 0, len(plan.SelectColumns)+len(plan.SelectAggregates))
	names = append(names, plan.SelectColumns...)
	for _, d := range plan.SelectAggregates {
		names = append(names, d.Key())
	}

	out := &result.Table{Columns: names}
	for _, hr := range rows {
		values := make([]result.Cell, 0, len(names))
		for _, v := range hr.key {
			values = append(values, result.Present(v))
		}
		for _, d := range plan.SelectAggregates {
			acc, ok := hr.acc[d.Key()]
			if !ok {
				values = append(values, result.AbsentCell())
				continue
			}
			values = append(values, result.Present(acc.Value()))
		}
		out.Rows = append(out.Rows, result.Row{Names: names, Values: values})
	}
	return out
}

// orderBy is phase 6: a stable sort on the first OrderByDepth
// select_columns, left to right. Stability plus the insertion-ordered
// H-table is what makes OrderByDepth == 0 reproduce phase-1 discovery
// order exactly (spec §8's determinism property).
func orderBy(plan *ast.Plan, table *result.Table) {
	k := plan.OrderByDepth
	if k == 0 {
		return
	}
	sort.SliceStable(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		for col := 0; col < k; col++ {
			c := sortCompare(a.Values[col].Value, b.Values[col].Value)
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// sortCompare gives every logical type a total order for ORDER BY
// purposes, unlike schema.Compare which only orders Number and Date
// (expression evaluation restricts string/boolean to equality, but
// sorting grouping columns of any type must still produce a stable,
// deterministic order).
func sortCompare(a, b schema.Value) int {
	switch a.Type {
	case schema.Number:
		return schema.Compare(a, b)
	case schema.Date:
		return schema.Compare(a, b)
	case schema.String:
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	case schema.Boolean:
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}
