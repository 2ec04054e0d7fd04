package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xwb1989/sqlparser"

	"github.com/omniql-engine/esql/internal/validator"
)

// TestSelectColumnOrderMatchesEquivalentSQL validates the claim spec §8
// makes ("equivalence with SQL") at the narrow grain this engine can
// check without a second execution backend: a plain global-aggregate
// ESQL query must project as many columns as the GROUP BY SQL it's
// equivalent to, in the same order (grouping column first, then the
// sum, named "cust" and "quant.sum" on the ESQL side). sqlparser is used only
// to parse the reference SQL text, never to execute it.
func TestSelectColumnOrderMatchesEquivalentSQL(t *testing.T) {
	referenceSQL := `SELECT cust, SUM(quant) FROM orders GROUP BY cust`
	stmt, err := sqlparser.Parse(referenceSQL)
	require.NoError(t, err)

	sel, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.Len(t, sel.SelectExprs, 2)

	sch, rows := ordersTable(t)
	plan, _, err := validator.Compile(`SELECT cust, quant.sum FROM orders`, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)

	require.Len(t, out.Columns, len(sel.SelectExprs))
	assert.Equal(t, "cust", out.Columns[0])
	assert.Equal(t, "quant.sum", out.Columns[1])
}
