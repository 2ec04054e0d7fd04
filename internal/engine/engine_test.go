package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/esql/internal/schema"
	"github.com/omniql-engine/esql/internal/validator"
)

func ordersTable(t *testing.T) (*schema.Schema, []schema.Row) {
	t.Helper()
	sch, err := schema.New([]schema.Column{
		{Name: "cust", Type: schema.String},
		{Name: "state", Type: schema.String},
		{Name: "quant", Type: schema.Number},
	})
	require.NoError(t, err)

	rows := []schema.Row{
		{Schema: sch, Values: []schema.Value{schema.StringValue("acme"), schema.StringValue("NJ"), schema.NumberValue(10)}},
		{Schema: sch, Values: []schema.Value{schema.StringValue("acme"), schema.StringValue("NY"), schema.NumberValue(20)}},
		{Schema: sch, Values: []schema.Value{schema.StringValue("widgetco"), schema.StringValue("NJ"), schema.NumberValue(5)}},
	}
	return sch, rows
}

func loaderFor(sch *schema.Schema) validator.SchemaLoader {
	return func(string) (*schema.Schema, error) { return sch, nil }
}

func TestExecuteGlobalAggregate(t *testing.T) {
	sch, rows := ordersTable(t)
	plan, _, err := validator.Compile(`SELECT cust, quant.sum FROM orders`, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)

	row := out.Rows[0]
	cell, ok := row.Get("cust")
	require.True(t, ok)
	assert.Equal(t, "acme", cell.Value.Str)

	cell, ok = row.Get("quant.sum")
	require.True(t, ok)
	assert.Equal(t, 30.0, cell.Value.Num)
}

func TestExecuteGroupSpecificAggregate(t *testing.T) {
	sch, rows := ordersTable(t)
	query := `SELECT cust, nj.quant.sum
FROM orders
OVER nj
SUCH THAT nj.state = 'NJ'`
	plan, _, err := validator.Compile(query, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)

	// acme has an NJ order
	cell, ok := out.Rows[0].Get("nj.quant.sum")
	require.True(t, ok)
	require.False(t, cell.Absent)
	assert.Equal(t, 10.0, cell.Value.Num)

	// widgetco's only order is NJ too, so non-absent; confirm the
	// grouping key still surfaces and the value is exactly that order
	cell, ok = out.Rows[1].Get("nj.quant.sum")
	require.True(t, ok)
	assert.False(t, cell.Absent)
	assert.Equal(t, 5.0, cell.Value.Num)
}

func TestExecuteGroupAggregateAbsentWhenNoGroupRowsMatch(t *testing.T) {
	sch, rows := ordersTable(t)
	query := `SELECT cust, tx.quant.sum
FROM orders
OVER tx
SUCH THAT tx.state = 'TX'`
	plan, _, err := validator.Compile(query, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	for _, row := range out.Rows {
		cell, ok := row.Get("tx.quant.sum")
		require.True(t, ok)
		assert.True(t, cell.Absent)
	}
}

func TestExecuteAvgRoundsToTwoDecimals(t *testing.T) {
	sch, err := schema.New([]schema.Column{{Name: "quant", Type: schema.Number}})
	require.NoError(t, err)
	rows := []schema.Row{
		{Schema: sch, Values: []schema.Value{schema.NumberValue(1)}},
		{Schema: sch, Values: []schema.Value{schema.NumberValue(2)}},
		{Schema: sch, Values: []schema.Value{schema.NumberValue(2)}},
	}
	plan, _, err := validator.Compile(`SELECT quant.avg FROM x`, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	cell, ok := out.Rows[0].Get("quant.avg")
	require.True(t, ok)
	assert.Equal(t, 1.67, cell.Value.Num)
}

func TestExecuteHavingFiltersAbsentAsFalse(t *testing.T) {
	sch, rows := ordersTable(t)
	query := `SELECT cust, tx.quant.sum
FROM orders
OVER tx
SUCH THAT tx.state = 'TX'
HAVING tx.quant.sum > 0`
	plan, _, err := validator.Compile(query, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
}

func TestExecuteWhereFiltersBeforeGrouping(t *testing.T) {
	sch, rows := ordersTable(t)
	plan, _, err := validator.Compile(`SELECT cust, quant.sum FROM orders WHERE state = 'NJ'`, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	for _, row := range out.Rows {
		cell, _ := row.Get("quant.sum")
		assert.LessOrEqual(t, cell.Value.Num, 10.0)
	}
}

func TestExecuteOrderByIsStableAndDeterministic(t *testing.T) {
	sch, rows := ordersTable(t)
	plan, _, err := validator.Compile(`SELECT cust, quant.sum FROM orders ORDER BY 1`, loaderFor(sch))
	require.NoError(t, err)

	out, err := Execute(plan, sch, rows)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	c0, _ := out.Rows[0].Get("cust")
	c1, _ := out.Rows[1].Get("cust")
	assert.Equal(t, "acme", c0.Value.Str)
	assert.Equal(t, "widgetco", c1.Value.Str)
}
