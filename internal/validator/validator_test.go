package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/esql/internal/ast"
	"github.com/omniql-engine/esql/internal/schema"
)

func ordersSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Column{
		{Name: "cust", Type: schema.String},
		{Name: "state", Type: schema.String},
		{Name: "quant", Type: schema.Number},
	})
	require.NoError(t, err)
	return sch
}

func loaderFor(t *testing.T) SchemaLoader {
	sch := ordersSchema(t)
	return func(table string) (*schema.Schema, error) {
		if table != "orders" {
			return nil, assert.AnError
		}
		return sch, nil
	}
}

func TestCompilePlainQuery(t *testing.T) {
	plan, _, err := Compile(`SELECT cust, quant.sum FROM orders`, loaderFor(t))
	require.NoError(t, err)
	assert.Equal(t, "orders", plan.Table)
	assert.Equal(t, []string{"cust"}, plan.SelectColumns)
	require.Len(t, plan.SelectAggregates, 1)
	assert.Equal(t, ast.Sum, plan.SelectAggregates[0].Function)
	assert.Equal(t, 0, plan.OrderByDepth)
}

func TestCompileWithGroupsAndSuchThat(t *testing.T) {
	query := `SELECT cust, nj.quant.sum, ny.quant.sum
FROM orders
OVER nj, ny
SUCH THAT nj.state = 'NJ', ny.state = 'NY'`
	plan, _, err := Compile(query, loaderFor(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"nj", "ny"}, plan.Groups)
	require.Contains(t, plan.SuchThat, "nj")
	require.Contains(t, plan.SuchThat, "ny")

	// group prefixes must have been stripped out of the stored expression
	cmp := plan.SuchThat["nj"].(ast.Compare)
	_, ok := cmp.Left.(ast.ColumnOperand)
	assert.True(t, ok)
}

func TestCompileRejectsSuchThatSpanningTwoGroups(t *testing.T) {
	query := `SELECT cust, nj.quant.sum
FROM orders
OVER nj, ny
SUCH THAT nj.state = 'NJ' and ny.state = 'NY', ny.state = 'NY'`
	_, _, err := Compile(query, loaderFor(t))
	assert.Error(t, err)
}

func TestCompileRequiresSuchThatForEveryGroup(t *testing.T) {
	query := `SELECT cust, nj.quant.sum, ny.quant.sum
FROM orders
OVER nj, ny
SUCH THAT nj.state = 'NJ'`
	_, _, err := Compile(query, loaderFor(t))
	assert.Error(t, err)
}

func TestCompileRejectsNonNumericAggregateColumn(t *testing.T) {
	_, _, err := Compile(`SELECT cust, state.sum FROM orders`, loaderFor(t))
	assert.Error(t, err)
}

func TestCompileAllowsCountOnNonNumericColumn(t *testing.T) {
	plan, _, err := Compile(`SELECT cust, state.count FROM orders`, loaderFor(t))
	require.NoError(t, err)
	assert.Equal(t, ast.Count, plan.SelectAggregates[0].Function)
}

func TestCompileRejectsOrderingComparatorOnString(t *testing.T) {
	_, _, err := Compile(`SELECT cust FROM orders WHERE state > 'NJ'`, loaderFor(t))
	assert.Error(t, err)
}

func TestCompileHavingOnNonSelectedColumnFails(t *testing.T) {
	_, _, err := Compile(`SELECT cust, quant.sum FROM orders HAVING state = 'NJ'`, loaderFor(t))
	assert.Error(t, err)
}

func TestCompileHavingAggregateNotInSelectStillTracked(t *testing.T) {
	plan, _, err := Compile(`SELECT cust FROM orders HAVING quant.sum > 100`, loaderFor(t))
	require.NoError(t, err)
	require.Len(t, plan.Descriptors, 1)
	assert.Empty(t, plan.SelectAggregates)
}

func TestCompileOrderByDepthBounds(t *testing.T) {
	_, _, err := Compile(`SELECT cust FROM orders ORDER BY 2`, loaderFor(t))
	assert.Error(t, err)

	plan, _, err := Compile(`SELECT cust, state FROM orders ORDER BY 2`, loaderFor(t))
	require.NoError(t, err)
	assert.Equal(t, 2, plan.OrderByDepth)
}

func TestCompileUnknownTableProducesSchemaError(t *testing.T) {
	_, _, err := Compile(`SELECT cust FROM bogus`, loaderFor(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema error")
}
