package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/esql/internal/schema"
)

func writeTable(t *testing.T, root, name, columnsCSV, rowsCSV string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "columns"), []byte(columnsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "table"), []byte(rowsCSV), 0o644))
}

func TestLoadReadsSchemaAndRows(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "orders",
		"cust,string\nquant,number\nshipped,boolean\n",
		"acme,10,true\nwidgetco,5,false\n",
	)

	loader := New(root)
	sch, rows, err := loader.Load("orders")
	require.NoError(t, err)
	require.Equal(t, 3, sch.Len())
	require.Len(t, rows, 2)

	v, ok := rows[0].Get("quant")
	require.True(t, ok)
	assert.Equal(t, 10.0, v.Num)

	v, ok = rows[1].Get("shipped")
	require.True(t, ok)
	assert.False(t, v.Bool)
}

func TestLoadSchemaOnly(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "orders", "cust,string\n", "acme\n")

	loader := New(root)
	sch, err := loader.LoadSchema("orders")
	require.NoError(t, err)
	assert.Equal(t, 1, sch.Len())
	col, ok := sch.Column("cust")
	require.True(t, ok)
	assert.Equal(t, schema.String, col.Type)
}

func TestLoadMissingTableSuggestsPlural(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "orders", "cust,string\n", "acme\n")

	loader := New(root)
	_, _, err := loader.Load("order")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders")
}

func TestLoadRejectsMalformedNumber(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "orders", "quant,number\n", "not-a-number\n")

	loader := New(root)
	_, _, err := loader.Load("orders")
	assert.Error(t, err)
}
