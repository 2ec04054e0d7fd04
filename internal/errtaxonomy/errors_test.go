package errtaxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageShape(t *testing.T) {
	err := NewSchemaError("FROM", "custmers", `table "custmers" not found`)
	msg := err.Error()
	assert.Contains(t, msg, "schema error")
	assert.Contains(t, msg, "FROM")
	assert.Contains(t, msg, `near "custmers"`)
}

func TestRuntimeErrorIncludesRow(t *testing.T) {
	err := NewRuntimeError("quant", 7, "not a number")
	assert.Contains(t, err.Error(), "row 7")
}

func TestParseErrorHasNoRow(t *testing.T) {
	err := NewParseError("SELECT", "", "empty SELECT")
	assert.Equal(t, -1, err.Row)
	assert.NotContains(t, err.Error(), "row")
}

func TestSuggestSimilar(t *testing.T) {
	candidates := []string{"customers", "orders", "products"}

	assert.Equal(t, "customers", SuggestSimilar(candidates, "custmer"))
	assert.Equal(t, "", SuggestSimilar(candidates, "zzzzzzzzzz"))
}
