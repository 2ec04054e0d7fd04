package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogicalType(t *testing.T) {
	tests := []struct {
		in      string
		want    LogicalType
		wantErr bool
	}{
		{"number", Number, false},
		{"STRING", String, false},
		{" Date ", Date, false},
		{"boolean", Boolean, false},
		{"nonsense", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLogicalType(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSchemaCaseInsensitiveLookup(t *testing.T) {
	sch, err := New([]Column{
		{Name: "Cust", Type: String},
		{Name: "Quant", Type: Number},
	})
	require.NoError(t, err)

	col, ok := sch.Column("QUANT")
	require.True(t, ok)
	assert.Equal(t, "Quant", col.Name)

	name, ok := sch.CanonicalName("cust")
	require.True(t, ok)
	assert.Equal(t, "Cust", name)

	_, ok = sch.Column("missing")
	assert.False(t, ok)
}

func TestSchemaRejectsDuplicateNames(t *testing.T) {
	_, err := New([]Column{
		{Name: "cust", Type: String},
		{Name: "Cust", Type: String},
	})
	assert.Error(t, err)
}

func TestValueCompareAndEqual(t *testing.T) {
	assert.Equal(t, -1, Compare(NumberValue(1), NumberValue(2)))
	assert.Equal(t, 1, Compare(NumberValue(5), NumberValue(2)))
	assert.Equal(t, 0, Compare(NumberValue(2), NumberValue(2)))
	assert.True(t, Equal(StringValue("nj"), StringValue("nj")))
	assert.False(t, Equal(StringValue("nj"), StringValue("ny")))
}

func TestValueComparePanicsOnMismatch(t *testing.T) {
	assert.Panics(t, func() { Compare(NumberValue(1), StringValue("x")) })
	assert.Panics(t, func() { Compare(StringValue("x"), StringValue("y")) })
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", DateValue(d).String())

	_, err = ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestRowGet(t *testing.T) {
	sch, err := New([]Column{{Name: "quant", Type: Number}})
	require.NoError(t, err)
	row := Row{Schema: sch, Values: []Value{NumberValue(42)}}

	v, ok := row.Get("QUANT")
	require.True(t, ok)
	assert.Equal(t, 42.0, v.Num)

	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "3", NumberValue(3).String())
	assert.Equal(t, "3.5", NumberValue(3.5).String())
}
