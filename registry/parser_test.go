package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chxio/chgo/errs"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		in       string
		category Category
		width    int
		signed   bool
	}{
		{"Int8", CategoryInteger, 8, true},
		{"Int16", CategoryInteger, 16, true},
		{"Int32", CategoryInteger, 32, true},
		{"Int64", CategoryInteger, 64, true},
		{"Int128", CategoryInteger, 128, true},
		{"Int256", CategoryInteger, 256, true},
		{"UInt8", CategoryInteger, 8, false},
		{"UInt64", CategoryInteger, 64, false},
		{"UInt256", CategoryInteger, 256, false},
		{"Float32", CategoryFloat, 32, true},
		{"Float64", CategoryFloat, 64, true},
		{"Bool", CategoryBool, 0, false},
		{"String", CategoryString, 0, false},
		{"UUID", CategoryUUID, 0, false},
		{"IPv4", CategoryIPv4, 0, false},
		{"IPv6", CategoryIPv6, 0, false},
		{"Date", CategoryDate, 16, false},
		{"Date32", CategoryDate, 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.width, d.WidthBits)
			assert.Equal(t, tt.signed, d.Signed)
		})
	}
}

func TestParseUnknownType(t *testing.T) {
	for _, in := range []string{"Int24", "UInt512", "Text", "varchar", "string"} {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, errs.ErrSchema, in)
	}
}

func TestParseFixedString(t *testing.T) {
	d, err := Parse("FixedString(16)")
	require.NoError(t, err)
	assert.Equal(t, CategoryFixedString, d.Category)
	assert.Equal(t, 16, d.FixedLength)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in        string
		width     int
		precision int
		scale     int
	}{
		{"Decimal(9,3)", 32, 9, 3},
		{"Decimal(10,3)", 64, 10, 3},
		{"Decimal(18,6)", 64, 18, 6},
		{"Decimal(20,6)", 128, 20, 6},
		{"Decimal(38,10)", 128, 38, 10},
		{"Decimal(39,10)", 256, 39, 10},
		{"Decimal(76,38)", 256, 76, 38},
		{"Decimal32(4)", 32, 32, 4},
		{"Decimal64(3)", 64, 64, 3},
		{"Decimal128(20)", 128, 128, 20},
		{"Decimal256(40)", 256, 256, 40},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, CategoryDecimal, d.Category)
			assert.Equal(t, tt.width, d.WidthBits)
			assert.Equal(t, tt.scale, d.Scale)
		})
	}

	_, err := Parse("Decimal(9,80)")
	require.Error(t, err, "scale beyond 76 must fail")
}

func TestParseDateTime(t *testing.T) {
	d, err := Parse("DateTime")
	require.NoError(t, err)
	assert.Equal(t, CategoryDateTime, d.Category)
	assert.Equal(t, 32, d.WidthBits)
	assert.Empty(t, d.Timezone)

	d, err = Parse("DateTime('Asia/Taipei')")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", d.Timezone)

	d, err = Parse("DateTime64(3)")
	require.NoError(t, err)
	assert.Equal(t, 64, d.WidthBits)
	assert.Equal(t, 3, d.Scale)

	d, err = Parse("DateTime64(9, 'UTC')")
	require.NoError(t, err)
	assert.Equal(t, 9, d.Scale)
	assert.Equal(t, "UTC", d.Timezone)

	_, err = Parse("DateTime64(10)")
	require.Error(t, err, "scale beyond 9 must fail")
}

func TestParseEnum(t *testing.T) {
	d, err := Parse("Enum8('a' = 1, 'b' = 2)")
	require.NoError(t, err)
	assert.Equal(t, CategoryEnum, d.Category)
	assert.Equal(t, 8, d.WidthBits)
	require.Len(t, d.EnumMembers, 2)
	assert.Equal(t, EnumMember{Name: "a", Value: 1}, d.EnumMembers[0])
	assert.Equal(t, EnumMember{Name: "b", Value: 2}, d.EnumMembers[1])

	d, err = Parse("Enum16('up' = -1, 'down' = 300)")
	require.NoError(t, err)
	assert.Equal(t, 16, d.WidthBits)
	assert.Equal(t, int16(-1), d.EnumMembers[0].Value)
	assert.Equal(t, int16(300), d.EnumMembers[1].Value)
}

func TestParseComposites(t *testing.T) {
	d, err := Parse("Array(Nullable(Decimal(9,3)))")
	require.NoError(t, err)
	assert.Equal(t, CategoryArray, d.Category)

	inner := d.Inner()
	assert.Equal(t, CategoryNullable, inner.Category)
	assert.Equal(t, CategoryDecimal, inner.Inner().Category)
	assert.True(t, inner.Inner().Nullable)

	d, err = Parse("Tuple(String, UInt64, Float64)")
	require.NoError(t, err)
	assert.Equal(t, CategoryTuple, d.Category)
	require.Len(t, d.Children, 3)

	d, err = Parse("Map(String, Array(Int32))")
	require.NoError(t, err)
	assert.Equal(t, CategoryMap, d.Category)
	require.Len(t, d.Children, 2)
	assert.Equal(t, CategoryString, d.Children[0].Category)
	assert.Equal(t, CategoryArray, d.Children[1].Category)
}

func TestParseNestedCarriesFieldNames(t *testing.T) {
	d, err := Parse("Nested(id UInt64, name String)")
	require.NoError(t, err)
	assert.Equal(t, CategoryNested, d.Category)
	require.Len(t, d.Children, 2)
	assert.Equal(t, "id", d.Children[0].Name)
	assert.Equal(t, CategoryInteger, d.Children[0].Category)
	assert.Equal(t, "name", d.Children[1].Name)
	assert.Equal(t, CategoryString, d.Children[1].Category)
}

func TestParseIllegalNullable(t *testing.T) {
	for _, in := range []string{
		"Nullable(Nullable(Int32))",
		"Nullable(Array(Int32))",
		"Nullable(Tuple(Int32, Int32))",
		"Nullable(Map(String, Int32))",
	} {
		_, err := Parse(in)
		require.Error(t, err, in)

		var se *errs.SchemaError
		require.ErrorAs(t, err, &se, in)
		assert.Equal(t, "illegal_nullable", se.Reason, in)
	}
}

func TestParseLowCardinality(t *testing.T) {
	d, err := Parse("LowCardinality(String)")
	require.NoError(t, err)
	assert.Equal(t, CategoryLowCardinality, d.Category)
	assert.Equal(t, CategoryString, d.Inner().Category)

	d, err = Parse("LowCardinality(Nullable(String))")
	require.NoError(t, err)
	assert.Equal(t, CategoryNullable, d.Inner().Category)

	_, err = Parse("LowCardinality(Array(String))")
	require.Error(t, err, "LowCardinality over composite must fail")

	_, err = Parse("LowCardinality(Decimal(9,3))")
	require.Error(t, err)
}

func TestParseAggregateFunction(t *testing.T) {
	d, err := Parse("AggregateFunction(groupBitmap, UInt32)")
	require.NoError(t, err)
	assert.Equal(t, CategoryAggregateBitmap, d.Category)

	_, err = Parse("AggregateFunction(uniq, UInt32)")
	require.Error(t, err, "only groupBitmap state is carried")
}

func TestParseTrailingInput(t *testing.T) {
	_, err := Parse("Int32)")
	require.Error(t, err)

	_, err = Parse("Array(Int32) extra")
	require.Error(t, err)
}

func TestParseWhitespaceTolerance(t *testing.T) {
	d, err := Parse("Map( String , Nullable( Int64 ) )")
	require.NoError(t, err)
	assert.Equal(t, CategoryMap, d.Category)
	assert.Equal(t, CategoryNullable, d.Children[1].Category)
}
