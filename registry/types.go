// Package registry holds the static metadata for each database column
// type and the recursive-descent parser that turns a server-supplied type
// string (e.g. "Array(Nullable(Decimal(9,3)))") into a Column Descriptor.
//
// It is the leaf-most component: it depends on nothing else in this
// module and is depended on by the RowBinary codec and the schema cache.
package registry

// Category identifies the broad shape of a column's wire encoding.
type Category uint8

const (
	CategoryInteger Category = iota + 1
	CategoryFloat
	CategoryDecimal
	CategoryBool
	CategoryString
	CategoryFixedString
	CategoryDate
	CategoryDateTime
	CategoryUUID
	CategoryIPv4
	CategoryIPv6
	CategoryEnum
	CategoryArray
	CategoryTuple
	CategoryMap
	CategoryNested
	CategoryNullable
	CategoryLowCardinality
	CategoryAggregateBitmap
)

// String renders the category for diagnostics.
func (c Category) String() string {
	switch c {
	case CategoryInteger:
		return "integer"
	case CategoryFloat:
		return "float"
	case CategoryDecimal:
		return "decimal"
	case CategoryBool:
		return "bool"
	case CategoryString:
		return "string"
	case CategoryFixedString:
		return "fixed-string"
	case CategoryDate:
		return "date"
	case CategoryDateTime:
		return "datetime"
	case CategoryUUID:
		return "uuid"
	case CategoryIPv4:
		return "ipv4"
	case CategoryIPv6:
		return "ipv6"
	case CategoryEnum:
		return "enum"
	case CategoryArray:
		return "array"
	case CategoryTuple:
		return "tuple"
	case CategoryMap:
		return "map"
	case CategoryNested:
		return "nested"
	case CategoryNullable:
		return "nullable"
	case CategoryLowCardinality:
		return "low-cardinality"
	case CategoryAggregateBitmap:
		return "aggregate-bitmap"
	default:
		return "unknown"
	}
}

// DefaultKind classifies how a column is populated when a caller doesn't
// supply a value for it.
type DefaultKind uint8

const (
	DefaultNone DefaultKind = iota
	DefaultValue
	DefaultMaterialized
	DefaultAlias
	DefaultEphemeral
)

// Skipped reports whether a column of this default kind is omitted
// entirely from both RowBinary and RowBinaryWithDefaults wire encodings.
func (d DefaultKind) Skipped() bool {
	return d == DefaultMaterialized || d == DefaultAlias || d == DefaultEphemeral
}

// String renders the default kind for diagnostics.
func (d DefaultKind) String() string {
	switch d {
	case DefaultNone:
		return "NONE"
	case DefaultValue:
		return "DEFAULT"
	case DefaultMaterialized:
		return "MATERIALIZED"
	case DefaultAlias:
		return "ALIAS"
	case DefaultEphemeral:
		return "EPHEMERAL"
	default:
		return "UNKNOWN"
	}
}

// EnumMember is one (name, value) pair of an Enum8/Enum16 declaration.
type EnumMember struct {
	Name  string
	Value int16
}

// widthSet enumerates the legal integer/decimal widths in bits.
var widthSet = map[int]bool{8: true, 16: true, 32: true, 64: true, 128: true, 256: true}
