package registry

import "github.com/chxio/chgo/errs"

// ColumnDescriptor is the parsed form of a single column's type string.
//
// Composite categories (Array, Tuple, Map, Nested) carry their element
// descriptors in Children, in declared order. LowCardinality and Nullable
// wrap exactly one inner descriptor, stored as Children[0].
type ColumnDescriptor struct {
	Name        string
	Category    Category
	Children    []ColumnDescriptor
	WidthBits   int // integer/decimal categories
	Signed      bool
	Scale       int // decimal / datetime64
	Precision   int // decimal
	Timezone    string
	EnumMembers []EnumMember
	FixedLength int // fixed-string
	Nullable    bool
	DefaultKind DefaultKind
}

// Inner returns the single wrapped descriptor for Nullable/LowCardinality
// categories. It panics if called on any other category; callers must
// check Category first.
func (d ColumnDescriptor) Inner() ColumnDescriptor {
	return d.Children[0]
}

// validate checks the structural invariants from the data model: composite
// categories need at least one child, width must be one of the legal
// sizes, and scale must fall within its category-specific range.
func (d ColumnDescriptor) validate() error {
	switch d.Category {
	case CategoryArray, CategoryTuple, CategoryMap, CategoryNested:
		if len(d.Children) == 0 {
			return &errs.SchemaError{Reason: "unknown_type", Detail: d.Category.String() + " requires at least one child"}
		}
	case CategoryNullable, CategoryLowCardinality:
		if len(d.Children) != 1 {
			return &errs.SchemaError{Reason: "illegal_nullable", Detail: d.Category.String() + " must wrap exactly one inner type"}
		}
	}

	if d.Category == CategoryInteger || d.Category == CategoryDecimal {
		if !widthSet[d.WidthBits] {
			return &errs.SchemaError{Reason: "unknown_type", Detail: "illegal width_bits"}
		}
	}

	if d.Category == CategoryDateTime && (d.Scale < 0 || d.Scale > 9) {
		return &errs.SchemaError{Reason: "unknown_type", Detail: "datetime64 scale out of range"}
	}

	if d.Category == CategoryDecimal && (d.Scale < 0 || d.Scale > 76) {
		return &errs.SchemaError{Reason: "unknown_type", Detail: "decimal scale out of range"}
	}

	return nil
}

// IsComposite reports whether the category nests child descriptors.
func (d ColumnDescriptor) IsComposite() bool {
	switch d.Category {
	case CategoryArray, CategoryTuple, CategoryMap, CategoryNested:
		return true
	default:
		return false
	}
}
