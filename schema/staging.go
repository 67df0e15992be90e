package schema

import (
	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/value"
)

// RowStagingBuffer accumulates field values for a single row against a
// TableSchema, by name or 1-based index, before handing the committed row
// to the RowBinary encoder.
//
// Indices are 1-based at this public surface per the column-indexing
// convention: public set-by-index APIs are 1-based, internal descriptor
// arrays (TableSchema.Columns, the slices Commit returns) are 0-based.
type RowStagingBuffer struct {
	schema TableSchema
	vals   []value.Value
	set    []bool
}

// NewRowStagingBuffer returns an empty staging buffer bound to schema.
func NewRowStagingBuffer(s TableSchema) *RowStagingBuffer {
	return &RowStagingBuffer{
		schema: s,
		vals:   make([]value.Value, s.Len()),
		set:    make([]bool, s.Len()),
	}
}

// SetByName stages v for the named column.
func (b *RowStagingBuffer) SetByName(name string, v value.Value) error {
	i, err := b.schema.IndexOf(name)
	if err != nil {
		return err
	}

	b.vals[i] = v
	b.set[i] = true

	return nil
}

// SetByIndex stages v for the column at 1-based index idx.
func (b *RowStagingBuffer) SetByIndex(idx int, v value.Value) error {
	i := idx - 1
	if i < 0 || i >= len(b.vals) {
		return &errs.EncodeError{Reason: "missing_required", Column: "<out of range>"}
	}

	b.vals[i] = v
	b.set[i] = true

	return nil
}

// Reset clears all staged values so the buffer can be reused for the next
// row without reallocating.
func (b *RowStagingBuffer) Reset() {
	for i := range b.vals {
		b.vals[i] = value.Value{}
		b.set[i] = false
	}
}

// Commit walks the schema in declared order, skipping MATERIALIZED,
// ALIAS and EPHEMERAL columns, and returns the column descriptors, staged
// values and per-column "was it set" flags ready for
// Encoder.EncodeRowWithDefaults.
//
// An unset column whose DefaultKind is not DEFAULT and which is not
// Nullable fails with EncodeError{missing_required}.
func (b *RowStagingBuffer) Commit() ([]registry.ColumnDescriptor, []value.Value, []bool, error) {
	cols := make([]registry.ColumnDescriptor, 0, len(b.vals))
	vals := make([]value.Value, 0, len(b.vals))
	set := make([]bool, 0, len(b.vals))

	for i, c := range b.schema.Columns {
		if c.DefaultKind.Skipped() {
			continue
		}

		if !b.set[i] && c.DefaultKind != registry.DefaultValue && !c.Nullable {
			return nil, nil, nil, &errs.EncodeError{Reason: "missing_required", Column: c.Name}
		}

		cols = append(cols, c)
		vals = append(vals, b.vals[i])
		set = append(set, b.set[i])
	}

	return cols, vals, set, nil
}
