// Package schema resolves and caches table metadata (the Column
// Descriptors that make up a row) and stages rows for insertion against
// that metadata.
package schema

import (
	"strings"

	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/registry"
)

// TableSchema is the immutable, ordered list of a table's columns, with a
// case-insensitive name index built once at construction.
type TableSchema struct {
	Table   string
	Columns []registry.ColumnDescriptor

	byName map[string]int
}

// NewTableSchema builds a TableSchema from the column descriptors
// returned by a DESCRIBE TABLE query, in declared order.
func NewTableSchema(table string, cols []registry.ColumnDescriptor) TableSchema {
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		byName[strings.ToLower(c.Name)] = i
	}

	return TableSchema{Table: table, Columns: cols, byName: byName}
}

// IndexOf returns the 0-based position of a column by name, or an error
// if no such column exists.
func (s TableSchema) IndexOf(name string) (int, error) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return 0, &errs.SchemaError{Reason: "unknown_column", Detail: name}
	}

	return i, nil
}

// Len returns the number of declared columns, including ones the
// RowBinary codec skips (MATERIALIZED/ALIAS/EPHEMERAL).
func (s TableSchema) Len() int { return len(s.Columns) }
