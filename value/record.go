package value

import (
	"strings"

	"github.com/chxio/chgo/errs"
)

// Record is an ordered sequence of Values, one per column, with positional
// and case-insensitive name lookup.
//
// A Record's lifetime is the caller's iteration step: in value-reuse mode
// the decoder overwrites the fields of the Values backing a single Record
// on each row boundary. Callers that want to retain a Record past the
// current iteration step must call Clone.
type Record struct {
	names  []string
	lookup map[string]int // lower-cased name -> index, built lazily
	vals   []Value
}

// NewRecord constructs a Record from column names (in schema order) and
// one Value per column.
func NewRecord(names []string, vals []Value) Record {
	return Record{names: names, vals: vals}
}

// Len returns the number of columns in the record.
func (r Record) Len() int { return len(r.vals) }

// At returns the Value at the given 0-based position.
func (r Record) At(i int) (Value, error) {
	if i < 0 || i >= len(r.vals) {
		return Value{}, &errs.ValueError{Reason: "type_mismatch", Detail: "record index out of range"}
	}

	return r.vals[i], nil
}

// ByName performs a case-insensitive lookup of a column by name.
func (r *Record) ByName(name string) (Value, error) {
	if r.lookup == nil {
		r.lookup = make(map[string]int, len(r.names))
		for i, n := range r.names {
			r.lookup[strings.ToLower(n)] = i
		}
	}

	idx, ok := r.lookup[strings.ToLower(name)]
	if !ok {
		return Value{}, &errs.SchemaError{Reason: "unknown_column", Detail: name}
	}

	return r.vals[idx], nil
}

// Values returns the record's Values in schema order. The returned slice
// shares storage with the Record.
func (r Record) Values() []Value { return r.vals }

// Clone deep-copies every Value in the record so it remains valid past the
// current decoder iteration step.
func (r Record) Clone() Record {
	out := Record{names: r.names, vals: make([]Value, len(r.vals))}
	for i, v := range r.vals {
		out.vals[i] = v.Clone()
	}

	return out
}
