package chgo

import (
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/rowbinary"
	"github.com/chxio/chgo/transport"
	"github.com/chxio/chgo/value"
)

// QueryResult streams rows of a query decoded against a fixed set of
// column descriptors. Values yielded by Next are only valid until the
// next Next call or Close, per the codec's value-reuse semantics; callers
// that need to retain one must call Value.Clone (or Record.Clone).
type QueryResult struct {
	resp *transport.Response
	dec  *rowbinary.Decoder
	cols []registry.ColumnDescriptor
	row  value.Record
	err  error
}

// Next decodes the next row. It returns false at end of stream or on
// error; callers must check Err afterward to distinguish the two.
func (q *QueryResult) Next() bool {
	eof, err := q.dec.AtEOF()
	if err != nil || eof {
		q.err = err

		return false
	}

	vals, err := q.dec.DecodeRow(q.cols)
	if err != nil {
		q.err = err

		return false
	}

	names := make([]string, len(q.cols))
	for i, c := range q.cols {
		names[i] = c.Name
	}

	q.row = value.NewRecord(names, vals)

	return true
}

// Row returns the most recently decoded Record.
func (q *QueryResult) Row() value.Record { return q.row }

// Err returns the error that stopped iteration, if any.
func (q *QueryResult) Err() error { return q.err }

// Summary returns the server-reported counters for this query.
func (q *QueryResult) Summary() transport.Summary { return q.resp.Meta().Summary }

// Close releases the underlying connection back to its pool.
func (q *QueryResult) Close() error { return q.resp.Close() }
