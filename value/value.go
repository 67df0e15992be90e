// Package value defines the in-memory representation of a single decoded
// RowBinary field, with wide-type accessors and null tracking, plus the
// Record type that groups one Value per column.
//
// A Value is produced by the rowbinary decoder and consumed by callers; it
// carries a back-reference to its originating Column Descriptor (see
// Descriptor). The accessors validate conversions (narrowing,
// wrong-category access) against the payload Kind and the held value;
// they do not consult the descriptor.
package value

import (
	"math/big"
	"net"
	"time"

	"github.com/chxio/chgo/registry"
)

// Kind discriminates the payload a Value currently holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindBool
	KindBytes
	KindString
	KindDate
	KindInstant
	KindUUID
	KindIP
	KindList
	KindTuple
	KindMap
	KindBitmap
)

// Decimal is an arbitrary-precision fixed-point number: the mathematical
// value is Unscaled * 10^(-Scale). Equality is by (Unscaled, Scale), not by
// float approximation.
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// MapEntry is one (key, value) pair of a decoded Map column.
type MapEntry struct {
	Key Value
	Val Value
}

// Value is a tagged variant holding either null or exactly one of the
// payloads below, discriminated by Kind. Zero value is a null Value with
// no descriptor, which is distinguishable from a null Value carrying a
// Nullable descriptor via Descriptor() being non-nil.
type Value struct {
	kind Kind
	desc *registry.ColumnDescriptor

	i     *big.Int // KindInt, KindUint
	f     float64  // KindFloat
	dec   Decimal  // KindDecimal
	b     bool     // KindBool
	bytes []byte   // KindBytes, KindBitmap
	str   string   // KindString
	date  int64    // KindDate: days since 1970-01-01
	inst  time.Time
	uuid  [16]byte
	ip    net.IP
	list  []Value
	tuple []Value
	kvs   []MapEntry
}

// Null returns a null Value carrying the given descriptor (so accessors
// can still report what type the caller asked for).
func Null(desc *registry.ColumnDescriptor) Value {
	return Value{kind: KindNull, desc: desc}
}

// IsNull reports whether the Value holds the null tag.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Descriptor returns the originating Column Descriptor, or nil for a
// Value constructed without one (e.g. in tests).
func (v Value) Descriptor() *registry.ColumnDescriptor { return v.desc }

// Kind returns the Value's payload discriminator.
func (v Value) Kind() Kind { return v.kind }

func FromInt(desc *registry.ColumnDescriptor, i *big.Int) Value {
	return Value{kind: KindInt, desc: desc, i: i}
}

func FromUint(desc *registry.ColumnDescriptor, i *big.Int) Value {
	return Value{kind: KindUint, desc: desc, i: i}
}

func FromFloat(desc *registry.ColumnDescriptor, f float64) Value {
	return Value{kind: KindFloat, desc: desc, f: f}
}

func FromDecimal(desc *registry.ColumnDescriptor, unscaled *big.Int, scale int) Value {
	return Value{kind: KindDecimal, desc: desc, dec: Decimal{Unscaled: unscaled, Scale: scale}}
}

func FromBool(desc *registry.ColumnDescriptor, b bool) Value {
	return Value{kind: KindBool, desc: desc, b: b}
}

func FromBytes(desc *registry.ColumnDescriptor, b []byte) Value {
	return Value{kind: KindBytes, desc: desc, bytes: b}
}

func FromString(desc *registry.ColumnDescriptor, s string) Value {
	return Value{kind: KindString, desc: desc, str: s}
}

// FromDate constructs a date Value from a day count since 1970-01-01.
func FromDate(desc *registry.ColumnDescriptor, days int64) Value {
	return Value{kind: KindDate, desc: desc, date: days}
}

func FromInstant(desc *registry.ColumnDescriptor, t time.Time) Value {
	return Value{kind: KindInstant, desc: desc, inst: t}
}

func FromUUID(desc *registry.ColumnDescriptor, b [16]byte) Value {
	return Value{kind: KindUUID, desc: desc, uuid: b}
}

func FromIP(desc *registry.ColumnDescriptor, ip net.IP) Value {
	return Value{kind: KindIP, desc: desc, ip: ip}
}

func FromList(desc *registry.ColumnDescriptor, vs []Value) Value {
	return Value{kind: KindList, desc: desc, list: vs}
}

func FromTuple(desc *registry.ColumnDescriptor, vs []Value) Value {
	return Value{kind: KindTuple, desc: desc, tuple: vs}
}

func FromMap(desc *registry.ColumnDescriptor, kvs []MapEntry) Value {
	return Value{kind: KindMap, desc: desc, kvs: kvs}
}

// FromBitmap wraps an opaque serialized roaring-bitmap blob. The library
// carries it end-to-end without decoding by default; see BitmapCardinality
// for an optional, explicit decode.
func FromBitmap(desc *registry.ColumnDescriptor, raw []byte) Value {
	return Value{kind: KindBitmap, desc: desc, bytes: raw}
}
