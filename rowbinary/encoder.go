package rowbinary

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"math/big"
	"net"

	"github.com/chxio/chgo/endian"
	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/value"
)

// Encoder writes RowBinary-encoded fields to an underlying byte sink.
//
// Encoder wraps the sink in a *bufio.Writer so callers can make many small
// Encode calls without a syscall per call; Flush must be called once the
// caller is done writing.
type Encoder struct {
	w       *bufio.Writer
	engine  endian.Engine
	scratch [32]byte
}

// NewEncoder returns an Encoder writing to w. RowBinary integers, floats
// and lengths are always little-endian on the wire regardless of host
// byte order.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), engine: endian.Little()}
}

// Flush flushes any buffered data to the underlying sink.
func (e *Encoder) Flush() error { return e.w.Flush() }

func (e *Encoder) writeByte(b byte) error { return e.w.WriteByte(b) }

func (e *Encoder) writeRaw(b []byte) error {
	_, err := e.w.Write(b)

	return err
}

func (e *Encoder) writeUvarint(x uint64) error {
	return e.writeRaw(putUvarint(e.scratch[:0], x))
}

// EncodeRow encodes one row in plain RowBinary: every column in schema
// order, with no leading default-marker bytes.
func (e *Encoder) EncodeRow(cols []registry.ColumnDescriptor, vals []value.Value) error {
	if len(cols) != len(vals) {
		return &errs.EncodeError{Reason: "missing_required", Column: "<row>"}
	}

	for i, c := range cols {
		if c.DefaultKind.Skipped() {
			continue
		}

		if err := e.EncodeValue(c, vals[i]); err != nil {
			return err
		}
	}

	return nil
}

// EncodeRowWithDefaults encodes one row in the RowBinaryWithDefaults
// variant: MATERIALIZED/ALIAS/EPHEMERAL columns are skipped entirely (no
// byte emitted); every other column gets a leading marker byte (1 = "use
// database default, no value follows", 0 = "value follows").
//
// set[i] reports whether the caller supplied a value for column i. Unset
// DEFAULT columns use the marker; an unset non-nullable non-default column
// fails with EncodeError{missing_required}.
func (e *Encoder) EncodeRowWithDefaults(cols []registry.ColumnDescriptor, vals []value.Value, set []bool) error {
	if len(cols) != len(vals) || len(cols) != len(set) {
		return &errs.EncodeError{Reason: "missing_required", Column: "<row>"}
	}

	for i, c := range cols {
		if c.DefaultKind.Skipped() {
			continue
		}

		if !set[i] {
			switch {
			case c.DefaultKind == registry.DefaultValue:
				if err := e.writeByte(1); err != nil {
					return err
				}

				continue
			case c.Nullable:
				if err := e.writeByte(0); err != nil {
					return err
				}

				if err := e.EncodeValue(c, value.Null(&c)); err != nil {
					return err
				}

				continue
			default:
				return &errs.EncodeError{Reason: "missing_required", Column: c.Name}
			}
		}

		if err := e.writeByte(0); err != nil {
			return err
		}

		if err := e.EncodeValue(c, vals[i]); err != nil {
			return err
		}
	}

	return nil
}

// EncodeValue encodes a single field according to its Column Descriptor.
func (e *Encoder) EncodeValue(desc registry.ColumnDescriptor, v value.Value) error {
	switch desc.Category {
	case registry.CategoryNullable:
		return e.encodeNullable(desc, v)
	case registry.CategoryLowCardinality:
		return e.EncodeValue(desc.Inner(), v)
	default:
		if v.IsNull() {
			return &errs.EncodeError{Reason: "unexpected_null", Column: desc.Name}
		}

		return e.encodeNonNull(desc, v)
	}
}

func (e *Encoder) encodeNullable(desc registry.ColumnDescriptor, v value.Value) error {
	if v.IsNull() {
		return e.writeByte(1)
	}

	if err := e.writeByte(0); err != nil {
		return err
	}

	return e.encodeNonNull(desc.Inner(), v)
}

func (e *Encoder) encodeNonNull(desc registry.ColumnDescriptor, v value.Value) error { //nolint:cyclop
	switch desc.Category {
	case registry.CategoryInteger:
		return e.encodeInteger(desc, v)
	case registry.CategoryFloat:
		return e.encodeFloat(desc, v)
	case registry.CategoryDecimal:
		return e.encodeDecimal(desc, v)
	case registry.CategoryBool:
		b, err := v.AsBool()
		if err != nil {
			return err
		}

		if b {
			return e.writeByte(1)
		}

		return e.writeByte(0)
	case registry.CategoryString:
		s, err := v.AsString()
		if err != nil {
			return err
		}

		if err := e.writeUvarint(uint64(len(s))); err != nil {
			return err
		}

		return e.writeRaw([]byte(s))
	case registry.CategoryFixedString:
		return e.encodeFixedString(desc, v)
	case registry.CategoryDate:
		return e.encodeDate(desc, v)
	case registry.CategoryDateTime:
		return e.encodeDateTime(desc, v)
	case registry.CategoryUUID:
		u, err := v.AsUUID()
		if err != nil {
			return err
		}

		return e.writeUUID(u)
	case registry.CategoryIPv4:
		ip, err := v.AsInet()
		if err != nil {
			return err
		}

		return e.writeIPv4(ip)
	case registry.CategoryIPv6:
		ip, err := v.AsInet()
		if err != nil {
			return err
		}

		return e.writeIPv6(ip)
	case registry.CategoryEnum:
		return e.encodeEnum(desc, v)
	case registry.CategoryArray:
		return e.encodeArray(desc, v)
	case registry.CategoryTuple:
		return e.encodeTuple(desc, v)
	case registry.CategoryMap:
		return e.encodeMap(desc, v)
	case registry.CategoryAggregateBitmap:
		b, err := v.AsBytes()
		if err != nil {
			return err
		}

		if err := e.writeUvarint(uint64(len(b))); err != nil {
			return err
		}

		return e.writeRaw(b)
	default:
		return &errs.EncodeError{Reason: "unsupported_type", Column: desc.Name}
	}
}

func (e *Encoder) encodeInteger(desc registry.ColumnDescriptor, v value.Value) error {
	big, err := v.AsBigInt()
	if err != nil {
		return err
	}

	return e.writeRaw(encodeTwosComplement(big, desc.WidthBits))
}

func (e *Encoder) encodeFloat(desc registry.ColumnDescriptor, v value.Value) error {
	f, err := v.AsF64()
	if err != nil {
		return err
	}

	if desc.WidthBits == 32 {
		e.engine.PutUint32(e.scratch[:4], math.Float32bits(float32(f)))

		return e.writeRaw(e.scratch[:4])
	}

	e.engine.PutUint64(e.scratch[:8], math.Float64bits(f))

	return e.writeRaw(e.scratch[:8])
}

func (e *Encoder) encodeDecimal(desc registry.ColumnDescriptor, v value.Value) error {
	d, err := v.AsDecimal()
	if err != nil {
		return err
	}

	if d.Scale != desc.Scale {
		// Rescale to the column's declared scale by multiplying/dividing
		// the unscaled value by the appropriate power of ten.
		d = rescale(d, desc.Scale)
	}

	return e.writeRaw(encodeTwosComplement(d.Unscaled, desc.WidthBits))
}

// rescale converts d to an equivalent Decimal at targetScale, widening
// (multiplying by a power of ten) or narrowing (integer-dividing, which
// truncates any excess fractional digits) as needed.
func rescale(d value.Decimal, targetScale int) value.Decimal {
	if d.Scale == targetScale {
		return d
	}

	if targetScale > d.Scale {
		factor := pow10(targetScale - d.Scale)

		return value.Decimal{Unscaled: new(big.Int).Mul(d.Unscaled, factor), Scale: targetScale}
	}

	factor := pow10(d.Scale - targetScale)

	return value.Decimal{Unscaled: new(big.Int).Quo(d.Unscaled, factor), Scale: targetScale}
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func (e *Encoder) encodeFixedString(desc registry.ColumnDescriptor, v value.Value) error {
	b, err := v.AsBytes()
	if err != nil {
		return err
	}

	if len(b) > desc.FixedLength {
		return &errs.EncodeError{Reason: "fixed_string_overflow", Column: desc.Name}
	}

	buf := make([]byte, desc.FixedLength)
	copy(buf, b)

	return e.writeRaw(buf)
}

func (e *Encoder) encodeEnum(desc registry.ColumnDescriptor, v value.Value) error {
	n, err := v.AsI64()
	if err != nil {
		return err
	}

	found := false

	for _, m := range desc.EnumMembers {
		if int64(m.Value) == n {
			found = true

			break
		}
	}

	if !found {
		return &errs.EncodeError{Reason: "enum_value_out_of_range", Column: desc.Name}
	}

	if desc.WidthBits == 8 {
		return e.writeByte(byte(int8(n)))
	}

	e.engine.PutUint16(e.scratch[:2], uint16(int16(n)))

	return e.writeRaw(e.scratch[:2])
}

func (e *Encoder) encodeArray(desc registry.ColumnDescriptor, v value.Value) error {
	list, err := v.AsList()
	if err != nil {
		return err
	}

	if err := e.writeUvarint(uint64(len(list))); err != nil {
		return err
	}

	inner := desc.Inner()
	for _, elem := range list {
		if err := e.EncodeValue(inner, elem); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) encodeTuple(desc registry.ColumnDescriptor, v value.Value) error {
	tup, err := v.AsTuple()
	if err != nil {
		return err
	}

	if len(tup) != len(desc.Children) {
		return &errs.EncodeError{Reason: "missing_required", Column: desc.Name}
	}

	for i, child := range desc.Children {
		if err := e.EncodeValue(child, tup[i]); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) encodeMap(desc registry.ColumnDescriptor, v value.Value) error {
	entries, err := v.AsMap()
	if err != nil {
		return err
	}

	if err := e.writeUvarint(uint64(len(entries))); err != nil {
		return err
	}

	keyDesc, valDesc := desc.Children[0], desc.Children[1]
	for _, entry := range entries {
		if err := e.EncodeValue(keyDesc, entry.Key); err != nil {
			return err
		}

		if err := e.EncodeValue(valDesc, entry.Val); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) writeUUID(u [16]byte) error {
	// Split the RFC4122 big-endian 16 bytes into high/low 8-byte halves,
	// each interpreted big-endian, then written little-endian in turn.
	hi := binary.BigEndian.Uint64(u[0:8])
	lo := binary.BigEndian.Uint64(u[8:16])

	e.engine.PutUint64(e.scratch[:8], hi)
	if err := e.writeRaw(e.scratch[:8]); err != nil {
		return err
	}

	e.engine.PutUint64(e.scratch[:8], lo)

	return e.writeRaw(e.scratch[:8])
}

func (e *Encoder) writeIPv4(ip net.IP) error {
	v4 := ip.To4()
	if v4 == nil {
		return &errs.EncodeError{Reason: "not_ipv4"}
	}

	return e.writeRaw(v4)
}

func (e *Encoder) writeIPv6(ip net.IP) error {
	v6 := ip.To16()
	if v6 == nil {
		return &errs.EncodeError{Reason: "not_ipv6"}
	}

	return e.writeRaw(v6)
}
