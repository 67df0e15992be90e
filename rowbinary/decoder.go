package rowbinary

import (
	"bufio"
	"io"
	"math"
	"math/big"
	"net"
	"time"

	"github.com/chxio/chgo/endian"
	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/value"
)

// Decoder reads RowBinary-encoded fields from an underlying byte source.
//
// A Decoder can run in value-reuse mode: DecodeRowInto overwrites the
// fields of the Values in a caller-supplied slice instead of allocating a
// fresh one per row. Callers that need a Value to outlive the next
// DecodeRowInto call must call Value.Clone first.
type Decoder struct {
	r       *bufio.Reader
	engine  endian.Engine
	scratch [32]byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), engine: endian.Little()}
}

func (d *Decoder) readFull(n int) ([]byte, error) {
	buf := d.scratch[:n]

	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
	}

	return buf, nil
}

func (d *Decoder) readUint16() (uint16, error) {
	b, err := d.readFull(2)
	if err != nil {
		return 0, err
	}

	return d.engine.Uint16(b), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readFull(4)
	if err != nil {
		return 0, err
	}

	return d.engine.Uint32(b), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	b, err := d.readFull(8)
	if err != nil {
		return 0, err
	}

	return d.engine.Uint64(b), nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
	}

	return buf, nil
}

func (d *Decoder) readUvarint() (uint64, error) {
	return readUvarint(d.r)
}

// AtEOF reports whether the underlying source is exhausted, without
// consuming any bytes. Callers decoding an unknown number of rows (e.g. a
// streamed query result) check this between DecodeRow calls instead of
// relying on DecodeRow itself to signal end-of-stream, since a truncated
// row and a clean end-of-stream both surface as read failures at
// different depths of a single DecodeRow call.
func (d *Decoder) AtEOF() (bool, error) {
	_, err := d.r.Peek(1)
	if err == io.EOF { //nolint:errorlint
		return true, nil
	}

	if err != nil {
		return false, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
	}

	return false, nil
}

// DecodeRow decodes one row in plain RowBinary: every column in schema
// order, with no leading default-marker bytes.
func (d *Decoder) DecodeRow(cols []registry.ColumnDescriptor) ([]value.Value, error) {
	out := make([]value.Value, 0, len(cols))

	for _, c := range cols {
		if c.DefaultKind.Skipped() {
			continue
		}

		v, err := d.DecodeValue(c)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// DecodeRowInto decodes one row into dst, which must already have one
// slot per non-skipped column; it is the value-reuse entry point used by
// callers iterating a large result set without allocating a Value per row.
func (d *Decoder) DecodeRowInto(cols []registry.ColumnDescriptor, dst []value.Value) error {
	i := 0

	for _, c := range cols {
		if c.DefaultKind.Skipped() {
			continue
		}

		if i >= len(dst) {
			return &errs.DecodeError{Reason: "truncated_stream", Detail: "dst shorter than row"}
		}

		v, err := d.DecodeValue(c)
		if err != nil {
			return err
		}

		dst[i] = v
		i++
	}

	return nil
}

// DecodeRowWithDefaults decodes one row in the RowBinaryWithDefaults
// variant: a leading marker byte per non-skipped column (1 = server used
// its default, no value follows; 0 = a value follows).
func (d *Decoder) DecodeRowWithDefaults(cols []registry.ColumnDescriptor) ([]value.Value, []bool, error) {
	vals := make([]value.Value, 0, len(cols))
	set := make([]bool, 0, len(cols))

	for _, c := range cols {
		if c.DefaultKind.Skipped() {
			continue
		}

		marker, err := d.r.ReadByte()
		if err != nil {
			return nil, nil, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
		}

		if marker == 1 {
			vals = append(vals, value.Null(&c))
			set = append(set, false)

			continue
		}

		v, err := d.DecodeValue(c)
		if err != nil {
			return nil, nil, err
		}

		vals = append(vals, v)
		set = append(set, true)
	}

	return vals, set, nil
}

// DecodeValue decodes a single field according to its Column Descriptor.
func (d *Decoder) DecodeValue(desc registry.ColumnDescriptor) (value.Value, error) {
	switch desc.Category {
	case registry.CategoryNullable:
		return d.decodeNullable(desc)
	case registry.CategoryLowCardinality:
		return d.DecodeValue(desc.Inner())
	default:
		return d.decodeNonNull(desc)
	}
}

func (d *Decoder) decodeNullable(desc registry.ColumnDescriptor) (value.Value, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return value.Value{}, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
	}

	if b != 0 {
		return value.Null(&desc), nil
	}

	return d.decodeNonNull(desc.Inner())
}

func (d *Decoder) decodeNonNull(desc registry.ColumnDescriptor) (value.Value, error) { //nolint:cyclop
	switch desc.Category {
	case registry.CategoryInteger:
		return d.decodeInteger(desc)
	case registry.CategoryFloat:
		return d.decodeFloat(desc)
	case registry.CategoryDecimal:
		return d.decodeDecimal(desc)
	case registry.CategoryBool:
		b, err := d.r.ReadByte()
		if err != nil {
			return value.Value{}, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
		}

		return value.FromBool(&desc, b != 0), nil
	case registry.CategoryString:
		n, err := d.readUvarint()
		if err != nil {
			return value.Value{}, err
		}

		b, err := d.readBytes(int(n))
		if err != nil {
			return value.Value{}, err
		}

		return value.FromString(&desc, string(b)), nil
	case registry.CategoryFixedString:
		b, err := d.readBytes(desc.FixedLength)
		if err != nil {
			return value.Value{}, err
		}

		return value.FromBytes(&desc, b), nil
	case registry.CategoryDate:
		days, err := d.decodeDate(desc)
		if err != nil {
			return value.Value{}, err
		}

		return value.FromDate(&desc, days), nil
	case registry.CategoryDateTime:
		sec, nanos, err := d.decodeDateTime(desc)
		if err != nil {
			return value.Value{}, err
		}

		loc := time.UTC
		if desc.Timezone != "" {
			if l, lerr := time.LoadLocation(desc.Timezone); lerr == nil {
				loc = l
			}
		}

		return value.FromInstant(&desc, time.Unix(sec, nanos).In(loc)), nil
	case registry.CategoryUUID:
		u, err := d.readUUID()
		if err != nil {
			return value.Value{}, err
		}

		return value.FromUUID(&desc, u), nil
	case registry.CategoryIPv4:
		b, err := d.readBytes(4)
		if err != nil {
			return value.Value{}, err
		}

		return value.FromIP(&desc, net.IP(b)), nil
	case registry.CategoryIPv6:
		b, err := d.readBytes(16)
		if err != nil {
			return value.Value{}, err
		}

		return value.FromIP(&desc, net.IP(b)), nil
	case registry.CategoryEnum:
		return d.decodeEnum(desc)
	case registry.CategoryArray:
		return d.decodeArray(desc)
	case registry.CategoryTuple:
		return d.decodeTuple(desc)
	case registry.CategoryMap:
		return d.decodeMap(desc)
	case registry.CategoryAggregateBitmap:
		n, err := d.readUvarint()
		if err != nil {
			return value.Value{}, err
		}

		b, err := d.readBytes(int(n))
		if err != nil {
			return value.Value{}, err
		}

		return value.FromBitmap(&desc, b), nil
	default:
		return value.Value{}, &errs.DecodeError{Reason: "unexpected_tag", Detail: desc.Category.String()}
	}
}

func (d *Decoder) decodeInteger(desc registry.ColumnDescriptor) (value.Value, error) {
	b, err := d.readBytes(desc.WidthBits / 8)
	if err != nil {
		return value.Value{}, err
	}

	n := decodeTwosComplement(b, desc.Signed)

	if desc.Signed {
		return value.FromInt(&desc, n), nil
	}

	return value.FromUint(&desc, n), nil
}

func (d *Decoder) decodeFloat(desc registry.ColumnDescriptor) (value.Value, error) {
	if desc.WidthBits == 32 {
		n, err := d.readUint32()
		if err != nil {
			return value.Value{}, err
		}

		return value.FromFloat(&desc, float64(math.Float32frombits(n))), nil
	}

	n, err := d.readUint64()
	if err != nil {
		return value.Value{}, err
	}

	return value.FromFloat(&desc, math.Float64frombits(n)), nil
}

func (d *Decoder) decodeDecimal(desc registry.ColumnDescriptor) (value.Value, error) {
	b, err := d.readBytes(desc.WidthBits / 8)
	if err != nil {
		return value.Value{}, err
	}

	n := decodeTwosComplement(b, true)

	return value.FromDecimal(&desc, n, desc.Scale), nil
}

func (d *Decoder) decodeEnum(desc registry.ColumnDescriptor) (value.Value, error) {
	var n int64

	if desc.WidthBits == 8 {
		b, err := d.r.ReadByte()
		if err != nil {
			return value.Value{}, &errs.DecodeError{Reason: "truncated_stream", Detail: err.Error()}
		}

		n = int64(int8(b))
	} else {
		u, err := d.readUint16()
		if err != nil {
			return value.Value{}, err
		}

		n = int64(int16(u))
	}

	return value.FromInt(&desc, big.NewInt(n)), nil
}

func (d *Decoder) decodeArray(desc registry.ColumnDescriptor) (value.Value, error) {
	n, err := d.readUvarint()
	if err != nil {
		return value.Value{}, err
	}

	inner := desc.Inner()
	out := make([]value.Value, n)

	for i := range out {
		v, err := d.DecodeValue(inner)
		if err != nil {
			return value.Value{}, err
		}

		out[i] = v
	}

	return value.FromList(&desc, out), nil
}

func (d *Decoder) decodeTuple(desc registry.ColumnDescriptor) (value.Value, error) {
	out := make([]value.Value, len(desc.Children))

	for i, child := range desc.Children {
		v, err := d.DecodeValue(child)
		if err != nil {
			return value.Value{}, err
		}

		out[i] = v
	}

	return value.FromTuple(&desc, out), nil
}

func (d *Decoder) decodeMap(desc registry.ColumnDescriptor) (value.Value, error) {
	n, err := d.readUvarint()
	if err != nil {
		return value.Value{}, err
	}

	keyDesc, valDesc := desc.Children[0], desc.Children[1]
	entries := make([]value.MapEntry, n)

	for i := range entries {
		k, err := d.DecodeValue(keyDesc)
		if err != nil {
			return value.Value{}, err
		}

		val, err := d.DecodeValue(valDesc)
		if err != nil {
			return value.Value{}, err
		}

		entries[i] = value.MapEntry{Key: k, Val: val}
	}

	return value.FromMap(&desc, entries), nil
}

func (d *Decoder) readUUID() ([16]byte, error) {
	// Inverse of Encoder.writeUUID: two little-endian 8-byte halves, each
	// reinterpreted big-endian and concatenated back into RFC4122 order.
	var out [16]byte

	hi, err := d.readUint64()
	if err != nil {
		return out, err
	}

	lo, err := d.readUint64()
	if err != nil {
		return out, err
	}

	for i := 0; i < 8; i++ {
		out[i] = byte(hi >> (8 * (7 - i)))
		out[8+i] = byte(lo >> (8 * (7 - i)))
	}

	return out, nil
}
