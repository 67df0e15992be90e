package rowbinary

import (
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/value"
)

// Date is stored on the wire as an unsigned 16-bit day count since
// 1970-01-01; Date32 as a signed 32-bit day count, allowing dates before
// the epoch. DateTime is an unsigned 32-bit count of seconds since the
// epoch (always UTC on the wire, timezone is a display-only property);
// DateTime64(scale) is a signed 64-bit count of 10^-scale-second ticks.

func (e *Encoder) encodeDate(desc registry.ColumnDescriptor, v value.Value) error {
	days, err := v.AsDate()
	if err != nil {
		return err
	}

	if desc.WidthBits == 16 {
		e.engine.PutUint16(e.scratch[:2], uint16(days))

		return e.writeRaw(e.scratch[:2])
	}

	e.engine.PutUint32(e.scratch[:4], uint32(int32(days)))

	return e.writeRaw(e.scratch[:4])
}

func (e *Encoder) encodeDateTime(desc registry.ColumnDescriptor, v value.Value) error {
	t, err := v.AsInstant()
	if err != nil {
		return err
	}

	if desc.WidthBits == 32 {
		e.engine.PutUint32(e.scratch[:4], uint32(t.Unix()))

		return e.writeRaw(e.scratch[:4])
	}

	scale := desc.Scale

	factor := int64(1)
	for i := 0; i < scale; i++ {
		factor *= 10
	}

	ticks := t.Unix()*factor + (int64(t.Nanosecond())*factor)/1_000_000_000

	e.engine.PutUint64(e.scratch[:8], uint64(ticks))

	return e.writeRaw(e.scratch[:8])
}

// decodeDate reads a Date/Date32 field and returns its day count since
// 1970-01-01, sign-extending Date32's 32-bit width.
func (d *Decoder) decodeDate(desc registry.ColumnDescriptor) (int64, error) {
	if desc.WidthBits == 16 {
		n, err := d.readUint16()
		if err != nil {
			return 0, err
		}

		return int64(n), nil
	}

	n, err := d.readUint32()
	if err != nil {
		return 0, err
	}

	return int64(int32(n)), nil
}

// decodeDateTime reads a DateTime/DateTime64(scale) field and returns it
// as whole seconds since the Unix epoch plus the nanosecond remainder.
func (d *Decoder) decodeDateTime(desc registry.ColumnDescriptor) (int64, int64, error) {
	if desc.WidthBits == 32 {
		n, err := d.readUint32()
		if err != nil {
			return 0, 0, err
		}

		return int64(n), 0, nil
	}

	raw, err := d.readUint64()
	if err != nil {
		return 0, 0, err
	}

	ticks := int64(raw)

	scale := desc.Scale

	factor := int64(1)
	for i := 0; i < scale; i++ {
		factor *= 10
	}

	sec := ticks / factor
	rem := ticks % factor

	if rem < 0 {
		sec--
		rem += factor
	}

	nanos := rem * (1_000_000_000 / factor)

	return sec, nanos, nil
}
