package value

import (
	"fmt"
	"math/big"
	"net"
	"strconv"
	"time"

	"github.com/chxio/chgo/errs"
)

func (v Value) nullErr() error {
	return &errs.ValueError{Reason: "null", Detail: "value is null"}
}

func (v Value) mismatchErr(want string) error {
	return &errs.ValueError{Reason: "type_mismatch", Detail: fmt.Sprintf("value holds kind %d, not %s", v.kind, want)}
}

// AsI64 returns the value as a signed 64-bit integer. Widening from any
// smaller signed/unsigned integer succeeds losslessly; a value that does
// not fit in 64 bits fails with ValueError{overflow}.
func (v Value) AsI64() (int64, error) {
	if v.IsNull() {
		return 0, v.nullErr()
	}

	switch v.kind {
	case KindInt, KindUint:
		if !v.i.IsInt64() {
			return 0, &errs.ValueError{Reason: "overflow", Detail: "value does not fit in int64"}
		}

		return v.i.Int64(), nil
	case KindBool:
		if v.b {
			return 1, nil
		}

		return 0, nil
	case KindString:
		n, err := strconv.ParseInt(v.str, 10, 64)
		if err != nil {
			return 0, &errs.ValueError{Reason: "type_mismatch", Detail: err.Error()}
		}

		return n, nil
	default:
		return 0, v.mismatchErr("integer")
	}
}

// AsU64 returns the value as an unsigned 64-bit integer, with the same
// widening/narrowing rules as AsI64.
func (v Value) AsU64() (uint64, error) {
	if v.IsNull() {
		return 0, v.nullErr()
	}

	switch v.kind {
	case KindInt, KindUint:
		if v.i.Sign() < 0 || !v.i.IsUint64() {
			return 0, &errs.ValueError{Reason: "overflow", Detail: "value does not fit in uint64"}
		}

		return v.i.Uint64(), nil
	default:
		return 0, v.mismatchErr("unsigned integer")
	}
}

// AsBigInt returns the value as an arbitrary-precision integer, losslessly,
// for both signed and unsigned wide columns (up to 256 bits).
func (v Value) AsBigInt() (*big.Int, error) {
	if v.IsNull() {
		return nil, v.nullErr()
	}

	if v.kind != KindInt && v.kind != KindUint {
		return nil, v.mismatchErr("integer")
	}

	return new(big.Int).Set(v.i), nil
}

// AsF64 returns the value as a 64-bit float. Float32 sources widen
// losslessly; decimals convert via their canonical decimal representation.
func (v Value) AsF64() (float64, error) {
	if v.IsNull() {
		return 0, v.nullErr()
	}

	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt, KindUint:
		f := new(big.Float).SetInt(v.i)
		out, _ := f.Float64()

		return out, nil
	case KindDecimal:
		return v.dec.Float64(), nil
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, &errs.ValueError{Reason: "type_mismatch", Detail: err.Error()}
		}

		return f, nil
	default:
		return 0, v.mismatchErr("float")
	}
}

// Float64 renders the decimal as a float64 using its canonical decimal
// representation (no locale). Precision may be lost; prefer Unscaled/Scale
// for exact arithmetic.
func (d Decimal) Float64() float64 {
	num := new(big.Float).SetInt(d.Unscaled)
	if d.Scale == 0 {
		f, _ := num.Float64()

		return f
	}

	denom := new(big.Float).SetInt(pow10(d.Scale))
	out := new(big.Float).Quo(num, denom)
	f, _ := out.Float64()

	return f
}

// String renders the decimal using its canonical (locale-free) decimal
// text representation, e.g. Decimal{Unscaled: 12345, Scale: 3} -> "12.345".
func (d Decimal) String() string {
	neg := d.Unscaled.Sign() < 0

	abs := new(big.Int).Abs(d.Unscaled)
	s := abs.String()

	if d.Scale <= 0 {
		if neg {
			return "-" + s
		}

		return s
	}

	for len(s) <= d.Scale {
		s = "0" + s
	}

	intPart := s[:len(s)-d.Scale]
	fracPart := s[len(s)-d.Scale:]
	out := intPart + "." + fracPart

	if neg {
		out = "-" + out
	}

	return out
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// AsDecimal returns the value as a Decimal. Integers widen with scale 0.
func (v Value) AsDecimal() (Decimal, error) {
	if v.IsNull() {
		return Decimal{}, v.nullErr()
	}

	switch v.kind {
	case KindDecimal:
		return v.dec, nil
	case KindInt, KindUint:
		return Decimal{Unscaled: new(big.Int).Set(v.i), Scale: 0}, nil
	default:
		return Decimal{}, v.mismatchErr("decimal")
	}
}

// AsBool returns the value as a boolean.
func (v Value) AsBool() (bool, error) {
	if v.IsNull() {
		return false, v.nullErr()
	}

	if v.kind != KindBool {
		return false, v.mismatchErr("bool")
	}

	return v.b, nil
}

// AsString returns the value's canonical string representation: a direct
// copy for string/bytes payloads, and a locale-free decimal rendering for
// numeric payloads.
func (v Value) AsString() (string, error) {
	if v.IsNull() {
		return "", v.nullErr()
	}

	switch v.kind {
	case KindString:
		return v.str, nil
	case KindBytes:
		return string(v.bytes), nil
	case KindInt, KindUint:
		return v.i.String(), nil
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case KindDecimal:
		return v.dec.String(), nil
	case KindBool:
		if v.b {
			return "true", nil
		}

		return "false", nil
	case KindUUID:
		return formatUUID(v.uuid), nil
	case KindIP:
		return v.ip.String(), nil
	default:
		return "", v.mismatchErr("string")
	}
}

// AsBytes returns the value's raw byte payload (string or fixed-string
// columns, or the opaque aggregate-bitmap blob).
func (v Value) AsBytes() ([]byte, error) {
	if v.IsNull() {
		return nil, v.nullErr()
	}

	switch v.kind {
	case KindBytes, KindBitmap:
		return v.bytes, nil
	case KindString:
		return []byte(v.str), nil
	default:
		return nil, v.mismatchErr("bytes")
	}
}

// AsDate returns the value as a day count since 1970-01-01.
func (v Value) AsDate() (int64, error) {
	if v.IsNull() {
		return 0, v.nullErr()
	}

	switch v.kind {
	case KindDate:
		return v.date, nil
	case KindInstant:
		return v.inst.Unix() / 86400, nil
	default:
		return 0, v.mismatchErr("date")
	}
}

// AsInstant returns the value as a time.Time with nanosecond resolution.
// Zone information is attached only when the originating descriptor
// carried a timezone.
func (v Value) AsInstant() (time.Time, error) {
	if v.IsNull() {
		return time.Time{}, v.nullErr()
	}

	switch v.kind {
	case KindInstant:
		return v.inst, nil
	case KindDate:
		return time.Unix(v.date*86400, 0).UTC(), nil
	default:
		return time.Time{}, v.mismatchErr("instant")
	}
}

// AsUUID returns the value as a 16-byte UUID.
func (v Value) AsUUID() ([16]byte, error) {
	if v.IsNull() {
		return [16]byte{}, v.nullErr()
	}

	if v.kind != KindUUID {
		return [16]byte{}, v.mismatchErr("uuid")
	}

	return v.uuid, nil
}

func formatUUID(b [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// AsInet returns the value as a net.IP (4 or 16 bytes).
func (v Value) AsInet() (net.IP, error) {
	if v.IsNull() {
		return nil, v.nullErr()
	}

	if v.kind != KindIP {
		return nil, v.mismatchErr("inet")
	}

	return v.ip, nil
}

// AsList returns the value as an ordered list of child Values.
func (v Value) AsList() ([]Value, error) {
	if v.IsNull() {
		return nil, v.nullErr()
	}

	if v.kind != KindList {
		return nil, v.mismatchErr("list")
	}

	return v.list, nil
}

// AsTuple returns the value as a fixed-arity ordered tuple of child Values.
func (v Value) AsTuple() ([]Value, error) {
	if v.IsNull() {
		return nil, v.nullErr()
	}

	if v.kind != KindTuple {
		return nil, v.mismatchErr("tuple")
	}

	return v.tuple, nil
}

// AsMap returns the value as an ordered list of (Value,Value) pairs.
func (v Value) AsMap() ([]MapEntry, error) {
	if v.IsNull() {
		return nil, v.nullErr()
	}

	if v.kind != KindMap {
		return nil, v.mismatchErr("map")
	}

	return v.kvs, nil
}

// Clone deep-copies a Value so it remains valid after the decoder that
// produced it advances past its record (see the decoder's value-reuse
// mode). Composite payloads are cloned recursively.
func (v Value) Clone() Value {
	out := v
	if v.i != nil {
		out.i = new(big.Int).Set(v.i)
	}

	if v.dec.Unscaled != nil {
		out.dec = Decimal{Unscaled: new(big.Int).Set(v.dec.Unscaled), Scale: v.dec.Scale}
	}

	if v.bytes != nil {
		out.bytes = append([]byte(nil), v.bytes...)
	}

	if v.ip != nil {
		out.ip = append(net.IP(nil), v.ip...)
	}

	if v.list != nil {
		out.list = make([]Value, len(v.list))
		for i, e := range v.list {
			out.list[i] = e.Clone()
		}
	}

	if v.tuple != nil {
		out.tuple = make([]Value, len(v.tuple))
		for i, e := range v.tuple {
			out.tuple[i] = e.Clone()
		}
	}

	if v.kvs != nil {
		out.kvs = make([]MapEntry, len(v.kvs))
		for i, e := range v.kvs {
			out.kvs[i] = MapEntry{Key: e.Key.Clone(), Val: e.Val.Clone()}
		}
	}

	return out
}
