package value

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/chxio/chgo/errs"
)

// BitmapCardinality decodes the opaque aggregate-bitmap payload and
// returns its cardinality (number of set bits).
//
// The library does not need to understand roaring-bitmap internals to
// carry a groupBitmap column end-to-end — the payload is stored and
// re-encoded byte-for-byte as produced by the server (see the
// aggregate-bitmap case of the rowbinary Decoder and Encoder) — but this accessor is an explicit, opt-in
// convenience for callers who do want to inspect it.
func (v Value) BitmapCardinality() (uint64, error) {
	if v.IsNull() {
		return 0, v.nullErr()
	}

	if v.kind != KindBitmap {
		return 0, v.mismatchErr("bitmap")
	}

	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(v.bytes)); err != nil {
		return 0, &errs.ValueError{Reason: "type_mismatch", Detail: "malformed roaring bitmap: " + err.Error()}
	}

	return bm.GetCardinality(), nil
}
