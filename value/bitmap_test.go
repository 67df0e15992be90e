package value

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapCardinality(t *testing.T) {
	bm := roaring.BitmapOf(1, 5, 100000)

	raw, err := bm.ToBytes()
	require.NoError(t, err)

	v := FromBitmap(nil, raw)

	n, err := v.BitmapCardinality()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestBitmapCardinalityRejectsGarbage(t *testing.T) {
	v := FromBitmap(nil, []byte{0x00, 0x01, 0x02})

	_, err := v.BitmapCardinality()
	require.Error(t, err)
}

func TestBitmapCardinalityOnWrongKind(t *testing.T) {
	v := FromString(nil, "not a bitmap")

	_, err := v.BitmapCardinality()
	require.Error(t, err)
}
