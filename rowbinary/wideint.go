package rowbinary

import (
	"math/big"

	"github.com/holiman/uint256"
)

// encodeTwosComplement returns the little-endian two's-complement encoding
// of v at the given bit width. v may be negative; it is first reduced
// modulo 2^widthBits to obtain the unsigned wire representation.
//
// 128- and 256-bit widths route through holiman/uint256.Int, which
// guarantees the exact two's-complement bit layout at fixed width that
// math/big.Int (an arbitrary-precision type with no fixed width of its
// own) cannot provide directly. Narrower widths use a direct byte-at-a-time
// reduction since there is no allocation benefit to a wide-int type there.
func encodeTwosComplement(v *big.Int, widthBits int) []byte {
	width := widthBits / 8
	out := make([]byte, width)

	if widthBits == 128 || widthBits == 256 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(widthBits))
		uv := new(big.Int).Mod(v, mod)

		var u uint256.Int

		u.SetFromBig(uv)
		be := u.Bytes32() // big-endian, 32 bytes, zero-padded on the left

		for i := 0; i < width; i++ {
			out[i] = be[32-1-i]
		}

		return out
	}

	mod := new(big.Int).Lsh(big.NewInt(1), uint(widthBits))
	uv := new(big.Int).Mod(v, mod)
	be := uv.Bytes() // big-endian, no leading zero padding

	for i, n := 0, len(be); i < n; i++ {
		out[i] = be[n-1-i]
	}

	return out
}

// decodeTwosComplement interprets width little-endian bytes as a two's
// complement integer, signed or unsigned per the caller's request.
func decodeTwosComplement(data []byte, signed bool) *big.Int {
	width := len(data)

	if width == 16 || width == 32 {
		var be [32]byte
		for i := 0; i < width; i++ {
			be[32-1-i] = data[i]
		}

		var u uint256.Int
		u.SetBytes(be[:])

		uv := u.ToBig()
		if width == 16 {
			// Mask to the low 128 bits; SetBytes over a 32-byte buffer with
			// leading zero padding already yields the correct magnitude.
			mod := new(big.Int).Lsh(big.NewInt(1), 128)
			uv = new(big.Int).Mod(uv, mod)
		}

		if signed {
			return toSigned(uv, width*8)
		}

		return uv
	}

	be := make([]byte, width)
	for i := 0; i < width; i++ {
		be[width-1-i] = data[i]
	}

	uv := new(big.Int).SetBytes(be)

	if signed {
		return toSigned(uv, width*8)
	}

	return uv
}

// toSigned reinterprets an unsigned magnitude as a two's-complement signed
// value at the given bit width: if the top bit is set, subtract 2^width.
func toSigned(uv *big.Int, widthBits int) *big.Int {
	topBit := new(big.Int).Lsh(big.NewInt(1), uint(widthBits-1))
	if uv.Cmp(topBit) < 0 {
		return uv
	}

	mod := new(big.Int).Lsh(big.NewInt(1), uint(widthBits))

	return new(big.Int).Sub(uv, mod)
}
