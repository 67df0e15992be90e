// Package rowbinary implements the RowBinary wire codec: a stream-oriented
// encoder and decoder pair layered on top of the type registry. The codec
// has no knowledge of HTTP; it is pure serialization over a byte sink or
// source.
package rowbinary

import (
	"bufio"
	"io"

	"github.com/chxio/chgo/errs"
)

// putUvarint appends the LEB128 unsigned varint encoding of x to dst and
// returns the extended slice. Varints carry string/array/map lengths and
// bitmap blob sizes; default markers and null flags are plain single bytes.
func putUvarint(dst []byte, x uint64) []byte {
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}

	return append(dst, byte(x))
}

// readUvarint reads a LEB128 unsigned varint from r.
func readUvarint(r io.ByteReader) (uint64, error) {
	var (
		x   uint64
		shf uint
	)

	for i := 0; i < 10; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, &errs.DecodeError{Reason: "truncated_stream", Detail: "varint: " + err.Error()}
		}

		if b < 0x80 {
			if i == 9 && b > 1 {
				return 0, &errs.DecodeError{Reason: "unexpected_tag", Detail: "varint overflows 64 bits"}
			}

			return x | uint64(b)<<shf, nil
		}

		x |= uint64(b&0x7f) << shf
		shf += 7
	}

	return 0, &errs.DecodeError{Reason: "unexpected_tag", Detail: "varint too long"}
}

// byteReader is the minimal interface the decoder needs: a combined
// io.Reader/io.ByteReader, satisfied by *bufio.Reader.
type byteReader interface {
	io.Reader
	io.ByteReader
}

var _ byteReader = (*bufio.Reader)(nil)
