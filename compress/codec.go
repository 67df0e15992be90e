// Package compress provides the native compression codecs used for
// request and response bodies: the server negotiates LZ4 or Zstandard
// framing independently of HTTP Content-Encoding, and the transport
// layer treats each codec as a black-box stream filter.
package compress

import (
	"fmt"

	"github.com/chxio/chgo/format"
)

// Compressor compresses a complete request or response body.
//
// Payloads are RowBinary-encoded row batches, from a few bytes up to
// many megabytes for bulk inserts, and are usually highly compressible.
type Compressor interface {
	// Compress returns a newly allocated compressed copy of data. The
	// input slice is not modified; internal buffers may be reused.
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor for a body compressed with the same
// algorithm. Implementations must be safe for concurrent use.
type Decompressor interface {
	// Decompress returns a newly allocated decompressed copy of data, or
	// an error if the input is corrupted or was compressed with a
	// different algorithm.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions for implementations that share state
// between them.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec returns the built-in Codec for the given compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
