// Package format holds the small set of wire-level enums shared between
// the compress and transport packages, kept separate so neither has to
// import the other just to name a compression algorithm.
package format

// CompressionType identifies the algorithm used to compress a request or
// response body, both for the HTTP Content-Encoding framing and for the
// server's native compression negotiation.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
