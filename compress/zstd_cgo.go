//go:build gozstd

package compress

import (
	"github.com/valyala/gozstd"
)

// Compress compresses data as a single Zstandard frame via the cgo
// bindings, which trade build portability for throughput.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

// Decompress decompresses a Zstandard frame via the cgo bindings.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}
