package compress

// ZstdCompressor implements Zstandard framing for bodies where ratio
// matters more than speed: large bulk-insert batches and wide query
// result sets.
//
// Two interchangeable backends provide the methods: the default pure-Go
// implementation (zstd_pure.go) and a cgo-accelerated one selected with
// the "gozstd" build tag (zstd_cgo.go).
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor returns a Zstandard codec at the default level.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
