package compress

// NoOpCompressor passes bodies through untouched. It backs the
// CompressionNone setting so the transport layer can hold a single Codec
// regardless of configuration.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor returns a pass-through codec.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress returns data as-is. The result shares the input's backing
// array; callers must not mutate the input while the result is live.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data as-is, with the same aliasing caveat as
// Compress.
func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
