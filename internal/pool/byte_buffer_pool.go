// Package pool recycles the byte buffers that stage RowBinary insert
// bodies, so a steady stream of batched inserts does not allocate a
// fresh megabyte-sized slice per request.
package pool

import (
	"io"
	"sync"
)

const (
	// BodyBufferDefaultSize is the initial capacity of a pooled buffer,
	// sized for a typical insert batch.
	BodyBufferDefaultSize = 1024 * 1024 // 1MiB
	// BodyBufferMaxThreshold is the largest buffer the pool retains; a
	// one-off oversized batch should not pin its memory forever.
	BodyBufferMaxThreshold = 1024 * 1024 * 8 // 8MiB
)

// ByteBuffer is a growable byte slice that implements io.Writer, so a
// RowBinary encoder can write straight into it.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer returns an empty buffer with the given capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the buffer's contents. The slice shares storage with the
// buffer and is invalidated by the next Write or Reset.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer, retaining its allocation for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the number of bytes written.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the buffer's capacity.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Write appends data, growing the buffer as needed. It never fails; the
// error return satisfies io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)

	return len(data), nil
}

// WriteTo writes the buffered bytes to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)

	return int64(n), err
}

// ByteBufferPool wraps sync.Pool with a size threshold: buffers that
// grew past maxThreshold are dropped on Put instead of retained.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool returns a pool whose fresh buffers start at
// defaultSize capacity.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)

	return bb
}

// Put returns a ByteBuffer to the pool, discarding it if it grew past
// the retention threshold.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var bodyDefaultPool = NewByteBufferPool(BodyBufferDefaultSize, BodyBufferMaxThreshold)

// GetBodyBuffer retrieves a buffer from the shared insert-body pool.
func GetBodyBuffer() *ByteBuffer {
	return bodyDefaultPool.Get()
}

// PutBodyBuffer returns a buffer to the shared insert-body pool. The
// caller must not touch the buffer, or any slice obtained from Bytes,
// afterwards.
func PutBodyBuffer(bb *ByteBuffer) {
	bodyDefaultPool.Put(bb)
}
