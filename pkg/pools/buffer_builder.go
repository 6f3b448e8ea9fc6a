package pools

import (
	"math"
)

// BufferBuilder builds byte slices with pooling. All multi-byte writes are
// little-endian, matching the UArr and WAL wire formats.
type BufferBuilder struct {
	buf  []byte
	pool *BytePool
}

// NewBufferBuilder creates a new buffer builder with the given initial capacity.
func NewBufferBuilder(initialCap int) *BufferBuilder {
	return &BufferBuilder{
		buf:  defaultBytePool.Get(initialCap),
		pool: defaultBytePool,
	}
}

// Write appends bytes to the buffer.
func (b *BufferBuilder) Write(p []byte) {
	b.buf = append(b.buf, p...)
}

// WriteByte appends a single byte.
func (b *BufferBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteString appends a string.
func (b *BufferBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteUint16 appends a uint16 in little-endian order.
func (b *BufferBuilder) WriteUint16(v uint16) {
	b.buf = append(b.buf, byte(v), byte(v>>8))
}

// WriteUint32 appends a uint32 in little-endian order.
func (b *BufferBuilder) WriteUint32(v uint32) {
	b.buf = append(b.buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
	)
}

// WriteUint64 appends a uint64 in little-endian order.
func (b *BufferBuilder) WriteUint64(v uint64) {
	b.buf = append(b.buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// WriteInt64 appends an int64 in little-endian order.
func (b *BufferBuilder) WriteInt64(v int64) {
	b.WriteUint64(uint64(v))
}

// WriteFloat64 appends a float64 as IEEE 754 bits in little-endian order.
func (b *BufferBuilder) WriteFloat64(v float64) {
	b.WriteUint64(math.Float64bits(v))
}

// SetUint32 overwrites 4 bytes at the given offset in little-endian order.
// The offset must already be within the written region.
func (b *BufferBuilder) SetUint32(offset int, v uint32) {
	b.buf[offset] = byte(v)
	b.buf[offset+1] = byte(v >> 8)
	b.buf[offset+2] = byte(v >> 16)
	b.buf[offset+3] = byte(v >> 24)
}

// Bytes returns the built buffer. The builder may keep using the buffer,
// so callers that retain the result must copy it or stop writing.
func (b *BufferBuilder) Bytes() []byte {
	return b.buf
}

// Len returns the current length of the buffer.
func (b *BufferBuilder) Len() int {
	return len(b.buf)
}

// Reset resets the buffer for reuse.
func (b *BufferBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Release returns the underlying buffer to the pool. The builder must not
// be used after Release.
func (b *BufferBuilder) Release() {
	if b.pool != nil {
		b.pool.Put(b.buf)
	}
	b.buf = nil
}
