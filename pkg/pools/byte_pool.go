package pools

import (
	"sync"
)

// Buffer size classes for efficient reuse
const (
	TinySize   = 32    // Headers, node ids
	SmallSize  = 128   // Typical scalar payloads
	MediumSize = 512   // Small encoded values
	LargeSize  = 2048  // Typical node snapshots
	HugeSize   = 8192  // Checkpoint payloads
	MaxPool    = 65536 // Don't pool buffers larger than this
)

// BytePool provides size-class based pooling for byte slices.
type BytePool struct {
	tiny   sync.Pool
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
	huge   sync.Pool
}

// NewBytePool creates a new byte pool.
func NewBytePool() *BytePool {
	newPool := func(capacity int) sync.Pool {
		return sync.Pool{
			New: func() any {
				b := make([]byte, 0, capacity)
				return &b
			},
		}
	}
	return &BytePool{
		tiny:   newPool(TinySize),
		small:  newPool(SmallSize),
		medium: newPool(MediumSize),
		large:  newPool(LargeSize),
		huge:   newPool(HugeSize),
	}
}

// Get returns a byte slice with length 0 and at least the requested capacity.
func (p *BytePool) Get(size int) []byte {
	var pool *sync.Pool
	switch {
	case size <= TinySize:
		pool = &p.tiny
	case size <= SmallSize:
		pool = &p.small
	case size <= MediumSize:
		pool = &p.medium
	case size <= LargeSize:
		pool = &p.large
	case size <= HugeSize:
		pool = &p.huge
	default:
		// Too large to pool, allocate directly
		return make([]byte, 0, size)
	}

	bp, ok := pool.Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// Put returns a byte slice to the pool for reuse.
// Slices larger than MaxPool are not pooled.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c > MaxPool {
		return
	}

	b = b[:0]

	var pool *sync.Pool
	switch {
	case c <= TinySize:
		pool = &p.tiny
	case c <= SmallSize:
		pool = &p.small
	case c <= MediumSize:
		pool = &p.medium
	case c <= LargeSize:
		pool = &p.large
	case c <= HugeSize:
		pool = &p.huge
	default:
		return
	}

	pool.Put(&b)
}

// Default global byte pool
var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
