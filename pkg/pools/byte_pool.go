package pools

import (
	"sync"
)

// Buffer size classes, chosen around typical encoded record sizes.
const (
	SmallSize  = 64      // header plus a tiny payload
	MediumSize = 256     // typical command entries
	LargeSize  = 1024    // larger values
	HugeSize   = 4096    // page-sized records
	JumboSize  = 16384   // batched payloads
	MaxPool    = 1 << 20 // Don't pool buffers larger than this
)

// BytePool provides size-class based pooling for byte slices.
type BytePool struct {
	classes [5]sync.Pool
}

var classSizes = [5]int{SmallSize, MediumSize, LargeSize, HugeSize, JumboSize}

// NewBytePool creates a new byte pool.
func NewBytePool() *BytePool {
	p := &BytePool{}
	for i, size := range classSizes {
		p.classes[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// class returns the pool for buffers of capacity size, or nil when size is
// above every class.
func (p *BytePool) class(size int) *sync.Pool {
	for i, limit := range classSizes {
		if size <= limit {
			return &p.classes[i]
		}
	}
	return nil
}

// Get returns a byte slice with at least the requested capacity.
// The returned slice has length 0.
func (p *BytePool) Get(size int) []byte {
	pool := p.class(size)
	if pool == nil {
		// Too large to pool, allocate directly
		return make([]byte, 0, size)
	}

	bp, ok := pool.Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// GetSized returns a byte slice with exactly the requested length.
func (p *BytePool) GetSized(size int) []byte {
	b := p.Get(size)
	return b[:size]
}

// Put returns a byte slice to the pool for reuse. Slices larger than MaxPool
// are dropped.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c == 0 || c > MaxPool {
		return
	}

	// A buffer goes to the largest class it can fully serve.
	var pool *sync.Pool
	for i := len(classSizes) - 1; i >= 0; i-- {
		if c >= classSizes[i] {
			pool = &p.classes[i]
			break
		}
	}
	if pool == nil {
		return
	}

	b = b[:0]
	pool.Put(&b)
}

// Default global byte pool
var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a byte slice with exact length from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
