// Package arena provides pooled data buffers for filesystem operations.
//
// Two ownership modes are supported. Buffers taken straight from the pool
// with GetBuffer are owned by whoever holds them and must be handed back
// with PutBuffer. Buffers allocated through an Arena are tied to an
// external scope (typically a request): the arena hands them out one by
// one and a single Release at the end of the scope returns all of them,
// with no per-buffer release.
package arena

import (
	"sync"
)

// Bucket sizes for pooled buffers, 4KB up to 64MB.
var bucketSizes = []int{
	4 << 10,
	16 << 10,
	64 << 10,
	256 << 10,
	1 << 20,
	4 << 20,
	16 << 20,
	64 << 20,
}

// BytePool hands out byte slices from size-bucketed sync.Pools to keep GC
// pressure down under heavy operation churn.
type BytePool struct {
	pools map[int]*sync.Pool
}

// NewBytePool creates a pool with the standard size buckets.
func NewBytePool() *BytePool {
	pools := make(map[int]*sync.Pool, len(bucketSizes))
	for _, size := range bucketSizes {
		size := size
		pools[size] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}
	return &BytePool{pools: pools}
}

// Get returns a slice of length n backed by the smallest bucket that fits.
// Requests larger than the biggest bucket are allocated directly.
func (p *BytePool) Get(n int) []byte {
	for _, size := range bucketSizes {
		if size >= n {
			buf := p.pools[size].Get().([]byte)
			return buf[:n]
		}
	}
	return make([]byte, n)
}

// Put returns a slice to its bucket. Slices that did not come from the pool
// are left to the GC.
func (p *BytePool) Put(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	pool, ok := p.pools[c]
	if !ok {
		return
	}
	buf = buf[:c]
	for i := range buf {
		buf[i] = 0
	}
	//nolint:staticcheck // SA6002: byte slices are what this pool stores
	pool.Put(buf)
}

var defaultPool = NewBytePool()

// GetBuffer takes a buffer of length n from the default pool. The holder
// owns it and must return it with PutBuffer when done.
func GetBuffer(n int) []byte {
	return defaultPool.Get(n)
}

// PutBuffer returns a buffer obtained from GetBuffer.
func PutBuffer(buf []byte) {
	defaultPool.Put(buf)
}

// Arena allocates buffers whose lifetime is bound to an external scope.
// Alloc may be called any number of times while the scope lives; Release
// ends the scope and returns every allocation to the pool at once.
type Arena struct {
	mu       sync.Mutex
	bufs     [][]byte
	released bool
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{}
}

// Alloc returns a buffer of length n owned by the arena. It returns nil
// once the arena has been released.
func (a *Arena) Alloc(n int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	buf := defaultPool.Get(n)
	a.bufs = append(a.bufs, buf)
	return buf
}

// Release ends the arena's scope, returning all allocations to the pool.
// Buffers handed out by Alloc must not be used afterwards. Release is
// idempotent.
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return
	}
	a.released = true
	for _, buf := range a.bufs {
		defaultPool.Put(buf)
	}
	a.bufs = nil
}

// Len returns the number of live allocations, for diagnostics.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bufs)
}
