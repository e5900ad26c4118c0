package frameio

import (
	"sync"
	"sync/atomic"
)

// MemoryLimitExceededError is returned when an allocation would exceed
// the pool's memory limit.
type MemoryLimitExceededError struct {
	Requested int64
	Current   int64
	Limit     int64
}

func (e *MemoryLimitExceededError) Error() string {
	return "frameio: memory limit exceeded"
}

// BufferPool manages reusable byte buffers for codec scratch space.
// It supports a configurable memory limit so batch jobs that stream
// many frames cannot grow without bound.
type BufferPool struct {
	pools       []*sync.Pool
	memoryUsed  int64 // atomic: bytes currently handed out
	memoryLimit int64 // atomic: maximum bytes allowed (0 = unlimited)
	allocCount  int64 // atomic: total Get calls
	hitCount    int64 // atomic: buffers served from a pool
	missCount   int64 // atomic: buffers freshly allocated
}

// bufferSizes are the discrete sizes for pooled buffers.
// The small classes cover header and scanline scratch, the middle ones
// compressed planes, and the top ones whole-frame payloads (an HD
// float frame is 32 MB).
var bufferSizes = []int{
	16 << 10,  // 16 KB
	64 << 10,  // 64 KB
	256 << 10, // 256 KB
	1 << 20,   // 1 MB
	4 << 20,   // 4 MB
	16 << 20,  // 16 MB
	64 << 20,  // 64 MB
}

// globalBufferPool is the default buffer pool.
var globalBufferPool = NewBufferPool()

// NewBufferPool creates a new buffer pool with no memory limit.
func NewBufferPool() *BufferPool {
	return NewBufferPoolWithLimit(0)
}

// NewBufferPoolWithLimit creates a buffer pool with a memory limit.
// If limit is 0, no limit is enforced.
func NewBufferPoolWithLimit(limit int64) *BufferPool {
	p := &BufferPool{
		pools:       make([]*sync.Pool, len(bufferSizes)),
		memoryLimit: limit,
	}
	for i := range bufferSizes {
		p.pools[i] = &sync.Pool{}
	}
	return p
}

// SetMemoryLimit sets the maximum memory the pool can hand out.
// If limit is 0, no limit is enforced.
// Returns the previous limit.
func (p *BufferPool) SetMemoryLimit(limit int64) int64 {
	return atomic.SwapInt64(&p.memoryLimit, limit)
}

// MemoryLimit returns the current memory limit (0 = unlimited).
func (p *BufferPool) MemoryLimit() int64 {
	return atomic.LoadInt64(&p.memoryLimit)
}

// MemoryUsed returns the bytes currently handed out by the pool.
// Usage is only tracked while a limit is set.
func (p *BufferPool) MemoryUsed() int64 {
	return atomic.LoadInt64(&p.memoryUsed)
}

// Stats returns pool statistics: (allocCount, hitCount, missCount).
func (p *BufferPool) Stats() (allocs, hits, misses int64) {
	return atomic.LoadInt64(&p.allocCount),
		atomic.LoadInt64(&p.hitCount),
		atomic.LoadInt64(&p.missCount)
}

// ResetStats resets the pool statistics.
func (p *BufferPool) ResetStats() {
	atomic.StoreInt64(&p.allocCount, 0)
	atomic.StoreInt64(&p.hitCount, 0)
	atomic.StoreInt64(&p.missCount, 0)
}

// poolIndex returns the pool index for a given size.
// Returns -1 if no pool is suitable (size too large).
func poolIndex(size int) int {
	for i, s := range bufferSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// Get returns a buffer of exactly the requested length, with capacity
// possibly larger. Call Put when done to return the buffer to the pool.
// Returns nil if the allocation would exceed the memory limit.
func (p *BufferPool) Get(size int) []byte {
	atomic.AddInt64(&p.allocCount, 1)

	idx := poolIndex(size)
	if idx < 0 {
		// Too large for any class, allocate directly.
		limit := atomic.LoadInt64(&p.memoryLimit)
		if limit > 0 {
			current := atomic.LoadInt64(&p.memoryUsed)
			if current+int64(size) > limit {
				return nil
			}
			atomic.AddInt64(&p.memoryUsed, int64(size))
		}
		atomic.AddInt64(&p.missCount, 1)
		return make([]byte, size)
	}

	pooledSize := bufferSizes[idx]
	limit := atomic.LoadInt64(&p.memoryLimit)
	if limit > 0 {
		current := atomic.LoadInt64(&p.memoryUsed)
		if current+int64(pooledSize) > limit {
			return nil
		}
		atomic.AddInt64(&p.memoryUsed, int64(pooledSize))
	}

	if v := p.pools[idx].Get(); v != nil {
		atomic.AddInt64(&p.hitCount, 1)
		return v.([]byte)[:size]
	}

	atomic.AddInt64(&p.missCount, 1)
	// Allocate the full class size so the buffer can re-enter the pool.
	return make([]byte, pooledSize)[:size]
}

// GetWithError returns a buffer or an error if the memory limit is exceeded.
func (p *BufferPool) GetWithError(size int) ([]byte, error) {
	buf := p.Get(size)
	if buf == nil {
		return nil, &MemoryLimitExceededError{
			Requested: int64(size),
			Current:   atomic.LoadInt64(&p.memoryUsed),
			Limit:     atomic.LoadInt64(&p.memoryLimit),
		}
	}
	return buf, nil
}

// Put returns a buffer to the pool for reuse.
// The buffer must have been obtained from Get.
func (p *BufferPool) Put(buf []byte) {
	if buf == nil {
		return
	}

	bufCap := cap(buf)
	idx := poolIndex(bufCap)

	limit := atomic.LoadInt64(&p.memoryLimit)
	if limit > 0 {
		atomic.AddInt64(&p.memoryUsed, -int64(bufCap))
	}

	if idx < 0 {
		// Too large for any class, let it be garbage collected.
		return
	}

	// Only re-pool buffers whose capacity matches the class exactly.
	// Anything else came from the oversize path.
	if bufCap == bufferSizes[idx] {
		p.pools[idx].Put(buf[:bufCap])
	}
}

// GetBuffer returns a buffer from the global pool.
func GetBuffer(size int) []byte {
	return globalBufferPool.Get(size)
}

// GetBufferWithError returns a buffer from the global pool or an error.
func GetBufferWithError(size int) ([]byte, error) {
	return globalBufferPool.GetWithError(size)
}

// PutBuffer returns a buffer to the global pool.
func PutBuffer(buf []byte) {
	globalBufferPool.Put(buf)
}

// SetGlobalMemoryLimit sets the memory limit for the global buffer pool.
// If limit is 0, no limit is enforced.
// Returns the previous limit.
func SetGlobalMemoryLimit(limit int64) int64 {
	return globalBufferPool.SetMemoryLimit(limit)
}

// GlobalMemoryLimit returns the current global memory limit.
func GlobalMemoryLimit() int64 {
	return globalBufferPool.MemoryLimit()
}

// GlobalMemoryUsed returns the current memory usage of the global pool.
func GlobalMemoryUsed() int64 {
	return globalBufferPool.MemoryUsed()
}

// GlobalPoolStats returns statistics for the global buffer pool.
func GlobalPoolStats() (allocs, hits, misses int64) {
	return globalBufferPool.Stats()
}

// PooledBuffer wraps a byte slice with automatic pool return.
type PooledBuffer struct {
	Data []byte
	pool *BufferPool
}

// NewPooledBuffer gets a buffer from the global pool.
func NewPooledBuffer(size int) *PooledBuffer {
	return &PooledBuffer{
		Data: globalBufferPool.Get(size),
		pool: globalBufferPool,
	}
}

// Release returns the buffer to the pool.
// After Release, the buffer must not be used.
func (b *PooledBuffer) Release() {
	if b.pool != nil && b.Data != nil {
		b.pool.Put(b.Data)
		b.Data = nil
		b.pool = nil
	}
}
