package mempool

import (
	"log"
	"sort"
	"sync"
	"unsafe"
)

// PoolConfig describes one fixed-block pool to carve out of the arena.
type PoolConfig struct {
	Name       string
	BlockSize  int
	BlockCount int
}

// PoolStat is a point-in-time view of one pool's occupancy.
type PoolStat struct {
	Name       string
	BlockSize  int
	BlockCount int
	UsedBlocks int
}

type pool struct {
	name       string
	offset     int // byte offset of the pool's region inside the arena
	totalSize  int
	blockSize  int
	blockCount int
	used       []bool
}

// Allocator manages several fixed-block pools inside one contiguous
// arena. All operations serialize on one mutex.
type Allocator struct {
	mu    sync.Mutex
	arena []byte
	pools []pool

	// Pool indices ordered by ascending block size, for best-fit scans.
	bySize []int
}

// NewAllocator carves the configured pools out of a freshly allocated
// arena. Invalid pool configs are logged and skipped, not fatal; the
// allocator is usable iff at least one pool exists.
func NewAllocator(configs []PoolConfig) (*Allocator, bool) {
	a := &Allocator{}

	total := 0
	for _, cfg := range configs {
		if cfg.BlockSize <= 0 || cfg.BlockCount <= 0 {
			log.Printf("mempool: skipping pool %q with invalid geometry (%d x %d)",
				cfg.Name, cfg.BlockCount, cfg.BlockSize)
			continue
		}
		size := cfg.BlockSize * cfg.BlockCount
		a.pools = append(a.pools, pool{
			name:       cfg.Name,
			offset:     total,
			totalSize:  size,
			blockSize:  cfg.BlockSize,
			blockCount: cfg.BlockCount,
			used:       make([]bool, cfg.BlockCount),
		})
		total += size
	}

	if len(a.pools) == 0 {
		log.Printf("mempool: no usable pools configured")
		return a, false
	}

	a.arena = make([]byte, total)

	a.bySize = make([]int, len(a.pools))
	for i := range a.bySize {
		a.bySize[i] = i
	}
	sort.SliceStable(a.bySize, func(i, j int) bool {
		return a.pools[a.bySize[i]].blockSize < a.pools[a.bySize[j]].blockSize
	})

	for _, p := range a.pools {
		log.Printf("mempool: created pool %q: %d blocks of %d B", p.name, p.blockCount, p.blockSize)
	}
	return a, true
}

// Acquire lends a block from the smallest pool whose block size fits the
// request. When every exactly-fitting pool is exhausted the scan
// continues upward through larger pools with a warning. Returns nil when
// no block is available.
func (a *Allocator) Acquire(size int) []byte {
	if size <= 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fallback := false
	for _, pi := range a.bySize {
		if a.pools[pi].blockSize < size {
			continue
		}
		if buf := a.acquireLocked(pi); buf != nil {
			if fallback {
				log.Printf("mempool: lent a larger block (%d B) from pool %q for a %d B request",
					a.pools[pi].blockSize, a.pools[pi].name, size)
			}
			return buf
		}
		// The best-fit pool was full; anything further up is fallback.
		fallback = true
	}

	log.Printf("mempool: no suitable block for %d B request", size)
	return nil
}

// AcquireFrom lends a block from a specific pool, bypassing the fit
// search. Fixed-purpose callers use this for known pool layouts.
func (a *Allocator) AcquireFrom(poolIndex int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	if poolIndex < 0 || poolIndex >= len(a.pools) {
		log.Printf("mempool: invalid pool index %d", poolIndex)
		return nil
	}

	buf := a.acquireLocked(poolIndex)
	if buf == nil {
		log.Printf("mempool: pool %q is full", a.pools[poolIndex].name)
	}
	return buf
}

// acquireLocked finds a free block in the pool and marks it lent.
// Caller holds the lock.
func (a *Allocator) acquireLocked(poolIndex int) []byte {
	p := &a.pools[poolIndex]
	for i := 0; i < p.blockCount; i++ {
		if p.used[i] {
			continue
		}
		p.used[i] = true
		start := p.offset + i*p.blockSize
		return a.arena[start : start+p.blockSize : start+p.blockSize]
	}
	return nil
}

// Release returns a block to its pool. Ownership is derived purely from
// the block's address range inside the arena: a slice from elsewhere, or
// a block that is already free, is a logged no-op.
func (a *Allocator) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	offset, ok := a.arenaOffset(buf)
	if !ok {
		log.Printf("mempool: attempt to release a block not managed by any pool")
		return
	}

	for i := range a.pools {
		p := &a.pools[i]
		if offset < p.offset || offset >= p.offset+p.totalSize {
			continue
		}
		index := (offset - p.offset) / p.blockSize
		if p.used[index] {
			p.used[index] = false
		} else {
			log.Printf("mempool: double release in pool %q at index %d", p.name, index)
		}
		return
	}
}

// arenaOffset maps the slice's backing pointer to a byte offset inside
// the arena. ok is false for memory the allocator does not own.
func (a *Allocator) arenaOffset(buf []byte) (int, bool) {
	if len(a.arena) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.arena)))
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if ptr < base || ptr >= base+uintptr(len(a.arena)) {
		return 0, false
	}
	return int(ptr - base), true
}

// Stats reports the occupancy of every pool.
func (a *Allocator) Stats() []PoolStat {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := make([]PoolStat, 0, len(a.pools))
	for _, p := range a.pools {
		used := 0
		for _, u := range p.used {
			if u {
				used++
			}
		}
		stats = append(stats, PoolStat{
			Name:       p.name,
			BlockSize:  p.blockSize,
			BlockCount: p.blockCount,
			UsedBlocks: used,
		})
	}
	return stats
}
