package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigs() []PoolConfig {
	return []PoolConfig{
		{Name: "large", BlockSize: 4096, BlockCount: 2},
		{Name: "medium", BlockSize: 1024, BlockCount: 4},
		{Name: "small", BlockSize: 256, BlockCount: 8},
	}
}

func TestNewAllocator(t *testing.T) {
	a, ok := NewAllocator(testConfigs())
	require.True(t, ok)

	stats := a.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, "large", stats[0].Name)
	assert.Equal(t, 0, stats[0].UsedBlocks)
}

func TestNewAllocatorSkipsInvalidPools(t *testing.T) {
	configs := []PoolConfig{
		{Name: "broken", BlockSize: 0, BlockCount: 4},
		{Name: "fine", BlockSize: 128, BlockCount: 2},
	}

	a, ok := NewAllocator(configs)
	require.True(t, ok)
	assert.Len(t, a.Stats(), 1)
}

func TestNewAllocatorAllPoolsInvalid(t *testing.T) {
	_, ok := NewAllocator([]PoolConfig{{Name: "broken", BlockSize: -1, BlockCount: 1}})
	assert.False(t, ok)
}

func TestAcquireBestFit(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	buf := a.Acquire(200)
	require.NotNil(t, buf)
	assert.Len(t, buf, 256)

	stats := a.Stats()
	assert.Equal(t, 1, statFor(t, stats, "small").UsedBlocks)
	assert.Equal(t, 0, statFor(t, stats, "medium").UsedBlocks)
}

func TestAcquireFallsBackToLargerPool(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	// Exhaust the small pool.
	for i := 0; i < 8; i++ {
		require.NotNil(t, a.Acquire(256))
	}

	buf := a.Acquire(256)
	require.NotNil(t, buf)
	assert.Len(t, buf, 1024)
	assert.Equal(t, 1, statFor(t, a.Stats(), "medium").UsedBlocks)
}

func TestAcquireTooLarge(t *testing.T) {
	a, _ := NewAllocator(testConfigs())
	assert.Nil(t, a.Acquire(8192))
}

func TestAcquireNeverDoubleLends(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	seen := make(map[*byte]bool)
	for {
		buf := a.Acquire(1)
		if buf == nil {
			break
		}
		p := &buf[0]
		assert.False(t, seen[p], "block lent twice while still held")
		seen[p] = true
	}
	// 2 + 4 + 8 blocks in total.
	assert.Len(t, seen, 14)
}

func TestReleaseThenReacquire(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	buf := a.Acquire(1024)
	require.NotNil(t, buf)
	a.Release(buf)

	again := a.Acquire(1024)
	require.NotNil(t, again)
	assert.LessOrEqual(t, len(again), 1024)
	assert.Equal(t, &buf[0], &again[0])
}

func TestReleaseForeignPointerIsNoOp(t *testing.T) {
	a, _ := NewAllocator(testConfigs())
	before := a.Stats()

	foreign := make([]byte, 256)
	a.Release(foreign)
	a.Release(nil)

	assert.Equal(t, before, a.Stats())
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	buf := a.Acquire(256)
	require.NotNil(t, buf)
	a.Release(buf)
	before := a.Stats()

	a.Release(buf)
	assert.Equal(t, before, a.Stats())
}

func TestAcquireFrom(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	// Pool 0 is "large" in config order.
	buf := a.AcquireFrom(0)
	require.NotNil(t, buf)
	assert.Len(t, buf, 4096)

	assert.Nil(t, a.AcquireFrom(99))
	assert.Nil(t, a.AcquireFrom(-1))
}

func TestConcurrentAcquireRelease(t *testing.T) {
	a, _ := NewAllocator(testConfigs())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if buf := a.Acquire(128); buf != nil {
					buf[0] = byte(i)
					a.Release(buf)
				}
			}
		}()
	}
	wg.Wait()

	for _, stat := range a.Stats() {
		assert.Equal(t, 0, stat.UsedBlocks)
	}
}

func statFor(t *testing.T, stats []PoolStat, name string) PoolStat {
	t.Helper()
	for _, s := range stats {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no pool named %q", name)
	return PoolStat{}
}
