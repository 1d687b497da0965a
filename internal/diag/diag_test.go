package diag

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yupaihuai/s3/internal/mempool"
	"github.com/yupaihuai/s3/internal/nvs"
	"github.com/yupaihuai/s3/internal/settings"
)

type lineSink struct {
	lines []string
}

func (s *lineSink) Logf(format string, args ...interface{}) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

func (s *lineSink) joined() string { return strings.Join(s.lines, "\n") }

func TestReportCoversAllSections(t *testing.T) {
	store := settings.NewManager(nvs.NewMemoryStore())
	store.Begin()

	alloc, ok := mempool.NewAllocator([]mempool.PoolConfig{
		{Name: "general", BlockSize: 256, BlockCount: 4},
	})
	require.True(t, ok)
	buf := alloc.Acquire(100)
	require.NotNil(t, buf)

	sink := &lineSink{}
	r := &Report{
		Sink:           sink,
		Settings:       store,
		Pools:          alloc,
		WiFiState:      func() string { return "connected" },
		BluetoothState: func() string { return "advertising" },
		Started:        time.Now().Add(-3 * time.Second),
	}
	r.Run()

	out := sink.joined()
	require.Contains(t, out, "diagnostics report")
	require.Contains(t, out, "runtime:")
	require.Contains(t, out, `pool "general": 1/4 blocks of 256 B in use`)
	require.Contains(t, out, "schema v1")
	require.Contains(t, out, "wifi: connected")
	require.Contains(t, out, "bluetooth: advertising")
	require.Contains(t, out, "diagnostics complete")
}

func TestReportToleratesMissingCollaborators(t *testing.T) {
	sink := &lineSink{}
	r := &Report{Sink: sink}
	r.Run()

	out := sink.joined()
	require.Contains(t, out, "allocator not initialized")
	require.Contains(t, out, "store not initialized")
}
