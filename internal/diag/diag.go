package diag

import (
	"runtime"
	"time"

	"github.com/yupaihuai/s3/internal/mempool"
	"github.com/yupaihuai/s3/internal/settings"
)

// Sink receives report lines. *flashlog.Logger satisfies it.
type Sink interface {
	Logf(format string, args ...interface{})
}

// Report gathers the inputs for one diagnostics pass. Radio states are
// read through functions so the report does not care which machines
// exist.
type Report struct {
	Sink           Sink
	Settings       *settings.Manager
	Pools          *mempool.Allocator
	WiFiState      func() string
	BluetoothState func() string
	Started        time.Time
}

// Run writes the full report through the sink.
func (r *Report) Run() {
	r.Sink.Logf("[diag] ===== system diagnostics report =====")

	r.runtimeSection()
	r.poolSection()
	r.settingsSection()
	r.radioSection()

	r.Sink.Logf("[diag] ===== diagnostics complete =====")
}

func (r *Report) runtimeSection() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	r.Sink.Logf("[diag] runtime: %s %s/%s, %d cpus, %d goroutines",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.NumGoroutine())
	r.Sink.Logf("[diag] memory: %d KB in use, %d KB from OS, %d GC cycles",
		ms.HeapAlloc/1024, ms.Sys/1024, ms.NumGC)
	if !r.Started.IsZero() {
		r.Sink.Logf("[diag] uptime: %s", time.Since(r.Started).Round(time.Second))
	}
}

func (r *Report) poolSection() {
	if r.Pools == nil {
		r.Sink.Logf("[diag] pools: allocator not initialized")
		return
	}
	for _, st := range r.Pools.Stats() {
		r.Sink.Logf("[diag] pool %q: %d/%d blocks of %d B in use",
			st.Name, st.UsedBlocks, st.BlockCount, st.BlockSize)
	}
}

func (r *Report) settingsSection() {
	if r.Settings == nil {
		r.Sink.Logf("[diag] settings: store not initialized")
		return
	}
	snap := r.Settings.Snapshot()
	r.Sink.Logf("[diag] settings: schema v%d, wifi mode %s, bluetooth enabled %t, dirty %t",
		snap.Version, snap.WiFiMode, snap.BluetoothEnabled, r.Settings.IsDirty())
}

func (r *Report) radioSection() {
	if r.WiFiState != nil {
		r.Sink.Logf("[diag] wifi: %s", r.WiFiState())
	}
	if r.BluetoothState != nil {
		r.Sink.Logf("[diag] bluetooth: %s", r.BluetoothState())
	}
}
