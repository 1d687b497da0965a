package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	opts, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, opts.CommandQueueDepth)
	assert.Equal(t, 20, opts.StateQueueDepth)
	assert.Equal(t, 30, opts.LogQueueDepth)
	assert.Equal(t, 15*time.Second, opts.WatchdogTimeout)
	assert.Equal(t, 10*time.Second, opts.WorkerBlockTime)
	assert.Len(t, opts.Pools, 3)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("S3_MONITOR_PERIOD", "250ms")
	t.Setenv("S3_COMMAND_QUEUE_DEPTH", "4")

	opts, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, opts.MonitorPeriod)
	assert.Equal(t, 4, opts.CommandQueueDepth)
}

func TestLoadInvalidEnvValueKeepsDefault(t *testing.T) {
	t.Setenv("S3_MONITOR_PERIOD", "not-a-duration")

	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().MonitorPeriod, opts.MonitorPeriod)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s3.yaml")
	body := `
listenAddr: ":9090"
logBatchLimit: 5
pools:
  - name: tiny
    blockSize: 4096
    blockCount: 2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", opts.ListenAddr)
	assert.Equal(t, 5, opts.LogBatchLimit)
	require.Len(t, opts.Pools, 1)
	assert.Equal(t, "tiny", opts.Pools[0].Name)

	// Untouched fields keep their defaults.
	assert.Equal(t, Defaults().WatchdogTimeout, opts.WatchdogTimeout)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateWorkerBlockTimeContract(t *testing.T) {
	opts := Defaults()
	opts.WorkerBlockTime = opts.WatchdogTimeout

	err := Validate(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly less")
}

func TestValidateRejectsBadPool(t *testing.T) {
	opts := Defaults()
	opts.Pools = append(opts.Pools, PoolSpec{Name: "bad", BlockSize: 0, BlockCount: 1})

	assert.Error(t, Validate(opts))
}
