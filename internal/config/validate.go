package config

import (
	"fmt"
)

// Validate checks the merged options for internal consistency.
func Validate(opts *Options) error {
	if opts.ListenAddr == "" {
		return fmt.Errorf("listenAddr must not be empty")
	}
	if opts.StorePath == "" {
		return fmt.Errorf("storePath must not be empty")
	}
	if opts.LogFilePath == "" {
		return fmt.Errorf("logFilePath must not be empty")
	}
	if opts.LogRingBytes <= 0 {
		return fmt.Errorf("logRingBytes must be positive, got %d", opts.LogRingBytes)
	}
	if opts.LogFlushEvery <= 0 {
		return fmt.Errorf("logFlushEvery must be positive, got %v", opts.LogFlushEvery)
	}

	if opts.CommandQueueDepth <= 0 {
		return fmt.Errorf("commandQueueDepth must be positive, got %d", opts.CommandQueueDepth)
	}
	if opts.StateQueueDepth <= 0 {
		return fmt.Errorf("stateQueueDepth must be positive, got %d", opts.StateQueueDepth)
	}
	if opts.LogQueueDepth <= 0 {
		return fmt.Errorf("logQueueDepth must be positive, got %d", opts.LogQueueDepth)
	}

	if opts.WatchdogTimeout <= 0 {
		return fmt.Errorf("watchdogTimeout must be positive, got %v", opts.WatchdogTimeout)
	}
	// The liveness contract: every blocking call inside the watched
	// worker must time out before the watchdog does.
	if opts.WorkerBlockTime >= opts.WatchdogTimeout {
		return fmt.Errorf("workerBlockTime (%v) must be strictly less than watchdogTimeout (%v)",
			opts.WorkerBlockTime, opts.WatchdogTimeout)
	}
	if opts.WorkerBlockTime <= 0 {
		return fmt.Errorf("workerBlockTime must be positive, got %v", opts.WorkerBlockTime)
	}
	if opts.MonitorPeriod <= 0 {
		return fmt.Errorf("monitorPeriod must be positive, got %v", opts.MonitorPeriod)
	}
	if opts.PublisherWait <= 0 {
		return fmt.Errorf("publisherWait must be positive, got %v", opts.PublisherWait)
	}
	if opts.LogBatchLimit <= 0 {
		return fmt.Errorf("logBatchLimit must be positive, got %d", opts.LogBatchLimit)
	}

	if opts.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnectInterval must be positive, got %v", opts.ReconnectInterval)
	}
	if opts.MaxConnectRetries <= 0 {
		return fmt.Errorf("maxConnectRetries must be positive, got %d", opts.MaxConnectRetries)
	}

	for i, pool := range opts.Pools {
		if pool.Name == "" {
			return fmt.Errorf("pool %d: name must not be empty", i)
		}
		if pool.BlockSize <= 0 {
			return fmt.Errorf("pool %q: blockSize must be positive, got %d", pool.Name, pool.BlockSize)
		}
		if pool.BlockCount <= 0 {
			return fmt.Errorf("pool %q: blockCount must be positive, got %d", pool.Name, pool.BlockCount)
		}
	}

	return nil
}
