package config

import (
	"time"
)

// PoolSpec describes one fixed-block memory pool.
type PoolSpec struct {
	Name       string `yaml:"name"`
	BlockSize  int    `yaml:"blockSize"`
	BlockCount int    `yaml:"blockCount"`
}

// Options holds every tunable of the control core.
type Options struct {
	// Transport.
	ListenAddr string `yaml:"listenAddr"`

	// Persistent key-value store (SQLite file path).
	StorePath string `yaml:"storePath"`

	// Durable logger.
	LogFilePath   string        `yaml:"logFilePath"`
	LogRingBytes  int           `yaml:"logRingBytes"`
	LogFlushEvery time.Duration `yaml:"logFlushEvery"`

	// Orchestrator queues.
	CommandQueueDepth int `yaml:"commandQueueDepth"`
	StateQueueDepth   int `yaml:"stateQueueDepth"`
	LogQueueDepth     int `yaml:"logQueueDepth"`

	// Task cadence. WorkerBlockTime must stay strictly below
	// WatchdogTimeout or the worker starves its own watchdog.
	WatchdogTimeout time.Duration `yaml:"watchdogTimeout"`
	WorkerBlockTime time.Duration `yaml:"workerBlockTime"`
	MonitorPeriod   time.Duration `yaml:"monitorPeriod"`
	PublisherWait   time.Duration `yaml:"publisherWait"`
	LogBatchLimit   int           `yaml:"logBatchLimit"`

	// Long-range radio retry policy. Reconnect is fixed-interval.
	ReconnectInterval time.Duration `yaml:"reconnectInterval"`
	MaxConnectRetries int           `yaml:"maxConnectRetries"`

	// Memory pool layout.
	Pools []PoolSpec `yaml:"pools"`
}

// Defaults returns the compiled baseline options.
func Defaults() *Options {
	return &Options{
		ListenAddr: ":8080",

		StorePath: "s3-store.sqlite3",

		LogFilePath:   "logs/system.log",
		LogRingBytes:  8 * 1024,
		LogFlushEvery: 30 * time.Second,

		CommandQueueDepth: 10,
		StateQueueDepth:   20,
		LogQueueDepth:     30,

		WatchdogTimeout: 15 * time.Second,
		WorkerBlockTime: 10 * time.Second,
		MonitorPeriod:   1 * time.Second,
		PublisherWait:   500 * time.Millisecond,
		LogBatchLimit:   20,

		ReconnectInterval: 10 * time.Second,
		MaxConnectRetries: 3,

		Pools: []PoolSpec{
			{Name: "frame", BlockSize: 1024 * 1024, BlockCount: 4},
			{Name: "upload", BlockSize: 256 * 1024, BlockCount: 8},
			{Name: "general", BlockSize: 64 * 1024, BlockCount: 16},
		},
	}
}
