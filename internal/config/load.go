package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load merges defaults, .env, S3_* environment overrides and an optional
// YAML file. filename may be empty to skip the file stage.
func Load(filename string) (*Options, error) {
	opts := Defaults()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(opts)

	if filename != "" {
		if err := applyFile(opts, filename); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filename, err)
		}
	}

	if err := Validate(opts); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return opts, nil
}

// applyFile overlays values from a YAML file onto opts. Fields absent
// from the file keep their current values.
func applyFile(opts *Options, filename string) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(raw, opts); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyEnvOverrides applies S3_* environment variables to the options.
func applyEnvOverrides(opts *Options) {
	opts.ListenAddr = GetEnvVar("S3_LISTEN_ADDR", opts.ListenAddr)
	opts.StorePath = GetEnvVar("S3_STORE_PATH", opts.StorePath)
	opts.LogFilePath = GetEnvVar("S3_LOG_FILE", opts.LogFilePath)

	opts.LogRingBytes = GetEnvInt("S3_LOG_RING_BYTES", opts.LogRingBytes)
	opts.LogFlushEvery = GetEnvDuration("S3_LOG_FLUSH_EVERY", opts.LogFlushEvery)

	opts.CommandQueueDepth = GetEnvInt("S3_COMMAND_QUEUE_DEPTH", opts.CommandQueueDepth)
	opts.StateQueueDepth = GetEnvInt("S3_STATE_QUEUE_DEPTH", opts.StateQueueDepth)
	opts.LogQueueDepth = GetEnvInt("S3_LOG_QUEUE_DEPTH", opts.LogQueueDepth)

	opts.WatchdogTimeout = GetEnvDuration("S3_WATCHDOG_TIMEOUT", opts.WatchdogTimeout)
	opts.WorkerBlockTime = GetEnvDuration("S3_WORKER_BLOCK_TIME", opts.WorkerBlockTime)
	opts.MonitorPeriod = GetEnvDuration("S3_MONITOR_PERIOD", opts.MonitorPeriod)
	opts.PublisherWait = GetEnvDuration("S3_PUBLISHER_WAIT", opts.PublisherWait)
	opts.LogBatchLimit = GetEnvInt("S3_LOG_BATCH_LIMIT", opts.LogBatchLimit)

	opts.ReconnectInterval = GetEnvDuration("S3_RECONNECT_INTERVAL", opts.ReconnectInterval)
	opts.MaxConnectRetries = GetEnvInt("S3_MAX_CONNECT_RETRIES", opts.MaxConnectRetries)
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDuration returns the value of an environment variable as a duration with a default.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an int with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
