// Package settings is the single source of truth for device configuration.
//
// The manager keeps an in-memory cache of SystemSettings backed by the
// persistent key-value store. Writes mark the cache dirty; the monitor
// task periodically calls Commit so flash only sees a write when something
// actually changed. Every public method is safe for concurrent use.
package settings
