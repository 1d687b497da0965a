// Package wifi drives the long-range network radio through a small
// event-driven state machine.
//
// All state transitions happen either inside the driver event handler
// or inside ApplySettings; Update only re-issues a connect attempt when
// the machine has sat in Disconnected past the reconnect interval.
// Disconnect reasons classified "permanent-like" (target not found,
// authentication failure) are retried a bounded number of times before
// the machine parks in FailedPermanently.
package wifi
