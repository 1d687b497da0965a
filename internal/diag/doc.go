// Package diag produces a one-shot system diagnostics report: runtime
// memory statistics, pool occupancy, configuration state, and radio
// states, written through the durable logger.
package diag
