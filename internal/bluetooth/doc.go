// Package bluetooth drives the short-range advertise-only radio.
//
// The machine has three states: Disabled, Advertising, Connected.
// Advertise start/stop resolve synchronously from the driver's return
// code; client connect/disconnect arrive as events. A lost connection
// re-evaluates the configuration and either restarts advertising or
// settles back to Disabled, so the radio is never silently unreachable
// while still configured on.
package bluetooth
