// Package tasks is the system's nerve center. It owns the bounded
// command, state, and log queues, a two-bit event group, and a timeout
// watchdog, and runs three long-lived goroutines:
//
//   - worker: blocks on the command queue with a timeout strictly
//     shorter than the watchdog period, feeds the watchdog every
//     iteration, dispatches JSON-RPC methods to the owning component,
//     and pushes the response onto the state queue.
//   - monitor: fixed period; updates both radio state machines,
//     commits dirty settings, and publishes a status snapshot.
//   - publisher: waits on the event bits with a bounded timeout; with
//     no endpoint connected it drains and discards both queues,
//     otherwise it sends state messages individually and coalesces log
//     lines into batched notifications.
package tasks
