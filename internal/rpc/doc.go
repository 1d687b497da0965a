// Package rpc implements the JSON-RPC 2.0 envelopes used on the
// WebSocket control channel: requests in, result/error responses and
// server-initiated notifications out.
package rpc
