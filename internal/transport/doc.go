// Package transport owns the WebSocket control channel. Inbound text
// frames are parsed into JSON-RPC requests and handed to the command
// sink; outbound pre-serialized text is delivered per-client or
// broadcast. Slow clients lose messages instead of blocking the
// publisher.
package transport
