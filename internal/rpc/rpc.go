package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol revision accepted or emitted.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one parsed inbound request. ClientID names the channel it
// arrived on; Respond delivers a pre-serialized response back to that
// channel and may be nil for notifications.
type Request struct {
	Method   string
	Params   json.RawMessage
	ID       json.RawMessage
	ClientID string
	Respond  func(text string)
}

type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// ErrorObject is the error member of a response envelope.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type wireNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// ParseRequest decodes one inbound frame. ClientID and Respond are
// filled in by the transport, not here.
func ParseRequest(data []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	if w.JSONRPC != Version {
		return Request{}, fmt.Errorf("unsupported jsonrpc version %q", w.JSONRPC)
	}
	if w.Method == "" {
		return Request{}, fmt.Errorf("missing method")
	}
	return Request{Method: w.Method, Params: w.Params, ID: w.ID}, nil
}

// Result builds a success response envelope.
func Result(id json.RawMessage, result interface{}) string {
	return encode(wireResponse{JSONRPC: Version, Result: result, ID: normalizeID(id)})
}

// Error builds an error response envelope.
func Error(id json.RawMessage, code int, message string) string {
	return encode(wireResponse{JSONRPC: Version, Error: &ErrorObject{Code: code, Message: message}, ID: normalizeID(id)})
}

// Notification builds a server-initiated notification envelope.
func Notification(method string, params interface{}) string {
	return encode(wireNotification{JSONRPC: Version, Method: method, Params: params})
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func encode(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable result payload, which is
		// a programming error in the handler.
		return `{"jsonrpc":"2.0","error":{"code":-32603,"message":"internal error"},"id":null}`
	}
	return string(data)
}
