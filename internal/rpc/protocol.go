// Package rpc implements the worker's wire protocol: line-delimited
// JSON-RPC over a byte stream, one request line in, exactly one
// response line out. Dispatch is table-driven and every method's
// parameters are decoded into a typed struct and validated before any
// handler logic runs.
package rpc

import "encoding/json"

// JSON-RPC error codes (standard plus application-specific).
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeNotInitialized = -32000
	CodeFileNotFound   = -32001
	CodeInvalidRange   = -32002
)

// Request is a single decoded request line. The id is carried as raw
// JSON and passed through to the response uninterpreted.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the envelope written for every request: either a result
// or an error, never both. The id field is always present; parse
// failures carry a null id.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error half of the envelope.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func resultResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &ResponseError{Code: code, Message: message}}
}
