// Package apperr defines the sentinel errors that form the worker's
// application error taxonomy. The RPC dispatcher maps them onto wire
// error codes; anything unrecognized becomes an internal error.
package apperr

import "errors"

var (
	ErrNotInitialized = errors.New("not initialized")
	ErrFileNotFound   = errors.New("file not found")
	ErrInvalidRange   = errors.New("invalid range")
	ErrInvalidParams  = errors.New("invalid params")
	ErrInvalidRequest = errors.New("invalid request")
	ErrMethodNotFound = errors.New("method not found")
)
