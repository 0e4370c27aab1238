// ABOUTME: Error values returned by the bridge pool
// ABOUTME: ToolError carries the text reported by the tool server

package bridge

import "errors"

// ErrTransport indicates the tool server could not be reached.
var ErrTransport = errors.New("tool server unavailable")

// ErrTimeout indicates a handshake or call deadline expired.
var ErrTimeout = errors.New("tool call timed out")

// ErrClosed indicates the pool has been closed.
var ErrClosed = errors.New("pool closed")

// ToolError is a failure reported by the tool server itself.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
