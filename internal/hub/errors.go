package hub

import "errors"

// Domain-specific errors for hub operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNetwork is returned when a REST request to the hub fails for any
	// reason: transport failure, non-2xx status, or a malformed response body.
	ErrNetwork = errors.New("hub: network request failed")

	// ErrNotConnected is returned when a stream operation is attempted
	// without a live WebSocket connection.
	ErrNotConnected = errors.New("hub: stream not connected")

	// ErrProtocol is returned when the hub sends a frame that cannot be
	// interpreted (invalid JSON, unexpected top-level shape).
	ErrProtocol = errors.New("hub: protocol violation")
)
