package hub

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// defaultDialTimeout bounds the WebSocket handshake with the hub.
const defaultDialTimeout = 10 * time.Second

// Stream is a WebSocket connection to the hub's event stream.
//
// The hub pushes datapoint updates and collection changes as JSON text
// frames; commands are sent back over the same connection.
//
// Thread Safety:
//   - Read must be called from a single goroutine (the stream loop).
//   - Send is safe for concurrent use; writes are serialized internally.
//   - IsConnected and Close are safe from any goroutine.
type Stream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closed   bool
	closedMu sync.RWMutex
}

// DialStream opens a WebSocket connection to wss://{host}/ws.
//
// The same static token used for REST requests authenticates the stream,
// sent in the `token` header. Certificate verification is disabled for
// the hub's self-signed certificate.
//
// Parameters:
//   - ctx: Context for handshake timeout/cancellation
//   - host: The hub's address (IP or hostname, no scheme)
//   - token: The static API token issued by the hub
//
// Returns:
//   - *Stream: Connected stream ready for use
//   - error: Wrapped ErrNetwork if the handshake fails
func DialStream(ctx context.Context, host, token string) (*Stream, error) {
	url := fmt.Sprintf("wss://%s/ws", host)

	dialer := &websocket.Dialer{
		HandshakeTimeout: defaultDialTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- self-signed hub certificate
		},
	}

	header := http.Header{}
	header.Set("token", token)

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: websocket dial: %w", ErrNetwork, err)
	}

	return &Stream{conn: conn}, nil
}

// Read blocks until the next text frame arrives and returns its payload.
//
// Returns:
//   - []byte: Raw frame payload
//   - error: Wrapped ErrNotConnected once the connection is dead
func (s *Stream) Read() ([]byte, error) {
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		s.markClosed()
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return payload, nil
}

// Send marshals v to JSON and writes it as a text frame.
//
// Parameters:
//   - v: Any JSON-marshalable value (typically a CommandMessage)
//
// Returns:
//   - error: ErrNotConnected if the stream is closed, or a wrapped
//     marshal/write error
func (s *Stream) Send(v any) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(v); err != nil {
		s.markClosed()
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return nil
}

// IsConnected reports whether the stream is believed to be live.
//
// A true result is not a guarantee; the next read or write may still
// discover a dead connection.
func (s *Stream) IsConnected() bool {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	return !s.closed
}

// Close tears down the connection. Safe to call more than once.
func (s *Stream) Close() error {
	s.closedMu.Lock()
	if s.closed {
		s.closedMu.Unlock()
		return nil
	}
	s.closed = true
	s.closedMu.Unlock()

	return s.conn.Close()
}

func (s *Stream) markClosed() {
	s.closedMu.Lock()
	s.closed = true
	s.closedMu.Unlock()
}
