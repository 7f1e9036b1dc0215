// Package transport moves opaque JSON-RPC envelopes to and from a peer
// over one of three framings: newline-delimited stdio, a WebSocket
// client connection, or HTTP with Server-Sent Events. All three present
// the same Transport contract.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhpenta/mcpcore/protocol"
)

// Transport is a bidirectional, message-oriented channel carrying one
// envelope per logical unit of the underlying framing.
type Transport interface {
	// Send serializes and emits env atomically. A partial send on
	// failure leaves the stream in an indeterminate state; the caller
	// must treat the owning session as CLOSED.
	Send(ctx context.Context, env protocol.Envelope) error

	// Receive blocks until one complete envelope is available, the
	// peer closes the stream (ErrEndOfStream, returned on every call
	// thereafter), or a transport-level error occurs. A local decode
	// failure on an otherwise-healthy stream is returned as-is so the
	// caller (the session) can decide whether to emit a response or
	// drop the message.
	Receive(ctx context.Context) (protocol.Envelope, error)

	// Close releases the underlying connection. Safe to call more
	// than once.
	Close() error
}

// ErrEndOfStream is returned by Receive once the peer has closed the
// connection, and on every subsequent call.
var ErrEndOfStream = errors.New("transport: end of stream")

// ConnectionError wraps a failure to establish or maintain the
// underlying connection (connect/handshake failure, broken pipe).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: connection failed: %v", e.Err)
}
func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolViolationError wraps a malformed frame at the transport's own
// framing layer (not a JSON-RPC decode failure). Receiving one CLOSES
// the session per spec.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("transport: protocol violation: %s", e.Reason)
}

// Credential is an optional bearer token or API key attached to
// outbound requests by transports that ride over HTTP (WebSocket
// handshake, HTTP+SSE). It is orthogonal to the MCP Security Guard: it
// authenticates the transport connection itself, not a tool's
// side-effectful operation.
type Credential struct {
	HeaderName  string
	HeaderValue string
}

// BearerCredential builds a Credential using the Authorization: Bearer
// convention, the default in mcp/api_key_validator.go's teacher lineage.
func BearerCredential(token string) Credential {
	return Credential{HeaderName: "Authorization", HeaderValue: "Bearer " + token}
}

// APIKeyCredential builds a Credential using a custom header, mirroring
// AuthHeaderAPIKey from the teacher's api_key_validator.go.
func APIKeyCredential(header, key string) Credential {
	return Credential{HeaderName: header, HeaderValue: key}
}
