package transport

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mhpenta/mcpcore/protocol"
)

// websocketAcceptGUID is the fixed RFC 6455 §1.3 magic string used to
// derive Sec-WebSocket-Accept from the client's nonce.
const websocketAcceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// WebSocketDialOptions configures DialWebSocket.
type WebSocketDialOptions struct {
	// Credential, if set, is attached to the upgrade request as a
	// header (e.g. Authorization: Bearer ...).
	Credential *Credential

	// HandshakeTimeout bounds the TCP connect + HTTP upgrade exchange.
	// Zero means no deadline.
	HandshakeTimeout time.Duration

	// TLSConfig is used for wss:// targets. Nil uses Go's default.
	TLSConfig *tls.Config
}

// WebSocketTransport is a client-role RFC 6455 connection. The server
// role is out of scope: this module only ever dials out, never accepts.
type WebSocketTransport struct {
	conn net.Conn
	br   *bufio.Reader

	writeMu sync.Mutex
	closed  bool
	closeMu sync.Mutex
}

// DialWebSocket performs a TCP (or TLS) connect to rawURL followed by
// the RFC 6455 HTTP/1.1 upgrade handshake, verifying Sec-WebSocket-Accept
// against the nonce it sent. A server that skips or miscomputes the
// accept header is treated as a handshake failure, not tolerated as
// "optional" — see SPEC_FULL.md's resolution of this open question.
func DialWebSocket(ctx context.Context, rawURL string, opts WebSocketDialOptions) (*WebSocketTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("invalid websocket url: %w", err)}
	}

	var host string
	var useTLS bool
	switch u.Scheme {
	case "ws":
		useTLS = false
	case "wss":
		useTLS = true
	default:
		return nil, &ConnectionError{Err: fmt.Errorf("unsupported websocket scheme %q", u.Scheme)}
	}
	host = u.Host
	if u.Port() == "" {
		if useTLS {
			host = net.JoinHostPort(u.Hostname(), "443")
		} else {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	dialer := &net.Dialer{}
	if opts.HandshakeTimeout > 0 {
		dctx, cancel := context.WithTimeout(ctx, opts.HandshakeTimeout)
		defer cancel()
		ctx = dctx
	}

	var conn net.Conn
	if useTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: opts.TLSConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", host)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", host)
	}
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		conn.Close()
		return nil, &ConnectionError{Err: err}
	}
	key := base64.StdEncoding.EncodeToString(nonce)

	reqPath := u.RequestURI()
	if reqPath == "" {
		reqPath = "/"
	}
	req := "GET " + reqPath + " HTTP/1.1\r\n" +
		"Host: " + u.Host + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n"
	if opts.Credential != nil {
		req += opts.Credential.HeaderName + ": " + opts.Credential.HeaderValue + "\r\n"
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		return nil, &ConnectionError{Err: err}
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: "GET"})
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("reading handshake response: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		conn.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("handshake rejected: status %d", resp.StatusCode)}
	}

	wantAccept := computeAccept(key)
	gotAccept := resp.Header.Get("Sec-WebSocket-Accept")
	if gotAccept != wantAccept {
		conn.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("Sec-WebSocket-Accept mismatch: got %q want %q", gotAccept, wantAccept)}
	}

	return &WebSocketTransport{conn: conn, br: br}, nil
}

func computeAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(websocketAcceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Send encodes env and writes it as a single (unfragmented) text frame.
func (t *WebSocketTransport) Send(ctx context.Context, env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := writeFrame(t.conn, opText, data); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Receive reassembles fragments by FIN bit, answers pings with a pong
// carrying the identical payload, drops pongs and binary frames, and
// treats a close frame as end-of-stream (sticky: markClosed records it,
// so every subsequent Receive returns ErrEndOfStream too).
func (t *WebSocketTransport) Receive(ctx context.Context) (protocol.Envelope, error) {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil, ErrEndOfStream
	}
	t.closeMu.Unlock()

	var assembled []byte
	ignoring := false // current fragmented message started as binary; drained but never decoded
	for {
		opcode, fin, payload, err := readFrame(t.br)
		if err != nil {
			t.markClosed()
			return nil, ErrEndOfStream
		}

		switch opcode {
		case opText:
			assembled = payload
			ignoring = false
		case opBinary:
			// spec: binary is ignored (tools do not use it). Still drain
			// any continuation frames belonging to it before resuming.
			assembled = nil
			ignoring = true
		case opContinuation:
			if !ignoring {
				assembled = append(assembled, payload...)
			}
		case opPing:
			t.writeMu.Lock()
			_ = writeFrame(t.conn, opPong, payload)
			t.writeMu.Unlock()
			continue
		case opPong:
			continue
		case opClose:
			t.markClosed()
			return nil, ErrEndOfStream
		default:
			return nil, &ProtocolViolationError{Reason: fmt.Sprintf("unknown opcode %#x", opcode)}
		}

		if fin {
			if ignoring {
				ignoring = false
				assembled = nil
				continue
			}
			if opcode == opContinuation && assembled == nil {
				return nil, &ProtocolViolationError{Reason: "continuation frame with no preceding fragment"}
			}
			return protocol.Decode(assembled)
		}
	}
}

func (t *WebSocketTransport) markClosed() {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()
}

// Close sends a close frame (best-effort) and tears down the socket.
func (t *WebSocketTransport) Close() error {
	t.closeMu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	t.closeMu.Unlock()

	if !alreadyClosed {
		t.writeMu.Lock()
		_ = writeFrame(t.conn, opClose, nil)
		t.writeMu.Unlock()
	}
	return t.conn.Close()
}
