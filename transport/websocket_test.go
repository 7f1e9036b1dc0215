package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/mhpenta/mcpcore/protocol"
)

// newPipedTransport wires a WebSocketTransport to one end of an in-memory
// net.Pipe, with the other end left as a raw net.Conn for the test to
// play the peer, bypassing DialWebSocket's HTTP handshake entirely.
func newPipedTransport(t *testing.T) (*WebSocketTransport, net.Conn) {
	t.Helper()
	client, peer := net.Pipe()
	tr := &WebSocketTransport{conn: client, br: bufio.NewReader(client)}
	return tr, peer
}

func TestWebSocketReceiveDecodesTextFrame(t *testing.T) {
	tr, peer := newPipedTransport(t)
	defer tr.Close()

	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	go writeFrame(peer, opText, msg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	req, ok := env.(*protocol.Request)
	if !ok || req.Method != "ping" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestWebSocketReceiveAnswersPingWithPong(t *testing.T) {
	tr, peer := newPipedTransport(t)
	defer tr.Close()

	pingPayload := []byte("are you there")
	go func() {
		writeFrame(peer, opPing, pingPayload)
		writeFrame(peer, opText, []byte(`{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}`))
	}()

	done := make(chan struct{})
	var pongOpcode byte
	var pongPayload []byte
	go func() {
		pongOpcode, _, pongPayload, _ = readFrame(peer)
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if _, ok := env.(*protocol.Notification); !ok {
		t.Fatalf("expected notification after ping/pong exchange, got %T", env)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pong")
	}
	if pongOpcode != opPong {
		t.Fatalf("expected pong opcode, got %#x", pongOpcode)
	}
	if string(pongPayload) != string(pingPayload) {
		t.Fatalf("pong payload mismatch: got %q want %q", pongPayload, pingPayload)
	}
}

func TestWebSocketReceiveIgnoresBinaryFrame(t *testing.T) {
	tr, peer := newPipedTransport(t)
	defer tr.Close()

	msg := []byte(`{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}`)
	go func() {
		writeFrame(peer, opBinary, []byte{0xDE, 0xAD, 0xBE, 0xEF})
		writeFrame(peer, opText, msg)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if _, ok := env.(*protocol.Notification); !ok {
		t.Fatalf("expected the binary frame to be skipped and the following text frame decoded, got %T", env)
	}
}

func TestWebSocketReceiveTreatsCloseAsEndOfStreamSticky(t *testing.T) {
	tr, peer := newPipedTransport(t)
	defer tr.Close()

	go writeFrame(peer, opClose, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := tr.Receive(ctx); err != ErrEndOfStream {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
	if _, err := tr.Receive(ctx); err != ErrEndOfStream {
		t.Fatalf("expected sticky ErrEndOfStream on second call, got %v", err)
	}
}

func TestWebSocketSendWritesMaskedTextFrame(t *testing.T) {
	tr, peer := newPipedTransport(t)
	defer tr.Close()

	req := &protocol.Request{ID: protocol.NumberID(7), Method: "tools/list"}
	go func() {
		_ = tr.Send(context.Background(), req)
	}()

	opcode, fin, payload, err := readFrame(peer)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !fin || opcode != opText {
		t.Fatalf("unexpected frame: fin=%v opcode=%#x", fin, opcode)
	}
	decoded, err := protocol.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := decoded.(*protocol.Request); got.Method != "tools/list" || !got.ID.Equal(req.ID) {
		t.Fatalf("unexpected decoded request: %+v", got)
	}
}
