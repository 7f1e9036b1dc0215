package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mhpenta/mcpcore/protocol"
)

func TestStdioSendFramesWithNewline(t *testing.T) {
	out := &bytes.Buffer{}
	tr := NewStdio(strings.NewReader(""), out)

	req := &protocol.Request{ID: protocol.NumberID(1), Method: "ping"}
	if err := tr.Send(context.Background(), req); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("expected newline-terminated output, got %q", out.String())
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Fatalf("expected exactly one newline, got %q", out.String())
	}
}

func TestStdioReceiveDecodesLine(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")
	tr := NewStdio(in, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	env, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	req, ok := env.(*protocol.Request)
	if !ok || req.Method != "initialize" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestStdioReceiveEndOfStreamIsSticky(t *testing.T) {
	in := strings.NewReader("")
	tr := NewStdio(in, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := tr.Receive(ctx)
		if err != ErrEndOfStream {
			t.Fatalf("call %d: expected ErrEndOfStream, got %v", i, err)
		}
	}
}

func TestStdioReceiveSkipsBlankLines(t *testing.T) {
	in := strings.NewReader("\n\n" + `{"jsonrpc":"2.0","method":"notifications/tools/list_changed"}` + "\n")
	tr := NewStdio(in, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	env, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if _, ok := env.(*protocol.Notification); !ok {
		t.Fatalf("expected *Notification, got %T", env)
	}
}

func TestStdioReceiveReturnsDecodeErrorWithoutClosing(t *testing.T) {
	in := strings.NewReader("not json\n" + `{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n")
	tr := NewStdio(in, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := tr.Receive(ctx); err == nil {
		t.Fatal("expected decode error on malformed first line")
	}

	env, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("transport should still be usable after a decode error: %v", err)
	}
	if req, ok := env.(*protocol.Request); !ok || req.Method != "ping" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestStdioConcurrentSendDoesNotInterleave(t *testing.T) {
	out := &bytes.Buffer{}
	tr := NewStdio(strings.NewReader(""), out)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			_ = tr.Send(context.Background(), &protocol.Request{ID: protocol.NumberID(int64(n)), Method: "ping"})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var m map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not valid JSON (interleaved write): %s", line)
		}
	}
}
