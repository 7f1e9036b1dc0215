package session

import (
	"context"
	"sync"

	"github.com/mhpenta/mcpcore/protocol"
	"github.com/mhpenta/mcpcore/transport"
)

// chanTransport is an in-process Transport implementation backed by Go
// channels, used to wire a Server and Client together without any real
// network or stdio framing.
type chanTransport struct {
	out chan protocol.Envelope
	in  chan protocol.Envelope

	closeOnce sync.Once
	closed    chan struct{}
}

// newChanPipe returns two chanTransports wired to each other: a's Send
// feeds b's Receive, and vice versa.
func newChanPipe() (a, b *chanTransport) {
	ab := make(chan protocol.Envelope, 16)
	ba := make(chan protocol.Envelope, 16)
	a = &chanTransport{out: ab, in: ba, closed: make(chan struct{})}
	b = &chanTransport{out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

func (t *chanTransport) Send(ctx context.Context, env protocol.Envelope) error {
	select {
	case t.out <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *chanTransport) Receive(ctx context.Context) (protocol.Envelope, error) {
	select {
	case env, ok := <-t.in:
		if !ok {
			return nil, transport.ErrEndOfStream
		}
		return env, nil
	case <-t.closed:
		return nil, transport.ErrEndOfStream
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *chanTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}
