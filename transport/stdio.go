package transport

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/mhpenta/mcpcore/protocol"
)

// maxLineSize bounds a single newline-delimited envelope. 10MB matches
// the ceiling the teacher's stdio transport used for large tool payloads.
const maxLineSize = 10 * 1024 * 1024

// StdioTransport frames one envelope per line, newline-terminated, with
// no embedded bare newlines (JSON strings escape them). Reads happen on
// a background goroutine so Receive can be cancelled via ctx without
// blocking forever on a scanner that never sees another line.
type StdioTransport struct {
	writer  io.Writer
	writeMu sync.Mutex

	lines chan []byte
	errs  chan error
}

// NewStdio wraps r/w as a stdio transport. Pass os.Stdin/os.Stdout for a
// real process; tests pass in-memory buffers.
func NewStdio(r io.Reader, w io.Writer) *StdioTransport {
	t := &StdioTransport{
		writer: w,
		lines:  make(chan []byte),
		errs:   make(chan error, 1),
	}
	go t.pump(r)
	return t
}

func (t *StdioTransport) pump(r io.Reader) {
	defer close(t.lines)
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		t.lines <- line
	}
	if err := scanner.Err(); err != nil {
		t.errs <- err
	}
}

// Send writes one envelope followed by exactly one '\n', holding a mutex
// so concurrent callers never interleave partial writes.
func (t *StdioTransport) Send(ctx context.Context, env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(data); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Receive returns the next decoded envelope, ErrEndOfStream once the
// underlying reader is exhausted (sticky thereafter, since the channel
// stays closed), or the local decode error for a malformed line.
func (t *StdioTransport) Receive(ctx context.Context) (protocol.Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-t.lines:
			if !ok {
				select {
				case err := <-t.errs:
					return nil, &ConnectionError{Err: err}
				default:
					return nil, ErrEndOfStream
				}
			}
			if len(line) == 0 {
				continue
			}
			return protocol.Decode(line)
		}
	}
}

// Close is a no-op: stdio's lifetime is the owning process's, not the
// transport's to tear down.
func (t *StdioTransport) Close() error { return nil }
