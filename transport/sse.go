package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/mhpenta/mcpcore/protocol"
)

// HTTPSSETransport sends envelopes as JSON bodies POSTed to /rpc and
// receives them as Server-Sent Events streamed from a GET /events
// connection held open for the transport's lifetime.
type HTTPSSETransport struct {
	client   *http.Client
	rpcURL   string
	eventsURL string
	credential *Credential

	cancel context.CancelFunc
	events chan protocol.Envelope
	errs   chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// HTTPSSEDialOptions configures DialHTTPSSE.
type HTTPSSEDialOptions struct {
	Credential *Credential
	Client     *http.Client
}

// DialHTTPSSE opens the long-lived GET /events SSE stream against
// baseURL and returns a transport ready to Send (POST /rpc) and Receive
// (decoded SSE events).
func DialHTTPSSE(ctx context.Context, baseURL string, opts HTTPSSEDialOptions) (*HTTPSSETransport, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("invalid base url: %w", err)}
	}

	httpClient := opts.Client
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	streamCtx, cancel := context.WithCancel(ctx)

	eventsURL := base.ResolveReference(&url.URL{Path: joinPath(base.Path, "events")}).String()
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, eventsURL, nil)
	if err != nil {
		cancel()
		return nil, &ConnectionError{Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	if opts.Credential != nil {
		req.Header.Set(opts.Credential.HeaderName, opts.Credential.HeaderValue)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, &ConnectionError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &ConnectionError{Err: fmt.Errorf("GET /events: unexpected status %d", resp.StatusCode)}
	}

	t := &HTTPSSETransport{
		client:     httpClient,
		rpcURL:     base.ResolveReference(&url.URL{Path: joinPath(base.Path, "rpc")}).String(),
		eventsURL:  eventsURL,
		credential: opts.Credential,
		cancel:     cancel,
		events:     make(chan protocol.Envelope),
		errs:       make(chan error, 1),
		closed:     make(chan struct{}),
	}
	go t.pump(resp.Body)
	return t, nil
}

func joinPath(base, leaf string) string {
	return strings.TrimRight(base, "/") + "/" + leaf
}

// pump parses the SSE stream: consecutive "data: ..." lines are joined
// with '\n' per the SSE spec, and a blank line terminates one event.
// Lines with any other field name (event:, id:, retry:, comments
// starting with ':') are ignored — this transport only speaks data-only
// events carrying one JSON-RPC envelope each.
func (t *HTTPSSETransport) pump(body io.ReadCloser) {
	defer body.Close()
	defer close(t.events)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var dataLines []string
	flush := func() {
		if len(dataLines) == 0 {
			return
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = nil
		env, err := protocol.Decode([]byte(payload))
		if err != nil {
			select {
			case t.errs <- err:
			case <-t.closed:
			}
			return
		}
		select {
		case t.events <- env:
		case <-t.closed:
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(line, "data:")
			data = strings.TrimPrefix(data, " ")
			dataLines = append(dataLines, data)
		default:
			// event:, id:, retry:, or a ":"-prefixed comment — ignored.
		}
	}
	flush()
}

// Send POSTs env as a JSON body to /rpc.
func (t *HTTPSSETransport) Send(ctx context.Context, env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.rpcURL, bytes.NewReader(data))
	if err != nil {
		return &ConnectionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if t.credential != nil {
		req.Header.Set(t.credential.HeaderName, t.credential.HeaderValue)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &ConnectionError{Err: fmt.Errorf("POST /rpc: unexpected status %d", resp.StatusCode)}
	}
	return nil
}

// Receive returns the next envelope parsed off the SSE stream, or
// ErrEndOfStream once the stream closes (sticky thereafter).
func (t *HTTPSSETransport) Receive(ctx context.Context) (protocol.Envelope, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-t.errs:
		return nil, err
	case env, ok := <-t.events:
		if !ok {
			return nil, ErrEndOfStream
		}
		return env, nil
	}
}

// Close cancels the streaming GET and releases its connection.
func (t *HTTPSSETransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.cancel()
	})
	return nil
}
