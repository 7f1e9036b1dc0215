package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mhpenta/mcpcore/protocol"
)

// SessionIDHeader correlates a POST /rpc call with the GET /events
// stream it should be answered on. A listener issues one when a client
// opens /events; the client echoes it back on every subsequent /rpc
// call.
const SessionIDHeader = "Mcp-Session-Id"

// HTTPSSEListener accepts inbound MCP connections over HTTP: a
// long-lived GET /events per client session, paired with POST /rpc
// calls carrying outbound-to-server envelopes, plus a GET /health
// endpoint for liveness checks.
type HTTPSSEListener struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	validator      APIKeyValidator
	authHeaderType AuthHeaderType
	onSession      func(id string, tr Transport)

	mu       sync.Mutex
	sessions map[string]*httpSSESession
}

// NewHTTPSSEListener builds a listener. onSession is invoked once per
// newly accepted /events connection, on its own goroutine, with a
// Transport the caller should hand to a session.Server — typically by
// calling (*session.Server).Run(ctx) where ctx is cancelled when the
// HTTP request context ends.
func NewHTTPSSEListener(logger *slog.Logger, validator APIKeyValidator, onSession func(id string, tr Transport)) *HTTPSSEListener {
	if logger == nil {
		logger = slog.Default()
	}
	l := &HTTPSSEListener{
		mux:            http.NewServeMux(),
		logger:         logger,
		validator:      validator,
		authHeaderType: AuthHeaderBearer,
		onSession:      onSession,
		sessions:       make(map[string]*httpSSESession),
	}
	l.mux.HandleFunc("/events", l.authMiddleware(l.handleEvents))
	l.mux.HandleFunc("/rpc", l.authMiddleware(l.handleRPC))
	l.mux.HandleFunc("/health", l.handleHealth)
	return l
}

// WithAuthHeaderType selects which header carries the client credential.
func (l *HTTPSSEListener) WithAuthHeaderType(t AuthHeaderType) *HTTPSSEListener {
	l.authHeaderType = t
	return l
}

func (l *HTTPSSEListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mux.ServeHTTP(w, r)
}

func (l *HTTPSSEListener) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if l.validator == nil {
			next(w, r)
			return
		}
		var key string
		switch l.authHeaderType {
		case AuthHeaderAPIKey:
			key = r.Header.Get("X-API-Key")
		default:
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if !l.validator.Validate(r.Context(), key) {
			l.logger.Warn("httpsse: rejected unauthenticated request", "path", r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (l *HTTPSSEListener) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "healthy",
	})
}

func (l *HTTPSSEListener) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	sess := &httpSSESession{
		w:        w,
		flusher:  flusher,
		incoming: make(chan httpSSEItem, 16),
		closed:   make(chan struct{}),
	}

	l.mu.Lock()
	l.sessions[id] = sess
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.sessions, id)
		l.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(SessionIDHeader, id)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if l.onSession != nil {
		go l.onSession(id, sess)
	}

	<-r.Context().Done()
	sess.Close()
}

func (l *HTTPSSEListener) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.Header.Get(SessionIDHeader)
	l.mu.Lock()
	sess, ok := l.sessions[id]
	l.mu.Unlock()
	if !ok {
		http.Error(w, fmt.Sprintf("unknown session %q", id), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// A batch request is a JSON array of envelopes; a single request is
	// a bare object. Each member decodes and enqueues independently, and
	// a decode failure is handed to the session exactly like any other
	// Transport's Receive would, rather than dropped, so the session can
	// answer with the -32700/-32600 error response it owes the peer.
	var rawMessages []json.RawMessage
	if err := json.Unmarshal(body, &rawMessages); err != nil {
		rawMessages = []json.RawMessage{body}
	}

	for _, raw := range rawMessages {
		env, decodeErr := protocol.Decode(raw)
		item := httpSSEItem{env: env, err: decodeErr}
		select {
		case sess.incoming <- item:
		case <-time.After(5 * time.Second):
			l.logger.Error("httpsse: session incoming queue full, dropping message", "session", id)
		}
	}

	w.WriteHeader(http.StatusAccepted)
}

// httpSSEItem is one decoded (or failed-to-decode) message POSTed to
// /rpc, queued for a session's Receive to pick up.
type httpSSEItem struct {
	env protocol.Envelope
	err error
}

// httpSSESession is the server-accepted half of an HTTP+SSE connection:
// Send streams an SSE event, Receive drains envelopes POSTed to /rpc
// under this session's id.
type httpSSESession struct {
	w       http.ResponseWriter
	flusher http.Flusher
	writeMu sync.Mutex

	incoming chan httpSSEItem

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *httpSSESession) Send(ctx context.Context, env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return &ConnectionError{Err: err}
	}
	s.flusher.Flush()
	return nil
}

func (s *httpSSESession) Receive(ctx context.Context) (protocol.Envelope, error) {
	select {
	case item := <-s.incoming:
		return item.env, item.err
	case <-s.closed:
		return nil, ErrEndOfStream
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *httpSSESession) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
