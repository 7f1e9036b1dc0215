package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhpenta/mcpcore/protocol"
	"github.com/mhpenta/mcpcore/tools"
	"github.com/mhpenta/mcpcore/transport"
)

// ErrAlreadyInitialized is returned by Initialize when called outside
// of StateNew.
var ErrAlreadyInitialized = errors.New("session: already initialized")

// ToolCallFailedError wraps the error slot of a tools/call Response.
type ToolCallFailedError struct {
	Code    int32
	Message string
}

func (e *ToolCallFailedError) Error() string {
	return fmt.Sprintf("session: tool call failed (%d): %s", e.Code, e.Message)
}

// ClientConfig configures a Client session.
type ClientConfig struct {
	Name    string
	Version string
	Logger  *slog.Logger
}

// Client is the Client-role half of a session: it sends requests,
// correlates responses by id, and dispatches unsolicited notifications
// it receives while waiting.
type Client struct {
	base

	name    string
	version string
	logger  *slog.Logger

	serverCapabilities Capabilities
	serverInfo         Implementation
}

// NewClient builds a Client bound to tr. Run must be started
// concurrently with any of Initialize/ListTools/Invoke so inbound
// responses are actually read off the transport.
func NewClient(tr transport.Transport, cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{base: newBase(tr), name: cfg.Name, version: cfg.Version, logger: cfg.Logger}
}

// Run reads envelopes off the transport and routes Responses to their
// waiting caller until the transport ends or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		env, err := c.transport.Receive(ctx)
		if err != nil {
			c.setState(StateClosed)
			return err
		}
		switch msg := env.(type) {
		case *protocol.Response:
			if !c.complete(msg) {
				c.logger.Warn("session: response for unknown request id dropped", "id", msg.ID.String())
			}
		case *protocol.Notification:
			c.logger.Info("session: received notification", "method", msg.Method)
		case *protocol.Request:
			c.logger.Warn("session: client received unexpected request", "method", msg.Method)
		}
	}
}

// Initialize sends the initialize request and awaits the matching
// response. Valid only in NEW.
func (c *Client) Initialize(ctx context.Context) error {
	if c.State() != StateNew {
		return ErrAlreadyInitialized
	}
	c.setState(StateInitializing)

	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      Implementation{Name: c.name, Version: c.version},
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return err
	}

	resp, err := c.call(ctx, "initialize", paramsJSON)
	if err != nil {
		c.setState(StateClosed)
		return err
	}
	if resp.Error != nil {
		c.setState(StateClosed)
		return &ToolCallFailedError{Code: resp.Error.Code, Message: resp.Error.Message}
	}

	var result InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		c.setState(StateClosed)
		return fmt.Errorf("session: decoding initialize result: %w", err)
	}
	c.serverCapabilities = result.Capabilities
	c.serverInfo = result.ServerInfo
	c.setState(StateReady)
	return nil
}

// ServerInfo returns the server identity learned during Initialize.
func (c *Client) ServerInfo() Implementation { return c.serverInfo }

// ListTools sends tools/list and decodes the resulting descriptors.
// Valid only in READY.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if c.State() != StateReady {
		return nil, &InvalidStateError{Operation: "tools/list", Current: c.State()}
	}
	resp, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &ToolCallFailedError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	var result ToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("session: decoding tools/list result: %w", err)
	}
	return result.Tools, nil
}

// ToolCall is the input to Invoke.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// Invoke sends tools/call and decodes the resulting ToolResult. Valid
// only in READY.
func (c *Client) Invoke(ctx context.Context, call ToolCall) (*tools.ToolResult, error) {
	if c.State() != StateReady {
		return nil, &InvalidStateError{Operation: "tools/call", Current: c.State()}
	}
	params := ToolsCallParams{Name: call.Name, Arguments: call.Arguments}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, "tools/call", paramsJSON)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &ToolCallFailedError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	var result tools.ToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("session: decoding tools/call result: %w", err)
	}
	return &result, nil
}

// InvokeWithTimeout is Invoke raced against a timer: it bounds how long
// the caller waits for a slow or unresponsive tool without affecting the
// session itself. Expiry cancels the pending-outbound wait the same way
// a caller-supplied ctx cancellation would (call unregisters the waiter
// on ctx.Err(), so a late response is dropped as an unknown id rather
// than delivered to a caller that already gave up).
func (c *Client) InvokeWithTimeout(ctx context.Context, call ToolCall, d time.Duration) (*tools.ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return c.Invoke(ctx, call)
}

// call sends a request carrying a freshly allocated id, registers a
// waiter for it, and blocks until Run delivers the matching response or
// ctx is cancelled. On cancellation the pending entry is removed so a
// later arrival is dropped as an unknown id, matching the host-timeout
// contract described for InvokeWithTimeout.
func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (*protocol.Response, error) {
	id := c.nextID()
	waiter := c.register(id)

	if err := c.transport.Send(ctx, &protocol.Request{ID: id, Method: method, Params: params}); err != nil {
		c.unregister(id)
		return nil, err
	}

	select {
	case resp := <-waiter:
		return resp, nil
	case <-ctx.Done():
		c.unregister(id)
		return nil, ctx.Err()
	}
}
