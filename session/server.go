package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mhpenta/mcpcore/guard"
	"github.com/mhpenta/mcpcore/protocol"
	"github.com/mhpenta/mcpcore/schema"
	"github.com/mhpenta/mcpcore/tools"
	"github.com/mhpenta/mcpcore/transport"
)

// ServerConfig configures a Server session.
type ServerConfig struct {
	Name     string
	Version  string
	Registry *tools.Registry
	Guard    *guard.Guard // optional; nil means handlers run unguarded
	FSRoot   string
	Logger   *slog.Logger
}

// Server is the Server-role half of a session: it reads requests and
// notifications off a transport, dispatches them against a tool
// registry, and writes back responses.
type Server struct {
	base

	name     string
	version  string
	registry *tools.Registry
	guard    *guard.Guard
	fsRoot   string
	logger   *slog.Logger

	clientInfo   Implementation
	clientParams InitializeParams
}

// NewServer builds a Server bound to tr. The session starts in NEW and
// transitions on the first initialize request it receives.
func NewServer(tr transport.Transport, cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = tools.NewRegistry()
	}
	return &Server{
		base:     newBase(tr),
		name:     cfg.Name,
		version:  cfg.Version,
		registry: cfg.Registry,
		guard:    cfg.Guard,
		fsRoot:   cfg.FSRoot,
		logger:   cfg.Logger,
	}
}

// NotifyToolsChanged emits notifications/tools/list_changed to the
// peer. Call it after mutating the registry post-handshake; the
// dispatch loop itself never calls this, since registry mutation is a
// host-driven action outside of message handling. Outside READY the
// notification is dropped and nil is returned.
func (s *Server) NotifyToolsChanged(ctx context.Context) error {
	if s.State() != StateReady {
		return nil
	}
	return s.transport.Send(ctx, &protocol.Notification{Method: NotificationToolsListChanged})
}

// Run drives the receive-dispatch loop until the transport ends or ctx
// is cancelled. It returns transport.ErrEndOfStream on a clean peer
// close, or ctx.Err() on cancellation. A decode failure on an otherwise
// healthy stream (*protocol.ParseError, *protocol.InvalidRequestError)
// is local to that one message: it gets the matching -32700/-32600
// error Response and the loop continues, per the Transport.Receive
// contract.
func (s *Server) Run(ctx context.Context) error {
	for {
		env, err := s.transport.Receive(ctx)
		if err != nil {
			if handled := s.handleReceiveError(ctx, err); handled {
				continue
			}
			s.setState(StateClosed)
			return err
		}
		if err := s.dispatch(ctx, env); err != nil {
			s.logger.Error("session: dispatch failed", "error", err)
		}
	}
}

// handleReceiveError classifies a Receive error. Decode failures are
// answered with the matching JSON-RPC error response and reported as
// handled so Run keeps looping; anything else (transport.ErrEndOfStream,
// a transport.ConnectionError, ctx cancellation) is unhandled and closes
// the session.
func (s *Server) handleReceiveError(ctx context.Context, err error) bool {
	var parseErr *protocol.ParseError
	if errors.As(err, &parseErr) {
		s.logger.Warn("session: dropping unparseable message", "error", parseErr)
		if sendErr := s.reply(ctx, protocol.NullID(), nil, protocol.NewError(protocol.CodeParseError, "Parse error", nil)); sendErr != nil {
			s.logger.Error("session: failed to send parse error response", "error", sendErr)
		}
		return true
	}

	var invalidErr *protocol.InvalidRequestError
	if errors.As(err, &invalidErr) {
		s.logger.Warn("session: dropping invalid request", "error", invalidErr)
		id := protocol.NullID()
		if invalidErr.ID != nil {
			id = *invalidErr.ID
		}
		if sendErr := s.reply(ctx, id, nil, protocol.NewError(protocol.CodeInvalidRequest, "invalid request", invalidErr.Reason)); sendErr != nil {
			s.logger.Error("session: failed to send invalid request response", "error", sendErr)
		}
		return true
	}

	return false
}

func (s *Server) dispatch(ctx context.Context, env protocol.Envelope) error {
	switch msg := env.(type) {
	case *protocol.Request:
		return s.dispatchRequest(ctx, msg)
	case *protocol.Notification:
		s.logger.Info("session: received notification", "method", msg.Method)
		return nil
	case *protocol.Response:
		// A server doesn't originate requests in the base contract, but
		// accept a stray correlated response rather than treat it as a
		// protocol violation.
		s.complete(msg)
		return nil
	default:
		return fmt.Errorf("session: unrecognized envelope type %T", env)
	}
}

func (s *Server) dispatchRequest(ctx context.Context, req *protocol.Request) error {
	state := s.State()

	if req.Method == "initialize" {
		return s.handleInitialize(ctx, req)
	}

	if state != StateReady {
		return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidRequest,
			fmt.Sprintf("method %q is not valid before the handshake completes", req.Method), nil))
	}

	switch req.Method {
	case "tools/list":
		return s.handleToolsList(ctx, req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method), nil))
	}
}

func (s *Server) handleInitialize(ctx context.Context, req *protocol.Request) error {
	state := s.State()
	if state != StateNew {
		return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidRequest,
			"initialize has already been processed for this session", nil))
	}
	s.setState(StateInitializing)

	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidParams,
				"invalid initialize parameters", err.Error()))
		}
	}
	s.clientParams = params
	s.clientInfo = params.ClientInfo

	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capabilities{
			Tools: &ToolsCapability{ListChanged: true},
		},
		ServerInfo: Implementation{Name: s.name, Version: s.version},
	}
	s.logger.Info("session: client connected", "client", params.ClientInfo.Name, "version", params.ClientInfo.Version)
	s.setState(StateReady)
	return s.replyResult(ctx, req.ID, result)
}

func (s *Server) handleToolsList(ctx context.Context, req *protocol.Request) error {
	list := s.registry.List()
	descriptors := make([]ToolDescriptor, 0, len(list))
	for _, t := range list {
		spec := t.Spec()
		descriptors = append(descriptors, ToolDescriptor{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: normalizeSchema(spec.Parameters),
		})
	}
	return s.replyResult(ctx, req.ID, ToolsListResult{Tools: descriptors})
}

// normalizeSchema ensures "required" is always an array rather than
// absent or null, since some clients reject a missing value there.
func normalizeSchema(sch map[string]any) map[string]any {
	if sch == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(sch))
	for k, v := range sch {
		out[k] = v
	}
	if req, ok := out["required"]; !ok || req == nil {
		out["required"] = []string{}
	}
	return out
}

func (s *Server) handleToolsCall(ctx context.Context, req *protocol.Request) error {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidParams,
			"invalid tools/call parameters", err.Error()))
	}

	tool, ok := s.registry.Lookup(params.Name)
	if !ok {
		return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidTool,
			fmt.Sprintf("tool not found: %s", params.Name), nil))
	}

	if sch := tool.Spec().Parameters; sch != nil && len(params.Arguments) > 0 {
		var argVal any
		if err := json.Unmarshal(params.Arguments, &argVal); err != nil {
			return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidParams,
				"arguments are not valid JSON", err.Error()))
		}
		if errs := schema.Validate(any(sch), argVal); len(errs) > 0 {
			return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeInvalidParams,
				"arguments do not conform to the tool's input schema", errs))
		}
	}

	tc := ToolContext{RequestID: req.ID, Guard: s.guard, FSRoot: s.fsRoot}
	handlerCtx := WithToolContext(ctx, tc)

	result, err := tool.Execute(handlerCtx, params.Arguments)
	if err != nil {
		s.logger.Error("session: tool execution failed", "tool", params.Name, "error", err)

		var toolErr *tools.Error
		if errors.As(err, &toolErr) && toolErr.Code >= -32768 && toolErr.Code <= -32000 {
			return s.reply(ctx, req.ID, nil, protocol.NewError(int32(toolErr.Code), toolErr.Message, toolErr.Data))
		}
		return s.reply(ctx, req.ID, nil, protocol.NewError(protocol.CodeToolExecution, err.Error(), nil))
	}

	return s.replyResult(ctx, req.ID, result)
}

func (s *Server) replyResult(ctx context.Context, id protocol.RequestId, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return s.reply(ctx, id, nil, protocol.NewError(protocol.CodeInternalError, "failed to serialize result", err.Error()))
	}
	return s.transport.Send(ctx, &protocol.Response{ID: id, Result: data})
}

func (s *Server) reply(ctx context.Context, id protocol.RequestId, result json.RawMessage, rpcErr *protocol.JsonRpcError) error {
	return s.transport.Send(ctx, &protocol.Response{ID: id, Result: result, Error: rpcErr})
}
