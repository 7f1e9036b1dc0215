package session

import (
	"context"

	"github.com/mhpenta/mcpcore/guard"
	"github.com/mhpenta/mcpcore/protocol"
)

// ToolContext carries the per-invocation state a tool handler may need
// beyond its decoded arguments: which request it is answering, the
// security guard it must consult before any side-effectful operation,
// and the filesystem root the host has scoped it to.
type ToolContext struct {
	RequestID protocol.RequestId
	Guard     *guard.Guard
	FSRoot    string
}

type toolContextKey struct{}

// WithToolContext attaches tc to ctx for a handler to retrieve via
// ToolContextFromContext.
func WithToolContext(ctx context.Context, tc ToolContext) context.Context {
	return context.WithValue(ctx, toolContextKey{}, tc)
}

// ToolContextFromContext recovers the ToolContext a Server attached
// before invoking a handler. Returns false outside of a tools/call
// dispatch.
func ToolContextFromContext(ctx context.Context) (ToolContext, bool) {
	tc, ok := ctx.Value(toolContextKey{}).(ToolContext)
	return tc, ok
}
