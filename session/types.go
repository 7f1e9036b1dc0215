package session

import "encoding/json"

// ProtocolVersion is the only MCP protocol version this implementation
// speaks, exchanged verbatim during initialize.
const ProtocolVersion = "2024-11-05"

// Implementation identifies either end of a handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability advertises whether the tool list can change after
// initialize (it always can here: registries are mutable for the life
// of a Server).
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// Capabilities is the subset of MCP capability negotiation this
// implementation understands: tool listing only. Resources are
// explicitly out of scope and always reported absent.
type Capabilities struct {
	Tools     *ToolsCapability `json:"tools,omitempty"`
	Resources json.RawMessage  `json:"resources,omitempty"`
}

// InitializeParams is the payload of an initialize Request.
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      Implementation  `json:"clientInfo"`
}

// InitializeResult is the payload of the Response answering initialize.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
}

// ToolDescriptor is the wire shape of one entry in a tools/list result.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolsListResult is the payload of the Response answering tools/list.
type ToolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// ToolsCallParams is the payload of a tools/call Request.
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NotificationToolsListChanged is the method name of the notification a
// Server emits whenever its tool registry changes after the handshake.
const NotificationToolsListChanged = "notifications/tools/list_changed"
