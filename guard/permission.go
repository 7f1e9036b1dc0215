// Package guard implements the MCP Security Guard: a permission lattice
// that lets a host allow, deny, or require interactive consent for the
// side-effectful operations a tool handler attempts, plus an append-only
// audit trail of every decision made.
package guard

import "time"

// Kind enumerates the permission categories a tool handler can request.
type Kind string

const (
	KindFileRead       Kind = "file_read"
	KindFileWrite      Kind = "file_write"
	KindFileExecute    Kind = "file_execute"
	KindNetworkHTTP    Kind = "network_http"
	KindNetworkWS      Kind = "network_websocket"
	KindProcessSpawn   Kind = "process_spawn"
	KindEnvRead        Kind = "env_read"
	KindEnvWrite       Kind = "env_write"
	KindSystemInfoRead Kind = "system_info_read"
)

// Permission is an immutable record of one requested capability.
type Permission struct {
	Kind          Kind
	Resource      string // path, URL, or command — whatever Kind scopes to
	Justification string
	ToolName      string
}

// Decision is the outcome the policy lattice, an overlay, or a consent
// callback assigns to a Permission.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// AuditEntry records one Require call's final outcome. The log is
// append-only within a session; a host may retrieve or clear it but
// entries themselves are never mutated.
type AuditEntry struct {
	Timestamp time.Time
	Kind      Kind
	Resource  string
	ToolName  string
	Decision  Decision
	Granted   bool
}
