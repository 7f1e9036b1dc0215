package guard

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPermissionDenied is returned by Require when the final decision is
// deny.
var ErrPermissionDenied = errors.New("guard: permission denied")

// ErrConsentRequired is returned by Require when the final decision is
// ask but no consent callback is configured to resolve it.
var ErrConsentRequired = errors.New("guard: consent required but no callback configured")

// PermissionError wraps ErrPermissionDenied or ErrConsentRequired with
// the specific permission that triggered it.
type PermissionError struct {
	Permission Permission
	Err        error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("guard: %s for %s %q: %v", e.Permission.ToolName, e.Permission.Kind, e.Permission.Resource, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// ConsentCallback resolves an `ask` decision interactively (or via
// whatever host-specific policy the embedder wires in). It must return
// one of DecisionAllow or DecisionDeny — returning DecisionAsk again
// leaves the permission ungranted: the audit entry records ask and
// Require fails with ErrConsentRequired.
type ConsentCallback func(Permission) Decision

// Guard enforces a Policy over the permission kinds a tool handler
// requests, consulting an optional ConsentCallback for ambiguous cases
// and recording every decision to an append-only audit log.
type Guard struct {
	policy   Policy
	consent  ConsentCallback
	now      func() time.Time
	mu       sync.Mutex
	auditLog []AuditEntry
}

// New builds a Guard enforcing policy. consent may be nil, in which
// case an `ask` decision always fails with ErrConsentRequired.
func New(policy Policy, consent ConsentCallback) *Guard {
	return &Guard{policy: policy, consent: consent, now: time.Now}
}

// Require resolves perm against the policy (and consent callback, if
// the policy says `ask`), appends an audit entry recording the final
// decision, and returns nil if granted or a *PermissionError otherwise.
func (g *Guard) Require(perm Permission) error {
	decision := g.policy.decide(perm.Kind)
	if decision == DecisionAsk && g.consent != nil {
		decision = g.consent(perm)
	}

	granted := decision == DecisionAllow
	g.audit(perm, decision, granted)

	if granted {
		return nil
	}
	if decision == DecisionAsk {
		return &PermissionError{Permission: perm, Err: ErrConsentRequired}
	}
	return &PermissionError{Permission: perm, Err: ErrPermissionDenied}
}

func (g *Guard) audit(perm Permission, decision Decision, granted bool) {
	entry := AuditEntry{
		Timestamp: g.now(),
		Kind:      perm.Kind,
		Resource:  perm.Resource,
		ToolName:  perm.ToolName,
		Decision:  decision,
		Granted:   granted,
	}
	g.mu.Lock()
	g.auditLog = append(g.auditLog, entry)
	g.mu.Unlock()
}

// AuditLog returns a snapshot of every audit entry recorded so far.
func (g *Guard) AuditLog() []AuditEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]AuditEntry, len(g.auditLog))
	copy(out, g.auditLog)
	return out
}

// ClearAuditLog discards every recorded entry.
func (g *Guard) ClearAuditLog() {
	g.mu.Lock()
	g.auditLog = nil
	g.mu.Unlock()
}
