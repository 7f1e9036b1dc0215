package transport

import "context"

// APIKeyValidator validates a credential presented by an inbound
// HTTP+SSE connection before it is allowed to reach a session.
type APIKeyValidator interface {
	Validate(ctx context.Context, key string) bool
}

// AuthHeaderType selects which HTTP header an HTTPSSEListener reads the
// client's credential from.
type AuthHeaderType string

const (
	AuthHeaderBearer AuthHeaderType = "bearer"  // Authorization: Bearer <token>
	AuthHeaderAPIKey AuthHeaderType = "api-key" // X-API-Key: <token>
)

const devOnlyTestKey = "please-change-me-dev-key"

// DEVKeyValidator accepts exactly one hardcoded key. It exists for
// local development and examples; production listeners must supply
// their own APIKeyValidator backed by real credential storage.
type DEVKeyValidator struct{}

// NewDEVKeyValidator returns a validator that accepts only the
// hardcoded development key. Never use this outside local testing.
func NewDEVKeyValidator() *DEVKeyValidator { return &DEVKeyValidator{} }

func (v *DEVKeyValidator) Validate(ctx context.Context, key string) bool {
	return key == devOnlyTestKey
}
