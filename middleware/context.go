package middleware

import (
	"context"

	"github.com/dsz/skyfleet/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the resolved caller identity
	IdentityKey contextKey = "identity"
)

// Identity headers forwarded by the gate. Inbound values are always discarded.
const (
	HeaderUserID      = "x-user-id"
	HeaderUserEmail   = "x-user-email"
	HeaderUserRole    = "x-user-role"
	HeaderUserPilotID = "x-user-pilot-id"
)

// identityHeaders lists every header the gate owns
var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRole, HeaderUserPilotID}

// GetIdentityFromContext retrieves the identity resolved earlier in this request
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if id, ok := val.(*models.Identity); ok {
			return id
		}
	}
	return nil
}

// WithIdentity adds the resolved identity to the context
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
