package middleware

import (
	"errors"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/internal/observability"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/utils"
)

// Guard wraps route handlers with a role check. It trusts only an identity
// placed in the request context by the gate; otherwise it resolves the
// credential itself. Identity headers are never read.
type Guard struct {
	resolver   IdentitySource
	cookieName string
	logger     *zap.Logger
}

// NewGuard creates a new Guard
func NewGuard(resolver IdentitySource, cookieName string, logger *zap.Logger) *Guard {
	if cookieName == "" {
		cookieName = "session"
	}
	return &Guard{resolver: resolver, cookieName: cookieName, logger: logger}
}

// Require returns middleware admitting only identities that pass rule's
// role check. Ownership is left to the services, which see the resource.
func (g *Guard) Require(rule authz.Rule) func(http.Handler) http.Handler {
	action := string(rule.Action)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := chimw.GetReqID(ctx)

			identity := GetIdentityFromContext(ctx)
			if identity == nil {
				token := ExtractCredential(r, g.cookieName)
				if token == "" {
					observability.GuardDecisions.WithLabelValues(action, "unauthenticated").Inc()
					_ = utils.WriteUnauthorized(w, utils.MsgAuthenticationRequired)
					return
				}

				start := time.Now()
				id, err := g.resolver.Resolve(ctx, token)
				observability.ObserveResolve(start)
				if err != nil {
					g.logger.Warn("guard could not resolve credential",
						zap.String("request_id", requestID),
						zap.String("action", action),
						zap.Error(err))
					observability.GuardDecisions.WithLabelValues(action, "unauthenticated").Inc()
					_ = utils.WriteUnauthorized(w, utils.MsgInvalidToken)
					return
				}
				identity = id
			}

			if err := rule.CheckRole(identity); err != nil {
				if errors.Is(err, authz.ErrUnauthenticated) {
					observability.GuardDecisions.WithLabelValues(action, "unauthenticated").Inc()
					_ = utils.WriteUnauthorized(w, utils.MsgAuthenticationRequired)
					return
				}
				g.logger.Info("route access denied",
					zap.String("request_id", requestID),
					zap.String("action", action),
					zap.String("uid", identity.SubjectID),
					zap.String("role", string(identity.Role)))
				observability.GuardDecisions.WithLabelValues(action, "forbidden").Inc()
				_ = utils.WriteForbidden(w, authz.ForbiddenMessage)
				return
			}

			observability.GuardDecisions.WithLabelValues(action, "allowed").Inc()
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// IdentityFrom returns the identity the guard attached to r
func IdentityFrom(r *http.Request) *models.Identity {
	return GetIdentityFromContext(r.Context())
}
