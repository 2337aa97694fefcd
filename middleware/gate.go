package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/internal/observability"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/services"
	"github.com/dsz/skyfleet/utils"
)

// IdentitySource resolves a raw credential into an Identity
type IdentitySource interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// GateConfig holds the gate's credential and redirect settings
type GateConfig struct {
	CookieName       string
	LoginPath        string
	AccessDeniedPath string
	PublicAPIPaths   []string // /api paths reachable without a credential
}

// Gate is the edge identity resolver mounted in front of every protected
// API route and page. It strips client-supplied identity headers, resolves
// the credential and applies the page policy.
type Gate struct {
	resolver IdentitySource
	policy   *authz.Policy
	cfg      GateConfig
	logger   *zap.Logger
}

// NewGate creates a new Gate
func NewGate(resolver IdentitySource, policy *authz.Policy, cfg GateConfig, logger *zap.Logger) *Gate {
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.AccessDeniedPath == "" {
		cfg.AccessDeniedPath = "/access-denied"
	}
	return &Gate{resolver: resolver, policy: policy, cfg: cfg, logger: logger}
}

// Handler is the gate middleware
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range identityHeaders {
			r.Header.Del(h)
		}

		ctx := r.Context()
		path := r.URL.Path
		api := isAPIPath(path)
		surface := "page"
		if api {
			surface = "api"
		}
		public := api && g.isPublicAPI(path)
		// the login page accepts a fresh token, so a stale cookie is not resolved there
		login := !api && path == g.cfg.LoginPath
		requestID := chimw.GetReqID(ctx)

		var identity *models.Identity
		if token := ExtractCredential(r, g.cfg.CookieName); token != "" && !login {
			start := time.Now()
			id, err := g.resolver.Resolve(ctx, token)
			observability.ObserveResolve(start)

			switch {
			case err == nil:
				identity = id
			case public:
				g.logger.Debug("ignoring invalid credential on public path",
					zap.String("request_id", requestID),
					zap.String("path", path))
			case api:
				g.logger.Warn("credential rejected",
					zap.String("request_id", requestID),
					zap.String("path", path),
					zap.Error(err))
				observability.GateDecisions.WithLabelValues(surface, observability.OutcomeRejected).Inc()
				_ = utils.WriteUnauthorized(w, unauthorizedMessage(err))
				return
			default:
				g.logger.Warn("credential rejected, redirecting to login",
					zap.String("request_id", requestID),
					zap.String("path", path),
					zap.Error(err))
				observability.GateDecisions.WithLabelValues(surface, observability.OutcomeRedirectLogin).Inc()
				ClearCredentialCookie(w, g.cfg.CookieName)
				http.Redirect(w, r, g.cfg.LoginPath, http.StatusFound)
				return
			}
		}

		if identity != nil {
			setIdentityHeaders(r, identity)
			ctx = WithIdentity(ctx, identity)
			r = r.WithContext(ctx)
		}

		if api {
			if identity == nil && !public {
				g.logger.Debug("missing credential",
					zap.String("request_id", requestID),
					zap.String("path", path))
				observability.GateDecisions.WithLabelValues(surface, observability.OutcomeRejected).Inc()
				_ = utils.WriteUnauthorized(w, utils.MsgAuthenticationRequired)
				return
			}
			g.record(surface, identity)
			next.ServeHTTP(w, r)
			return
		}

		switch g.policy.PageAccess(identity, path) {
		case authz.PageLogin:
			observability.GateDecisions.WithLabelValues(surface, observability.OutcomeRedirectLogin).Inc()
			http.Redirect(w, r, g.cfg.LoginPath, http.StatusFound)
			return
		case authz.PageDenied:
			g.logger.Info("page access denied",
				zap.String("request_id", requestID),
				zap.String("path", path),
				zap.String("role", string(identity.Role)))
			observability.GateDecisions.WithLabelValues(surface, observability.OutcomeDenied).Inc()
			http.Redirect(w, r, g.cfg.AccessDeniedPath, http.StatusFound)
			return
		}

		g.record(surface, identity)
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) record(surface string, identity *models.Identity) {
	outcome := observability.OutcomeAnonymous
	if identity != nil {
		outcome = observability.OutcomeAuthenticated
	}
	observability.GateDecisions.WithLabelValues(surface, outcome).Inc()
}

func (g *Gate) isPublicAPI(path string) bool {
	for _, p := range g.cfg.PublicAPIPaths {
		if path == p {
			return true
		}
	}
	return false
}

// ExtractCredential returns the session cookie value, falling back to an
// Authorization: Bearer header.
func ExtractCredential(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClearCredentialCookie expires the session cookie
func ClearCredentialCookie(w http.ResponseWriter, cookieName string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func setIdentityHeaders(r *http.Request, id *models.Identity) {
	r.Header.Set(HeaderUserID, id.SubjectID)
	r.Header.Set(HeaderUserRole, string(id.Role))
	if id.Email != "" {
		r.Header.Set(HeaderUserEmail, id.Email)
	}
	if pilotID := id.LinkedPilotID(); pilotID != "" {
		r.Header.Set(HeaderUserPilotID, pilotID)
	}
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// unauthorizedMessage keeps resolver messages and hides anything else
func unauthorizedMessage(err error) string {
	if services.IsUnauthorizedError(err) {
		return services.PublicMessage(err)
	}
	return utils.MsgInvalidToken
}
