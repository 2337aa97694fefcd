package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/services"
)

// MockIdentitySource is a mock implementation of IdentitySource
type MockIdentitySource struct {
	mock.Mock
}

func (m *MockIdentitySource) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

var (
	adminIdentity  = models.NewIdentity("uid-admin", "admin@skyfleet.test", models.RoleAdministrator, "")
	pilotIdentity  = models.NewIdentity("uid-a", "alice@skyfleet.test", models.RolePilot, "P001")
	viewerIdentity = models.NewIdentity("uid-v", "vera@skyfleet.test", models.RoleViewer, "")
)

type seenRequest struct {
	called   bool
	headers  http.Header
	identity *models.Identity
}

func recordingHandler(seen *seenRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.called = true
		seen.headers = r.Header.Clone()
		seen.identity = GetIdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func newTestGate(resolver IdentitySource) *Gate {
	return NewGate(resolver, authz.DefaultPolicy(), GateConfig{
		CookieName:     "session",
		PublicAPIPaths: []string{"/api/status"},
	}, zap.NewNop())
}

func decodeEnvelope(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestGate_StripsSpoofedHeaders(t *testing.T) {
	resolver := new(MockIdentitySource)
	gate := newTestGate(resolver)
	var seen seenRequest

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(HeaderUserID, "forged")
	req.Header.Set(HeaderUserRole, "Administrator")
	req.Header.Set(HeaderUserPilotID, "P999")
	req.Header.Set(HeaderUserEmail, "evil@skyfleet.test")
	w := httptest.NewRecorder()

	gate.Handler(recordingHandler(&seen)).ServeHTTP(w, req)

	require.True(t, seen.called)
	for _, h := range identityHeaders {
		assert.Empty(t, seen.headers.Get(h), h)
	}
	assert.Nil(t, seen.identity)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGate_ValidCredentialOverwritesHeaders(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		resolver := new(MockIdentitySource)
		resolver.On("Resolve", mock.Anything, "pilot-token").Return(pilotIdentity, nil)
		var seen seenRequest

		req := httptest.NewRequest(http.MethodGet, "/api/flights", nil)
		req.Header.Set("Authorization", "Bearer pilot-token")
		req.Header.Set(HeaderUserRole, "Administrator")
		w := httptest.NewRecorder()

		newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "uid-a", seen.headers.Get(HeaderUserID))
		assert.Equal(t, "Pilot", seen.headers.Get(HeaderUserRole))
		assert.Equal(t, "P001", seen.headers.Get(HeaderUserPilotID))
		assert.Equal(t, "alice@skyfleet.test", seen.headers.Get(HeaderUserEmail))
		assert.Equal(t, pilotIdentity, seen.identity)
		resolver.AssertExpectations(t)
	})

	t.Run("cookie wins over bearer", func(t *testing.T) {
		resolver := new(MockIdentitySource)
		resolver.On("Resolve", mock.Anything, "cookie-token").Return(viewerIdentity, nil)
		var seen seenRequest

		req := httptest.NewRequest(http.MethodGet, "/api/drones", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")
		w := httptest.NewRecorder()

		newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Viewer", seen.headers.Get(HeaderUserRole))
		assert.Empty(t, seen.headers.Get(HeaderUserPilotID))
		resolver.AssertExpectations(t)
	})
}

func TestGate_APIFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(req *http.Request, resolver *MockIdentitySource)
		wantMsg string
	}{
		{
			name:    "no credential",
			setup:   func(req *http.Request, resolver *MockIdentitySource) {},
			wantMsg: "Authentication required",
		},
		{
			name: "non-bearer authorization",
			setup: func(req *http.Request, resolver *MockIdentitySource) {
				req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			},
			wantMsg: "Authentication required",
		},
		{
			name: "invalid token",
			setup: func(req *http.Request, resolver *MockIdentitySource) {
				req.Header.Set("Authorization", "Bearer expired")
				resolver.On("Resolve", mock.Anything, "expired").Return(nil, services.ErrInvalidToken)
			},
			wantMsg: "Invalid or expired token",
		},
		{
			name: "profile missing",
			setup: func(req *http.Request, resolver *MockIdentitySource) {
				req.Header.Set("Authorization", "Bearer orphan")
				resolver.On("Resolve", mock.Anything, "orphan").
					Return(nil, services.NewDomainError(services.ErrorTypeUnauthorized, "User profile not found", nil))
			},
			wantMsg: "User profile not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockIdentitySource)
			var seen seenRequest
			req := httptest.NewRequest(http.MethodGet, "/api/pilots", nil)
			tt.setup(req, resolver)
			w := httptest.NewRecorder()

			newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, seen.called)
			body := decodeEnvelope(t, w.Body.String())
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["error"])
			resolver.AssertExpectations(t)
		})
	}
}

func TestGate_InvalidCredentialOnPageClearsCookie(t *testing.T) {
	resolver := new(MockIdentitySource)
	resolver.On("Resolve", mock.Anything, "stale").Return(nil, services.ErrInvalidToken)
	var seen seenRequest

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "stale"})
	w := httptest.NewRecorder()

	newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.False(t, seen.called)
	cookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "session=;"), cookie)
	assert.Contains(t, cookie, "Max-Age=0")
}

func TestGate_LoginPageSkipsStaleCookie(t *testing.T) {
	resolver := new(MockIdentitySource)
	var seen seenRequest

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("idToken=fresh"))
	req.AddCookie(&http.Cookie{Name: "session", Value: "stale"})
	w := httptest.NewRecorder()

	newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen.called)
	assert.Nil(t, seen.identity)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGate_PagePolicy(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		identity     *models.Identity
		wantStatus   int
		wantLocation string
	}{
		{"anonymous on protected page", "/dashboard", nil, http.StatusFound, "/login"},
		{"anonymous on nested page", "/pilots/P001", nil, http.StatusFound, "/login"},
		{"anonymous on public page", "/login", nil, http.StatusOK, ""},
		{"viewer on dashboard", "/dashboard", viewerIdentity, http.StatusOK, ""},
		{"viewer on admin page", "/settings", viewerIdentity, http.StatusFound, "/access-denied"},
		{"viewer on new flight page", "/flights/new", viewerIdentity, http.StatusFound, "/access-denied"},
		{"pilot on new flight page", "/flights/new", pilotIdentity, http.StatusOK, ""},
		{"pilot on schedule", "/schedule", pilotIdentity, http.StatusFound, "/access-denied"},
		{"admin on reports", "/reports/monthly", adminIdentity, http.StatusOK, ""},
		{"prefix is segment aware", "/dronesales", nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockIdentitySource)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.identity != nil {
				req.AddCookie(&http.Cookie{Name: "session", Value: "tok"})
				resolver.On("Resolve", mock.Anything, "tok").Return(tt.identity, nil)
			}
			var seen seenRequest
			w := httptest.NewRecorder()

			newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			assert.Equal(t, tt.wantStatus == http.StatusOK, seen.called)
		})
	}
}

func TestGate_PublicAPIPathIgnoresBadCredential(t *testing.T) {
	resolver := new(MockIdentitySource)
	resolver.On("Resolve", mock.Anything, "junk").Return(nil, services.ErrInvalidToken)
	var seen seenRequest

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer junk")
	w := httptest.NewRecorder()

	newTestGate(resolver).Handler(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen.called)
	assert.Nil(t, seen.identity)
}

func TestExtractCredential(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractCredential(req, "session"))

	req.Header.Set("Authorization", "bearer  abc ")
	assert.Equal(t, "abc", ExtractCredential(req, "session"))

	req.AddCookie(&http.Cookie{Name: "other", Value: "x"})
	assert.Equal(t, "abc", ExtractCredential(req, "session"))

	req.AddCookie(&http.Cookie{Name: "session", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", ExtractCredential(req, "session"))
}
