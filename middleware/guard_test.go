package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/services"
)

func TestGuard_UsesGateIdentity(t *testing.T) {
	resolver := new(MockIdentitySource)
	guard := NewGuard(resolver, "session", zap.NewNop())
	var seen seenRequest

	req := httptest.NewRequest(http.MethodPost, "/api/drones", nil)
	req = req.WithContext(WithIdentity(req.Context(), adminIdentity))
	w := httptest.NewRecorder()

	guard.Require(authz.DefaultPolicy().MustRule(authz.ActionDronesWrite))(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen.called)
	assert.Equal(t, adminIdentity, seen.identity)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGuard_IgnoresIdentityHeaders(t *testing.T) {
	resolver := new(MockIdentitySource)
	guard := NewGuard(resolver, "session", zap.NewNop())
	var seen seenRequest

	req := httptest.NewRequest(http.MethodDelete, "/api/pilots?id=P001", nil)
	req.Header.Set(HeaderUserID, "uid-admin")
	req.Header.Set(HeaderUserRole, "Administrator")
	w := httptest.NewRecorder()

	guard.Require(authz.DefaultPolicy().MustRule(authz.ActionPilotsWrite))(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, seen.called)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestGuard_SelfResolvesCredential(t *testing.T) {
	resolver := new(MockIdentitySource)
	resolver.On("Resolve", mock.Anything, "viewer-token").Return(viewerIdentity, nil)
	guard := NewGuard(resolver, "session", zap.NewNop())
	var seen seenRequest

	req := httptest.NewRequest(http.MethodGet, "/api/pilots", nil)
	req.Header.Set("Authorization", "Bearer viewer-token")
	w := httptest.NewRecorder()

	guard.Require(authz.DefaultPolicy().MustRule(authz.ActionPilotsRead))(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, viewerIdentity, seen.identity)
	resolver.AssertExpectations(t)
}

func TestGuard_Rejections(t *testing.T) {
	policy := authz.DefaultPolicy()

	t.Run("unresolvable credential", func(t *testing.T) {
		resolver := new(MockIdentitySource)
		resolver.On("Resolve", mock.Anything, "bad").Return(nil, services.ErrInvalidToken)
		var seen seenRequest

		req := httptest.NewRequest(http.MethodGet, "/api/drones", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "bad"})
		w := httptest.NewRecorder()

		NewGuard(resolver, "session", zap.NewNop()).
			Require(policy.MustRule(authz.ActionDronesRead))(recordingHandler(&seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
		assert.False(t, seen.called)
	})

	t.Run("role not allowed", func(t *testing.T) {
		var seen seenRequest
		req := httptest.NewRequest(http.MethodDelete, "/api/flights?id=FL001", nil)
		req = req.WithContext(WithIdentity(req.Context(), pilotIdentity))
		w := httptest.NewRecorder()

		NewGuard(new(MockIdentitySource), "session", zap.NewNop()).
			Require(policy.MustRule(authz.ActionFlightsDelete))(recordingHandler(&seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decodeEnvelope(t, w.Body.String())
		assert.Equal(t, authz.ForbiddenMessage, body["error"])
		assert.False(t, seen.called)
	})

	t.Run("unknown action denies everyone", func(t *testing.T) {
		var seen seenRequest
		req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
		req = req.WithContext(WithIdentity(req.Context(), adminIdentity))
		w := httptest.NewRecorder()

		NewGuard(new(MockIdentitySource), "session", zap.NewNop()).
			Require(policy.MustRule("nothing.here"))(recordingHandler(&seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, seen.called)
	})
}

func TestGuard_EmptyRoleSetAdmitsAnyIdentity(t *testing.T) {
	var seen seenRequest
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(WithIdentity(req.Context(), viewerIdentity))
	w := httptest.NewRecorder()

	NewGuard(new(MockIdentitySource), "session", zap.NewNop()).
		Require(authz.DefaultPolicy().MustRule(authz.ActionAuthMe))(recordingHandler(&seen)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen.called)
}
