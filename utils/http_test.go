package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "test", decodeBody(t, w)["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, []string{"P001", "P002"}))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{"P001", "P002"}, body["data"])
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteCreated(w, map[string]string{"id": "D001"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "D001", body["data"].(map[string]interface{})["id"])
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter) error
		wantStatus int
		wantError  string
	}{
		{
			name:       "unauthorized default",
			write:      func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			wantStatus: http.StatusUnauthorized,
			wantError:  MsgAuthenticationRequired,
		},
		{
			name:       "forbidden",
			write:      func(w http.ResponseWriter) error { return WriteForbidden(w, "Forbidden: nope") },
			wantStatus: http.StatusForbidden,
			wantError:  "Forbidden: nope",
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter) error { return WriteNotFound(w, "Pilot not found") },
			wantStatus: http.StatusNotFound,
			wantError:  "Pilot not found",
		},
		{
			name:  "conflict",
			write: func(w http.ResponseWriter) error {
				return WriteConflict(w, "Drone with this serial already exists", nil)
			},
			wantStatus: http.StatusConflict,
			wantError:  "Drone with this serial already exists",
		},
		{
			name:       "too many requests",
			write:      func(w http.ResponseWriter) error { return WriteTooManyRequests(w, "") },
			wantStatus: http.StatusTooManyRequests,
			wantError:  "Rate limit exceeded",
		},
		{
			name:       "internal hides details",
			write:      WriteInternalServerError,
			wantStatus: http.StatusInternalServerError,
			wantError:  MsgUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotContains(t, body, "details")
		})
	}
}

func TestWriteBadRequest_Details(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteBadRequest(w, MsgValidationFailed, map[string]interface{}{"email": "email is required"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, MsgValidationFailed, body["error"])
	assert.Equal(t, "email is required", body["details"].(map[string]interface{})["email"])
}

func TestDecodeJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Alice"}`))
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "Alice", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, DecodeJSON(r, &v))
}
