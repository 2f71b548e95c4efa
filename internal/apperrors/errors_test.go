package apperrors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_Envelope(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r, "Organization not found")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orgs/x", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "not_found", env.Error.Code)
	require.Equal(t, "Organization not found", env.Error.Message)
	require.NotEmpty(t, env.Error.RequestID)
	require.Equal(t, env.Error.RequestID, rec.Header().Get(RequestIDHeader))
}

func TestWriteSuccess_Envelope(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, r, http.StatusCreated, map[string]string{"slug": "acme"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orgs", nil))

	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		RequestID string            `json:"request_id"`
		Data      map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.RequestID)
	require.Equal(t, "acme", env.Data["slug"])
}

func TestGetRequestID_Unset(t *testing.T) {
	require.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
