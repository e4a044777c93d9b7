package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestIDGenerated(t *testing.T) {
	var fromContext string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		fromContext = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, fromContext)
	require.Equal(t, fromContext, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDHonorsCallerHeader(t *testing.T) {
	var fromContext string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		fromContext = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "caller-supplied", fromContext)
	require.Equal(t, "caller-supplied", rec.Header().Get(RequestIDHeader))
}

func TestGetRequestIDEmpty(t *testing.T) {
	require.Empty(t, GetRequestID(context.Background()))
}
