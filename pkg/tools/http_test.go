package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
)

func httpTestConfig() *config.Config {
	return &config.Config{
		AllowedHTTPHosts:    []string{"127.0.0.1"},
		DefaultHTTPTimeoutS: 2.0,
	}
}

func TestHTTPGetHandlerReturnsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := httpTestConfig()
	handler := NewHTTPGetHandler(cfg, policy.New(cfg))

	out, err := handler(context.Background(), map[string]any{"url": server.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, 200, out["status_code"])
	body, ok := out["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, body["ok"])
}

func TestHTTPGetHandlerRejectsDisallowedHost(t *testing.T) {
	cfg := &config.Config{AllowedHTTPHosts: []string{"example.com"}}
	handler := NewHTTPGetHandler(cfg, policy.New(cfg))

	_, err := handler(context.Background(), map[string]any{"url": "http://127.0.0.1:9/x"}, nil)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailurePolicyViolation, te.FailureType)
}

func TestHTTPGetHandlerMarksMalformedBodyWhenAllowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	cfg := httpTestConfig()
	handler := NewHTTPGetHandler(cfg, policy.New(cfg))

	out, err := handler(context.Background(), map[string]any{
		"url": server.URL, "allow_malformed": true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["malformed"])
}

func TestHTTPGetHandlerReturnsSchemaErrorOnMalformedBodyByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	cfg := httpTestConfig()
	handler := NewHTTPGetHandler(cfg, policy.New(cfg))

	_, err := handler(context.Background(), map[string]any{"url": server.URL}, nil)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailureSchemaError, te.FailureType)
}

func TestHTTPGetHandlerReportsServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := httpTestConfig()
	handler := NewHTTPGetHandler(cfg, policy.New(cfg))

	_, err := handler(context.Background(), map[string]any{"url": server.URL}, nil)
	require.Error(t, err)
	te, ok := orchtypes.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, orchtypes.FailureToolError, te.FailureType)
}

func TestHTTPPostHandlerSendsJSONBodyAndIdempotencyKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	cfg := httpTestConfig()
	handler := NewHTTPPostHandler(cfg, policy.New(cfg))

	out, err := handler(context.Background(), map[string]any{
		"url":             server.URL,
		"json_body":       map[string]any{"a": 1},
		"idempotency_key": "req-1",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "req-1", gotKey)
}
