package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/itsneelabh/orchestron/pkg/config"
	"github.com/itsneelabh/orchestron/pkg/orchtypes"
	"github.com/itsneelabh/orchestron/pkg/policy"
	"github.com/itsneelabh/orchestron/pkg/toolregistry"
)

// newTracedClient wraps http.DefaultTransport in otelhttp so every tool
// call propagates a W3C trace-context header downstream, grounded on the
// teacher's telemetry.NewTracedHTTPClient (telemetry/http.go) — the same
// wrap-the-transport idiom, trimmed of the teacher's server-side handler
// variant this client-only engine never needs.
func newTracedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[strings.ToLower(k)] = h.Get(k)
	}
	return out
}

// NewHTTPGetHandler issues a GET against an allowlisted host, grounded on
// original_source/execution/tools/http_get_tool.py's http_get_tool.
func NewHTTPGetHandler(cfg *config.Config, pol *policy.Engine) toolregistry.Handler {
	return func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
		if err := pol.ValidateHTTPArgs(args); err != nil {
			return nil, err
		}
		url := getString(args, "url", "")
		timeoutS := getFloat(args, "timeout_s", cfg.DefaultHTTPTimeoutS)
		expectJSON := getBool(args, "expect_json", true)
		allowMalformed := getBool(args, "allow_malformed", false)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("http_get transport error for %s", url), err)
		}
		q := req.URL.Query()
		for k, v := range getObject(args, "params") {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		req.URL.RawQuery = q.Encode()
		for k, v := range getStringMap(args, "headers") {
			req.Header.Set(k, v)
		}

		client := newTracedClient(time.Duration(timeoutS * float64(time.Second)))
		resp, err := client.Do(req)
		if err != nil {
			if isTimeout(err) {
				return nil, orchtypes.WrapToolError(orchtypes.FailureTimeout, fmt.Sprintf("http_get timeout for %s", url), err)
			}
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("http_get transport error for %s: %v", url, err), err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("http_get transport error for %s", url), err)
		}

		var body any
		malformed := false
		if expectJSON {
			if jsonErr := json.Unmarshal(bodyBytes, &body); jsonErr != nil {
				if allowMalformed {
					body = string(bodyBytes)
					malformed = true
				} else {
					return nil, orchtypes.WrapToolError(orchtypes.FailureSchemaError,
						fmt.Sprintf("http_get expected JSON but got malformed body from %s", url), jsonErr)
				}
			}
		} else {
			body = string(bodyBytes)
		}

		if resp.StatusCode >= 500 {
			return nil, orchtypes.NewToolError(orchtypes.FailureToolError,
				fmt.Sprintf("http_get server error status=%d", resp.StatusCode),
				map[string]any{"url": url, "status_code": resp.StatusCode})
		}

		return map[string]any{
			"ok":          true,
			"message":     "http_get completed",
			"data":        map[string]any{"url": url},
			"status_code": resp.StatusCode,
			"headers":     lowerHeaders(resp.Header),
			"body":        body,
			"malformed":   malformed,
		}, nil
	}
}

// NewHTTPPostHandler issues a POST against an allowlisted host, grounded
// on original_source/execution/tools/http_post_tool.py's http_post_tool.
// Unlike http_get, a malformed JSON body on POST is always a schema
// error — the original has no allow_malformed escape hatch here.
func NewHTTPPostHandler(cfg *config.Config, pol *policy.Engine) toolregistry.Handler {
	return func(ctx context.Context, args map[string]any, tctx *toolregistry.ToolExecutionContext) (map[string]any, error) {
		if err := pol.ValidateHTTPArgs(args); err != nil {
			return nil, err
		}
		url := getString(args, "url", "")
		timeoutS := getFloat(args, "timeout_s", cfg.DefaultHTTPTimeoutS)
		expectJSON := getBool(args, "expect_json", true)
		idempotencyKey := getString(args, "idempotency_key", "")

		payload, err := json.Marshal(getObject(args, "json_body"))
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, "encode http_post body", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("http_post transport error for %s", url), err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range getStringMap(args, "headers") {
			req.Header.Set(k, v)
		}
		if idempotencyKey != "" && req.Header.Get("Idempotency-Key") == "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		client := newTracedClient(time.Duration(timeoutS * float64(time.Second)))
		resp, err := client.Do(req)
		if err != nil {
			if isTimeout(err) {
				return nil, orchtypes.WrapToolError(orchtypes.FailureTimeout, fmt.Sprintf("http_post timeout for %s", url), err)
			}
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("http_post transport error for %s: %v", url, err), err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, orchtypes.WrapToolError(orchtypes.FailureToolError, fmt.Sprintf("http_post transport error for %s", url), err)
		}

		var body any
		if expectJSON {
			if jsonErr := json.Unmarshal(bodyBytes, &body); jsonErr != nil {
				return nil, orchtypes.WrapToolError(orchtypes.FailureSchemaError,
					fmt.Sprintf("http_post expected JSON but got malformed body from %s", url), jsonErr)
			}
		} else {
			body = string(bodyBytes)
		}

		if resp.StatusCode >= 500 {
			return nil, orchtypes.NewToolError(orchtypes.FailureToolError,
				fmt.Sprintf("http_post server error status=%d", resp.StatusCode),
				map[string]any{"url": url, "status_code": resp.StatusCode})
		}

		return map[string]any{
			"ok":          true,
			"message":     "http_post completed",
			"data":        map[string]any{"url": url},
			"status_code": resp.StatusCode,
			"headers":     lowerHeaders(resp.Header),
			"body":        body,
			"malformed":   false,
		}, nil
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	var t timeouter
	for wrapped := err; wrapped != nil; {
		if u, ok := wrapped.(interface{ Unwrap() error }); ok {
			wrapped = u.Unwrap()
			if te, ok := wrapped.(timeouter); ok {
				t = te
				break
			}
			continue
		}
		break
	}
	return t != nil && t.Timeout()
}
