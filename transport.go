package ozonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
)

// maxResponseSize bounds how much of a response body is read into memory.
// Report downloads (ZIP archives) can be large but are still bounded.
const maxResponseSize = 64 << 20

// rawResponse is a fully-read HTTP response.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// json decodes the body as a JSON object, tolerating non-JSON bodies the same
// way the API's own error payloads do: an empty map.
func (r *rawResponse) json() map[string]any {
	var data map[string]any
	if err := json.Unmarshal(r.body, &data); err != nil || data == nil {
		return map[string]any{}
	}
	return data
}

// Stats is a snapshot of transport request counters.
type Stats struct {
	TotalRequests int64
	TotalErrors   int64
	RateLimited   int64
}

// transport sends classified requests on behalf of a client façade. Every
// logical call flows through the token manager (if auth is required), the
// concurrency limiter, the optional circuit breaker, and the retry loop.
type transport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *limiter
	headers    http.Header   // static per-client headers (Seller auth)
	tokens     *tokenManager // nil for clients with static auth
	retryCfg   RetryConfig
	classifier ErrorClassifier
	breaker    *breaker
	logger     *slog.Logger

	totalRequests atomic.Int64
	totalErrors   atomic.Int64
	rateLimited   atomic.Int64
}

func (t *transport) stats() Stats {
	return Stats{
		TotalRequests: t.totalRequests.Load(),
		TotalErrors:   t.totalErrors.Load(),
		RateLimited:   t.rateLimited.Load(),
	}
}

// request performs a logical call and decodes the 2xx body as JSON.
func (t *transport) request(ctx context.Context, method, path string, body any, params url.Values) (map[string]any, error) {
	resp, err := t.do(ctx, method, path, body, params)
	if err != nil {
		return nil, err
	}
	return resp.json(), nil
}

// requestRaw performs a logical call and returns the undecoded 2xx response.
// Used for report downloads, which are CSV or ZIP rather than JSON.
func (t *transport) requestRaw(ctx context.Context, method, path string, body any, params url.Values) (*rawResponse, error) {
	return t.do(ctx, method, path, body, params)
}

// do runs the full attempt loop for one logical call. The request body is
// marshalled once and replayed on every attempt.
func (t *transport) do(ctx context.Context, method, path string, body any, params url.Values) (*rawResponse, error) {
	payload, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	t.totalRequests.Add(1)

	// One forced token refresh per logical call, independent of the retry
	// budget. Hoisted out of the attempt closure so retries share it.
	forcedRefresh := false

	resp, err := runWithRetry(ctx, t.retryCfg, t.classifier, t.logger,
		func(ctx context.Context) (*rawResponse, error) {
			resp, err := t.attempt(ctx, method, path, payload, params, &forcedRefresh)
			if err != nil {
				t.totalErrors.Add(1)
				var rateErr *RateLimitError
				if errors.As(err, &rateErr) {
					t.rateLimited.Add(1)
				}
			}
			return resp, err
		})
	if err != nil {
		t.logger.Warn("request failed",
			"method", method,
			"path", path,
			"error", err)
		return nil, err
	}
	return resp, nil
}

// attempt makes a single network attempt: obtain auth, take a permit, send,
// classify. On the first 401/403 of the logical call (bearer auth only) it
// forces a token refresh and replays the request once before giving up.
func (t *transport) attempt(ctx context.Context, method, path string, payload []byte, params url.Values, forcedRefresh *bool) (*rawResponse, error) {
	token, err := t.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := t.limiter.acquire(ctx); err != nil {
		return nil, err
	}
	defer t.limiter.release()

	resp, err := t.guardedSend(ctx, method, path, payload, params, token)

	var authErr *AuthError
	if err != nil && errors.As(err, &authErr) && t.tokens != nil && !*forcedRefresh {
		*forcedRefresh = true
		t.logger.Debug("auth rejected, forcing token refresh",
			"status", authErr.Status,
			"path", path)
		t.tokens.invalidate(token)

		fresh, ferr := t.tokens.bearer(ctx)
		if ferr != nil {
			return nil, ferr
		}
		resp, err = t.guardedSend(ctx, method, path, payload, params, fresh)
	}

	return resp, err
}

func (t *transport) bearerToken(ctx context.Context) (string, error) {
	if t.tokens == nil {
		return "", nil
	}
	return t.tokens.bearer(ctx)
}

// guardedSend routes the classified send through the circuit breaker when one
// is configured.
func (t *transport) guardedSend(ctx context.Context, method, path string, payload []byte, params url.Values, token string) (*rawResponse, error) {
	send := func() (*rawResponse, error) {
		resp, err := t.roundTrip(ctx, method, path, payload, params, token)
		if err != nil {
			return nil, err
		}
		return classifyResponse(resp)
	}
	if t.breaker != nil {
		return t.breaker.execute(send)
	}
	return send()
}

// roundTrip performs the raw HTTP exchange and fully reads the body.
func (t *transport) roundTrip(ctx context.Context, method, path string, payload []byte, params url.Values, token string) (*rawResponse, error) {
	u := t.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &rawResponse{
		status: resp.StatusCode,
		header: resp.Header,
		body:   data,
	}, nil
}

// classifyResponse turns a non-2xx response into the matching typed error:
// 401/403 are auth failures, 429 is a rate limit, everything else >= 400 is a
// generic API error (retryability of 5xx is the classifier's call).
func classifyResponse(resp *rawResponse) (*rawResponse, error) {
	if resp.status < 400 {
		return resp, nil
	}

	data := resp.json()
	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return nil, &AuthError{APIError{
			Message:  responseMessage(data, "Authentication failed"),
			Status:   resp.status,
			Response: data,
		}}
	case resp.status == http.StatusTooManyRequests:
		return nil, &RateLimitError{APIError{
			Message:  responseMessage(data, "Rate limit exceeded"),
			Status:   resp.status,
			Response: data,
		}}
	default:
		return nil, &APIError{
			Message:  responseMessage(data, fmt.Sprintf("API error: %d", resp.status)),
			Status:   resp.status,
			Response: data,
		}
	}
}

// marshalBody encodes a request body once per logical call so it can be
// replayed across attempts.
func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return data, nil
}

// responseMessage extracts the API's error message, falling back to a default.
func responseMessage(data map[string]any, fallback string) string {
	if msg, ok := data["message"].(string); ok && msg != "" {
		return msg
	}
	return fallback
}
