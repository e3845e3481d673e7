package ozonapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenRefreshMargin refreshes the token slightly before the server-side
	// expiry to avoid racing the deadline.
	tokenRefreshMargin = 60 * time.Second

	// defaultTokenTTL is assumed when the token response omits expires_in.
	defaultTokenTTL = 1800 * time.Second
)

// tokenManager owns the sole mutable credential shared across concurrent
// logical calls. Callers only ever see the materialized bearer string.
//
// Concurrent bearer calls while no valid token exists collapse into a single
// refresh via singleflight; everyone observes that one result. A cancelled
// refresh releases its waiters with the error, and the next caller re-attempts.
type tokenManager struct {
	exchange func(ctx context.Context) (*rawResponse, error)
	retryCfg RetryConfig
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	sfg singleflight.Group
}

func newTokenManager(exchange func(ctx context.Context) (*rawResponse, error), retryCfg RetryConfig, logger *slog.Logger) *tokenManager {
	return &tokenManager{
		exchange: exchange,
		retryCfg: retryCfg,
		logger:   logger,
		now:      time.Now,
	}
}

// bearer returns a valid access token, refreshing it if needed.
//
// A refresh cancelled by the flight leader's context is not a failure of the
// waiters that shared it: as long as their own context is live, they start a
// fresh flight instead of surfacing the leader's cancellation.
func (m *tokenManager) bearer(ctx context.Context) (string, error) {
	for {
		if tok, ok := m.cached(); ok {
			return tok, nil
		}

		v, err, _ := m.sfg.Do("refresh", func() (any, error) {
			// Double-check after winning the flight: a concurrent refresh may
			// have already stored a fresh token.
			if tok, ok := m.cached(); ok {
				return tok, nil
			}
			return m.refresh(ctx)
		})
		if err == nil {
			return v.(string), nil
		}
		if ctx.Err() == nil &&
			(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			continue
		}
		return "", err
	}
}

// cached returns the token if it is present and not yet near expiry.
func (m *tokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && m.now().Before(m.expiresAt) {
		return m.token, true
	}
	return "", false
}

// invalidate drops the cached credential after a downstream 401, but only if
// the rejected token is still the cached one. A token refreshed by a
// concurrent call survives.
func (m *tokenManager) invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" || m.token == token {
		m.expiresAt = time.Time{}
	}
}

// refresh performs the credential exchange. Network errors and 429/5xx from
// the token endpoint are transient and retried; any other 4xx is a fatal
// AuthError (retrying rejected credentials cannot succeed).
func (m *tokenManager) refresh(ctx context.Context) (string, error) {
	var token string
	var ttl time.Duration

	maxRetries := m.retryCfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := retry.WithMaxRetries(uint64(maxRetries), NewBackoff(m.retryCfg))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := m.exchange(ctx)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("token request: %w", err))
		}

		data := resp.json()
		switch {
		case resp.status == http.StatusTooManyRequests || resp.status >= 500:
			return retry.RetryableError(&APIError{
				Message:  responseMessage(data, fmt.Sprintf("token endpoint returned %d", resp.status)),
				Status:   resp.status,
				Response: data,
			})
		case resp.status >= 400:
			return &AuthError{APIError{
				Message:  responseMessage(data, "failed to obtain access token"),
				Status:   resp.status,
				Response: data,
			}}
		}

		tok, _ := data["access_token"].(string)
		if tok == "" {
			return &AuthError{APIError{
				Message:  "token response missing access_token",
				Status:   resp.status,
				Response: data,
			}}
		}

		token = tok
		ttl = defaultTokenTTL
		if v, ok := data["expires_in"].(float64); ok && v > 0 {
			ttl = time.Duration(v * float64(time.Second))
		}
		return nil
	})
	if err != nil {
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			err = &AuthError{APIError{
				Message: fmt.Sprintf("token request failed: %v", err),
				Err:     err,
			}}
		}
		m.logger.Warn("token refresh failed", "error", err)
		return "", err
	}

	m.mu.Lock()
	m.token = token
	m.expiresAt = m.now().Add(ttl - tokenRefreshMargin)
	m.mu.Unlock()

	m.logger.Debug("access token refreshed", "expires_in", ttl)
	return token, nil
}
