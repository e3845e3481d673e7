package ozonapi

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// PerformanceClient is the façade for the Ozon Performance API. It exchanges
// client credentials for a bearer token and keeps it fresh across calls; a
// request rejected with 401 triggers one forced refresh before failing.
//
// The token is fetched lazily on the first authenticated call. Use Connect to
// fetch it eagerly and validate credentials up front.
type PerformanceClient struct {
	transport *transport
	tokens    *tokenManager

	campaigns *CampaignsAPI

	closeOnce sync.Once
}

// NewPerformanceClient creates a Performance API client.
//
// Example:
//
//	client := ozonapi.NewPerformanceClient("client-id", "client-secret",
//	    ozonapi.WithOnRetry(func(attempt int, delay time.Duration, err error) {
//	        log.Printf("retry %d in %s: %v", attempt, delay, err)
//	    }),
//	)
//	defer client.Close()
func NewPerformanceClient(clientID, clientSecret string, opts ...Option) *PerformanceClient {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	t := cfg.build(PerformanceBaseURL, nil)

	// The credential exchange bypasses the authed attempt loop: it posts the
	// token request directly and lets the token manager do its own retrying.
	exchange := func(ctx context.Context) (*rawResponse, error) {
		body := map[string]any{
			"client_id":     clientID,
			"client_secret": clientSecret,
			"grant_type":    "client_credentials",
		}
		payload, err := marshalBody(body)
		if err != nil {
			return nil, err
		}
		return t.roundTrip(ctx, http.MethodPost, EndpointToken, payload, nil, "")
	}

	t.tokens = newTokenManager(exchange, cfg.retry, cfg.logger)

	c := &PerformanceClient{
		transport: t,
		tokens:    t.tokens,
	}
	c.campaigns = &CampaignsAPI{client: c}
	return c
}

// Connect eagerly fetches an access token, validating the credentials.
// Optional: the first authenticated call fetches the token on demand.
func (c *PerformanceClient) Connect(ctx context.Context) error {
	_, err := c.tokens.bearer(ctx)
	return err
}

// Get performs a GET request against the Performance API.
func (c *PerformanceClient) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	return c.transport.request(ctx, http.MethodGet, path, nil, params)
}

// Post performs a POST request with a JSON body against the Performance API.
func (c *PerformanceClient) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.transport.request(ctx, http.MethodPost, path, body, nil)
}

// Campaigns returns the campaigns subclient.
func (c *PerformanceClient) Campaigns() *CampaignsAPI { return c.campaigns }

// Stats returns a snapshot of request counters.
func (c *PerformanceClient) Stats() Stats { return c.transport.stats() }

// Health reports the circuit breaker state. Without a breaker configured the
// client is always considered healthy.
func (c *PerformanceClient) Health() HealthStatus {
	if c.transport.breaker == nil {
		return HealthStatus{Healthy: true, State: "disabled"}
	}
	return c.transport.breaker.health()
}

// Close releases underlying connection resources. Safe to call more than once.
func (c *PerformanceClient) Close() {
	c.closeOnce.Do(func() {
		c.transport.httpClient.CloseIdleConnections()
	})
}
