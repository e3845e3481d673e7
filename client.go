package ozonapi

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// SellerClient is the façade for the Ozon Seller API. It authenticates with
// static Client-Id/Api-Key headers and exposes raw Get/Post primitives plus
// typed domain subclients.
//
// A client is safe for concurrent use. Close releases idle connections and is
// idempotent.
type SellerClient struct {
	transport *transport

	products  *ProductsAPI
	finance   *FinanceAPI
	analytics *AnalyticsAPI
	promotion *PromotionAPI

	closeOnce sync.Once
}

// NewSellerClient creates a Seller API client.
//
// Example:
//
//	client := ozonapi.NewSellerClient("123456", "api-key")
//	defer client.Close()
//
//	resp, err := client.Post(ctx, ozonapi.EndpointProductList, map[string]any{
//	    "filter": map[string]any{},
//	    "limit":  100,
//	})
func NewSellerClient(clientID, apiKey string, opts ...Option) *SellerClient {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	headers := http.Header{}
	headers.Set("Client-Id", clientID)
	headers.Set("Api-Key", apiKey)

	c := &SellerClient{
		transport: cfg.build(SellerBaseURL, headers),
	}
	c.products = &ProductsAPI{client: c}
	c.finance = &FinanceAPI{client: c}
	c.analytics = &AnalyticsAPI{client: c}
	c.promotion = &PromotionAPI{client: c}
	return c
}

// Get performs a GET request against the Seller API.
func (c *SellerClient) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	return c.transport.request(ctx, http.MethodGet, path, nil, params)
}

// Post performs a POST request with a JSON body against the Seller API.
func (c *SellerClient) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.transport.request(ctx, http.MethodPost, path, body, nil)
}

// Products returns the products subclient.
func (c *SellerClient) Products() *ProductsAPI { return c.products }

// Finance returns the finance subclient.
func (c *SellerClient) Finance() *FinanceAPI { return c.finance }

// Analytics returns the analytics subclient.
func (c *SellerClient) Analytics() *AnalyticsAPI { return c.analytics }

// Promotion returns the promotion subclient.
func (c *SellerClient) Promotion() *PromotionAPI { return c.promotion }

// Stats returns a snapshot of request counters.
func (c *SellerClient) Stats() Stats { return c.transport.stats() }

// Health reports the circuit breaker state. Without a breaker configured the
// client is always considered healthy.
func (c *SellerClient) Health() HealthStatus {
	if c.transport.breaker == nil {
		return HealthStatus{Healthy: true, State: "disabled"}
	}
	return c.transport.breaker.health()
}

// Close releases underlying connection resources. Safe to call more than once.
func (c *SellerClient) Close() {
	c.closeOnce.Do(func() {
		c.transport.httpClient.CloseIdleConnections()
	})
}
