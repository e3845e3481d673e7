package ozonapi

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout               = 30 * time.Second
	defaultMaxConcurrentRequests = 10
)

type config struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	maxConcurrent int64
	rps           float64
	burst         int
	retry         RetryConfig
	classifier    ErrorClassifier
	logger        *slog.Logger
	breakerCfg    *CircuitBreakerConfig
}

func defaultConfig() *config {
	return &config{
		timeout:       defaultTimeout,
		maxConcurrent: defaultMaxConcurrentRequests,
		retry:         DefaultRetryConfig(),
		classifier:    NewHTTPStatusClassifier(),
		logger:        slog.Default(),
	}
}

// Option configures a client façade.
type Option func(*config)

// WithBaseURL overrides the API base URL. Useful for tests and proxies.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient supplies a custom http.Client (custom transport, proxy,
// TLS config). When set, WithTimeout is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithMaxConcurrentRequests bounds the number of in-flight requests against
// the API. Default: 10.
func WithMaxConcurrentRequests(n int64) Option {
	return func(c *config) {
		c.maxConcurrent = n
	}
}

// WithRequestsPerSecond adds a token-bucket throttle on top of the
// concurrency gate. Zero (the default) disables it.
func WithRequestsPerSecond(rps float64, burst int) Option {
	return func(c *config) {
		c.rps = rps
		c.burst = burst
	}
}

// WithRetryConfig replaces the retry configuration for all calls.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *config) {
		c.retry = cfg
	}
}

// WithOnRetry sets the retry observer without replacing the rest of the
// retry configuration.
func WithOnRetry(fn RetryObserver) Option {
	return func(c *config) {
		c.retry.OnRetry = fn
	}
}

// WithErrorClassifier replaces the default HTTP status classifier.
func WithErrorClassifier(classifier ErrorClassifier) Option {
	return func(c *config) {
		c.classifier = classifier
	}
}

// WithLogger sets the slog logger used by the client. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCircuitBreaker enables a circuit breaker around outbound requests.
func WithCircuitBreaker(cfg CircuitBreakerConfig) Option {
	return func(c *config) {
		c.breakerCfg = &cfg
	}
}

// build materializes the shared transport pieces for a façade.
func (c *config) build(defaultBaseURL string, headers http.Header) *transport {
	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.timeout}
	}

	t := &transport{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    newLimiter(c.maxConcurrent, c.rps, c.burst),
		headers:    headers,
		retryCfg:   c.retry,
		classifier: c.classifier,
		logger:     c.logger,
	}

	if c.breakerCfg != nil {
		tripClassifier, ok := c.classifier.(CircuitBreakerErrorClassifier)
		if !ok {
			tripClassifier = NewHTTPStatusClassifier()
		}
		t.breaker = newBreaker(*c.breakerCfg, tripClassifier, c.logger)
	}

	return t
}
