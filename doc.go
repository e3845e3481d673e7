// Package ozonapi is an async-friendly client for the Ozon Seller and
// Performance APIs with built-in resilience:
//   - Retry with capped exponential backoff and jitter on 429/5xx/network errors
//   - Bounded request concurrency via a weighted semaphore, plus an optional
//     requests-per-second throttle (golang.org/x/time/rate)
//   - Automatic OAuth2 token management for the Performance API with
//     single-flight refresh and one forced refresh on 401
//   - Asynchronous report generation turned into a single awaitable call with
//     progress callbacks
//   - Optional circuit breaker (sony/gobreaker) around outbound requests
//
// Two client façades are provided. SellerClient authenticates with static
// Client-Id/Api-Key headers; PerformanceClient exchanges client credentials
// for a bearer token and keeps it fresh. Both expose raw Get/Post primitives
// and typed domain subclients built on top of them:
//
//	client := ozonapi.NewSellerClient("123456", "api-key",
//	    ozonapi.WithMaxConcurrentRequests(5),
//	    ozonapi.WithRetryConfig(ozonapi.RetryConfig{
//	        MaxRetries: 3,
//	        BaseDelay:  time.Second,
//	        MaxDelay:   30 * time.Second,
//	        Jitter:     true,
//	    }),
//	)
//	defer client.Close()
//
//	products, err := client.Products().Products(ctx)
//
// All operations take a context.Context; cancelling it releases any held
// concurrency permits and aborts in-flight backoff waits.
package ozonapi
