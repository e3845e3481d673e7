package ozonapi

import (
	"errors"
	"log/slog"
	"time"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the optional circuit breaker around
// outbound requests. The breaker is off unless WithCircuitBreaker is used.
type CircuitBreakerConfig struct {
	// ReadyToTrip is consulted after each classified failure in the closed
	// state. Default: trips after 3 requests with a 60% failure rate.
	ReadyToTrip func(counts CircuitBreakerCounts) bool

	// Classifier decides which errors count as breaker failures.
	// Default: the client's HTTPStatusClassifier.
	Classifier CircuitBreakerErrorClassifier

	// OnStateChange observes breaker state transitions.
	OnStateChange func(from, to string)

	// Interval is the cyclic period for clearing counts in the closed state.
	// Default: 10s.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing. Default: 30s.
	Timeout time.Duration

	// MaxRequests is the number of probe requests allowed while half-open.
	// Default: 3.
	MaxRequests uint32
}

// CircuitBreakerCounts holds the breaker's internal counters.
type CircuitBreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// DefaultCircuitBreakerConfig returns breaker settings with sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts CircuitBreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}

// HealthStatus reports the circuit breaker's view of the downstream service.
type HealthStatus struct {
	Healthy              bool   `json:"healthy"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

type breaker struct {
	cb     *gobreaker.CircuitBreaker[*rawResponse]
	logger *slog.Logger
}

func newBreaker(cfg CircuitBreakerConfig, classifier CircuitBreakerErrorClassifier, logger *slog.Logger) *breaker {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = defaults.ReadyToTrip
	}
	if cfg.Classifier != nil {
		classifier = cfg.Classifier
	}

	settings := gobreaker.Settings{
		Name:        "ozonapi",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ReadyToTrip(convertCounts(counts))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from.String(), to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classifier.ShouldTripCircuit(err)
		},
	}

	return &breaker{
		cb:     gobreaker.NewCircuitBreaker[*rawResponse](settings),
		logger: logger,
	}
}

// execute runs the classified send through the breaker, translating breaker
// rejections into jperrors circuit errors:
//   - gobreaker.ErrOpenState becomes jperrors.ErrCircuitOpen
//   - gobreaker.ErrTooManyRequests becomes jperrors.ErrCircuitTooManyRequests
func (b *breaker) execute(send func() (*rawResponse, error)) (*rawResponse, error) {
	resp, err := b.cb.Execute(send)
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			counts := b.cb.Counts()
			b.logger.Warn("circuit breaker is open, request rejected",
				"state", b.cb.State(),
				"counts", counts)
			return nil, jperrors.NewCircuitBreakerError(
				"request rejected",
				"send",
				"open",
				jperrors.WithCause(err),
				jperrors.WithCounts(convertJPCounts(counts)),
			)
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			counts := b.cb.Counts()
			b.logger.Debug("circuit breaker in half-open state, too many requests",
				"error", err)
			return nil, jperrors.NewCircuitBreakerError(
				"too many requests in half-open state",
				"send",
				"half-open",
				jperrors.WithCause(err),
				jperrors.WithCounts(convertJPCounts(counts)),
			)
		}
		return nil, err
	}
	return resp, nil
}

// health reports the breaker state. Half-open counts as healthy but degraded.
func (b *breaker) health() HealthStatus {
	state := b.cb.State()
	counts := convertCounts(b.cb.Counts())

	return HealthStatus{
		Healthy:              state != gobreaker.StateOpen,
		State:                state.String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

func convertCounts(counts gobreaker.Counts) CircuitBreakerCounts {
	return CircuitBreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func convertJPCounts(counts gobreaker.Counts) jperrors.CircuitCounts {
	return jperrors.CircuitCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
