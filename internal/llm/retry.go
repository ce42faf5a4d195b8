package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/metrics"
	"github.com/rs/zerolog"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     12 * time.Second,
	}
}

// RetryingClient retries throttling, 5xx and network failures when a
// completion or stream is started. Failures in the middle of a stream are
// not retried.
type RetryingClient struct {
	next   Client
	cfg    RetryConfig
	logger *zerolog.Logger
}

func NewRetryingClient(next Client, cfg RetryConfig, logger *zerolog.Logger) *RetryingClient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &RetryingClient{next: next, cfg: cfg, logger: logger}
}

func (c *RetryingClient) Name() string { return c.next.Name() }

func (c *RetryingClient) Complete(ctx context.Context, request Request) (*Response, error) {
	start := time.Now()
	defer func() {
		metrics.LLMCallDuration.WithLabelValues(c.next.Name(), "complete").Observe(time.Since(start).Seconds())
	}()
	return retry(ctx, c, func() (*Response, error) {
		return c.next.Complete(ctx, request)
	})
}

func (c *RetryingClient) Stream(ctx context.Context, request Request) (iter.Seq2[string, error], error) {
	start := time.Now()
	defer func() {
		metrics.LLMCallDuration.WithLabelValues(c.next.Name(), "stream_start").Observe(time.Since(start).Seconds())
	}()
	return retry(ctx, c, func() (iter.Seq2[string, error], error) {
		return c.next.Stream(ctx, request)
	})
}

func retry[T any](ctx context.Context, c *RetryingClient, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}
		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		delay := CalculateBackoff(attempt, c.cfg.InitialDelay, c.cfg.MaxDelay)
		c.logger.Warn().
			Err(err).
			Str("provider", c.next.Name()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying LLM call")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("max retries %d exceeded: %w", c.cfg.MaxRetries, lastErr)
}

// IsRetryableError reports whether err looks transient: throttling, a
// server-side failure or a dropped connection.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	errStr := err.Error()

	// Throttling
	if strings.Contains(errStr, "ThrottlingException") ||
		strings.Contains(errStr, "TooManyRequestsException") ||
		strings.Contains(errStr, "Rate exceeded") ||
		strings.Contains(errStr, "429") {
		return true
	}

	// 5xx
	if strings.Contains(errStr, "InternalServerException") ||
		strings.Contains(errStr, "ServiceUnavailableException") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") {
		return true
	}

	// Network
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "timeout") {
		return true
	}

	return false
}

// CalculateBackoff doubles initialDelay per attempt, caps it at maxDelay and
// adds up to 20% jitter either way.
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	backoff := float64(initialDelay) * math.Pow(2, float64(attempt))
	if backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	jitter := backoff * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(backoff + jitter)
}
