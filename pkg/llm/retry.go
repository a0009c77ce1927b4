package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		InitialWait: time.Second,
		MaxWait:     8 * time.Second,
	}
}

// retrying retries temporary failures with exponential backoff and jitter.
type retrying struct {
	inner  Completer
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps c so that temporary failures are retried.
func WithRetry(c Completer, cfg RetryConfig) Completer {
	if cfg.MaxAttempts <= 1 {
		return c
	}
	return &retrying{inner: c, config: cfg, sleep: sleepContext}
}

func (r *retrying) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := range r.config.MaxAttempts {
		text, err := r.inner.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) || attempt == r.config.MaxAttempts-1 {
			break
		}
		wait := r.backoff(attempt)
		logger.Warn("completion failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (r *retrying) backoff(attempt int) time.Duration {
	wait := r.config.InitialWait << attempt
	if r.config.MaxWait > 0 && (wait > r.config.MaxWait || wait <= 0) {
		wait = r.config.MaxWait
	}
	jitter := time.Duration(float64(wait) * 0.2 * (2*rand.Float64() - 1))
	return max(wait+jitter, 0)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var unavailable *ErrUnavailable
	if errors.As(err, &unavailable) {
		return unavailable.Temporary()
	}
	return errors.Is(err, ErrEmptyResponse)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
