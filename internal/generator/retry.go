package generator

import (
	"context"
	"errors"
	"time"

	"stockmeta/internal/logging"
	"stockmeta/internal/services/gemini"
)

func withRateLimitRetry(ctx context.Context, g *Generator, fn func() (gemini.Response, error), name string) (gemini.Response, error) {
	attempts := g.attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !gemini.IsRateLimit(err) || attempt == attempts {
			break
		}
		delay := backoffDelay(g.base, attempt)
		g.logger.Warn("rate limited, backing off",
			logging.String(logging.FieldItemID, name),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.String(logging.FieldEventType, "rate_limit_retry"),
			logging.String(logging.FieldErrorHint, "reduce batch size or wait for quota reset"),
		)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return gemini.Response{}, sleepErr
		}
	}
	return gemini.Response{}, lastErr
}

// backoffDelay returns base * 2^(attempt-1).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

func (g *Generator) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("generator retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if g.sleeper != nil {
		g.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
