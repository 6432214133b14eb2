package errors

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Delay computes the backoff delay for a given attempt under a tier behavior.
// Formula: delay = base * (2 ^ attempt), capped at the tier's maximum.
func Delay(attempt int, behavior TierBehavior) time.Duration {
	if behavior.BaseBackoff <= 0 {
		return 0
	}
	factor := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(behavior.BaseBackoff) * factor)
	return capDelay(delay, behavior.MaxBackoff)
}

func capDelay(delay, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

// AddJitter applies a random jitter of ±jitterPercent to prevent thundering herd.
func AddJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return delay
	}
	jitterRange := float64(delay) * jitterPercent
	offset := (rand.Float64()*2 - 1) * jitterRange
	jittered := time.Duration(float64(delay) + offset)
	return ensurePositiveDelay(jittered)
}

func ensurePositiveDelay(delay time.Duration) time.Duration {
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}

// Retry runs fn, retrying per the tier behavior of the returned error.
// A RetryAfter hint on the error overrides the computed backoff for that
// attempt. Returns the last error when attempts are exhausted.
func Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		behavior := GetBehavior(lastErr)
		if !behavior.ShouldRetry || attempt >= behavior.MaxRetries {
			return lastErr
		}

		delay := Delay(attempt, behavior)
		var te *TieredError
		if errors.As(lastErr, &te) && te.RetryAfter > 0 {
			delay = te.RetryAfter
		}

		select {
		case <-time.After(AddJitter(delay, 0.1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
