package evaluator

import (
	"math/rand"
	"time"

	"github.com/fairlens/fairlens/internal/evaluator/configuration"
)

// backoffDelay calculates the retry delay before the given attempt using
// exponential backoff with optional full jitter. Attempt numbering starts
// at 1; the first attempt carries no delay. Thread-safe via math/rand/v2.
func backoffDelay(attempt int, cfg configuration.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := cfg.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond // Minimum 1ms to prevent hot loop.
	}

	multiplier := cfg.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}

	for i := 2; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * multiplier)
		if backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
			break
		}
	}

	if cfg.UseJitter {
		// Full jitter: random between 0 and the calculated backoff.
		jitterMs := rand.Int63n(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
		return time.Duration(jitterMs) * time.Millisecond
	}

	return backoff
}
