package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fairlens/fairlens/internal/evaluator/configuration"
)

func TestBackoffDelay(t *testing.T) {
	cfg := configuration.RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2.0,
	}

	t.Run("first attempt has no delay", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), backoffDelay(1, cfg))
		assert.Equal(t, time.Duration(0), backoffDelay(0, cfg))
	})

	t.Run("grows exponentially without jitter", func(t *testing.T) {
		assert.Equal(t, 500*time.Millisecond, backoffDelay(2, cfg))
		assert.Equal(t, time.Second, backoffDelay(3, cfg))
		assert.Equal(t, 2*time.Second, backoffDelay(4, cfg))
	})

	t.Run("caps at max interval", func(t *testing.T) {
		assert.Equal(t, 8*time.Second, backoffDelay(10, cfg))
	})

	t.Run("jitter stays within calculated backoff", func(t *testing.T) {
		jittered := cfg
		jittered.UseJitter = true
		for i := 0; i < 50; i++ {
			d := backoffDelay(3, jittered)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, time.Second)
		}
	})

	t.Run("non-positive interval never hot loops", func(t *testing.T) {
		zero := configuration.RetryConfig{Multiplier: 2.0, MaxInterval: time.Second}
		assert.Greater(t, backoffDelay(2, zero), time.Duration(0))
	})
}
