package actor

import (
	"context"
	"math/rand"
	"time"
)

/*
retryForever runs fn with exponential backoff and jitter until it
succeeds or ctx is cancelled, never giving up otherwise - the MemoryFirst
edge-processor strategy must not drop an event, only delay its durability.
Adapted from a bounded exponential-backoff retry loop elsewhere in the
retrieval pack: the bound is removed here since a persistor write must
eventually land, and the delay formula gains a cap and multiplicative
jitter instead of additive sub-base jitter.
*/
func retryForever(ctx context.Context, cfg Config, fn func() error) error {
	delay := cfg.RetryBase
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	capDelay := cfg.RetryCap
	if capDelay <= 0 {
		capDelay = 10 * time.Second
	}

	for attempt := 0; ; attempt++ {
		if err := fn(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(delay, cfg.RetryJitter)):
		}

		delay *= 2
		if delay > capDelay {
			delay = capDelay
		}
	}
}

/*
jitter scales d by a random factor in [1-frac, 1+frac].
*/
func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	offset := (rand.Float64()*2 - 1) * frac
	return time.Duration(float64(d) * (1 + offset))
}
