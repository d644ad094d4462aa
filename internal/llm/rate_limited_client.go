package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedBackend wraps another Backend and spaces requests out to a
// requests-per-minute budget.
type rateLimitedBackend struct {
	delegate Backend
	limiter  *rate.Limiter
}

// NewRateLimitedBackend returns base unchanged when requestsPerMinute is not positive.
func NewRateLimitedBackend(base Backend, requestsPerMinute int) Backend {
	if base == nil || requestsPerMinute <= 0 {
		return base
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &rateLimitedBackend{
		delegate: base,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (b *rateLimitedBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return b.delegate.Generate(ctx, prompt, opts)
}
