package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codefionn/concierge/internal/logger"
)

const defaultMaxAttempts = 3

// Router is the default Generator. It creates one backend per distinct
// provider config and reuses it until Close.
type Router struct {
	mu          sync.Mutex
	factories   map[string]BackendFactory
	backends    map[string]Backend
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	closed      bool
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithBackendFactory registers (or replaces) the factory for a backend kind.
func WithBackendFactory(kind string, factory BackendFactory) RouterOption {
	return func(r *Router) {
		r.factories[strings.ToLower(kind)] = factory
	}
}

// WithMaxAttempts sets how often transient failures are attempted.
func WithMaxAttempts(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RouterOption {
	return func(r *Router) {
		r.sleep = sleep
	}
}

// NewRouter creates a Router with the anthropic, openai and google backends registered.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		factories: map[string]BackendFactory{
			BackendAnthropic: NewAnthropicBackend,
			BackendOpenAI:    NewOpenAIBackend,
			BackendGoogle:    NewGoogleBackend,
		},
		backends:    make(map[string]Backend),
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate resolves the backend for cfg and produces text, retrying transient failures.
func (r *Router) Generate(ctx context.Context, prompt string, cfg ProviderConfig, opts GenerateOptions) (*Generation, error) {
	backend, err := r.backendFor(cfg)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		text, err := backend.Generate(ctx, prompt, opts)
		if err == nil {
			return &Generation{Text: text, Model: opts.Model}, nil
		}

		logger.Warn("llm: %s completion error (attempt %d/%d): %v", cfg.Backend, attempt, r.maxAttempts, err)
		if attempt >= r.maxAttempts || ctx.Err() != nil {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		wait, transient := backoffFor(err, attempt)
		if !transient {
			return nil, err
		}
		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Close drops all cached backends. Later calls fail.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends = make(map[string]Backend)
	r.closed = true
	return nil
}

func (r *Router) backendFor(cfg ProviderConfig) (Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Backend))
	key := kind + "|" + cfg.BaseURL + "|" + cfg.APIKey + "|" + fmt.Sprint(cfg.RequestsPerMinute)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("llm router is closed")
	}
	if b, ok := r.backends[key]; ok {
		return b, nil
	}

	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBackend, cfg.Backend)
	}
	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", kind, err)
	}
	backend = NewRateLimitedBackend(backend, cfg.RequestsPerMinute)
	r.backends[key] = backend
	return backend, nil
}

// backoffFor classifies err and returns how long to wait before the next attempt.
func backoffFor(err error, attempt int) (time.Duration, bool) {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "429"):
		seconds := 5 * (1 << uint(attempt-1))
		if seconds > 120 {
			seconds = 120
		}
		return time.Duration(seconds) * time.Second, true
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return time.Duration(attempt*3) * time.Second, true
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "overloaded"):
		return time.Duration(attempt*3) * time.Second, true
	}
	return 0, false
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
