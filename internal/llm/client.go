package llm

import (
	"context"
	"errors"
)

var (
	// ErrNoBackend is returned when a provider config names an unregistered backend kind.
	ErrNoBackend = errors.New("no backend registered for provider")
	// ErrMissingAPIKey is returned by backends that require credentials.
	ErrMissingAPIKey = errors.New("provider requires an API key")
)

// Backend kinds understood by the default router.
const (
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
	BackendGoogle    = "google"
)

// ProviderConfig selects and authenticates a language-model backend. It is
// produced from a model identifier by the provider resolver.
type ProviderConfig struct {
	Name              string `json:"name"`
	Backend           string `json:"backend"`
	APIKey            string `json:"-"`
	BaseURL           string `json:"base_url,omitempty"`
	RequestsPerMinute int    `json:"requests_per_minute,omitempty"`
}

// Image is an inline image attached to a prompt.
type Image struct {
	MediaType string
	Data      []byte
}

// GenerateOptions are per-call generation options.
type GenerateOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	Images      []Image
	// FileIDs are opaque provider-side file references. Backends that cannot
	// attach them ignore them.
	FileIDs []string
}

// Generation is the text produced by a backend.
type Generation struct {
	Text  string
	Model string
}

// Generator produces text for a prompt against the backend described by cfg.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg ProviderConfig, opts GenerateOptions) (*Generation, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, cfg ProviderConfig, opts GenerateOptions) (*Generation, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, cfg ProviderConfig, opts GenerateOptions) (*Generation, error) {
	return f(ctx, prompt, cfg, opts)
}

// Backend is one concrete provider connection.
type Backend interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// BackendFactory creates a Backend for a provider config.
type BackendFactory func(cfg ProviderConfig) (Backend, error)

// Float returns a pointer to v, for GenerateOptions.Temperature.
func Float(v float64) *float64 {
	return &v
}
