// Package provider maps model identifiers to language-model provider configs.
package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/codefionn/concierge/internal/llm"
)

// ErrUnknownModel is returned when no provider can be determined for a model.
var ErrUnknownModel = errors.New("no provider configured for model")

// Definition configures one named provider.
type Definition struct {
	Backend           string `koanf:"backend" json:"backend"`
	APIKey            string `koanf:"api_key" json:"-"`
	APIKeyEnv         string `koanf:"api_key_env" json:"api_key_env,omitempty"`
	BaseURL           string `koanf:"base_url" json:"base_url,omitempty"`
	RequestsPerMinute int    `koanf:"requests_per_minute" json:"requests_per_minute,omitempty"`
}

// Resolver turns model ids into provider configs. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	providers      map[string]Definition
	modelProviders map[string]string
}

// NewResolver creates a Resolver. modelProviders maps a model id to a key of
// providers; models without an entry fall back to family detection.
func NewResolver(providers map[string]Definition, modelProviders map[string]string) *Resolver {
	r := &Resolver{
		providers:      make(map[string]Definition, len(providers)),
		modelProviders: make(map[string]string, len(modelProviders)),
	}
	for name, def := range providers {
		r.providers[strings.ToLower(name)] = def
	}
	for model, name := range modelProviders {
		r.modelProviders[strings.ToLower(model)] = strings.ToLower(name)
	}
	return r
}

// Resolve returns the provider config for a model id.
func (r *Resolver) Resolve(model string) (llm.ProviderConfig, error) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return llm.ProviderConfig{}, fmt.Errorf("%w: empty model id", ErrUnknownModel)
	}

	if name, ok := r.modelProviders[model]; ok {
		def, ok := r.providers[name]
		if !ok {
			return llm.ProviderConfig{}, fmt.Errorf("model %s references unknown provider %q", model, name)
		}
		return r.build(name, def), nil
	}

	backend := DetectBackend(model)
	if backend == "" {
		return llm.ProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	// Prefer a configured provider using the detected backend.
	for _, name := range r.providerNames() {
		def := r.providers[name]
		if canonicalBackendName(backendOf(name, def)) == backend {
			return r.build(name, def), nil
		}
	}
	return r.build(backend, Definition{Backend: backend}), nil
}

func (r *Resolver) build(name string, def Definition) llm.ProviderConfig {
	backend := canonicalBackendName(backendOf(name, def))
	return llm.ProviderConfig{
		Name:              name,
		Backend:           backend,
		APIKey:            resolveAPIKey(backend, def.APIKey, def.APIKeyEnv),
		BaseURL:           def.BaseURL,
		RequestsPerMinute: def.RequestsPerMinute,
	}
}

func (r *Resolver) providerNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func backendOf(name string, def Definition) string {
	if def.Backend != "" {
		return def.Backend
	}
	return name
}

// DetectBackend infers a backend from a model family prefix. It returns an
// empty string for unknown families.
func DetectBackend(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	if idx := strings.LastIndex(m, "/"); idx >= 0 {
		m = m[idx+1:]
	}
	switch {
	case strings.HasPrefix(m, "claude"):
		return llm.BackendAnthropic
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "chatgpt"),
		strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return llm.BackendOpenAI
	case strings.HasPrefix(m, "gemini"):
		return llm.BackendGoogle
	default:
		return ""
	}
}
