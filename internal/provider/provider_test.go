package provider

import (
	"testing"

	"github.com/codefionn/concierge/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExplicitMapping(t *testing.T) {
	r := NewResolver(map[string]Definition{
		"work": {Backend: "openai", APIKey: "k1", BaseURL: "http://proxy.local/v1", RequestsPerMinute: 30},
	}, map[string]string{"house-model": "work"})

	cfg, err := r.Resolve("House-Model")
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderConfig{
		Name:              "work",
		Backend:           llm.BackendOpenAI,
		APIKey:            "k1",
		BaseURL:           "http://proxy.local/v1",
		RequestsPerMinute: 30,
	}, cfg)
}

func TestResolveMappingToUnknownProvider(t *testing.T) {
	r := NewResolver(nil, map[string]string{"m": "ghost"})
	_, err := r.Resolve("m")
	assert.Error(t, err)
}

func TestResolveByFamily(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env")
	r := NewResolver(map[string]Definition{
		"gemini": {APIKey: "g"},
	}, nil)

	cfg, err := r.Resolve("claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Equal(t, llm.BackendAnthropic, cfg.Backend)
	assert.Equal(t, "anthropic-env", cfg.APIKey)

	cfg, err = r.Resolve("gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Name)
	assert.Equal(t, llm.BackendGoogle, cfg.Backend)
	assert.Equal(t, "g", cfg.APIKey)
}

func TestResolveUnknownModel(t *testing.T) {
	r := NewResolver(nil, nil)
	_, err := r.Resolve("llama-3")
	assert.ErrorIs(t, err, ErrUnknownModel)
	_, err = r.Resolve("  ")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestDetectBackend(t *testing.T) {
	tests := map[string]string{
		"claude-opus-4-1":      llm.BackendAnthropic,
		"gpt-4o-mini":          llm.BackendOpenAI,
		"o3-mini":              llm.BackendOpenAI,
		"openai/gpt-5":         llm.BackendOpenAI,
		"gemini-2.5-pro":       llm.BackendGoogle,
		"mistral-large-latest": "",
	}
	for model, want := range tests {
		assert.Equal(t, want, DetectBackend(model), model)
	}
}
