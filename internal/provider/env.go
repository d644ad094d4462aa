package provider

import (
	"os"
	"strings"

	"github.com/codefionn/concierge/internal/llm"
)

// providerEnvVars maps canonical backend names to the environment variables
// that can supply their API keys.
var providerEnvVars = map[string][]string{
	llm.BackendOpenAI:    {"OPENAI_API_KEY"},
	llm.BackendAnthropic: {"ANTHROPIC_API_KEY"},
	llm.BackendGoogle:    {"GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_API_KEY"},
}

// canonicalBackendName normalizes backend aliases so they share the same
// environment-variable mapping.
func canonicalBackendName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "google", "googleai", "gemini":
		return llm.BackendGoogle
	case "anthropic", "claude":
		return llm.BackendAnthropic
	case "openai", "openai-compatible":
		return llm.BackendOpenAI
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// resolveAPIKey returns the API key to use for a backend. An explicit key wins,
// then the named environment variable, then the well-known variables for the
// backend. An empty string signals that no key is available.
func resolveAPIKey(backend, explicit, envVar string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if envVar = strings.TrimSpace(envVar); envVar != "" {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			return value
		}
	}
	for _, name := range providerEnvVars[canonicalBackendName(backend)] {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}

// EnvVarHints returns the known environment variables for a backend.
func EnvVarHints(backend string) []string {
	hints := providerEnvVars[canonicalBackendName(backend)]
	out := make([]string, len(hints))
	copy(out, hints)
	return out
}
