package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/concierge/internal/consts"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, consts.DefaultMaxSteps, cfg.Orchestrator.MaxSteps)
	assert.Equal(t, consts.DefaultMaxToolCalls, cfg.Orchestrator.MaxToolCalls)
	assert.Equal(t, consts.DefaultMaxBatchSize, cfg.Orchestrator.MaxBatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "estimate", cfg.Context.Tokenizer)
	assert.True(t, cfg.Web.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Orchestrator, cfg.Orchestrator)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
orchestrator:
  max_steps: 30
  max_batch_size: 2
  development_mode: true
models:
  default: claude-sonnet-4-5
  synthesis: gpt-4.1
providers:
  work:
    backend: openai
    api_key_env: WORK_OPENAI_KEY
    requests_per_minute: 60
model_providers:
  - model: gpt-4.1
    provider: work
knowledge:
  index_file: /etc/concierge/indexes.yaml
tool_servers:
  notes:
    command:
      exec: ["notes-server", "--stdio"]
    timeout_seconds: 5
  crm:
    url: https://crm.example.com/mcp
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Orchestrator.MaxSteps)
	assert.Equal(t, consts.DefaultMaxToolCalls, cfg.Orchestrator.MaxToolCalls)
	assert.Equal(t, 2, cfg.Orchestrator.MaxBatchSize)
	assert.True(t, cfg.Orchestrator.DevelopmentMode)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Models.Default)
	assert.Equal(t, "gpt-4.1", cfg.Models.Synthesis)
	assert.Equal(t, "openai", cfg.Providers["work"].Backend)
	assert.Equal(t, 60, cfg.Providers["work"].RequestsPerMinute)
	assert.Equal(t, map[string]string{"gpt-4.1": "work"}, cfg.ModelProviderMap())
	assert.Equal(t, "/etc/concierge/indexes.yaml", cfg.Knowledge.IndexFile)

	require.Contains(t, cfg.ToolServers, "notes")
	assert.Equal(t, "command", cfg.ToolServers["notes"].Type)
	assert.Equal(t, []string{"notes-server", "--stdio"}, cfg.ToolServers["notes"].Command.Exec)
	assert.Equal(t, "5s", cfg.ToolServers["notes"].Timeout().String())
	assert.Equal(t, "http", cfg.ToolServers["crm"].Type)
	assert.Equal(t, consts.Timeout30Seconds, cfg.ToolServers["crm"].Timeout())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "orchestrator:\n  max_steps: 30\n")
	t.Setenv("CONCIERGE_ORCHESTRATOR__MAX_STEPS", "40")
	t.Setenv("CONCIERGE_MODELS__DEFAULT", "gemini-2.5-flash")
	t.Setenv("CONCIERGE_SERVER__ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Orchestrator.MaxSteps)
	assert.Equal(t, "gemini-2.5-flash", cfg.Models.Default)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"zero tool calls", "orchestrator:\n  max_tool_calls: 0\n", "max_tool_calls"},
		{"single step", "orchestrator:\n  max_steps: 1\n", "max_steps"},
		{"unknown tokenizer", "context:\n  tokenizer: bpe\n", "tokenizer"},
		{"unknown provider", "model_providers:\n  - model: gpt-4.1\n    provider: nowhere\n", "unknown provider"},
		{"command without exec", "tool_servers:\n  notes:\n    type: command\n", "command.exec"},
		{"separator in server name", "tool_servers:\n  my__notes:\n    url: http://localhost:1/mcp\n", "must not contain"},
		{"malformed yaml", "orchestrator: [", "failed to load config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnabledToolServers(t *testing.T) {
	cfg := Default()
	cfg.ToolServers["on"] = &ToolServerConfig{Type: "http", URL: "http://localhost/mcp"}
	cfg.ToolServers["off"] = &ToolServerConfig{Type: "http", URL: "http://localhost/mcp", Disabled: true}
	cfg.ToolServers["nil"] = nil

	servers := cfg.EnabledToolServers()
	assert.Len(t, servers, 1)
	assert.Contains(t, servers, "on")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CONCIERGE_ORCHESTRATOR__MAX_STEPS":        "orchestrator.max_steps",
		"CONCIERGE_PROVIDERS__WORK__API_KEY":       "providers.work.api_key",
		"CONCIERGE_TELEMETRY__METRICS_ENABLED":     "telemetry.metrics_enabled",
		"CONCIERGE_CONTEXT__TOKEN_BUDGET":          "context.token_budget",
		"CONCIERGE_ARTIFACTS__SIGNATURE_DB":        "artifacts.signature_db",
		"CONCIERGE_KNOWLEDGE__INDEX_FILE":          "knowledge.index_file",
		"CONCIERGE_ORCHESTRATOR__DEVELOPMENT_MODE": "orchestrator.development_mode",
		"CONCIERGE_ORCHESTRATOR__VALIDATE_ANSWERS": "orchestrator.validate_answers",
		"CONCIERGE_ORCHESTRATOR__MAX_BATCH_SIZE":   "orchestrator.max_batch_size",
		"CONCIERGE_ORCHESTRATOR__MAX_TOOL_CALLS":   "orchestrator.max_tool_calls",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
