// Package config loads the concierge configuration from a YAML file and
// CONCIERGE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/provider"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: CONCIERGE_ORCHESTRATOR__MAX_STEPS.
const EnvPrefix = "CONCIERGE_"

const maxConfigFileSize = 1024 * 1024

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error, none
	Path  string `koanf:"path"`  // empty logs to stderr
}

// OrchestratorConfig holds per-run budgets.
type OrchestratorConfig struct {
	MaxSteps        int  `koanf:"max_steps"`
	MaxToolCalls    int  `koanf:"max_tool_calls"`
	MaxBatchSize    int  `koanf:"max_batch_size"`
	DevelopmentMode bool `koanf:"development_mode"`
	ValidateAnswers bool `koanf:"validate_answers"`
}

// ModelsConfig names the model used per phase. Empty phases use Default.
type ModelsConfig struct {
	Default    string `koanf:"default"`
	Planning   string `koanf:"planning"`
	Evaluation string `koanf:"evaluation"`
	Synthesis  string `koanf:"synthesis"`
	Validation string `koanf:"validation"`
}

// ModelProvider pins a model id to a named provider. It is a list entry
// rather than a map key because model ids may contain dots.
type ModelProvider struct {
	Model    string `koanf:"model"`
	Provider string `koanf:"provider"`
}

// KnowledgeConfig points at the knowledge index file.
type KnowledgeConfig struct {
	IndexFile string `koanf:"index_file"`
}

// ArtifactsConfig configures artifact signature persistence.
type ArtifactsConfig struct {
	SignatureDB string `koanf:"signature_db"` // empty keeps signatures in memory
}

// ToolServerConfig describes an external tool server.
type ToolServerConfig struct {
	Type           string            `koanf:"type"` // "command" or "http"
	Description    string            `koanf:"description"`
	Command        *CommandConfig    `koanf:"command"`
	URL            string            `koanf:"url"`
	Headers        map[string]string `koanf:"headers"`
	TimeoutSeconds int               `koanf:"timeout_seconds"`
	Disabled       bool              `koanf:"disabled"`
}

// CommandConfig describes a tool server started as a subprocess.
type CommandConfig struct {
	Exec       []string          `koanf:"exec"`
	WorkingDir string            `koanf:"working_dir"`
	Env        map[string]string `koanf:"env"`
}

// Timeout returns the per-call timeout of a tool server.
func (c *ToolServerConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSeconds <= 0 {
		return consts.Timeout30Seconds
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WebConfig configures the built-in web_lookup tool.
type WebConfig struct {
	Enabled        bool   `koanf:"enabled"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MaxBytes       int64  `koanf:"max_bytes"`
	UserAgent      string `koanf:"user_agent"`
}

// ContextConfig bounds the context digest handed to prompts.
type ContextConfig struct {
	TokenBudget int    `koanf:"token_budget"`
	Tokenizer   string `koanf:"tokenizer"` // estimate or tiktoken
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// TelemetryConfig toggles the metrics endpoint.
type TelemetryConfig struct {
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// Config represents application configuration
type Config struct {
	Log            LogConfig                      `koanf:"log"`
	Orchestrator   OrchestratorConfig             `koanf:"orchestrator"`
	Models         ModelsConfig                   `koanf:"models"`
	Providers      map[string]provider.Definition `koanf:"providers"`
	ModelProviders []ModelProvider                `koanf:"model_providers"`
	Knowledge      KnowledgeConfig                `koanf:"knowledge"`
	Artifacts      ArtifactsConfig                `koanf:"artifacts"`
	ToolServers    map[string]*ToolServerConfig   `koanf:"tool_servers"`
	Web            WebConfig                      `koanf:"web"`
	Context        ContextConfig                  `koanf:"context"`
	Server         ServerConfig                   `koanf:"server"`
	Telemetry      TelemetryConfig                `koanf:"telemetry"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "concierge")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "concierge")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "concierge")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "concierge")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "concierge")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "concierge")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "concierge")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "concierge")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "concierge")
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// DefaultSignatureDB returns the default artifact signature database path.
func DefaultSignatureDB() string {
	return filepath.Join(defaultStateDir(), "artifacts.db")
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Orchestrator: OrchestratorConfig{
			MaxSteps:     consts.DefaultMaxSteps,
			MaxToolCalls: consts.DefaultMaxToolCalls,
			MaxBatchSize: consts.DefaultMaxBatchSize,
		},
		Providers:   make(map[string]provider.Definition),
		ToolServers: make(map[string]*ToolServerConfig),
		Web: WebConfig{
			Enabled:        true,
			TimeoutSeconds: int(consts.Timeout20Seconds / time.Second),
			MaxBytes:       consts.MaxWebLookupBytes,
			UserAgent:      "concierge/1.0",
		},
		Context: ContextConfig{
			TokenBudget: consts.DefaultContextTokenBudget,
			Tokenizer:   "estimate",
		},
		Server:    ServerConfig{Addr: "127.0.0.1:8080"},
		Telemetry: TelemetryConfig{MetricsEnabled: true},
	}
}

// Load reads the YAML file at path over the defaults and applies
// CONCIERGE_ environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// envKey maps CONCIERGE_MODELS__DEFAULT to models.default.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Providers == nil {
		c.Providers = make(map[string]provider.Definition)
	}
	if c.ToolServers == nil {
		c.ToolServers = make(map[string]*ToolServerConfig)
	}
	if c.Context.Tokenizer == "" {
		c.Context.Tokenizer = "estimate"
	}
	if c.Context.TokenBudget == 0 {
		c.Context.TokenBudget = consts.DefaultContextTokenBudget
	}
	if c.Web.TimeoutSeconds == 0 {
		c.Web.TimeoutSeconds = int(consts.Timeout20Seconds / time.Second)
	}
	if c.Web.MaxBytes == 0 {
		c.Web.MaxBytes = consts.MaxWebLookupBytes
	}
	for name, server := range c.ToolServers {
		if server != nil && server.Type == "" {
			switch {
			case server.Command != nil:
				server.Type = "command"
			case server.URL != "":
				server.Type = "http"
			}
		}
		c.ToolServers[name] = server
	}
}

// Validate rejects configurations the orchestrator cannot run with.
func (c *Config) Validate() error {
	var errs []error

	o := c.Orchestrator
	if o.MaxSteps < 2 {
		errs = append(errs, fmt.Errorf("orchestrator.max_steps must be at least 2, got %d", o.MaxSteps))
	}
	if o.MaxToolCalls < 1 {
		errs = append(errs, fmt.Errorf("orchestrator.max_tool_calls must be positive, got %d", o.MaxToolCalls))
	}
	if o.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("orchestrator.max_batch_size must be positive, got %d", o.MaxBatchSize))
	}
	if c.Context.TokenBudget < 0 {
		errs = append(errs, fmt.Errorf("context.token_budget must not be negative"))
	}
	switch strings.ToLower(c.Context.Tokenizer) {
	case "estimate", "tiktoken":
	default:
		errs = append(errs, fmt.Errorf("context.tokenizer must be estimate or tiktoken, got %q", c.Context.Tokenizer))
	}

	for _, mp := range c.ModelProviders {
		if strings.TrimSpace(mp.Model) == "" {
			errs = append(errs, errors.New("model_providers entry without model"))
			continue
		}
		if _, ok := c.Providers[mp.Provider]; !ok {
			errs = append(errs, fmt.Errorf("model %s references unknown provider %q", mp.Model, mp.Provider))
		}
	}

	for name, server := range c.ToolServers {
		if server == nil || server.Disabled {
			continue
		}
		if strings.Contains(name, consts.ExternalToolSeparator) {
			errs = append(errs, fmt.Errorf("tool server name %q must not contain %q", name, consts.ExternalToolSeparator))
		}
		switch server.Type {
		case "command":
			if server.Command == nil || len(server.Command.Exec) == 0 {
				errs = append(errs, fmt.Errorf("tool server %s: command.exec is required", name))
			}
		case "http":
			if strings.TrimSpace(server.URL) == "" {
				errs = append(errs, fmt.Errorf("tool server %s: url is required", name))
			}
		default:
			errs = append(errs, fmt.Errorf("tool server %s: unsupported type %q", name, server.Type))
		}
	}

	return errors.Join(errs...)
}

// ModelProviderMap returns the model -> provider pins as a map.
func (c *Config) ModelProviderMap() map[string]string {
	out := make(map[string]string, len(c.ModelProviders))
	for _, mp := range c.ModelProviders {
		out[mp.Model] = mp.Provider
	}
	return out
}

// EnabledToolServers returns the enabled tool servers.
func (c *Config) EnabledToolServers() map[string]*ToolServerConfig {
	out := make(map[string]*ToolServerConfig, len(c.ToolServers))
	for name, server := range c.ToolServers {
		if server != nil && !server.Disabled {
			out[name] = server
		}
	}
	return out
}
