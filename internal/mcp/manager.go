// Package mcp exposes the tools of external MCP servers through the tool
// registry.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codefionn/concierge/internal/config"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/logger"
	"github.com/codefionn/concierge/internal/tools"
)

// TransportFactory creates the client transport for a configured server.
type TransportFactory func(name string, cfg *config.ToolServerConfig) (mcp.Transport, error)

// Option configures a Manager.
type Option func(*Manager)

// WithTransportFactory replaces the default command/http transports.
func WithTransportFactory(f TransportFactory) Option {
	return func(m *Manager) { m.transportFor = f }
}

// WithHTTPClient sets the HTTP client used for streamable HTTP servers.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// Manager connects to the configured servers and registers every tool they
// offer as "<server>__<tool>" in category external.
type Manager struct {
	registry     *tools.Registry
	servers      map[string]*config.ToolServerConfig
	client       *mcp.Client
	httpClient   *http.Client
	transportFor TransportFactory

	mu       sync.Mutex
	sessions map[string]*mcp.ClientSession
}

// NewManager creates a new MCP manager.
func NewManager(registry *tools.Registry, servers map[string]*config.ToolServerConfig, opts ...Option) *Manager {
	m := &Manager{
		registry:   registry,
		servers:    servers,
		client:     mcp.NewClient(&mcp.Implementation{Name: "concierge", Version: "1.0.0"}, nil),
		httpClient: &http.Client{Timeout: consts.Timeout30Seconds},
		sessions:   make(map[string]*mcp.ClientSession),
	}
	m.transportFor = m.defaultTransport
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start connects to every enabled server. A server that fails is skipped
// and reported; the others stay usable.
func (m *Manager) Start(ctx context.Context) []error {
	if m == nil {
		return nil
	}

	names := make([]string, 0, len(m.servers))
	for name, cfg := range m.servers {
		if cfg == nil || cfg.Disabled {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		count, err := m.startServer(ctx, name, m.servers[name])
		if err != nil {
			logger.Warn("mcp: server %s unavailable: %v", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		logger.Info("mcp: server %s registered %d tool(s)", name, count)
	}
	return errs
}

func (m *Manager) startServer(ctx context.Context, name string, cfg *config.ToolServerConfig) (int, error) {
	transport, err := m.transportFor(name, cfg)
	if err != nil {
		return 0, err
	}

	session, err := m.client.Connect(ctx, transport, nil)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}

	serverTools, err := m.buildServerTools(ctx, name, cfg, session)
	if err != nil {
		_ = session.Close()
		return 0, err
	}

	m.mu.Lock()
	if prev, ok := m.sessions[name]; ok {
		_ = prev.Close()
	}
	m.sessions[name] = session
	m.mu.Unlock()

	m.registry.RemoveByPrefix(toolPrefix(name))
	for _, tool := range serverTools {
		m.registry.Register(tool)
	}
	return len(serverTools), nil
}

func (m *Manager) buildServerTools(ctx context.Context, name string, cfg *config.ToolServerConfig, session *mcp.ClientSession) ([]tools.Tool, error) {
	var (
		result    []tools.Tool
		nameUsage = make(map[string]int)
		cursor    string
	)
	for {
		page, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("list tools: %w", err)
		}
		for _, t := range page.Tools {
			if t == nil || t.Name == "" {
				continue
			}
			result = append(result, &serverTool{
				name:        uniqueToolName(toolPrefix(name)+sanitizeName(t.Name), nameUsage),
				remoteName:  t.Name,
				server:      name,
				description: describe(name, cfg, t),
				schema:      schemaMap(t.InputSchema),
				session:     session,
				timeout:     cfg.Timeout(),
			})
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return result, nil
}

// Stop unregisters all external tools and closes the sessions.
func (m *Manager) Stop() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, session := range m.sessions {
		m.registry.RemoveByPrefix(toolPrefix(name))
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(m.sessions, name)
	}
	return errors.Join(errs...)
}

// Connected returns the names of the servers with a live session.
func (m *Manager) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) defaultTransport(name string, cfg *config.ToolServerConfig) (mcp.Transport, error) {
	switch strings.ToLower(cfg.Type) {
	case "command":
		if cfg.Command == nil || len(cfg.Command.Exec) == 0 {
			return nil, fmt.Errorf("command configuration requires at least one argument")
		}
		cmd := exec.Command(cfg.Command.Exec[0], cfg.Command.Exec[1:]...)
		cmd.Dir = cfg.Command.WorkingDir
		if len(cfg.Command.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Command.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case "http":
		client := m.httpClient
		if len(cfg.Headers) > 0 {
			client = &http.Client{
				Timeout:   m.httpClient.Timeout,
				Transport: &headerTransport{headers: cloneStringMap(cfg.Headers), base: m.httpClient.Transport},
			}
		}
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: client}, nil
	default:
		return nil, fmt.Errorf("unsupported tool server type: %s", cfg.Type)
	}
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// serverTool forwards calls to one tool of a connected server.
type serverTool struct {
	name        string
	remoteName  string
	server      string
	description string
	schema      map[string]interface{}
	session     *mcp.ClientSession
	timeout     time.Duration
}

func (t *serverTool) Name() string                       { return t.name }
func (t *serverTool) Description() string                { return t.description }
func (t *serverTool) Category() string                   { return consts.CategoryExternal }
func (t *serverTool) Parameters() map[string]interface{} { return t.schema }

func (t *serverTool) Execute(ctx context.Context, params map[string]interface{}) *tools.Result {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{Name: t.remoteName, Arguments: params})
	if err != nil {
		return tools.Failed("%s call failed: %v", t.name, err)
	}

	text := contentText(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return tools.Failed("%s", text)
	}

	var data interface{} = text
	if res.StructuredContent != nil {
		data = res.StructuredContent
	}
	return tools.OK(data, fmt.Sprintf("%s returned %d content block(s)", t.remoteName, len(res.Content)))
}

func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s]", v.MIMEType))
		}
	}
	return strings.Join(parts, "\n")
}

func describe(server string, cfg *config.ToolServerConfig, t *mcp.Tool) string {
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		desc = fmt.Sprintf("Tool %s of server %s", t.Name, server)
	}
	if cfg.Description != "" {
		desc = fmt.Sprintf("%s (%s)", desc, cfg.Description)
	}
	return desc
}

// schemaMap converts whatever schema type the SDK hands out into a plain map.
func schemaMap(schema interface{}) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{"type": "object"}
	}
	if m, ok := schema.(map[string]interface{}); ok {
		return m
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]interface{}{"type": "object"}
	}
	return out
}

func toolPrefix(server string) string {
	return sanitizeName(server) + consts.ExternalToolSeparator
}

func sanitizeName(name string) string {
	if name == "" {
		return "mcp"
	}
	name = strings.ToLower(name)
	var b strings.Builder
	prevUnderscore := false
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	result := strings.Trim(b.String(), "_")
	if result == "" {
		return "mcp"
	}
	return result
}

func uniqueToolName(base string, usage map[string]int) string {
	count := usage[base]
	if count == 0 {
		usage[base] = 1
		return base
	}
	count++
	usage[base] = count
	return fmt.Sprintf("%s_%d", base, count)
}

func cloneStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		out[k] = v
	}
	return out
}
