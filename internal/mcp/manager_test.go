package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/concierge/internal/config"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/tools"
)

type noteArgs struct {
	Query string `json:"query"`
}

func newNotesServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "notes", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "find-note", Description: "Find notes by keyword"},
		func(ctx context.Context, req *mcp.CallToolRequest, args noteArgs) (*mcp.CallToolResult, any, error) {
			if args.Query == "" {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: "query is required"}},
				}, nil, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "note about " + args.Query}},
			}, nil, nil
		})
	return server
}

func inMemory(t *testing.T, servers map[string]*mcp.Server) TransportFactory {
	return func(name string, cfg *config.ToolServerConfig) (mcp.Transport, error) {
		server, ok := servers[name]
		if !ok {
			return nil, errors.New("no such server")
		}
		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		session, err := server.Connect(context.Background(), serverTransport, nil)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = session.Close() })
		return clientTransport, nil
	}
}

func TestManagerRegistersServerTools(t *testing.T) {
	registry := tools.NewRegistry()
	cfgs := map[string]*config.ToolServerConfig{
		"Notes":    {Type: "command", Description: "personal notes"},
		"broken":   {Type: "command"},
		"disabled": {Type: "command", Disabled: true},
	}
	m := NewManager(registry, cfgs, WithTransportFactory(inMemory(t, map[string]*mcp.Server{"Notes": newNotesServer()})))

	errs := m.Start(context.Background())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")
	assert.Equal(t, []string{"Notes"}, m.Connected())

	external := registry.ListByCategory(consts.CategoryExternal)
	require.Len(t, external, 1)
	assert.Equal(t, "notes__find_note", external[0].Name)
	assert.Equal(t, "Find notes by keyword (personal notes)", external[0].Description)
	assert.Contains(t, tools.ParameterNames(external[0].Parameters), "query")

	res := registry.Execute(context.Background(), "notes__find_note", map[string]interface{}{"query": "budget"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "note about budget", res.Data)

	res = registry.Execute(context.Background(), "notes__find_note", map[string]interface{}{"query": ""})
	assert.False(t, res.Success)
	assert.Equal(t, "query is required", res.Error)

	// Arguments are checked against the input schema before the handler runs.
	res = registry.Execute(context.Background(), "notes__find_note", map[string]interface{}{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "query")

	require.NoError(t, m.Stop())
	assert.False(t, registry.Has("notes__find_note"))
	assert.Empty(t, m.Connected())
}

func TestManagerNilIsNoop(t *testing.T) {
	var m *Manager
	assert.Nil(t, m.Start(context.Background()))
	assert.NoError(t, m.Stop())
}

func TestDefaultTransport(t *testing.T) {
	m := NewManager(tools.NewRegistry(), nil)

	tr, err := m.defaultTransport("notes", &config.ToolServerConfig{Type: "command", Command: &config.CommandConfig{Exec: []string{"notes-server", "--stdio"}}})
	require.NoError(t, err)
	assert.IsType(t, &mcp.CommandTransport{}, tr)

	tr, err = m.defaultTransport("crm", &config.ToolServerConfig{Type: "http", URL: "http://localhost:1/mcp", Headers: map[string]string{"Authorization": "Bearer x"}})
	require.NoError(t, err)
	st, ok := tr.(*mcp.StreamableClientTransport)
	require.True(t, ok)
	assert.IsType(t, &headerTransport{}, st.HTTPClient.Transport)

	_, err = m.defaultTransport("x", &config.ToolServerConfig{Type: "openapi"})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"Notes":        "notes",
		"my  server!!": "my_server",
		"__":           "mcp",
		"":             "mcp",
		"a__b":         "a_b",
	}
	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
