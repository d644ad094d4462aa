package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/codefionn/concierge/internal/logger"
)

// ErrToolNotFound is reported (as a failed Result) when a name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolSpec represents the static specification of a tool (name, description,
// category, parameters). It is what planners see.
type ToolSpec interface {
	Name() string
	Description() string
	Category() string
	Parameters() map[string]interface{}
}

// ToolExecutor handles the actual execution of a tool with specific runtime dependencies.
type ToolExecutor interface {
	Execute(ctx context.Context, params map[string]interface{}) *Result
}

// Tool combines ToolSpec and ToolExecutor for tools without separate runtime dependencies.
type Tool interface {
	ToolSpec
	ToolExecutor
}

// ToolFactory creates tool executors with specific runtime dependencies.
// The factory receives the registry so composite tools can reach other tools.
type ToolFactory func(registry *Registry) ToolExecutor

// Result is the outcome of one tool execution. Failures are values, never errors.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK builds a successful result.
func OK(data interface{}, message string) *Result {
	return &Result{Success: true, Data: data, Message: message}
}

// Failed builds a failed result from a format string.
func Failed(format string, args ...interface{}) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Info describes a registered tool.
type Info struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type registryEntry struct {
	spec     ToolSpec
	executor ToolExecutor
}

// Registry manages available tools. It is safe for concurrent use; tools may
// be added or removed while runs are in flight.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Register adds a tool to the registry, replacing any tool of the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tool.Name()] = &registryEntry{spec: tool, executor: tool}
}

// RegisterSpec adds a tool spec with a factory to the registry
func (r *Registry) RegisterSpec(spec ToolSpec, factory ToolFactory) {
	executor := factory(r)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[spec.Name()] = &registryEntry{spec: spec, executor: executor}
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// RemoveByPrefix unregisters tools whose names share the provided prefix.
func (r *Registry) RemoveByPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.entries {
		if strings.HasPrefix(name, prefix) {
			delete(r.entries, name)
		}
	}
}

// Has reports whether a tool is currently registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// GetExecutor retrieves a tool executor by name
func (r *Registry) GetExecutor(name string) (ToolExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.executor, true
}

// ListAvailable returns every registered tool sorted by name.
func (r *Registry) ListAvailable() []Info {
	r.mu.RLock()
	result := make([]Info, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, infoFor(entry.spec))
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListByCategory returns the registered tools of one category sorted by name.
func (r *Registry) ListByCategory(category string) []Info {
	all := r.ListAvailable()
	result := make([]Info, 0, len(all))
	for _, info := range all {
		if strings.EqualFold(info.Category, category) {
			result = append(result, info)
		}
	}
	return result
}

func infoFor(spec ToolSpec) Info {
	return Info{
		Name:        spec.Name(),
		Description: spec.Description(),
		Category:    spec.Category(),
		Parameters:  spec.Parameters(),
	}
}

// Execute runs a tool by name. Unknown tools, nil results and panics all
// become failed results.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (result *Result) {
	executor, ok := r.GetExecutor(name)
	if !ok || executor == nil {
		return Failed("%v: %s", ErrToolNotFound, name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool %s panicked: %v", name, rec)
			result = Failed("tool %s panicked: %v", name, rec)
		}
	}()

	if params == nil {
		params = map[string]interface{}{}
	}
	result = executor.Execute(ctx, params)
	if result == nil {
		return Failed("tool %s returned nil result", name)
	}
	return result
}

// ToJSONSchema renders the registry in function-calling schema form.
func (r *Registry) ToJSONSchema() []map[string]interface{} {
	infos := r.ListAvailable()
	schemas := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		schemas = append(schemas, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        info.Name,
				"description": info.Description,
				"parameters":  info.Parameters,
			},
		})
	}
	return schemas
}

// ParameterNames lists the property names declared in a JSON-schema style
// parameter map, sorted.
func ParameterNames(params map[string]interface{}) []string {
	props, ok := params["properties"].(map[string]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Helper function to get string parameter
func GetStringParam(params map[string]interface{}, key string, defaultVal string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// Helper function to get int parameter
func GetIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return defaultVal
}

// Helper function to get bool parameter
func GetBoolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if val, ok := params[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// CloneParams makes a shallow copy of a parameter map.
func CloneParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
