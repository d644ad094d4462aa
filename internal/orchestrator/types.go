package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/progress"
	"github.com/codefionn/concierge/internal/tools"
)

// ErrEmptyRequest is reported when a request carries no text.
var ErrEmptyRequest = errors.New("request text is empty")

// StepType is the phase an OrchestrationStep records.
type StepType string

const (
	StepAnalysis   StepType = "analysis"
	StepToolCall   StepType = "tool_call"
	StepEvaluation StepType = "evaluation"
	StepSynthesis  StepType = "synthesis"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolExecution is one dispatched tool call. It is never modified after
// it has been appended to the run's log.
type ToolExecution struct {
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Result     *tools.Result          `json:"result"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	Duration   time.Duration          `json:"duration"`
}

// Succeeded reports whether the call returned a successful result.
func (e ToolExecution) Succeeded() bool {
	return e.Result != nil && e.Result.Success
}

// OrchestrationStep records one phase transition of a run.
type OrchestrationStep struct {
	ID            string         `json:"id"`
	Type          StepType       `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	Content       string         `json:"content"`
	ToolExecution *ToolExecution `json:"tool_execution,omitempty"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

// ConversationEntry is one transcript line used to prompt later phases.
type ConversationEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the sole output of a run.
type Result struct {
	RunID       string              `json:"run_id"`
	Success     bool                `json:"success"`
	FinalAnswer string              `json:"final_answer"`
	Steps       []OrchestrationStep `json:"steps"`
	ToolCalls   []ToolExecution     `json:"tool_calls"`
	Error       string              `json:"error,omitempty"`
}

// Request is one natural-language request.
type Request struct {
	Text string
	// Model is the target model id; empty uses the configured models.
	Model     string
	Artifacts []artifacts.Artifact
	// History is earlier conversation, oldest first.
	History []ConversationEntry
	// SessionKey scopes the artifact signature; empty uses the default key.
	SessionKey string
	// Progress receives one update per recorded step and log line.
	Progress progress.Callback
}

// RunContext is the read-only environment of one run.
type RunContext struct {
	KnowledgeIndexIDs     []string
	Log                   func(msg string)
	ResolveProviderConfig func(model string) (llm.ProviderConfig, error)
}

// ModelConfig names the model per phase. Empty phases use Default.
type ModelConfig struct {
	Default    string
	Planning   string
	Evaluation string
	Synthesis  string
	Validation string
}

// Config holds caller-supplied budgets and behavior switches.
type Config struct {
	MaxSteps        int
	MaxToolCalls    int
	MaxBatchSize    int
	DevelopmentMode bool
	Models          ModelConfig
	// ValidateAnswers enables the post-synthesis check.
	ValidateAnswers bool
	// ContextTokenBudget bounds the context digest.
	ContextTokenBudget int
	// Tokenizer is "estimate" or "tiktoken".
	Tokenizer string
}

// ToolRegistry is the part of the tool registry a run needs. The available
// set may change while a run is in flight.
type ToolRegistry interface {
	ListAvailable() []tools.Info
	Has(name string) bool
	Execute(ctx context.Context, name string, params map[string]interface{}) *tools.Result
}

// ProviderResolver maps a model id to a provider config.
type ProviderResolver interface {
	Resolve(model string) (llm.ProviderConfig, error)
}
