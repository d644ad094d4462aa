package consts

import "time"

// Orchestration budgets
const (
	// DefaultMaxSteps bounds the number of recorded orchestration steps per run
	DefaultMaxSteps = 24
	// DefaultMaxToolCalls bounds the number of tool dispatches per run
	DefaultMaxToolCalls = 12
	// DefaultMaxBatchSize caps how many read-only steps run concurrently in one iteration
	DefaultMaxBatchSize = 4
	// TranscriptDedupWindow is how many trailing transcript entries are checked
	// before re-injecting an identical tool summary
	TranscriptDedupWindow = 3
)

// LLM default configurations
const (
	// DefaultMaxTokens is the default maximum tokens for LLM responses
	DefaultMaxTokens = 1024
	// PlanningMaxTokens is the token allowance for the analyze+plan call
	PlanningMaxTokens = 2048
	// EvaluationMaxTokens is the token allowance for evaluator verdicts
	EvaluationMaxTokens = 512
	// SynthesisMaxTokens is the token allowance for the final answer
	SynthesisMaxTokens = 2048
	// ValidationMaxTokens is the token allowance for the post-synthesis check
	ValidationMaxTokens = 256
	// DefaultContextTokenBudget bounds the context digest handed to prompts
	DefaultContextTokenBudget = 6000
)

// Text limits
const (
	// MaxResultSummaryChars truncates a single tool result inside summaries
	MaxResultSummaryChars = 1200
	// MaxWebLookupBytes is the default cap on fetched page size
	MaxWebLookupBytes = 512 * 1024
	// MaxWebLookupChars truncates converted markdown returned to the model
	MaxWebLookupChars = 20000
)

// Timeouts for various operations
const (
	// Timeout20Seconds is the default web lookup timeout
	Timeout20Seconds = 20 * time.Second
	// Timeout30Seconds bounds external tool server calls
	Timeout30Seconds = 30 * time.Second
	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 10 * time.Second
)

// Time durations
const (
	// Duration1Hour is 1 hour
	Duration1Hour = 1 * time.Hour
	// Duration24Hours is 24 hours (1 day)
	Duration24Hours = 24 * time.Hour
)
