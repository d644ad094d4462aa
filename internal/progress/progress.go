package progress

import "strings"

// Kind classifies an update.
type Kind string

const (
	// KindLog is a free-form log line from the run.
	KindLog Kind = "log"
	// KindAnalysis reports the planner's analysis.
	KindAnalysis Kind = "analysis"
	// KindToolCall reports one dispatched tool call.
	KindToolCall Kind = "tool_call"
	// KindEvaluation reports an evaluator verdict.
	KindEvaluation Kind = "evaluation"
	// KindSynthesis carries the composed answer.
	KindSynthesis Kind = "synthesis"
)

// Update describes a progress message emitted by the orchestrator.
type Update struct {
	// Message is the content to deliver to the client.
	Message string
	// Kind says which phase produced the update.
	Kind Kind
	// StepID references the recorded orchestration step, if any.
	StepID string
	// AddNewLine appends a newline to Message if one is not already present.
	AddNewLine bool
}

// IsStep reports whether the update mirrors a recorded orchestration step.
func (u Update) IsStep() bool {
	return u.StepID != ""
}

// Callback receives progress updates.
type Callback func(Update) error

// Normalize ensures the update reflects requested formatting (currently newline handling).
func Normalize(update Update) Update {
	if update.AddNewLine && update.Message != "" && !strings.HasSuffix(update.Message, "\n") {
		update.Message += "\n"
	}
	if update.Kind == "" {
		update.Kind = KindLog
	}
	return update
}

// Dispatch normalizes and sends the update if the callback is set.
func Dispatch(cb Callback, update Update) error {
	if cb == nil {
		return nil
	}
	return cb(Normalize(update))
}
