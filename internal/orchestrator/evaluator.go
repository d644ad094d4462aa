package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/intent"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/logger"
)

// Verdict sources.
const (
	VerdictMarker        = "marker"
	VerdictPhrase        = "phrase"
	VerdictDefault       = "default"
	VerdictMutationGuard = "mutation_guard"
)

// EvalInput is everything the evaluator judges.
type EvalInput struct {
	Request       string
	ContextDigest string
	ToolLog       []ToolExecution
	Steps         []OrchestrationStep
	Transcript    string
	Model         string
	Provider      llm.ProviderConfig
	// MutationAvailable reports whether a mutating tool is still registered.
	MutationAvailable bool
}

// Verdict is the evaluator's continue/stop decision.
type Verdict struct {
	NeedMore  bool
	Content   string
	Reasoning string
	Source    string
}

// Evaluator decides after each iteration whether the request is satisfied.
type Evaluator struct {
	gen llm.Generator
}

// NewEvaluator creates an evaluator backed by gen.
func NewEvaluator(gen llm.Generator) *Evaluator {
	return &Evaluator{gen: gen}
}

// Evaluate asks the model for a verdict. Provider failures degrade to "stop",
// subject to the mutation guard. An explicit marker from the model is never
// overridden.
func (e *Evaluator) Evaluate(ctx context.Context, in EvalInput) Verdict {
	var v Verdict
	gen, err := e.gen.Generate(ctx, buildEvaluationPrompt(in), in.Provider, llm.GenerateOptions{
		Model:     in.Model,
		MaxTokens: consts.EvaluationMaxTokens,
	})
	if err != nil {
		logger.Warn("evaluator: provider call failed: %v", err)
		v = Verdict{Content: fmt.Sprintf("Evaluation failed: %v", err), Source: VerdictDefault}
	} else {
		text := strings.TrimSpace(stripThinkTags(gen.Text))
		needMore, source := ParseVerdict(text)
		v = Verdict{NeedMore: needMore, Content: text, Reasoning: verdictReasoning(text), Source: source}
	}

	if !v.NeedMore && v.Source != VerdictMarker && in.MutationAvailable && intent.RequiresMutation(in.Request) && !hasSuccessfulMutation(in.ToolLog) {
		logger.Info("evaluator: request asks for a change but no mutating tool succeeded, continuing")
		v.NeedMore = true
		v.Source = VerdictMutationGuard
		v.Reasoning = strings.TrimSpace(v.Reasoning + " The requested change has not been carried out yet.")
	}
	return v
}

var (
	continueMarker = regexp.MustCompile(`^(?:VERDICT|DECISION)?\s*:?\s*CONTINUE\b`)
	stopMarker     = regexp.MustCompile(`^(?:VERDICT|DECISION)?\s*:?\s*(?:DONE|COMPLETE|COMPLETED|STOP)\b`)

	continueCues = []string{
		"need more", "needs more", "still need", "not yet", "not complete", "incomplete",
		"has not been", "hasn't been", "have not been", "haven't been", "not been created",
		"missing", "remaining step", "next step", "must still", "should continue", "insufficient",
		"not done", "not finished",
	}
	stopCues = []string{
		"fully satisfied", "has been satisfied", "is satisfied", "request is complete",
		"task is complete", "nothing more", "nothing else", "no further", "all requested",
	}
)

// ParseVerdict reads the continue/stop decision. A leading marker wins;
// otherwise phrase cues decide, and anything ambiguous means stop.
func ParseVerdict(text string) (needMore bool, source string) {
	first := strings.ToUpper(firstLine(text))
	first = strings.TrimLeft(first, " *#>_-`\"'[(")
	switch {
	case continueMarker.MatchString(first):
		return true, VerdictMarker
	case stopMarker.MatchString(first):
		return false, VerdictMarker
	}

	lower := strings.ToLower(text)
	wantsMore := containsAny(lower, continueCues)
	isDone := containsAny(lower, stopCues)
	if wantsMore && !isDone {
		return true, VerdictPhrase
	}
	if isDone && !wantsMore {
		return false, VerdictPhrase
	}
	return false, VerdictDefault
}

func verdictReasoning(text string) string {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	if len(lines) == 2 {
		return strings.TrimSpace(lines[1])
	}
	first := strings.TrimSpace(lines[0])
	for _, marker := range []string{"CONTINUE", "DONE", "COMPLETE", "STOP"} {
		if strings.HasPrefix(strings.ToUpper(first), marker) {
			return strings.TrimSpace(strings.TrimLeft(first[len(marker):], " :.-"))
		}
	}
	return first
}

func buildEvaluationPrompt(in EvalInput) string {
	var prompt strings.Builder

	prompt.WriteString("You review the progress of a personal assistant that works through tools.\n")
	prompt.WriteString("Decide whether the user's request has been fully satisfied by the tool calls made so far.\n\n")

	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Retrieving or analyzing data is not the same as making the change the user asked for\n")
	prompt.WriteString("- A request to create, update, delete or send something is complete only when a matching mutating tool call succeeded\n")
	prompt.WriteString("- Failed tool calls do not count as progress\n")
	prompt.WriteString("- If the data needed for a good answer has been retrieved and nothing needs to change, the request is complete\n\n")

	prompt.WriteString("User request:\n")
	prompt.WriteString(in.Request)
	prompt.WriteString("\n\n")

	if in.ContextDigest != "" {
		prompt.WriteString("Context:\n")
		prompt.WriteString(in.ContextDigest)
		prompt.WriteString("\n")
	}

	prompt.WriteString("Tool calls:\n")
	if history := formatToolHistory(in.ToolLog); history != "" {
		prompt.WriteString(history)
	} else {
		prompt.WriteString("(none)\n")
	}
	prompt.WriteString("\n")

	if len(in.Steps) > 0 {
		prompt.WriteString("Steps so far:\n")
		for _, s := range in.Steps {
			fmt.Fprintf(&prompt, "- %s: %s\n", s.Type, firstLine(s.Content))
		}
		prompt.WriteString("\n")
	}

	if in.Transcript != "" {
		prompt.WriteString("Conversation:\n")
		prompt.WriteString(in.Transcript)
		prompt.WriteString("\n")
	}

	prompt.WriteString("Answer with CONTINUE or DONE on the first line, then one sentence explaining why.\n")
	return prompt.String()
}

// hasSuccessfulMutation reports whether a known mutating tool or an external
// server tool succeeded. External tools carry no read-only classification.
func hasSuccessfulMutation(log []ToolExecution) bool {
	for _, exec := range log {
		if (consts.IsMutating(exec.Tool) || consts.IsExternal(exec.Tool)) && exec.Succeeded() {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}

// stripThinkTags removes <think>...</think> blocks some reasoning models emit.
func stripThinkTags(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start:], "</think>")
		if end == -1 {
			return text[:start]
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
}
