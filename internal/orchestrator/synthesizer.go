package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/intent"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/logger"
)

// errEmptySynthesis is returned when the model produced no usable answer.
var errEmptySynthesis = errors.New("synthesis produced no content")

// SynthesisInput is everything accumulated during a run.
type SynthesisInput struct {
	Request       string
	Transcript    string
	ToolLog       []ToolExecution
	Steps         []OrchestrationStep
	ContextDigest string
	Model         string
	Provider      llm.ProviderConfig
}

// Synthesis is the composed answer.
type Synthesis struct {
	Content   string
	Reasoning string
	// Corrected is set when an unsupported claim of a change was amended.
	Corrected bool
}

// Synthesizer composes the final answer from the run's tool history.
type Synthesizer struct {
	gen llm.Generator
}

// NewSynthesizer creates a synthesizer backed by gen.
func NewSynthesizer(gen llm.Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// mutationCorrection is appended when an answer claims a change that no
// successful tool call backs.
const mutationCorrection = "Correction: no change has actually been made, because none of the requested updates completed successfully."

var changeClaimPattern = regexp.MustCompile(`(?i)\b(?:i(?:'ve| have)|has been|have been|was|were|is now|are now|successfully)\s+(?:\w+\s+)?(?:created|scheduled|booked|added|updated|changed|moved|rescheduled|deleted|removed|cancell?ed|sent|saved)\b`)

// Synthesize composes the answer. An error means the caller should fall
// back to FallbackAnswer.
func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput) (*Synthesis, error) {
	gen, err := s.gen.Generate(ctx, buildSynthesisPrompt(in), in.Provider, llm.GenerateOptions{
		Model:     in.Model,
		MaxTokens: consts.SynthesisMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call failed: %w", err)
	}

	content, reasoning := ParseSynthesis(stripThinkTags(gen.Text))
	if content == "" {
		return nil, errEmptySynthesis
	}

	out := &Synthesis{Content: content, Reasoning: reasoning}
	if intent.RequiresMutation(in.Request) && !hasSuccessfulMutation(in.ToolLog) && changeClaimPattern.MatchString(content) {
		logger.Warn("synthesizer: answer claims a change without a successful mutating tool call")
		out.Content = strings.TrimSpace(content) + "\n\n" + mutationCorrection
		out.Corrected = true
	}
	return out, nil
}

var (
	answerMarker    = regexp.MustCompile(`(?im)^[\s*#]*(?:answer|content|response)[*]*\s*:[*]*`)
	reasoningMarker = regexp.MustCompile(`(?im)^[\s*#]*reasoning[*]*\s*:[*]*`)
)

// ParseSynthesis reads {content, reasoning} from a reply: a JSON object
// first, then labelled sections, then the whole text as content.
func ParseSynthesis(reply string) (content, reasoning string) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return "", ""
	}

	if obj, ok := extractJSONObject(text); ok {
		var parsed struct {
			Content   string `json:"content"`
			Answer    string `json:"answer"`
			Reasoning string `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(obj), &parsed); err == nil {
			c := strings.TrimSpace(parsed.Content)
			if c == "" {
				c = strings.TrimSpace(parsed.Answer)
			}
			if c != "" {
				return c, strings.TrimSpace(parsed.Reasoning)
			}
		}
	}

	aLoc := answerMarker.FindStringIndex(text)
	rLoc := reasoningMarker.FindStringIndex(text)
	if aLoc != nil {
		end := len(text)
		if rLoc != nil && rLoc[0] > aLoc[0] {
			end = rLoc[0]
		}
		content = strings.TrimSpace(text[aLoc[1]:end])
		if rLoc != nil {
			rEnd := len(text)
			if rLoc[0] < aLoc[0] {
				rEnd = aLoc[0]
			}
			reasoning = strings.TrimSpace(text[rLoc[1]:rEnd])
		}
		if content != "" {
			return content, reasoning
		}
	}

	return text, ""
}

// FallbackAnswer is the deterministic answer used when synthesis fails.
func FallbackAnswer(log []ToolExecution) string {
	if len(log) == 0 {
		return "I'm sorry, I couldn't complete your request this time. Please try again or rephrase it."
	}
	succeeded := 0
	for _, exec := range log {
		if exec.Succeeded() {
			succeeded++
		}
	}
	return fmt.Sprintf("I ran %d tool call(s) for your request (%d succeeded), but I could not put together a summary of the results. Please try again or rephrase the request.", len(log), succeeded)
}

func buildSynthesisPrompt(in SynthesisInput) string {
	var prompt strings.Builder

	prompt.WriteString("You write the final answer of a personal assistant that manages a user's schedule, documents and correspondence.\n\n")
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Ground every statement in the tool results below; do not add facts that are not there\n")
	prompt.WriteString("- Never say that something was created, changed, deleted or sent unless a tool call doing exactly that succeeded\n")
	prompt.WriteString("- If a tool failed, say what could not be done\n")
	prompt.WriteString("- Be concise and answer in the user's language\n\n")

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

	prompt.WriteString("Respond with a JSON object: {\"content\": \"<answer for the user>\", \"reasoning\": \"<which tool results the answer is based on>\"}\n")
	return prompt.String()
}

// extractJSONObject returns the first balanced {...} in text, skipping
// braces inside JSON strings.
func extractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			if escape {
				escape = false
				continue
			}
			if r == '\\' {
				escape = true
				continue
			}
			if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
