package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
)

// Transcript is the conversation accumulated during a run.
type Transcript struct {
	entries []ConversationEntry
}

// NewTranscript seeds a transcript with earlier history and the request.
func NewTranscript(history []ConversationEntry, request string) *Transcript {
	t := &Transcript{entries: make([]ConversationEntry, 0, len(history)+8)}
	for _, e := range history {
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		role := e.Role
		if role != RoleAssistant {
			role = RoleUser
		}
		t.entries = append(t.entries, ConversationEntry{Role: role, Content: e.Content})
	}
	t.Add(RoleUser, request)
	return t
}

// Add appends an entry.
func (t *Transcript) Add(role, content string) {
	t.entries = append(t.entries, ConversationEntry{Role: role, Content: content})
}

// Entries returns a copy of the entries.
func (t *Transcript) Entries() []ConversationEntry {
	out := make([]ConversationEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int { return len(t.entries) }

// AddToolResult injects the summary of one execution. When the same summary
// already appears among the last few entries, a one-line status is added
// instead.
func (t *Transcript) AddToolResult(exec ToolExecution) {
	summary := summarizeExecution(exec)

	start := max(0, len(t.entries)-consts.TranscriptDedupWindow)
	for _, e := range t.entries[start:] {
		if e.Content == summary {
			t.Add(RoleAssistant, fmt.Sprintf("[%s] %s again, same result as above.", exec.Tool, statusWord(exec)))
			return
		}
	}
	t.Add(RoleAssistant, summary)
}

// Format renders the transcript for a prompt.
func (t *Transcript) Format() string {
	var b strings.Builder
	for _, e := range t.entries {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(e.Role), e.Content)
	}
	return b.String()
}

func statusWord(exec ToolExecution) string {
	if exec.Succeeded() {
		return "succeeded"
	}
	return "failed"
}

// summarizeExecution renders a structured success/failure summary.
func summarizeExecution(exec ToolExecution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", exec.Tool, statusWord(exec))
	if exec.Result == nil {
		return b.String()
	}
	if exec.Result.Message != "" {
		fmt.Fprintf(&b, "\nmessage: %s", exec.Result.Message)
	}
	if !exec.Result.Success && exec.Result.Error != "" {
		fmt.Fprintf(&b, "\nerror: %s", exec.Result.Error)
	}
	if exec.Result.Data != nil {
		fmt.Fprintf(&b, "\ndata: %s", renderData(exec.Result.Data, consts.MaxResultSummaryChars))
	}
	return b.String()
}

func renderData(data interface{}, limit int) string {
	var text string
	switch v := data.(type) {
	case string:
		text = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			text = fmt.Sprintf("%v", v)
		} else {
			text = string(raw)
		}
	}
	if len(text) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + " ...(truncated)"
	}
	return text
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatToolHistory renders the tool log for prompts.
func formatToolHistory(log []ToolExecution) string {
	if len(log) == 0 {
		return ""
	}
	var b strings.Builder
	for i, exec := range log {
		params, _ := json.Marshal(exec.Parameters)
		fmt.Fprintf(&b, "%d. %s %s: %s\n", i+1, exec.Tool, params, statusWord(exec))
		for _, line := range strings.Split(summarizeExecution(exec), "\n")[1:] {
			fmt.Fprintf(&b, "   %s\n", line)
		}
	}
	return b.String()
}
