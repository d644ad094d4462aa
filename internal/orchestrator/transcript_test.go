package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/tools"
)

func TestNewTranscriptNormalizesHistory(t *testing.T) {
	tr := NewTranscript([]ConversationEntry{
		{Role: "assistant", Content: "Hi, how can I help?"},
		{Role: "system", Content: "treated as user"},
		{Role: RoleUser, Content: "   "},
	}, "find my meetings")

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, RoleAssistant, entries[0].Role)
	assert.Equal(t, RoleUser, entries[1].Role)
	assert.Equal(t, ConversationEntry{Role: RoleUser, Content: "find my meetings"}, entries[2])
}

func TestTranscriptDeduplicatesToolResults(t *testing.T) {
	tr := NewTranscript(nil, "find my meetings")
	exec := execOf(consts.ToolNameSearchEvents, true)

	tr.AddToolResult(exec)
	tr.AddToolResult(exec)

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Contains(t, entries[1].Content, "[search_events] succeeded")
	assert.Contains(t, entries[1].Content, "data: ")
	assert.Equal(t, "[search_events] succeeded again, same result as above.", entries[2].Content)

	// Outside the window the full summary is repeated.
	for range consts.TranscriptDedupWindow {
		tr.Add(RoleAssistant, "something else")
	}
	tr.AddToolResult(exec)
	assert.Equal(t, entries[1].Content, tr.Entries()[tr.Len()-1].Content)
}

func TestSummarizeExecution(t *testing.T) {
	failed := ToolExecution{Tool: consts.ToolNameCreateEvent, Result: tools.Failed("calendar is read-only")}
	assert.Equal(t, "[create_event] failed\nerror: calendar is read-only", summarizeExecution(failed))

	big := ToolExecution{Tool: consts.ToolNameWebLookup, Result: tools.OK(strings.Repeat("ä", consts.MaxResultSummaryChars), "")}
	summary := summarizeExecution(big)
	assert.True(t, strings.HasSuffix(summary, " ...(truncated)"))
	assert.True(t, strings.Contains(summary, "ä"))

	assert.Equal(t, "[list_events] failed", summarizeExecution(ToolExecution{Tool: consts.ToolNameListEvents}))
}

func TestFormatToolHistory(t *testing.T) {
	assert.Empty(t, formatToolHistory(nil))

	exec := ToolExecution{
		Tool:       consts.ToolNameSearchFiles,
		Parameters: map[string]interface{}{"query": "invoice"},
		Result:     tools.OK([]string{"invoice-2025-08.pdf"}, "1 file"),
	}
	out := formatToolHistory([]ToolExecution{exec})
	assert.Equal(t, "1. search_files {\"query\":\"invoice\"}: succeeded\n   message: 1 file\n   data: [\"invoice-2025-08.pdf\"]\n", out)
}
