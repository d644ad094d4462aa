package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/tools"
)

func infos(names ...string) []tools.Info {
	out := make([]tools.Info, 0, len(names))
	for _, n := range names {
		out = append(out, tools.Info{Name: n, Description: n + " tool", Category: "test"})
	}
	return out
}

func TestValidToolNames(t *testing.T) {
	available := infos(consts.ToolNameSearchEvents, consts.ToolNameKnowledgeSearch,
		consts.ToolNameComposeResponse, consts.ToolNameInitializeArtifacts, "crm__lookup")

	valid := ValidToolNames(available, nil)
	assert.Equal(t, []string{"crm__lookup", "search_events"}, sortedNames(valid))

	valid = ValidToolNames(available, []string{"kb-1"})
	assert.Contains(t, valid, consts.ToolNameKnowledgeSearch)
	assert.NotContains(t, valid, consts.ToolNameComposeResponse)
}

func TestCanonicalToolName(t *testing.T) {
	valid := ValidToolNames(infos("search_files", "search_events", "crm__Lookup"), nil)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"search_files", "search_files", true},
		{"documents.search_files", "search_files", true},
		{"file_search", "search_files", true},
		{"File Search", "search_files", true},
		{"schedule.find-events", "search_events", true},
		{"crm__Lookup", "crm__Lookup", true},
		{"compose_response", "", false},
		{"delete_everything", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalToolName(tt.in, valid)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeDropsUnknownTools(t *testing.T) {
	valid := ValidToolNames(infos("search_events"), nil)
	raw := []RawStep{
		{Tool: "calendar.search_events", Parameters: map[string]interface{}{"query": "budget"}},
		{Tool: "teleport"},
		{ID: "mine", Tool: "search_events", Goal: "second"},
		{Tool: consts.ToolNameComposeResponse},
	}

	steps, dropped := Normalize(raw, valid, 3)

	assert.Equal(t, []string{"teleport", consts.ToolNameComposeResponse}, dropped)
	if assert.Len(t, steps, 2) {
		assert.Equal(t, "step-3", steps[0].ID)
		assert.Equal(t, "search_events", steps[0].Tool)
		assert.Equal(t, "Run search_events", steps[0].Goal)
		assert.Equal(t, "budget", steps[0].Parameters["query"])
		assert.Equal(t, "mine", steps[1].ID)
		assert.NotNil(t, steps[1].Parameters)
	}
}
