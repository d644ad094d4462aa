package orchestrator

import (
	"fmt"
	"strings"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/tools"
)

// ContextInput is what the context digest is built from.
type ContextInput struct {
	Tools             []tools.Info
	Artifacts         []artifacts.Artifact
	ToolLog           []ToolExecution
	KnowledgeIndexIDs []string
}

// ContextBuilder assembles the textual digest handed to every prompt.
type ContextBuilder struct {
	counter TokenCounter
	budget  int
}

// NewContextBuilder creates a builder. A non-positive budget uses the default.
func NewContextBuilder(counter TokenCounter, budget int) *ContextBuilder {
	if counter == nil {
		counter = estimateCounter{}
	}
	if budget <= 0 {
		budget = consts.DefaultContextTokenBudget
	}
	return &ContextBuilder{counter: counter, budget: budget}
}

// Build renders the digest. Tool and artifact listings are always kept;
// tool results are kept newest first while they fit the token budget.
func (b *ContextBuilder) Build(in ContextInput) string {
	var head strings.Builder

	head.WriteString("## Available tools\n")
	listed := 0
	for _, info := range in.Tools {
		if consts.IsReserved(info.Name) {
			continue
		}
		fmt.Fprintf(&head, "- %s (%s): %s\n", info.Name, info.Category, info.Description)
		listed++
	}
	if listed == 0 {
		head.WriteString("(none)\n")
	}

	head.WriteString("\n## Uploaded artifacts\n")
	if len(in.Artifacts) == 0 {
		head.WriteString("(none)\n")
	}
	for _, a := range in.Artifacts {
		fmt.Fprintf(&head, "- %s [id %s", a.Name, a.ID)
		if a.MediaType != "" {
			fmt.Fprintf(&head, ", %s", a.MediaType)
		}
		if a.Pages > 0 {
			fmt.Fprintf(&head, ", %d pages", a.Pages)
		}
		head.WriteString("]\n")
	}

	if len(in.KnowledgeIndexIDs) > 0 {
		fmt.Fprintf(&head, "\n## Knowledge indexes\n%s\n", strings.Join(in.KnowledgeIndexIDs, ", "))
	}

	if len(in.ToolLog) == 0 {
		head.WriteString("\n## Tool results\n(none yet)\n")
		return head.String()
	}

	remaining := b.budget - b.counter.Count(head.String())
	kept := make([]string, 0, len(in.ToolLog))
	for i := len(in.ToolLog) - 1; i >= 0; i-- {
		entry := fmt.Sprintf("%d. %s\n", i+1, summarizeExecution(in.ToolLog[i]))
		cost := b.counter.Count(entry)
		if cost > remaining {
			break
		}
		remaining -= cost
		kept = append(kept, entry)
	}

	var out strings.Builder
	out.WriteString(head.String())
	out.WriteString("\n## Tool results\n")
	if omitted := len(in.ToolLog) - len(kept); omitted > 0 {
		fmt.Fprintf(&out, "(%d earlier results omitted)\n", omitted)
	}
	for i := len(kept) - 1; i >= 0; i-- {
		out.WriteString(kept[i])
	}
	return out.String()
}
