package planning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/tools"
)

// buildPrompt creates the combined analyze+plan prompt.
func buildPrompt(in Input, valid map[string]struct{}) string {
	var prompt strings.Builder

	prompt.WriteString("You are the planning component of a personal assistant that manages a user's schedule, documents and correspondence through tools.\n\n")
	prompt.WriteString("Your role is to:\n")
	prompt.WriteString("1. Analyze what the user is asking for\n")
	prompt.WriteString("2. Propose the tool calls needed to satisfy the request, in order\n\n")

	prompt.WriteString("Guidelines:\n")
	prompt.WriteString("- Only use tools from the list below, with their exact names\n")
	prompt.WriteString("- Never invent identifiers (event ids, file ids, message ids); look them up first\n")
	prompt.WriteString("- Put independent lookups next to each other so they can run together\n")
	prompt.WriteString("- A request to create, change, delete or send something needs the matching tool call; reading related data is not enough\n")
	prompt.WriteString("- Dates use YYYY-MM-DD, timestamps use RFC 3339\n")
	if in.Replan {
		prompt.WriteString("- Some tools already ran (see history). Propose only the remaining steps, or an empty array if nothing is left to do\n")
	}
	prompt.WriteString("\n")

	fmt.Fprintf(&prompt, "Current time: %s\n\n", in.Now.Format("Monday, 2006-01-02 15:04 MST"))

	prompt.WriteString("Available tools:\n")
	prompt.WriteString(describeTools(in.Tools, valid))
	prompt.WriteString("\n")

	if len(in.Artifacts) > 0 {
		prompt.WriteString("Uploaded artifacts:\n")
		for _, a := range in.Artifacts {
			fmt.Fprintf(&prompt, "- %s (id %s, %s", a.Name, a.ID, a.MediaType)
			if a.Pages > 0 {
				fmt.Fprintf(&prompt, ", %d pages", a.Pages)
			}
			prompt.WriteString(")\n")
		}
		prompt.WriteString("\n")
	}

	if len(in.KnowledgeIndexIDs) > 0 {
		fmt.Fprintf(&prompt, "Knowledge indexes: %s\n\n", strings.Join(in.KnowledgeIndexIDs, ", "))
	}

	if s := strings.TrimSpace(in.ContextDigest); s != "" {
		prompt.WriteString("Context:\n")
		prompt.WriteString(s)
		prompt.WriteString("\n\n")
	}
	if s := strings.TrimSpace(in.ToolHistory); s != "" {
		prompt.WriteString("Tool history so far:\n")
		prompt.WriteString(s)
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("User request:\n")
	prompt.WriteString(in.Request)
	prompt.WriteString("\n\n")

	prompt.WriteString("Respond in exactly this format:\n")
	prompt.WriteString("ANALYSIS:\n<one short paragraph on what the user wants and which data is needed>\n\n")
	prompt.WriteString("PLAN_JSON:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("[\n")
	prompt.WriteString("  {\"id\": \"step-1\", \"goal\": \"Find the budget meetings\", \"tool\": \"search_events\", \"parameters\": {\"query\": \"budget\"}}\n")
	prompt.WriteString("]\n")
	prompt.WriteString("```\n")
	prompt.WriteString("Use an empty array when no tool is needed.\n")

	return prompt.String()
}

func describeTools(available []tools.Info, valid map[string]struct{}) string {
	var b strings.Builder
	listed := 0
	for _, info := range available {
		if _, ok := valid[info.Name]; !ok {
			continue
		}
		listed++
		access := "mutating"
		if consts.IsReadOnly(info.Name) {
			access = "read-only"
		}
		fmt.Fprintf(&b, "- %s [%s, %s]: %s", info.Name, info.Category, access, info.Description)
		if names := tools.ParameterNames(info.Parameters); len(names) > 0 {
			fmt.Fprintf(&b, " (parameters: %s)", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	if listed == 0 {
		return "(none)\n"
	}
	return b.String()
}

// sortedNames returns the valid set as a sorted slice, for logging.
func sortedNames(valid map[string]struct{}) []string {
	names := make([]string, 0, len(valid))
	for name := range valid {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
