package planning

import (
	"fmt"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/tools"
)

// ValidToolNames is the set of names the planner may propose: every
// registered tool except the reserved ones, and knowledge_search only when
// there is an index to search.
func ValidToolNames(available []tools.Info, knowledgeIndexIDs []string) map[string]struct{} {
	valid := make(map[string]struct{}, len(available))
	for _, info := range available {
		if consts.IsReserved(info.Name) {
			continue
		}
		if info.Name == consts.ToolNameKnowledgeSearch && len(knowledgeIndexIDs) == 0 {
			continue
		}
		valid[info.Name] = struct{}{}
	}
	return valid
}

// CanonicalToolName maps a model-written tool name onto a valid name. The
// second result is false when no valid tool matches.
func CanonicalToolName(name string, valid map[string]struct{}) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if _, ok := valid[name]; ok {
		return name, true
	}

	// "schedule.search_events" -> "search_events"
	if idx := strings.LastIndex(name, "."); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
		if _, ok := valid[name]; ok {
			return name, true
		}
	}

	lower := strings.ToLower(name)
	lower = strings.NewReplacer(" ", "_", "-", "_").Replace(lower)
	if _, ok := valid[lower]; ok {
		return lower, true
	}
	if alias, ok := consts.ToolAliases[lower]; ok {
		if _, ok := valid[alias]; ok {
			return alias, true
		}
	}
	return "", false
}

// Normalize resolves raw steps against the valid set. Steps naming unknown
// or reserved tools are dropped and their names returned. firstNumber seeds
// ids for steps that came without one.
func Normalize(raw []RawStep, valid map[string]struct{}, firstNumber int) (steps []PlannedStep, dropped []string) {
	for _, r := range raw {
		name, ok := CanonicalToolName(r.Tool, valid)
		if !ok {
			dropped = append(dropped, r.Tool)
			continue
		}
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("step-%d", firstNumber+len(steps))
		}
		goal := r.Goal
		if goal == "" {
			goal = "Run " + name
		}
		steps = append(steps, PlannedStep{
			ID:         id,
			Goal:       goal,
			Tool:       name,
			Parameters: tools.CloneParams(r.Parameters),
		})
	}
	return steps, dropped
}
