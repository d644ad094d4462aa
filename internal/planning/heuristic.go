package planning

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/intent"
	"github.com/codefionn/concierge/internal/schedule"
	"github.com/codefionn/concierge/internal/tools"
)

// preferredLookupTools lists, per domain, the tools tried first for a
// keyword-driven lookup.
var preferredLookupTools = map[intent.Domain][]string{
	intent.DomainSchedule:  {consts.ToolNameSearchEvents, consts.ToolNameListEvents},
	intent.DomainDocuments: {consts.ToolNameSearchFiles},
	intent.DomainMessaging: {consts.ToolNameSearchMessages},
	intent.DomainKnowledge: {consts.ToolNameKnowledgeSearch},
	intent.DomainWeb:       {consts.ToolNameWebLookup},
}

var (
	lookupNameHints = []string{"search", "find", "lookup", "list"}
	urlPattern      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	leadInPattern   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:(?:can|could|would) you\s+)?(?:please\s+)?(?:create|add|book|set up|schedule|plan|put|remind me(?: to| about)?|block (?:out|off))(?:\s+|$)(?:(?:a|an|the|my|me|in)\s+)*`)
	danglingPattern = regexp.MustCompile(`(?i)\s+(?:at|on|for|from|in|by|to)\s*$`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// HeuristicPlan builds a minimal plan from keyword matching. It only emits
// structure derived from the request text and never invents identifiers.
func HeuristicPlan(request string, available []tools.Info, valid map[string]struct{}, now time.Time) []PlannedStep {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil
	}

	date, hasDate := schedule.ResolveDatePhrase(request, now)
	tod, hasTOD := schedule.DetectTimeOfDay(request)

	if _, ok := valid[consts.ToolNameCreateEvent]; ok && hasDate && !intent.HasLookupIntent(request) &&
		(intent.HasCreationIntent(request) || hasTOD) {
		return []PlannedStep{scaffoldEvent(request, date, tod, hasTOD)}
	}

	domain := intent.DetectDomain(request)
	if domain == intent.DomainNone {
		return nil
	}

	name, ok := pickLookupTool(domain, request, available, valid)
	if !ok {
		return nil
	}

	params := map[string]interface{}{}
	if name == consts.ToolNameWebLookup {
		params["url"] = urlPattern.FindString(request)
	} else {
		trims := []string{}
		if hasDate {
			trims = append(trims, date.Phrase)
		}
		query := intent.Topic(request, trims...)
		if query == "" {
			query = request
		}
		params["query"] = query
	}

	return []PlannedStep{{
		ID:         "step-1",
		Goal:       "Look up " + string(domain) + " data relevant to the request",
		Tool:       name,
		Parameters: params,
	}}
}

func pickLookupTool(domain intent.Domain, request string, available []tools.Info, valid map[string]struct{}) (string, bool) {
	for _, name := range preferredLookupTools[domain] {
		if _, ok := valid[name]; !ok {
			continue
		}
		if name == consts.ToolNameWebLookup && !urlPattern.MatchString(request) {
			continue
		}
		return name, true
	}

	for _, info := range available {
		if _, ok := valid[info.Name]; !ok || consts.IsMutating(info.Name) {
			continue
		}
		if info.Name == consts.ToolNameWebLookup {
			continue
		}
		lower := strings.ToLower(info.Name)
		for _, hint := range lookupNameHints {
			if strings.Contains(lower, hint) {
				return info.Name, true
			}
		}
	}
	return "", false
}

func scaffoldEvent(request string, date schedule.DatePhrase, tod schedule.TimeOfDay, timed bool) PlannedStep {
	params := map[string]interface{}{
		"title": deriveTitle(request, date.Phrase, tod.Phrase),
	}
	if timed {
		start := tod.On(date.Date)
		params["start"] = map[string]interface{}{"dateTime": start.Format(time.RFC3339)}
		params["end"] = map[string]interface{}{"dateTime": start.Add(consts.Duration1Hour).Format(time.RFC3339)}
	} else {
		params["start"] = map[string]interface{}{"date": date.Date.Format("2006-01-02")}
		params["end"] = map[string]interface{}{"date": date.Date.AddDate(0, 0, 1).Format("2006-01-02")}
	}
	return PlannedStep{
		ID:         "step-1",
		Goal:       "Create the requested event",
		Tool:       consts.ToolNameCreateEvent,
		Parameters: params,
	}
}

// deriveTitle strips the creation verb and date/time phrases from a request
// to get an event title.
func deriveTitle(request string, phrases ...string) string {
	title := request
	for _, p := range phrases {
		if p == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\s*(?:\b(?:at|on|for|this|next)\s+)?` + regexp.QuoteMeta(p))
		title = re.ReplaceAllString(title, " ")
	}
	title = leadInPattern.ReplaceAllString(strings.TrimSpace(title), "")
	title = spacePattern.ReplaceAllString(title, " ")
	title = strings.Trim(title, " .,!?;:")
	for {
		next := strings.Trim(danglingPattern.ReplaceAllString(title, ""), " .,!?;:")
		if next == title {
			break
		}
		title = next
	}
	if title == "" {
		return "New event"
	}
	runes := []rune(title)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
