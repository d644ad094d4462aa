package planning

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseResult is the outcome of reading a plan out of a model reply. It is
// either ParseSuccess or ParseFailure.
type ParseResult interface {
	isParseResult()
}

// ParseSuccess carries the steps found in the reply. Steps may be empty when
// the model explicitly proposed no work.
type ParseSuccess struct {
	Steps    []RawStep
	Strategy string
}

// ParseFailure explains why no plan could be read.
type ParseFailure struct {
	Reason string
}

func (ParseSuccess) isParseResult() {}
func (ParseFailure) isParseResult() {}

// Parse strategies, in the order they are tried.
const (
	StrategyFencedMarker = "fenced_marker"
	StrategyPlanSection  = "plan_section"
	StrategyWholeReply   = "whole_reply"
)

var (
	planMarkerPattern   = regexp.MustCompile(`(?im)^[\s#*>_-]*plan(?:[ _]json)?\b[*_]*\s*:?`)
	planSectionPattern  = regexp.MustCompile(`(?i)\bplan(?:[ _]json)?\b["'*_]*\s*[:=]`)
	fencedBlockPattern  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
	analysisHeadPattern = regexp.MustCompile(`(?im)^[\s#*>_-]*analysis[*_]*\s*:?`)
)

// ParsePlan reads a step list out of a free-form model reply. It never
// panics and never returns an error; unreadable replies become ParseFailure.
func ParsePlan(reply string) ParseResult {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return ParseFailure{Reason: "empty reply"}
	}

	if steps, ok := parseFencedAfterMarker(trimmed); ok {
		return ParseSuccess{Steps: steps, Strategy: StrategyFencedMarker}
	}
	if steps, ok := parsePlanSection(trimmed); ok {
		return ParseSuccess{Steps: steps, Strategy: StrategyPlanSection}
	}
	if steps, ok := decodeStepArray(stripFence(trimmed)); ok {
		return ParseSuccess{Steps: steps, Strategy: StrategyWholeReply}
	}
	return ParseFailure{Reason: "no JSON plan array found in reply"}
}

func parseFencedAfterMarker(text string) ([]RawStep, bool) {
	for _, loc := range planMarkerPattern.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		m := fencedBlockPattern.FindStringSubmatch(rest)
		if m == nil {
			continue
		}
		body := strings.TrimSpace(m[1])
		if !strings.HasPrefix(body, "[") {
			continue
		}
		if steps, ok := decodeStepArray(body); ok {
			return steps, true
		}
	}
	return nil, false
}

func parsePlanSection(text string) ([]RawStep, bool) {
	for _, loc := range planSectionPattern.FindAllStringIndex(text, -1) {
		arr, ok := extractJSONArray(text[loc[1]:])
		if !ok {
			continue
		}
		if steps, ok := decodeStepArray(arr); ok {
			return steps, true
		}
	}
	return nil, false
}

func decodeStepArray(text string) ([]RawStep, bool) {
	var items []interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, false
	}
	steps := make([]RawStep, 0, len(items))
	for _, item := range items {
		if step, ok := rawStepFromValue(item); ok {
			steps = append(steps, step)
		}
	}
	return steps, true
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimLeft(text, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSONArray returns the first balanced [...] in text, skipping
// brackets inside JSON strings.
func extractJSONArray(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		if start == -1 {
			if r == '[' {
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// ExtractAnalysis returns the rationale part of a reply: the labelled
// analysis section if present, otherwise everything before the plan.
func ExtractAnalysis(reply string) string {
	text := strings.TrimSpace(reply)
	if loc := analysisHeadPattern.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	if loc := planMarkerPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	} else if loc := fencedBlockPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return strings.TrimSpace(reply)
	}
	return text
}
