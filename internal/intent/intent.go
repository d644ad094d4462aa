// Package intent classifies request text with lightweight keyword matching.
package intent

import (
	"regexp"
	"strings"
)

// Domain is the area of the assistant a request is about.
type Domain string

const (
	DomainNone      Domain = ""
	DomainSchedule  Domain = "schedule"
	DomainDocuments Domain = "documents"
	DomainMessaging Domain = "messaging"
	DomainKnowledge Domain = "knowledge"
	DomainWeb       Domain = "web"
)

var (
	mutationPattern = regexp.MustCompile(`^(create|add|book|set up|schedule (?:a|an|the|my|me|us|it|this|that|meeting|call|appointment)|reschedule|move|postpone|cancel|delete|remove|clear|update|change|rename|send|reply|forward|invite|save|store|upload|remind me|put)\b`)
	clauseSplit     = regexp.MustCompile(`[.;:!?,\n]+|\s+(?:and|then|also)\s+`)
	politePrefix    = regexp.MustCompile(`^(?:please|kindly|also|then|now|and|(?:can|could|would|will) you(?: please)?|i(?:'d| would) like(?: you)? to|i (?:want|need)(?: you)? to|go ahead and|help me|let's|lets)\s+`)
	creationPattern = regexp.MustCompile(`\b(create|add|book|set up|schedule|plan|put|remind me|block out|block off)\b`)
	lookupPattern   = regexp.MustCompile(`\b(find|search|show|list|look up|lookup|what|when|which|where|who|do i have|check|tell me|any|how many|get|read|summari[sz]e|extract)\b`)

	domainPatterns = []struct {
		domain  Domain
		pattern *regexp.Regexp
	}{
		{DomainSchedule, regexp.MustCompile(`\b(meetings?|events?|calendar|appointments?|schedule|agenda|availability|busy|free slot|standup|call)\b`)},
		{DomainMessaging, regexp.MustCompile(`\b(e-?mails?|messages?|inbox|mail|correspondence|letters?)\b`)},
		{DomainDocuments, regexp.MustCompile(`\b(documents?|files?|pdfs?|contracts?|invoices?|receipts?|passport|id card|licen[cs]e|scans?|uploads?)\b`)},
		{DomainKnowledge, regexp.MustCompile(`\b(knowledge base|handbook|policy|policies|wiki|faq|guidelines?|manual)\b`)},
		{DomainWeb, regexp.MustCompile(`\b(website|web|online|internet|https?://\S+|url)\b`)},
	}
)

// RequiresMutation reports whether the request asks for a persistent change
// (creating, modifying, deleting or sending something). Only a clause that
// opens with a change verb counts, so questions about past changes do not.
func RequiresMutation(text string) bool {
	for _, clause := range clauseSplit.Split(strings.ToLower(text), -1) {
		clause = strings.TrimSpace(clause)
		for {
			trimmed := politePrefix.ReplaceAllString(clause, "")
			if trimmed == clause {
				break
			}
			clause = trimmed
		}
		if mutationPattern.MatchString(clause) {
			return true
		}
	}
	return false
}

// HasCreationIntent reports whether the request asks to create something new.
func HasCreationIntent(text string) bool {
	return creationPattern.MatchString(strings.ToLower(text))
}

// HasLookupIntent reports whether the request asks to find or read something.
func HasLookupIntent(text string) bool {
	return lookupPattern.MatchString(strings.ToLower(text))
}

// DetectDomain returns the first domain whose keywords appear in text.
func DetectDomain(text string) Domain {
	lower := strings.ToLower(text)
	for _, dp := range domainPatterns {
		if dp.pattern.MatchString(lower) {
			return dp.domain
		}
	}
	return DomainNone
}

var topicPattern = regexp.MustCompile(`(?i)\b(?:about|regarding|re:|on the topic of|related to|concerning|for)\s+(.+)$`)

// Topic extracts the subject of a lookup request ("meetings about X next week" -> "X").
// Trailing date phrases are trimmed by the caller-supplied phrase list.
func Topic(text string, trim ...string) string {
	m := topicPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}
	topic := m[1]
	for _, t := range trim {
		if t == "" {
			continue
		}
		if idx := strings.Index(strings.ToLower(topic), strings.ToLower(t)); idx >= 0 {
			topic = topic[:idx]
		}
	}
	return strings.Trim(strings.TrimSpace(topic), " .,!?;:\"'")
}
