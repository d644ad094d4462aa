package consts

import "strings"

// Reserved tool names. Neither is ever proposed by the planner.
const (
	// ToolNameInitializeArtifacts prepares previously ingested artifacts for a run.
	ToolNameInitializeArtifacts = "initialize_artifacts"
	// ToolNameComposeResponse is the terminal synthesis tool.
	ToolNameComposeResponse = "compose_response"
)

// Canonical tool names.
const (
	ToolNameListEvents            = "list_events"
	ToolNameSearchEvents          = "search_events"
	ToolNameCreateEvent           = "create_event"
	ToolNameUpdateEvent           = "update_event"
	ToolNameDeleteEvent           = "delete_event"
	ToolNameSearchFiles           = "search_files"
	ToolNameExtractDocument       = "extract_document"
	ToolNameExtractIdentityRecord = "extract_identity_record"
	ToolNameKnowledgeSearch       = "knowledge_search"
	ToolNameSearchMessages        = "search_messages"
	ToolNameSendMessage           = "send_message"
	ToolNameWebLookup             = "web_lookup"
)

// ExternalToolSeparator joins a tool server name and a tool name
// ("<server>__<tool>").
const ExternalToolSeparator = "__"

// Tool categories.
const (
	CategorySchedule  = "schedule"
	CategoryDocuments = "documents"
	CategoryKnowledge = "knowledge"
	CategoryMessaging = "messaging"
	CategoryWeb       = "web"
	CategoryExternal  = "external"
	CategorySystem    = "system"
)

// ReadOnlyTools is the fixed allow-list of tools without observable side
// effects. Only these may share a concurrent batch.
var ReadOnlyTools = map[string]struct{}{
	ToolNameListEvents:            {},
	ToolNameSearchEvents:          {},
	ToolNameSearchFiles:           {},
	ToolNameExtractDocument:       {},
	ToolNameExtractIdentityRecord: {},
	ToolNameKnowledgeSearch:       {},
	ToolNameSearchMessages:        {},
	ToolNameWebLookup:             {},
}

// ScheduleMutationTools carry start/end payloads that are sanitized before dispatch.
var ScheduleMutationTools = map[string]struct{}{
	ToolNameCreateEvent: {},
	ToolNameUpdateEvent: {},
}

// MutatingTools change external state. A request asking for a change is only
// complete once one of these succeeded.
var MutatingTools = map[string]struct{}{
	ToolNameCreateEvent: {},
	ToolNameUpdateEvent: {},
	ToolNameDeleteEvent: {},
	ToolNameSendMessage: {},
}

// ToolAliases maps common naming slips from models to canonical names.
var ToolAliases = map[string]string{
	"file_search":           ToolNameSearchFiles,
	"files_search":          ToolNameSearchFiles,
	"search_file":           ToolNameSearchFiles,
	"find_files":            ToolNameSearchFiles,
	"document_search":       ToolNameSearchFiles,
	"calendar_search":       ToolNameSearchEvents,
	"find_events":           ToolNameSearchEvents,
	"search_calendar":       ToolNameSearchEvents,
	"search_meetings":       ToolNameSearchEvents,
	"get_events":            ToolNameListEvents,
	"list_calendar_events":  ToolNameListEvents,
	"create_calendar_event": ToolNameCreateEvent,
	"add_event":             ToolNameCreateEvent,
	"schedule_event":        ToolNameCreateEvent,
	"update_calendar_event": ToolNameUpdateEvent,
	"delete_calendar_event": ToolNameDeleteEvent,
	"knowledge_lookup":      ToolNameKnowledgeSearch,
	"search_knowledge":      ToolNameKnowledgeSearch,
	"web_search":            ToolNameWebLookup,
	"fetch_url":             ToolNameWebLookup,
	"email_search":          ToolNameSearchMessages,
	"send_email":            ToolNameSendMessage,
}

// IsReadOnly reports whether name is on the read-only allow-list.
func IsReadOnly(name string) bool {
	_, ok := ReadOnlyTools[name]
	return ok
}

// IsExternal reports whether name belongs to a tool server.
func IsExternal(name string) bool {
	return strings.Contains(name, ExternalToolSeparator)
}

// IsMutating reports whether name changes external state.
func IsMutating(name string) bool {
	_, ok := MutatingTools[name]
	return ok
}

// IsScheduleMutation reports whether name takes a sanitized start/end payload.
func IsScheduleMutation(name string) bool {
	_, ok := ScheduleMutationTools[name]
	return ok
}

// IsReserved reports whether name is reserved for the orchestrator itself.
func IsReserved(name string) bool {
	return name == ToolNameComposeResponse || name == ToolNameInitializeArtifacts
}
