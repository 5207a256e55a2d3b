package model

import "strings"

// WorkflowType identifies one of the durable workflow families the bridge
// can dispatch to. The set is closed; anything else is unsupported.
type WorkflowType string

const (
	WorkflowTypeIncident           WorkflowType = "incident"
	WorkflowTypeDocumentProcessing WorkflowType = "document_processing"
	WorkflowTypeSemanticSearch     WorkflowType = "semantic_search"
	WorkflowTypeChatSession        WorkflowType = "chat_session"
)

// WorkflowTypes lists all known types in a stable order, longest name first
// so that prefix matching on structured workflow ids is unambiguous.
var WorkflowTypes = []WorkflowType{
	WorkflowTypeDocumentProcessing,
	WorkflowTypeSemanticSearch,
	WorkflowTypeChatSession,
	WorkflowTypeIncident,
}

// Valid reports whether t is one of the known workflow types.
func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowTypeIncident, WorkflowTypeDocumentProcessing,
		WorkflowTypeSemanticSearch, WorkflowTypeChatSession:
		return true
	}
	return false
}

// CatalogStep is one entry in a workflow type's step catalog.
type CatalogStep struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// StepCatalog is the fixed, ordered step sequence for a workflow type.
// Catalogs are process-wide constants; the engine's status payloads are
// projected onto them when building progress views.
type StepCatalog []CatalogStep

// Index returns the catalog position of the named step, or -1.
func (c StepCatalog) Index(name string) int {
	for i, s := range c {
		if s.Name == name {
			return i
		}
	}
	return -1
}

var stepCatalogs = map[WorkflowType]StepCatalog{
	WorkflowTypeIncident: {
		{Name: "detect", Label: "Detection", Description: "Confirm the incident signal and capture context"},
		{Name: "triage", Label: "Triage", Description: "Assess severity and blast radius"},
		{Name: "notify", Label: "Notify", Description: "Page the on-call rotation and open a channel"},
		{Name: "mitigate", Label: "Mitigation", Description: "Apply mitigations to stop the bleeding"},
		{Name: "resolve", Label: "Resolution", Description: "Verify recovery and close out the incident"},
	},
	WorkflowTypeDocumentProcessing: {
		{Name: "fetch_document", Label: "Fetch", Description: "Download the document from its source"},
		{Name: "extract_text", Label: "Extract", Description: "Extract raw text from the document"},
		{Name: "preprocess", Label: "Preprocess", Description: "Normalize and clean the extracted text"},
		{Name: "chunking", Label: "Chunking", Description: "Split the text into retrieval-sized chunks"},
		{Name: "generate_embeddings", Label: "Embeddings", Description: "Generate vector embeddings per chunk"},
		{Name: "index_vectors", Label: "Indexing", Description: "Write embeddings into the vector index"},
	},
	WorkflowTypeSemanticSearch: {
		{Name: "parse_query", Label: "Parse Query", Description: "Interpret the search request"},
		{Name: "generate_embedding", Label: "Embed Query", Description: "Embed the query text"},
		{Name: "vector_search", Label: "Vector Search", Description: "Search the vector index"},
		{Name: "rank_results", Label: "Rank", Description: "Re-rank candidate results"},
		{Name: "format_results", Label: "Format", Description: "Shape results for presentation"},
	},
	WorkflowTypeChatSession: {
		{Name: "initialize", Label: "Initialize", Description: "Seed session state"},
		{Name: "active", Label: "Active", Description: "Receive messages and track activity"},
		{Name: "closing", Label: "Closing", Description: "Wind down after inactivity or termination"},
	},
}

// CatalogFor returns the step catalog for a workflow type. Unknown types get
// an empty catalog.
func CatalogFor(t WorkflowType) StepCatalog {
	return stepCatalogs[t]
}

// Nominal end-to-end durations per workflow type, used for the linear
// remaining-time estimate. Not derived from historical timing data.
const (
	baseSecondsDefault  = 60
	baseSecondsDocument = 120
	baseSecondsSearch   = 30
)

// BaseSeconds returns the nominal total duration for a workflow type.
func BaseSeconds(t WorkflowType) int {
	switch t {
	case WorkflowTypeDocumentProcessing:
		return baseSecondsDocument
	case WorkflowTypeSemanticSearch:
		return baseSecondsSearch
	default:
		return baseSecondsDefault
	}
}

// WorkflowID builds the structured id "{type}-{tag}". The type is encoded in
// the id so it can be recovered without consulting the engine.
func WorkflowID(t WorkflowType, tag string) string {
	return string(t) + "-" + tag
}

// ParseWorkflowID recovers the workflow type from a structured id by
// longest-prefix match over the closed type set. Foreign ids that do not
// encode a type fall back to a substring heuristic: ids mentioning
// "document" are treated as document processing, everything else as
// semantic search. The heuristic keeps ids pasted from the engine's own UI
// usable in read paths.
func ParseWorkflowID(id string) (WorkflowType, bool) {
	for _, t := range WorkflowTypes {
		if strings.HasPrefix(id, string(t)+"-") {
			return t, true
		}
	}
	if strings.Contains(id, "document") {
		return WorkflowTypeDocumentProcessing, false
	}
	return WorkflowTypeSemanticSearch, false
}
