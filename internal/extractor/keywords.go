package extractor

import "strings"

// Keyword vocabularies for the offline heuristic. Matching is on lowercased
// substrings, which is intentionally loose: the heuristic only gates
// whether a message is worth classifying at all.
var (
	incidentKeywords = []string{
		"incident", "outage", "down", "failure", "alert", "on-call",
		"oncall", "sev1", "sev2", "p1", "emergency", "degraded",
	}
	documentKeywords = []string{
		"document", "upload", "ingest", "pdf", "file", "index this",
		"attachment",
	}
	processingKeywords = []string{
		"process", "pipeline", "workflow", "batch", "reindex", "etl",
	}
)

// DetectWorkflowKeywords is a cheap boolean heuristic for low-latency or
// offline use. It is not a classifier and carries no event detail; callers
// needing a structured event must go through Extract.
func DetectWorkflowKeywords(message string) bool {
	m := strings.ToLower(message)
	for _, group := range [][]string{incidentKeywords, documentKeywords, processingKeywords} {
		for _, kw := range group {
			if strings.Contains(m, kw) {
				return true
			}
		}
	}
	return false
}
