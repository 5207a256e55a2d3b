package model

import "testing"

func TestParseWorkflowID_roundTrip(t *testing.T) {
	for _, wt := range WorkflowTypes {
		id := WorkflowID(wt, "abc-123")
		got, structured := ParseWorkflowID(id)
		if got != wt || !structured {
			t.Errorf("ParseWorkflowID(%q) = (%s, %v), want (%s, true)", id, got, structured, wt)
		}
	}
}

func TestParseWorkflowID_prefixDisambiguation(t *testing.T) {
	// "semantic_search-x" must not be mistaken for any other type even
	// though several type names share characters.
	got, structured := ParseWorkflowID("semantic_search-q42")
	if got != WorkflowTypeSemanticSearch || !structured {
		t.Fatalf("got (%s, %v)", got, structured)
	}
}

func TestParseWorkflowID_foreignIDs(t *testing.T) {
	tests := []struct {
		id   string
		want WorkflowType
	}{
		{"my-document-pipeline-7", WorkflowTypeDocumentProcessing},
		{"some-random-id", WorkflowTypeSemanticSearch},
		{"", WorkflowTypeSemanticSearch},
	}
	for _, tt := range tests {
		got, structured := ParseWorkflowID(tt.id)
		if got != tt.want || structured {
			t.Errorf("ParseWorkflowID(%q) = (%s, %v), want (%s, false)",
				tt.id, got, structured, tt.want)
		}
	}
}

func TestStepCatalogs(t *testing.T) {
	tests := []struct {
		workflowType WorkflowType
		steps        int
	}{
		{WorkflowTypeIncident, 5},
		{WorkflowTypeDocumentProcessing, 6},
		{WorkflowTypeSemanticSearch, 5},
		{WorkflowTypeChatSession, 3},
	}
	for _, tt := range tests {
		if got := len(CatalogFor(tt.workflowType)); got != tt.steps {
			t.Errorf("len(CatalogFor(%s)) = %d, want %d", tt.workflowType, got, tt.steps)
		}
	}

	// The chunking position anchors the document progress math.
	if idx := CatalogFor(WorkflowTypeDocumentProcessing).Index("chunking"); idx != 3 {
		t.Errorf("chunking index = %d, want 3", idx)
	}
	if idx := CatalogFor(WorkflowTypeIncident).Index("no_such_step"); idx != -1 {
		t.Errorf("missing step index = %d, want -1", idx)
	}
}

func TestBaseSeconds(t *testing.T) {
	tests := []struct {
		workflowType WorkflowType
		want         int
	}{
		{WorkflowTypeDocumentProcessing, 120},
		{WorkflowTypeSemanticSearch, 30},
		{WorkflowTypeIncident, 60},
		{WorkflowTypeChatSession, 60},
	}
	for _, tt := range tests {
		if got := BaseSeconds(tt.workflowType); got != tt.want {
			t.Errorf("BaseSeconds(%s) = %d, want %d", tt.workflowType, got, tt.want)
		}
	}
}

func TestWorkflowTypeValid(t *testing.T) {
	for _, wt := range WorkflowTypes {
		if !wt.Valid() {
			t.Errorf("%s.Valid() = false", wt)
		}
	}
	if WorkflowType("batch_export").Valid() {
		t.Error("unknown type reported valid")
	}
}
