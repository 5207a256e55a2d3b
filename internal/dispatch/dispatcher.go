// Package dispatch maps structured workflow events onto durable executions.
// Dispatch is idempotent per conversation: the workflow id is a
// deterministic function of the event's chat id, and the engine deduplicates
// starts by id.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/model"
)

// Task queues per workflow family.
const (
	IncidentTaskQueue = "incident-task-queue"
	DocumentTaskQueue = "document-task-queue"
	SearchTaskQueue   = "search-task-queue"
)

// Workflow definition names registered by the worker.
const (
	IncidentWorkflowName = "IncidentWorkflow"
	DocumentWorkflowName = "DocumentProcessingWorkflow"
	SearchWorkflowName   = "SemanticSearchWorkflow"

	TriggerWorkflowName = "ChatTriggerWorkflow"
	TriggerTaskQueue    = "chat-trigger-task-queue"
	TriggerSignalName   = "trigger"
)

// IncidentInput is the argument payload for incident workflows.
type IncidentInput struct {
	IncidentID string         `json:"incident_id"`
	Source     string         `json:"source,omitempty"`
	Severity   string         `json:"severity,omitempty"`
	Message    string         `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
}

// DocumentInput is the argument payload for document-processing workflows.
type DocumentInput struct {
	DocumentURI string         `json:"document_uri,omitempty"`
	Source      string         `json:"source,omitempty"`
	Bucket      string         `json:"bucket,omitempty"`
	Container   string         `json:"container,omitempty"`
	SizeBytes   int64          `json:"size_bytes,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// SearchInput is the argument payload for semantic-search workflows.
type SearchInput struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

// definition binds a workflow type to its engine-side identity and its
// argument builder. Dispatch is a table lookup, not a conditional cascade.
type definition struct {
	workflow  string
	taskQueue string
	buildArgs func(event model.WorkflowEvent) []any
}

var definitions = map[model.WorkflowType]definition{
	model.WorkflowTypeIncident: {
		workflow:  IncidentWorkflowName,
		taskQueue: IncidentTaskQueue,
		buildArgs: func(e model.WorkflowEvent) []any {
			return []any{IncidentInput{
				IncidentID: incidentID(e),
				Source:     e.Source,
				Severity:   e.Priority,
				Message:    e.Message,
				Context:    e.Metadata,
			}}
		},
	},
	model.WorkflowTypeDocumentProcessing: {
		workflow:  DocumentWorkflowName,
		taskQueue: DocumentTaskQueue,
		buildArgs: func(e model.WorkflowEvent) []any {
			in := DocumentInput{
				Source:  e.Source,
				Context: e.Metadata,
			}
			in.DocumentURI, _ = stringMeta(e.Metadata, "uri", "document_uri", "url")
			in.Bucket, _ = stringMeta(e.Metadata, "bucket")
			in.Container, _ = stringMeta(e.Metadata, "container")
			in.ContentType, _ = stringMeta(e.Metadata, "content_type", "contentType")
			if v, ok := e.Metadata["size_bytes"]; ok {
				switch n := v.(type) {
				case float64:
					in.SizeBytes = int64(n)
				case int:
					in.SizeBytes = int64(n)
				case int64:
					in.SizeBytes = n
				}
			}
			return []any{in}
		},
	},
	model.WorkflowTypeSemanticSearch: {
		workflow:  SearchWorkflowName,
		taskQueue: SearchTaskQueue,
		buildArgs: func(e model.WorkflowEvent) []any {
			return []any{SearchInput{Query: e.Message, Context: e.Metadata}}
		},
	},
	// chat_session executions are owned by the session orchestrator and are
	// deliberately absent from this table.
}

// Event-type and source tokens used by type inference.
var (
	incidentTokens = []string{"incident", "outage", "alert", "failure", "error", "sev"}
	documentTokens = []string{"document", "upload", "file", "ingest", "pdf"}
	storageSources = []string{"s3", "gcs", "azure_blob", "azure-blob", "minio", "drive", "sharepoint"}
)

// Dispatcher starts or signals durable executions for workflow events.
type Dispatcher struct {
	provider *engine.Provider
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Dispatcher.
func New(provider *engine.Provider, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{provider: provider, logger: logger, now: time.Now}
}

// DetermineWorkflowType infers the workflow type for an event. An explicit
// workflow_type metadata entry wins; otherwise incident-like tokens select
// incident, storage-provider sources or document tokens select document
// processing, and everything else defaults to incident. The function is
// total: every event maps to exactly one type.
func DetermineWorkflowType(event model.WorkflowEvent) model.WorkflowType {
	if raw, ok := stringMeta(event.Metadata, "workflow_type", "workflowType"); ok {
		if t := model.WorkflowType(raw); t.Valid() {
			return t
		}
	}

	et := strings.ToLower(event.EventType)
	msg := strings.ToLower(event.Message)
	for _, tok := range incidentTokens {
		if strings.Contains(et, tok) || strings.Contains(msg, tok) {
			return model.WorkflowTypeIncident
		}
	}

	src := strings.ToLower(event.Source)
	for _, s := range storageSources {
		if src == s {
			return model.WorkflowTypeDocumentProcessing
		}
	}
	for _, tok := range documentTokens {
		if strings.Contains(et, tok) || strings.Contains(msg, tok) {
			return model.WorkflowTypeDocumentProcessing
		}
	}

	// Unknown event types silently land on incident. Pinned by tests.
	return model.WorkflowTypeIncident
}

// Plan resolves an event to its engine-side identity: the registered
// workflow name, task queue, and argument payload. Used by the in-process
// dispatcher and by the durable trigger workflow, so both paths make the
// same decision.
func Plan(event model.WorkflowEvent) (workflowType model.WorkflowType, workflowName, taskQueue string, args []any, err error) {
	workflowType = DetermineWorkflowType(event)
	def, ok := definitions[workflowType]
	if !ok {
		return workflowType, "", "", nil, model.NewUnsupportedWorkflowError(string(workflowType))
	}
	return workflowType, def.workflow, def.taskQueue, def.buildArgs(event), nil
}

// Dispatch starts the durable execution for an event. The workflow id, when
// not supplied, is "{type}-{chatID}" for conversation-bound events so a
// second dispatch for the same chat lands on the same instance; events
// without a chat id get a timestamped id instead.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.WorkflowEvent, workflowID string) (model.DispatchResult, error) {
	workflowType, workflowName, taskQueue, args, err := Plan(event)
	if err != nil {
		return model.DispatchResult{}, err
	}

	if workflowID == "" {
		tag := event.ChatID
		if tag == "" {
			tag = fmt.Sprintf("%d", d.now().UnixNano())
		}
		workflowID = model.WorkflowID(workflowType, tag)
	}

	ctx, span := observability.StartSpan(ctx, "dispatch.start",
		observability.AttrWorkflowType.String(string(workflowType)),
		observability.AttrWorkflowID.String(workflowID),
	)
	defer span.End()

	c, err := d.provider.Get(ctx)
	if err != nil {
		return model.DispatchResult{}, err
	}

	run, err := c.StartWorkflow(ctx, engine.StartOptions{
		WorkflowID: workflowID,
		TaskQueue:  taskQueue,
		Workflow:   workflowName,
		Args:       args,
	})
	if err != nil {
		return model.DispatchResult{}, err
	}

	d.logger.Info("workflow dispatched",
		zap.String("workflow_id", run.WorkflowID),
		zap.String("run_id", run.RunID),
		zap.String("workflow_type", string(workflowType)),
		zap.String("task_queue", taskQueue),
	)

	return model.DispatchResult{
		WorkflowID:   run.WorkflowID,
		RunID:        run.RunID,
		WorkflowType: workflowType,
	}, nil
}

// TriggerConversation delivers an event to the conversation-scoped trigger
// workflow using the signal-or-start protocol: the engine signals the
// running instance if one exists, otherwise starts a fresh one with an empty
// seed and delivers the signal to it. Two concurrent triggers for the same
// conversation always land on the same instance.
func (d *Dispatcher) TriggerConversation(ctx context.Context, chatID string, event model.WorkflowEvent) (model.DispatchResult, error) {
	workflowID := "chat-trigger-" + chatID

	ctx, span := observability.StartSpan(ctx, "dispatch.trigger",
		observability.AttrSessionID.String(chatID),
		observability.AttrWorkflowID.String(workflowID),
	)
	defer span.End()

	c, err := d.provider.Get(ctx)
	if err != nil {
		return model.DispatchResult{}, err
	}
	run, err := c.SignalWithStartWorkflow(ctx, TriggerSignalName, event, engine.StartOptions{
		WorkflowID: workflowID,
		TaskQueue:  TriggerTaskQueue,
		Workflow:   TriggerWorkflowName,
	})
	if err != nil {
		return model.DispatchResult{}, err
	}

	return model.DispatchResult{
		WorkflowID:   run.WorkflowID,
		RunID:        run.RunID,
		WorkflowType: DetermineWorkflowType(event),
	}, nil
}

func incidentID(e model.WorkflowEvent) string {
	if id, ok := stringMeta(e.Metadata, "incident_id", "incidentId"); ok {
		return id
	}
	if e.ChatID != "" {
		return "incident-" + e.ChatID
	}
	return fmt.Sprintf("incident-%d", e.Timestamp.UnixNano())
}

// stringMeta returns the first non-empty string value among the given
// metadata keys.
func stringMeta(meta map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := meta[k].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
