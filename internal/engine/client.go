// Package engine wraps the Temporal client behind the narrow set of
// primitives the bridge consumes: start, signal, signal-with-start, query,
// describe, terminate, and history fetch. No operation is retried here;
// retry policy belongs to the caller.
package engine

import (
	"context"
	"errors"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/model"
)

// StartOptions describes a workflow start request.
type StartOptions struct {
	WorkflowID string
	TaskQueue  string
	Workflow   string
	Args       []any
	// RunTimeout bounds a single run; zero means engine default.
	RunTimeout time.Duration
}

// Run identifies a started (or already-running) execution.
type Run struct {
	WorkflowID string
	RunID      string
}

// Description is the engine's coarse view of an execution, reduced to what
// the bridge needs.
type Description struct {
	Status    model.Status
	RawStatus string
	StartTime time.Time
	CloseTime time.Time
}

// Client is the bridge's view of the durable-execution engine. All methods
// may fail with a connectivity error or, where a workflow id is involved, a
// not-found error distinguishable via IsNotFound.
type Client interface {
	StartWorkflow(ctx context.Context, opts StartOptions) (Run, error)
	SignalWorkflow(ctx context.Context, workflowID, signalName string, arg any) error
	SignalWithStartWorkflow(ctx context.Context, signalName string, signalArg any, opts StartOptions) (Run, error)
	QueryWorkflow(ctx context.Context, workflowID, queryType string, out any, args ...any) error
	DescribeWorkflow(ctx context.Context, workflowID string) (Description, error)
	TerminateWorkflow(ctx context.Context, workflowID, reason string) error
	GetHistory(ctx context.Context, workflowID string) ([]*historypb.HistoryEvent, error)
	Close()
}

// IsNotFound reports whether err means the engine does not know the
// workflow id.
func IsNotFound(err error) bool {
	var nf *serviceerror.NotFound
	return errors.As(err, &nf)
}

// temporalClient implements Client on a real Temporal connection.
type temporalClient struct {
	tc      client.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewClient wraps an established Temporal client. A nil metrics handle
// disables call instrumentation.
func NewClient(tc client.Client, logger *zap.Logger, metrics *observability.Metrics) Client {
	return &temporalClient{tc: tc, logger: logger, metrics: metrics}
}

// recordEngineCall counts one engine round trip and observes its duration.
// Not-found is its own outcome: it is an expected answer for unknown ids,
// not an engine failure.
func recordEngineCall(m *observability.Metrics, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.EngineCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.EngineCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (c *temporalClient) StartWorkflow(ctx context.Context, opts StartOptions) (Run, error) {
	start := time.Now()
	run, err := c.tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                 opts.WorkflowID,
		TaskQueue:          opts.TaskQueue,
		WorkflowRunTimeout: opts.RunTimeout,
	}, opts.Workflow, opts.Args...)
	recordEngineCall(c.metrics, "start", start, err)
	if err != nil {
		return Run{}, err
	}
	return Run{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

func (c *temporalClient) SignalWorkflow(ctx context.Context, workflowID, signalName string, arg any) error {
	start := time.Now()
	err := c.tc.SignalWorkflow(ctx, workflowID, "", signalName, arg)
	recordEngineCall(c.metrics, "signal", start, err)
	return err
}

func (c *temporalClient) SignalWithStartWorkflow(ctx context.Context, signalName string, signalArg any, opts StartOptions) (Run, error) {
	start := time.Now()
	run, err := c.tc.SignalWithStartWorkflow(ctx, opts.WorkflowID, signalName, signalArg,
		client.StartWorkflowOptions{
			ID:                 opts.WorkflowID,
			TaskQueue:          opts.TaskQueue,
			WorkflowRunTimeout: opts.RunTimeout,
		}, opts.Workflow, opts.Args...)
	recordEngineCall(c.metrics, "signal_with_start", start, err)
	if err != nil {
		return Run{}, err
	}
	return Run{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

func (c *temporalClient) QueryWorkflow(ctx context.Context, workflowID, queryType string, out any, args ...any) error {
	start := time.Now()
	val, err := c.tc.QueryWorkflow(ctx, workflowID, "", queryType, args...)
	recordEngineCall(c.metrics, "query", start, err)
	if err != nil {
		return err
	}
	return val.Get(out)
}

func (c *temporalClient) DescribeWorkflow(ctx context.Context, workflowID string) (Description, error) {
	start := time.Now()
	resp, err := c.tc.DescribeWorkflowExecution(ctx, workflowID, "")
	recordEngineCall(c.metrics, "describe", start, err)
	if err != nil {
		return Description{}, err
	}
	info := resp.GetWorkflowExecutionInfo()
	if info == nil {
		return Description{}, &serviceerror.NotFound{Message: "workflow execution info missing"}
	}

	desc := Description{
		Status:    statusFromExecution(info.GetStatus()),
		RawStatus: info.GetStatus().String(),
	}
	if st := info.GetStartTime(); st != nil {
		desc.StartTime = st.AsTime()
	}
	if ct := info.GetCloseTime(); ct != nil {
		desc.CloseTime = ct.AsTime()
	}
	return desc, nil
}

func (c *temporalClient) TerminateWorkflow(ctx context.Context, workflowID, reason string) error {
	start := time.Now()
	err := c.tc.TerminateWorkflow(ctx, workflowID, "", reason)
	recordEngineCall(c.metrics, "terminate", start, err)
	return err
}

func (c *temporalClient) GetHistory(ctx context.Context, workflowID string) (events []*historypb.HistoryEvent, err error) {
	start := time.Now()
	defer func() { recordEngineCall(c.metrics, "history", start, err) }()

	iter := c.tc.GetWorkflowHistory(ctx, workflowID, "", false,
		enumspb.HISTORY_EVENT_FILTER_TYPE_ALL_EVENT)

	for iter.HasNext() {
		evt, err := iter.Next()
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, nil
}

func (c *temporalClient) Close() {
	c.tc.Close()
}

// statusFromExecution maps the engine's execution status enum to the
// canonical status. Terminated and timed-out executions present as failed;
// continued-as-new is still in flight.
func statusFromExecution(s enumspb.WorkflowExecutionStatus) model.Status {
	switch s {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return model.StatusCompleted
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING,
		enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return model.StatusRunning
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED,
		enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED,
		enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return model.StatusFailed
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return model.StatusCancelled
	default:
		return model.StatusRunning
	}
}
