// Package enginetest provides a configurable in-memory engine client for
// tests in other packages.
package enginetest

import (
	"context"
	"sync"

	historypb "go.temporal.io/api/history/v1"
	"go.temporal.io/api/serviceerror"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/config"
	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/model"
)

// NotFoundErr returns the engine's not-found error, for fakes to return.
func NotFoundErr(msg string) error {
	return &serviceerror.NotFound{Message: msg}
}

// FakeClient implements engine.Client. Zero-value methods succeed with
// empty results; set the corresponding Fn field to override a call.
type FakeClient struct {
	mu sync.Mutex

	StartFn           func(ctx context.Context, opts engine.StartOptions) (engine.Run, error)
	SignalFn          func(ctx context.Context, workflowID, signalName string, arg any) error
	SignalWithStartFn func(ctx context.Context, signalName string, signalArg any, opts engine.StartOptions) (engine.Run, error)
	QueryFn           func(ctx context.Context, workflowID, queryType string, out any, args ...any) error
	DescribeFn        func(ctx context.Context, workflowID string) (engine.Description, error)
	TerminateFn       func(ctx context.Context, workflowID, reason string) error
	HistoryFn         func(ctx context.Context, workflowID string) ([]*historypb.HistoryEvent, error)

	// Recorded calls, in order.
	Starts           []engine.StartOptions
	Signals          []SignalCall
	SignalWithStarts []SignalWithStartCall
	Terminations     []TerminateCall
	Closed           bool
}

// SignalCall records one SignalWorkflow invocation.
type SignalCall struct {
	WorkflowID string
	SignalName string
	Arg        any
}

// SignalWithStartCall records one SignalWithStartWorkflow invocation.
type SignalWithStartCall struct {
	SignalName string
	SignalArg  any
	Opts       engine.StartOptions
}

// TerminateCall records one TerminateWorkflow invocation.
type TerminateCall struct {
	WorkflowID string
	Reason     string
}

var _ engine.Client = (*FakeClient)(nil)

func (f *FakeClient) StartWorkflow(ctx context.Context, opts engine.StartOptions) (engine.Run, error) {
	f.mu.Lock()
	f.Starts = append(f.Starts, opts)
	f.mu.Unlock()
	if f.StartFn != nil {
		return f.StartFn(ctx, opts)
	}
	return engine.Run{WorkflowID: opts.WorkflowID, RunID: "run-1"}, nil
}

func (f *FakeClient) SignalWorkflow(ctx context.Context, workflowID, signalName string, arg any) error {
	f.mu.Lock()
	f.Signals = append(f.Signals, SignalCall{WorkflowID: workflowID, SignalName: signalName, Arg: arg})
	f.mu.Unlock()
	if f.SignalFn != nil {
		return f.SignalFn(ctx, workflowID, signalName, arg)
	}
	return nil
}

func (f *FakeClient) SignalWithStartWorkflow(ctx context.Context, signalName string, signalArg any, opts engine.StartOptions) (engine.Run, error) {
	f.mu.Lock()
	f.SignalWithStarts = append(f.SignalWithStarts, SignalWithStartCall{
		SignalName: signalName, SignalArg: signalArg, Opts: opts,
	})
	f.mu.Unlock()
	if f.SignalWithStartFn != nil {
		return f.SignalWithStartFn(ctx, signalName, signalArg, opts)
	}
	return engine.Run{WorkflowID: opts.WorkflowID, RunID: "run-1"}, nil
}

func (f *FakeClient) QueryWorkflow(ctx context.Context, workflowID, queryType string, out any, args ...any) error {
	if f.QueryFn != nil {
		return f.QueryFn(ctx, workflowID, queryType, out, args...)
	}
	return nil
}

func (f *FakeClient) DescribeWorkflow(ctx context.Context, workflowID string) (engine.Description, error) {
	if f.DescribeFn != nil {
		return f.DescribeFn(ctx, workflowID)
	}
	return engine.Description{Status: model.StatusRunning, RawStatus: "WORKFLOW_EXECUTION_STATUS_RUNNING"}, nil
}

func (f *FakeClient) TerminateWorkflow(ctx context.Context, workflowID, reason string) error {
	f.mu.Lock()
	f.Terminations = append(f.Terminations, TerminateCall{WorkflowID: workflowID, Reason: reason})
	f.mu.Unlock()
	if f.TerminateFn != nil {
		return f.TerminateFn(ctx, workflowID, reason)
	}
	return nil
}

func (f *FakeClient) GetHistory(ctx context.Context, workflowID string) ([]*historypb.HistoryEvent, error) {
	if f.HistoryFn != nil {
		return f.HistoryFn(ctx, workflowID)
	}
	return nil, nil
}

func (f *FakeClient) Close() {
	f.Closed = true
}

// SignalWithStartCount returns the number of recorded signal-with-start
// calls for the given signal name.
func (f *FakeClient) SignalWithStartCount(signal string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.SignalWithStarts {
		if c.SignalName == signal {
			n++
		}
	}
	return n
}

// Provider wraps the fake client in an engine.Provider whose dial always
// succeeds and returns the fake.
func Provider(c engine.Client) *engine.Provider {
	return engine.NewProviderWithDial(
		config.TemporalConfig{HostPort: "fake:7233", Namespace: "test"},
		zap.NewNop(),
		func(context.Context) (engine.Client, error) { return c, nil },
	)
}
