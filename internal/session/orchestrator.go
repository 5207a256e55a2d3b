// Package session manages the durable per-conversation chat sessions: one
// long-lived execution per conversation, created on first contact and torn
// down on explicit termination or engine-side inactivity timeout. Message
// bookkeeping signals are best-effort and flow through a bounded outbox; a
// chat turn never blocks on, or fails from, session signaling.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/config"
	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/model"
)

// Engine-side identity of the session workflow.
const (
	WorkflowName = "ChatSessionWorkflow"

	SignalReceiveMessage  = "receiveMessage"
	SignalReceiveResponse = "receiveResponse"
	SignalUpdateUser      = "updateUser"

	QuerySessionStatus  = "getSessionStatus"
	QueryMessageHistory = "getMessageHistory"
)

// Seed is the initial state handed to a freshly started session workflow.
type Seed struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	UserType  string `json:"user_type"`
}

// MessageSignal is the payload of receiveMessage / receiveResponse signals.
type MessageSignal struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserUpdateSignal is the payload of the updateUser signal.
type UserUpdateSignal struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
}

// WorkflowID returns the deterministic execution id for a session.
func WorkflowID(sessionID string) string {
	return "chat-session-" + sessionID
}

// Orchestrator owns the session lifecycle: ensure-started, best-effort
// message bookkeeping, queries, and termination.
type Orchestrator struct {
	provider *engine.Provider
	cfg      config.SessionConfig
	logger   *zap.Logger
	outbox   *Outbox
	now      func() time.Time
}

// NewOrchestrator creates an Orchestrator with its own outbox. Call Start
// to begin draining and Close on shutdown.
func NewOrchestrator(provider *engine.Provider, cfg config.SessionConfig, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	o.outbox = NewOutbox(cfg.OutboxSize, o.deliver, logger, metrics)
	return o
}

// Start launches the outbox drainer.
func (o *Orchestrator) Start(ctx context.Context) {
	o.outbox.Start(ctx)
}

// Close stops accepting signals and waits for the drainer to finish the
// items already queued.
func (o *Orchestrator) Close() {
	o.outbox.Close()
}

// EnsureStarted makes sure the session execution exists. A running session
// is reused as-is; a missing or closed one is started fresh with a zeroed
// message count. Returns the execution id.
func (o *Orchestrator) EnsureStarted(ctx context.Context, sessionID, userID, userType string) (string, error) {
	workflowID := WorkflowID(sessionID)

	c, err := o.provider.Get(ctx)
	if err != nil {
		return "", err
	}

	desc, err := c.DescribeWorkflow(ctx, workflowID)
	switch {
	case err == nil && !desc.Status.Terminal():
		return workflowID, nil
	case err != nil && !engine.IsNotFound(err):
		return "", err
	}

	_, err = c.StartWorkflow(ctx, engine.StartOptions{
		WorkflowID: workflowID,
		TaskQueue:  o.cfg.TaskQueue,
		Workflow:   WorkflowName,
		Args: []any{Seed{
			SessionID: sessionID,
			UserID:    userID,
			UserType:  userType,
		}},
	})
	if err != nil {
		return "", err
	}

	o.logger.Info("chat session started",
		zap.String("session_id", sessionID),
		zap.String("user_type", userType),
	)
	return workflowID, nil
}

// RecordMessage queues a receiveMessage signal for the session. Best-effort:
// the call never blocks and never fails.
func (o *Orchestrator) RecordMessage(sessionID, userID, userType, content string) {
	o.enqueue(sessionID, userID, userType, SignalReceiveMessage, MessageSignal{
		Role:      "user",
		Content:   content,
		Timestamp: o.now().UTC(),
	})
}

// RecordResponse queues a receiveResponse signal for the session.
func (o *Orchestrator) RecordResponse(sessionID, userID, userType, content string) {
	o.enqueue(sessionID, userID, userType, SignalReceiveResponse, MessageSignal{
		Role:      "assistant",
		Content:   content,
		Timestamp: o.now().UTC(),
	})
}

// UpdateUser queues an updateUser signal, typically after a guest
// authenticates mid-conversation.
func (o *Orchestrator) UpdateUser(sessionID, userID, userType string) {
	o.enqueue(sessionID, userID, userType, SignalUpdateUser, UserUpdateSignal{
		UserID:   userID,
		UserType: userType,
	})
}

// Status queries the session's durable state. Unknown sessions surface the
// engine's not-found error, distinguishable via engine.IsNotFound.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (model.ChatSessionState, error) {
	c, err := o.provider.Get(ctx)
	if err != nil {
		return model.ChatSessionState{}, err
	}
	var state model.ChatSessionState
	if err := c.QueryWorkflow(ctx, WorkflowID(sessionID), QuerySessionStatus, &state); err != nil {
		return model.ChatSessionState{}, err
	}
	return state, nil
}

// History queries the session's bounded message history.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]model.SessionMessage, error) {
	c, err := o.provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	var history []model.SessionMessage
	if err := c.QueryWorkflow(ctx, WorkflowID(sessionID), QueryMessageHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Terminate ends the session execution. This is administrative and
// irreversible; a later message for the same session id starts a fresh
// session with a zeroed count.
func (o *Orchestrator) Terminate(ctx context.Context, sessionID, reason string) error {
	c, err := o.provider.Get(ctx)
	if err != nil {
		return err
	}
	if err := c.TerminateWorkflow(ctx, WorkflowID(sessionID), reason); err != nil {
		return err
	}
	o.logger.Info("chat session terminated",
		zap.String("session_id", sessionID),
		zap.String("reason", reason),
	)
	return nil
}

func (o *Orchestrator) enqueue(sessionID, userID, userType, signal string, arg any) {
	o.outbox.Enqueue(Item{
		WorkflowID: WorkflowID(sessionID),
		Signal:     signal,
		Arg:        arg,
		Seed: Seed{
			SessionID: sessionID,
			UserID:    userID,
			UserType:  userType,
		},
	})
}

// deliver sends one outbox item using the signal-or-start protocol, so a
// session that expired between enqueue and delivery is recreated rather
// than lost.
func (o *Orchestrator) deliver(ctx context.Context, it Item) error {
	c, err := o.provider.Get(ctx)
	if err != nil {
		return err
	}
	_, err = c.SignalWithStartWorkflow(ctx, it.Signal, it.Arg, engine.StartOptions{
		WorkflowID: it.WorkflowID,
		TaskQueue:  o.cfg.TaskQueue,
		Workflow:   WorkflowName,
		Args:       []any{it.Seed},
	})
	return err
}
