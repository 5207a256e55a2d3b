package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/muturi/chatbridge/internal/session"
	"github.com/muturi/chatbridge/model"
)

// SessionWorkflow is the durable per-conversation session definition. The
// limits come from worker configuration and are fixed for the lifetime of
// a run.
type SessionWorkflow struct {
	InactivityTimeout time.Duration
	HistoryLimit      int
}

// Run tracks one conversation: signal handlers mutate the message count,
// bounded history, and user identity; queries expose them; the run ends
// after the inactivity timeout elapses with no signals. The message count
// is the authoritative input to guest rate limiting and counts user
// messages only; assistant replies land in history without advancing it.
func (w *SessionWorkflow) Run(ctx workflow.Context, seed session.Seed) error {
	state := model.ChatSessionState{
		SessionID:    seed.SessionID,
		UserID:       seed.UserID,
		UserType:     seed.UserType,
		IsActive:     true,
		LastActivity: workflow.Now(ctx),
	}
	var history []model.SessionMessage

	if err := workflow.SetQueryHandler(ctx, session.QuerySessionStatus, func() (model.ChatSessionState, error) {
		return state, nil
	}); err != nil {
		return err
	}
	if err := workflow.SetQueryHandler(ctx, session.QueryMessageHistory, func() ([]model.SessionMessage, error) {
		return history, nil
	}); err != nil {
		return err
	}

	appendHistory := func(msg session.MessageSignal) {
		state.LastActivity = workflow.Now(ctx)
		history = append(history, model.SessionMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
		if w.HistoryLimit > 0 && len(history) > w.HistoryLimit {
			history = history[len(history)-w.HistoryLimit:]
		}
	}

	messageCh := workflow.GetSignalChannel(ctx, session.SignalReceiveMessage)
	responseCh := workflow.GetSignalChannel(ctx, session.SignalReceiveResponse)
	userCh := workflow.GetSignalChannel(ctx, session.SignalUpdateUser)

	for {
		active := false

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(messageCh, func(c workflow.ReceiveChannel, _ bool) {
			var msg session.MessageSignal
			c.Receive(ctx, &msg)
			state.MessageCount++
			appendHistory(msg)
			active = true
		})
		selector.AddReceive(responseCh, func(c workflow.ReceiveChannel, _ bool) {
			var msg session.MessageSignal
			c.Receive(ctx, &msg)
			appendHistory(msg)
			active = true
		})
		selector.AddReceive(userCh, func(c workflow.ReceiveChannel, _ bool) {
			var upd session.UserUpdateSignal
			c.Receive(ctx, &upd)
			state.UserID = upd.UserID
			state.UserType = upd.UserType
			state.LastActivity = workflow.Now(ctx)
			active = true
		})

		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		selector.AddFuture(workflow.NewTimer(timerCtx, w.InactivityTimeout), func(workflow.Future) {})

		selector.Select(ctx)
		cancelTimer()

		if !active {
			state.IsActive = false
			workflow.GetLogger(ctx).Info("session closed after inactivity",
				"session_id", state.SessionID,
				"message_count", state.MessageCount,
			)
			return nil
		}
	}
}
