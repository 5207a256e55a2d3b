package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/session"
	"github.com/muturi/chatbridge/model"
)

func sessionTestEnv(t *testing.T, def *SessionWorkflow) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(def.Run, workflow.RegisterOptions{Name: session.WorkflowName})
	return env
}

func TestSessionWorkflow_countsAndHistory(t *testing.T) {
	def := &SessionWorkflow{InactivityTimeout: time.Hour, HistoryLimit: 100}
	env := sessionTestEnv(t, def)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(session.SignalReceiveMessage, session.MessageSignal{
			Role: "user", Content: "start the incident workflow", Timestamp: time.Now().UTC(),
		})
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(session.SignalReceiveResponse, session.MessageSignal{
			Role: "assistant", Content: "Started incident workflow.", Timestamp: time.Now().UTC(),
		})
	}, 2*time.Minute)

	env.ExecuteWorkflow(session.WorkflowName, session.Seed{
		SessionID: "s1", UserID: "guest-1", UserType: model.UserTypeGuest,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	val, err := env.QueryWorkflow(session.QuerySessionStatus)
	require.NoError(t, err)
	var state model.ChatSessionState
	require.NoError(t, val.Get(&state))
	require.Equal(t, 1, state.MessageCount, "only user messages advance the count")
	require.False(t, state.IsActive, "session should close after inactivity")
	require.Equal(t, model.UserTypeGuest, state.UserType)

	val, err = env.QueryWorkflow(session.QueryMessageHistory)
	require.NoError(t, err)
	var history []model.SessionMessage
	require.NoError(t, val.Get(&history))
	require.Len(t, history, 2)
	require.Equal(t, "user", history[0].Role)
	require.Equal(t, "assistant", history[1].Role)
}

type queriedState struct {
	state model.ChatSessionState
}

func (q queriedState) Status(context.Context, string) (model.ChatSessionState, error) {
	return q.state, nil
}

// A full turn is one user message plus one assistant reply. Only the user
// half may consume guest entitlement, so after one turn a guest with a
// limit of two still gets a second message through.
func TestSessionWorkflow_countFeedsGuestLimit(t *testing.T) {
	def := &SessionWorkflow{InactivityTimeout: time.Hour, HistoryLimit: 100}
	env := sessionTestEnv(t, def)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(session.SignalReceiveMessage, session.MessageSignal{
			Role: "user", Content: "summarize this document", Timestamp: time.Now().UTC(),
		})
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(session.SignalReceiveResponse, session.MessageSignal{
			Role: "assistant", Content: "Started document processing.", Timestamp: time.Now().UTC(),
		})
	}, 2*time.Minute)

	env.ExecuteWorkflow(session.WorkflowName, session.Seed{
		SessionID: "s1", UserID: "guest-1", UserType: model.UserTypeGuest,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	val, err := env.QueryWorkflow(session.QuerySessionStatus)
	require.NoError(t, err)
	var state model.ChatSessionState
	require.NoError(t, val.Get(&state))

	limiter := session.NewLimiter(queriedState{state}, 2,
		zap.NewNop(), observability.InitMetrics(prometheus.NewRegistry()))
	res := limiter.Check(context.Background(), "s1", model.UserTypeGuest)
	require.False(t, res.Limited, "second guest message of the day must be admitted")
	require.Equal(t, 1, res.Current)
}

func TestSessionWorkflow_historyBounded(t *testing.T) {
	def := &SessionWorkflow{InactivityTimeout: time.Hour, HistoryLimit: 3}
	env := sessionTestEnv(t, def)

	for i := 0; i < 5; i++ {
		delay := time.Duration(i+1) * time.Minute
		content := string(rune('a' + i))
		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(session.SignalReceiveMessage, session.MessageSignal{
				Role: "user", Content: content, Timestamp: time.Now().UTC(),
			})
		}, delay)
	}

	env.ExecuteWorkflow(session.WorkflowName, session.Seed{SessionID: "s1", UserType: model.UserTypeGuest})
	require.True(t, env.IsWorkflowCompleted())

	val, err := env.QueryWorkflow(session.QueryMessageHistory)
	require.NoError(t, err)
	var history []model.SessionMessage
	require.NoError(t, val.Get(&history))
	require.Len(t, history, 3)
	require.Equal(t, "c", history[0].Content, "oldest entries are evicted first")

	// The count keeps the full total even though history is bounded.
	val, err = env.QueryWorkflow(session.QuerySessionStatus)
	require.NoError(t, err)
	var state model.ChatSessionState
	require.NoError(t, val.Get(&state))
	require.Equal(t, 5, state.MessageCount)
}

func TestSessionWorkflow_updateUser(t *testing.T) {
	def := &SessionWorkflow{InactivityTimeout: time.Hour, HistoryLimit: 10}
	env := sessionTestEnv(t, def)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(session.SignalUpdateUser, session.UserUpdateSignal{
			UserID: "user-42", UserType: model.UserTypeAuthenticated,
		})
	}, time.Minute)

	env.ExecuteWorkflow(session.WorkflowName, session.Seed{SessionID: "s1", UserID: "guest-1", UserType: model.UserTypeGuest})
	require.True(t, env.IsWorkflowCompleted())

	val, err := env.QueryWorkflow(session.QuerySessionStatus)
	require.NoError(t, err)
	var state model.ChatSessionState
	require.NoError(t, val.Get(&state))
	require.Equal(t, "user-42", state.UserID)
	require.Equal(t, model.UserTypeAuthenticated, state.UserType)
}
