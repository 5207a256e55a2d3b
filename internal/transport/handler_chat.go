package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/internal/extractor"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/session"
	"github.com/muturi/chatbridge/model"
)

// chatDeps bundles the collaborators of the composed chat turn.
type chatDeps struct {
	Extractor  *extractor.Extractor
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Orchestrator
	Limiter    *session.Limiter
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// handleChatMessage is the composed chat turn: hard rate-limit check,
// best-effort session start and bookkeeping, extraction, and durable
// dispatch via the conversation's trigger workflow. Only the rate limit
// and dispatch of a recognized event can fail the turn; session
// bookkeeping never does.
func handleChatMessage(deps chatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())

		var body struct {
			SessionID string `json:"sessionId"`
			Message   string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.SessionID == "" || body.Message == "" {
			WriteError(w, model.NewBadRequestError("sessionId and message are required"))
			return
		}

		ctx, span := observability.StartSpan(r.Context(), "chat.message",
			observability.AttrSessionID.String(body.SessionID),
			observability.AttrUserType.String(id.UserType),
		)
		defer span.End()
		logger := observability.LoggerFrom(ctx, deps.Logger)

		limit := deps.Limiter.Check(ctx, body.SessionID, id.UserType)
		if limit.Limited {
			WriteError(w, model.NewRateLimitedError(limit.Limit, limit.Current))
			return
		}

		if _, err := deps.Sessions.EnsureStarted(ctx, body.SessionID, id.UserID, id.UserType); err != nil {
			// Session bookkeeping is best-effort; the turn goes on without it.
			logger.Warn("session start failed, continuing without durable session",
				zap.String("session_id", body.SessionID), zap.Error(err))
		}
		if id.UserType == model.UserTypeAuthenticated {
			// Keeps sessions opened as guest in step once the caller signs in.
			// Idempotent on the session side.
			deps.Sessions.UpdateUser(body.SessionID, id.UserID, id.UserType)
		}
		deps.Sessions.RecordMessage(body.SessionID, id.UserID, id.UserType, body.Message)
		deps.Limiter.Record(body.SessionID)

		classification := deps.Extractor.Extract(ctx, body.Message, "")
		event := deps.Extractor.CreateEvent(classification, body.Message, body.SessionID, id.UserID)

		resp := triggerResponse{
			Success:           true,
			SessionID:         body.SessionID,
			WorkflowTriggered: false,
			Details:           classification.Reasoning,
		}

		if event == nil {
			outcome := "non_event"
			if classification.Reasoning == "extraction error" {
				outcome = "error"
			}
			deps.Metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
			resp.Message = "Message received."
		} else {
			deps.Metrics.ExtractionsTotal.WithLabelValues("event").Inc()

			result, err := deps.Dispatcher.TriggerConversation(ctx, body.SessionID, *event)
			if err != nil {
				WriteError(w, model.NewEngineUnavailableError())
				return
			}
			deps.Metrics.WorkflowTriggersTotal.WithLabelValues(string(result.WorkflowType)).Inc()

			resp.Message = fmt.Sprintf("Started %s workflow for your request.", result.WorkflowType)
			resp.WorkflowID = result.WorkflowID
			resp.RunID = result.RunID
			resp.EventType = event.EventType
			resp.Priority = event.Priority
			resp.WorkflowTriggered = true
		}

		deps.Sessions.RecordResponse(body.SessionID, id.UserID, id.UserType, resp.Message)
		WriteJSON(w, http.StatusOK, resp)
	}
}

func handleSessionGet(sessions *session.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		state, err := sessions.Status(r.Context(), sessionID)
		if err != nil {
			if engine.IsNotFound(err) {
				WriteError(w, model.NewNotFoundError("unknown session: "+sessionID))
				return
			}
			WriteError(w, model.NewEngineUnavailableError())
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"session": state,
		})
	}
}

func handleSessionDelete(sessions *session.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		if err := sessions.Terminate(r.Context(), sessionID, "client requested termination"); err != nil {
			if engine.IsNotFound(err) {
				WriteError(w, model.NewNotFoundError("unknown session: "+sessionID))
				return
			}
			WriteError(w, model.NewEngineUnavailableError())
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"sessionId": sessionID,
			"status":    "terminated",
		})
	}
}
