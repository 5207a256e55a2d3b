package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/internal/extractor"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/progress"
	"github.com/muturi/chatbridge/model"
)

// triggerResponse is the tool-facing trigger result. The same shape is
// reused by the chat surface, which is what lets a chat frontend treat both
// paths uniformly.
type triggerResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	WorkflowID        string `json:"workflowId,omitempty"`
	RunID             string `json:"runId,omitempty"`
	EventType         string `json:"eventType,omitempty"`
	Priority          string `json:"priority,omitempty"`
	WorkflowTriggered bool   `json:"workflowTriggered"`
	Details           string `json:"details,omitempty"`
	SessionID         string `json:"sessionId,omitempty"`
}

func handleToolTrigger(ext *extractor.Extractor, disp *dispatch.Dispatcher, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserMessage string `json:"userMessage"`
			ChatID      string `json:"chatId"`
			UserID      string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.UserMessage == "" {
			WriteError(w, model.NewBadRequestError("userMessage is required"))
			return
		}
		if body.UserID == "" {
			if id, ok := IdentityFrom(r.Context()); ok {
				body.UserID = id.UserID
			}
		}

		classification := ext.Extract(r.Context(), body.UserMessage, "")
		event := ext.CreateEvent(classification, body.UserMessage, body.ChatID, body.UserID)
		if event == nil {
			outcome := "non_event"
			if classification.Reasoning == "extraction error" {
				outcome = "error"
			}
			metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
			WriteJSON(w, http.StatusOK, triggerResponse{
				Success:           true,
				Message:           "No workflow action was detected in the message.",
				WorkflowTriggered: false,
				Details:           classification.Reasoning,
			})
			return
		}
		metrics.ExtractionsTotal.WithLabelValues("event").Inc()

		result, err := disp.Dispatch(r.Context(), *event, "")
		if err != nil {
			if ee, ok := err.(*model.ErrorEnvelope); ok {
				WriteError(w, ee)
				return
			}
			WriteError(w, model.NewEngineUnavailableError())
			return
		}
		metrics.WorkflowTriggersTotal.WithLabelValues(string(result.WorkflowType)).Inc()

		WriteJSON(w, http.StatusOK, triggerResponse{
			Success:           true,
			Message:           fmt.Sprintf("Started %s workflow.", result.WorkflowType),
			WorkflowID:        result.WorkflowID,
			RunID:             result.RunID,
			EventType:         event.EventType,
			Priority:          event.Priority,
			WorkflowTriggered: true,
			Details:           classification.Reasoning,
		})
	}
}

func handleToolStatus(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WorkflowID string `json:"workflowId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.WorkflowID == "" {
			WriteError(w, model.NewBadRequestError("workflowId is required"))
			return
		}

		status, err := svc.Status(r.Context(), body.WorkflowID)
		if err != nil {
			WriteError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"workflowId": body.WorkflowID,
			"status":     status,
			"message":    statusMessage(body.WorkflowID, status),
		})
	}
}

func handleToolProgress(svc *progress.Service, metrics *observability.Metrics, pollInterval int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WorkflowID        string `json:"workflowId"`
			EnableLiveUpdates bool   `json:"enableLiveUpdates"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.WorkflowID == "" {
			WriteError(w, model.NewBadRequestError("workflowId is required"))
			return
		}

		prog, steps, err := svc.Progress(r.Context(), body.WorkflowID)
		if err != nil {
			WriteError(w, err)
			return
		}
		metrics.ProgressPollsTotal.WithLabelValues(string(prog.Status)).Inc()

		resp := map[string]any{
			"success":  true,
			"progress": prog,
			"steps":    steps,
			"message": fmt.Sprintf("Workflow is %s: %d of %d steps completed.",
				prog.Status, prog.CompletedSteps, prog.TotalSteps),
		}
		if body.EnableLiveUpdates && prog.Status == model.StatusRunning {
			resp["shouldPoll"] = true
			resp["pollInterval"] = pollInterval
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func statusMessage(workflowID string, status model.Status) string {
	switch status {
	case model.StatusRunning:
		return fmt.Sprintf("Workflow %s is still running.", workflowID)
	case model.StatusCompleted:
		return fmt.Sprintf("Workflow %s completed successfully.", workflowID)
	case model.StatusFailed:
		return fmt.Sprintf("Workflow %s failed.", workflowID)
	case model.StatusCancelled:
		return fmt.Sprintf("Workflow %s was cancelled.", workflowID)
	default:
		return fmt.Sprintf("No workflow found with id %s.", workflowID)
	}
}
