package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/progress"
	"github.com/muturi/chatbridge/model"
)

// progressResponse is the envelope for the progress read endpoint.
type progressResponse struct {
	Success   bool                   `json:"success"`
	Progress  model.WorkflowProgress `json:"progress"`
	Steps     []model.WorkflowStep   `json:"steps"`
	Timestamp time.Time              `json:"timestamp"`
}

func handleProgressGet(svc *progress.Service, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowID := r.URL.Query().Get("workflowId")
		if workflowID == "" {
			WriteError(w, model.NewBadRequestError("workflowId query parameter is required"))
			return
		}

		prog, steps, err := svc.Progress(r.Context(), workflowID)
		if err != nil {
			WriteError(w, err)
			return
		}
		metrics.ProgressPollsTotal.WithLabelValues(string(prog.Status)).Inc()

		WriteJSON(w, http.StatusOK, progressResponse{
			Success:   true,
			Progress:  prog,
			Steps:     steps,
			Timestamp: time.Now().UTC(),
		})
	}
}

// handleStepDetails serves the per-step drill-down. The inspector degrades
// rather than fails, so the endpoint answers 200 even when the engine
// cannot produce history.
func handleStepDetails(inspector *progress.Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WorkflowID string `json:"workflowId"`
			StepName   string `json:"stepName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.WorkflowID == "" || body.StepName == "" {
			WriteError(w, model.NewBadRequestError("workflowId and stepName are required"))
			return
		}

		detail := inspector.Inspect(r.Context(), body.WorkflowID, body.StepName)
		WriteJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"stepDetails": detail,
		})
	}
}
