// Package progress reconstructs fine-grained, presentable workflow progress
// from the engine's coarse status and history primitives, projecting them
// onto the static per-type step catalogs.
package progress

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/model"
)

// StatusQueryName is the query handler trigger workflows expose.
const StatusQueryName = "getStatus"

// StatusPayload is the engine's free-form status shape. Workflows report the
// current step under either currentStep or step; both are accepted.
type StatusPayload struct {
	Status      string    `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
	Step        string    `json:"step,omitempty"`
	StartTime   time.Time `json:"startTime,omitempty"`
}

// Translate converts an engine status payload into the canonical progress
// view. The workflow type is recovered from the structured workflow id;
// foreign ids fall back to a substring heuristic (see model.ParseWorkflowID).
func Translate(workflowID string, payload StatusPayload) model.WorkflowProgress {
	workflowType, _ := model.ParseWorkflowID(workflowID)
	catalog := model.CatalogFor(workflowType)
	totalSteps := len(catalog)

	currentStep := payload.CurrentStep
	if currentStep == "" {
		currentStep = payload.Step
	}
	if currentStep == "" {
		currentStep = "unknown"
	}
	currentIndex := catalog.Index(currentStep)

	status, recognized := model.CanonicalStatus(payload.Status)

	completed := 0
	if status == model.StatusCompleted {
		completed = totalSteps
	} else if currentIndex > 0 {
		completed = currentIndex
	}

	progress := model.WorkflowProgress{
		WorkflowID:       workflowID,
		WorkflowType:     workflowType,
		Status:           status,
		CurrentStep:      currentStep,
		CurrentStepIndex: currentIndex,
		TotalSteps:       totalSteps,
		CompletedSteps:   completed,
		StartTime:        payload.StartTime,
	}
	if !recognized {
		progress.RawStatus = payload.Status
	}
	if !status.Terminal() && totalSteps > 0 {
		remaining := totalSteps - completed
		progress.EstimatedDuration = remaining * model.BaseSeconds(workflowType) / totalSteps
	}
	return progress
}

// Steps derives the presentable state of every catalog step. The derivation
// is a pure function of (index, currentStepIndex, status):
//
//	status=completed            -> completed (all indices)
//	status=failed, i=current    -> failed; later steps stay pending
//	i < current                 -> completed
//	i = current, status=running -> running
//	otherwise                   -> pending
func Steps(workflowID string, workflowType model.WorkflowType, currentStepIndex int, status model.Status) []model.WorkflowStep {
	catalog := model.CatalogFor(workflowType)
	steps := make([]model.WorkflowStep, 0, len(catalog))

	for i, entry := range catalog {
		stepStatus := model.StepStatusPending
		switch {
		case status == model.StatusCompleted:
			stepStatus = model.StepStatusCompleted
		case status == model.StatusFailed && i == currentStepIndex:
			stepStatus = model.StepStatusFailed
		case i < currentStepIndex:
			stepStatus = model.StepStatusCompleted
		case i == currentStepIndex && status == model.StatusRunning:
			stepStatus = model.StepStatusRunning
		}

		steps = append(steps, model.WorkflowStep{
			WorkflowID: workflowID,
			StepName:   entry.Name,
			StepLabel:  entry.Label,
			StepIndex:  i,
			Status:     stepStatus,
			Details:    entry.Description,
		})
	}
	return steps
}

// Service answers progress and status requests against the engine.
type Service struct {
	provider *engine.Provider
	logger   *zap.Logger
}

// NewService creates a progress Service.
func NewService(provider *engine.Provider, logger *zap.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Progress fetches the workflow's status payload and translates it. The
// getStatus query is preferred; when the workflow exposes no such handler
// (or the query fails for any reason short of not-found), the coarse
// describe status is used with an unknown current step so the catalog still
// renders.
func (s *Service) Progress(ctx context.Context, workflowID string) (model.WorkflowProgress, []model.WorkflowStep, error) {
	c, err := s.provider.Get(ctx)
	if err != nil {
		return model.WorkflowProgress{}, nil, model.NewEngineUnavailableError()
	}

	var payload StatusPayload
	if err := c.QueryWorkflow(ctx, workflowID, StatusQueryName, &payload); err != nil {
		if engine.IsNotFound(err) {
			return model.WorkflowProgress{}, nil, model.NewNotFoundError("unknown workflow id: " + workflowID)
		}

		desc, derr := c.DescribeWorkflow(ctx, workflowID)
		if derr != nil {
			if engine.IsNotFound(derr) {
				return model.WorkflowProgress{}, nil, model.NewNotFoundError("unknown workflow id: " + workflowID)
			}
			return model.WorkflowProgress{}, nil, model.NewEngineUnavailableError()
		}
		s.logger.Debug("status query failed, using describe",
			zap.String("workflow_id", workflowID), zap.Error(err))
		payload = StatusPayload{
			Status:    string(desc.Status),
			StartTime: desc.StartTime,
		}
	}

	progress := Translate(workflowID, payload)
	steps := Steps(workflowID, progress.WorkflowType, progress.CurrentStepIndex, progress.Status)
	return progress, steps, nil
}

// Status returns the workflow's coarse canonical status. Unknown ids report
// status "unknown" rather than an error, matching the status tool contract.
func (s *Service) Status(ctx context.Context, workflowID string) (model.Status, error) {
	c, err := s.provider.Get(ctx)
	if err != nil {
		return model.StatusUnknown, model.NewEngineUnavailableError()
	}

	desc, err := c.DescribeWorkflow(ctx, workflowID)
	if err != nil {
		if engine.IsNotFound(err) {
			return model.StatusUnknown, nil
		}
		return model.StatusUnknown, model.NewEngineUnavailableError()
	}
	return desc.Status, nil
}
