package workflows

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"
)

// StepResult is the payload every catalog step activity returns.
type StepResult struct {
	Step        string    `json:"step"`
	CompletedAt time.Time `json:"completed_at"`
}

// Activities holds the placeholder implementations for catalog steps. Each
// step registers the same Execute method under the step's name; the name
// reaches the implementation through the activity info.
type Activities struct {
	Logger *zap.Logger
}

// Execute acknowledges one catalog step. The real work lives in downstream
// services; this keeps the workflow histories shaped the way the bridge's
// progress and inspection paths expect.
func (a *Activities) Execute(ctx context.Context, input any) (StepResult, error) {
	info := activity.GetInfo(ctx)
	step := info.ActivityType.Name

	a.Logger.Info("catalog step executed",
		zap.String("step", step),
		zap.String("workflow_id", info.WorkflowExecution.ID),
		zap.Int32("attempt", info.Attempt),
	)

	return StepResult{Step: step, CompletedAt: time.Now().UTC()}, nil
}
