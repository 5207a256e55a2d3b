// Package main is the entry point for the chatbridge worker. It hosts the
// durable workflow definitions: the step-catalog workflows, the
// per-conversation trigger workflow, and the chat session workflow.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/config"
	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/internal/session"
	"github.com/muturi/chatbridge/internal/workflows"
	"github.com/muturi/chatbridge/model"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Error("engine connection failed", zap.Error(err))
		return 1
	}
	defer c.Close()

	acts := &workflows.Activities{Logger: logger}

	catalogWorkers := []struct {
		taskQueue    string
		workflowName string
		workflowFn   any
		workflowType model.WorkflowType
	}{
		{dispatch.IncidentTaskQueue, dispatch.IncidentWorkflowName,
			workflows.IncidentWorkflow, model.WorkflowTypeIncident},
		{dispatch.DocumentTaskQueue, dispatch.DocumentWorkflowName,
			workflows.DocumentProcessingWorkflow, model.WorkflowTypeDocumentProcessing},
		{dispatch.SearchTaskQueue, dispatch.SearchWorkflowName,
			workflows.SemanticSearchWorkflow, model.WorkflowTypeSemanticSearch},
	}

	var all []worker.Worker
	for _, cw := range catalogWorkers {
		w := worker.New(c, cw.taskQueue, worker.Options{})
		w.RegisterWorkflowWithOptions(cw.workflowFn, workflow.RegisterOptions{Name: cw.workflowName})
		for _, step := range model.CatalogFor(cw.workflowType) {
			w.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: step.Name})
		}
		all = append(all, w)
	}

	triggerWorker := worker.New(c, dispatch.TriggerTaskQueue, worker.Options{})
	triggerWorker.RegisterWorkflowWithOptions(workflows.ChatTriggerWorkflow,
		workflow.RegisterOptions{Name: dispatch.TriggerWorkflowName})
	all = append(all, triggerWorker)

	sessionDef := &workflows.SessionWorkflow{
		InactivityTimeout: cfg.Session.InactivityTimeout,
		HistoryLimit:      cfg.Session.HistoryLimit,
	}
	sessionWorker := worker.New(c, cfg.Session.TaskQueue, worker.Options{})
	sessionWorker.RegisterWorkflowWithOptions(sessionDef.Run,
		workflow.RegisterOptions{Name: session.WorkflowName})
	all = append(all, sessionWorker)

	for _, w := range all {
		if err := w.Start(); err != nil {
			logger.Error("worker start failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("worker started",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("workers", len(all)),
	)

	<-ctx.Done()
	logger.Info("shutdown initiated")

	for _, w := range all {
		w.Stop()
	}

	logger.Info("shutdown complete")
	return 0
}
