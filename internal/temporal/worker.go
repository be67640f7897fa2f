package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(SyncWorkflow)
	w.RegisterWorkflow(EnrichmentWorkflow)
	w.RegisterActivity(SyncActivity)
	w.RegisterActivity(EnrichActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// ScheduleWorkflows starts both pipelines on their cron cadences. Workflow
// ids are fixed, so a worker restart finds the schedules already running and
// leaves them alone instead of stacking duplicates.
func ScheduleWorkflows(ctx context.Context, c client.Client, taskQueue, syncCron, enrichCron string) error {
	schedules := []struct {
		id       string
		cron     string
		workflow any
	}{
		{"legisync-sync", syncCron, SyncWorkflow},
		{"legisync-enrich", enrichCron, EnrichmentWorkflow},
	}

	for _, s := range schedules {
		_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:           s.id,
			TaskQueue:    taskQueue,
			CronSchedule: s.cron,
		}, s.workflow)

		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			continue
		}
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", s.id, err)
		}
	}
	return nil
}
