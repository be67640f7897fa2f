// Package temporal runs the sync and enrichment pipelines as durable
// workflows for deployments that prefer Temporal over the in-process
// scheduler.
package temporal

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/civitas-labs/legisync/internal/enrich"
	"github.com/civitas-labs/legisync/internal/registry"
)

// SyncWorkflow runs one registry sync pass as a single activity.
func SyncWorkflow(ctx workflow.Context) (*registry.Result, error) {
	ao := workflow.ActivityOptions{
		// A full pagination pass over the registry backlog can be slow.
		StartToCloseTimeout: 30 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result registry.Result
	if err := workflow.ExecuteActivity(ctx, SyncActivity).Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EnrichmentWorkflow runs one enrichment batch as a single activity.
func EnrichmentWorkflow(ctx workflow.Context) (*enrich.Result, error) {
	ao := workflow.ActivityOptions{
		// Batch of 10 documents with LLM calls and pacing in between.
		StartToCloseTimeout: 30 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result enrich.Result
	if err := workflow.ExecuteActivity(ctx, EnrichActivity).Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
