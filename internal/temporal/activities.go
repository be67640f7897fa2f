package temporal

import (
	"context"
	"fmt"

	"github.com/civitas-labs/legisync/internal/enrich"
	"github.com/civitas-labs/legisync/internal/registry"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Sync     *registry.Engine
	Enricher *enrich.Orchestrator
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// SyncActivity runs one full registry sync pass.
func SyncActivity(ctx context.Context) (registry.Result, error) {
	if deps == nil || deps.Sync == nil {
		return registry.Result{}, fmt.Errorf("sync engine not configured")
	}
	return deps.Sync.Sync(ctx), nil
}

// EnrichActivity runs one enrichment batch.
func EnrichActivity(ctx context.Context) (enrich.Result, error) {
	if deps == nil || deps.Enricher == nil {
		return enrich.Result{}, fmt.Errorf("enrichment orchestrator not configured")
	}
	return deps.Enricher.Run(ctx)
}
