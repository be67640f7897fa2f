package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/civitas-labs/legisync/internal/document"
	"github.com/civitas-labs/legisync/internal/vector"
)

// TextSource records where a document's working text came from.
type TextSource string

const (
	SourceExtracted TextSource = "extracted"
	SourceAbstract  TextSource = "abstract"
	SourceTitle     TextSource = "title"
)

// TextExtractor turns a PDF URL into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Result summarizes one enrichment run.
type Result struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Options tunes an Orchestrator. Zero values fall back to the defaults.
type Options struct {
	BatchSize int           // documents per run, default 10
	Pacing    time.Duration // sleep after each document, default 2s
}

const (
	defaultBatchSize = 10
	defaultPacing    = 2 * time.Second
)

// Orchestrator drives the per-document enrichment pipeline. At most one run
// is active at a time; overlapping calls return immediately.
type Orchestrator struct {
	repo      document.Repository
	analyzer  Analyzer
	extractor TextExtractor
	store     vector.Store
	logger    *slog.Logger

	batchSize int
	pacing    time.Duration
	running   atomic.Bool
}

// NewOrchestrator wires the enrichment pipeline.
func NewOrchestrator(repo document.Repository, analyzer Analyzer, extractor TextExtractor, store vector.Store, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Pacing <= 0 {
		opts.Pacing = defaultPacing
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		repo:      repo,
		analyzer:  analyzer,
		extractor: extractor,
		store:     store,
		logger:    logger,
		batchSize: opts.BatchSize,
		pacing:    opts.Pacing,
	}
}

// Running reports whether a run is currently in flight.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Run enriches up to one batch of pending documents sequentially. A failed
// document counts as an error and leaves no partial state behind; the run
// continues with the next one. If a run is already active, Run returns a zero
// Result without touching anything.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Info("enrichment already running, skipping")
		return Result{}, nil
	}
	defer o.running.Store(false)

	docs, err := o.repo.FindUnenriched(ctx, o.batchSize)
	if err != nil {
		return Result{}, fmt.Errorf("finding pending documents: %w", err)
	}
	if len(docs) == 0 {
		o.logger.Info("no documents pending enrichment")
		return Result{}, nil
	}

	o.logger.Info("enrichment run started", "pending", len(docs))

	var res Result
	for _, doc := range docs {
		if err := o.enrichOne(ctx, doc); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			o.logger.Error("enrichment failed", "dipId", doc.DIPID, "error", err)
			res.Errors++
		} else {
			res.Processed++
		}

		// Pace between documents to stay under provider rate limits.
		select {
		case <-time.After(o.pacing):
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}

	o.logger.Info("enrichment run finished", "processed", res.Processed, "errors", res.Errors)
	return res, nil
}

// enrichOne runs the full pipeline for a single document. The write-back is a
// single update at the end, so a failure anywhere leaves the document
// untouched and eligible for the next run.
func (o *Orchestrator) enrichOne(ctx context.Context, doc document.Document) error {
	text, source := o.workingText(ctx, doc)
	o.logger.Debug("working text selected", "dipId", doc.DIPID, "source", string(source), "chars", len(text))

	summary, err := o.analyzer.Summarize(ctx, doc.Title, text)
	if err != nil {
		return err
	}

	categorization, err := o.analyzer.Categorize(ctx, doc.Title, doc.Abstract, text)
	if err != nil {
		return err
	}
	category := categorization.Category
	if category == "" {
		category = CategoryOther
	}

	embedding, err := o.analyzer.Embed(ctx, embedInput(doc.Title, summary.Summary, text))
	if err != nil {
		return err
	}

	pointID := vector.PointID(doc.DIPID)
	err = o.store.Upsert(ctx, vector.Point{
		ID:     pointID,
		Vector: embedding,
		Payload: vector.Payload{
			DIPID:      doc.DIPID,
			Title:      doc.Title,
			Category:   category,
			Date:       doc.Date.Format("2006-01-02"),
			Department: doc.Department,
			Summary:    summary.Summary,
		},
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	enriched := true
	pointIDStr := strconv.FormatUint(uint64(pointID), 10)
	_, found, err := o.repo.UpdateEnrichment(ctx, doc.DIPID, document.EnrichmentUpdate{
		Summary:       &summary.Summary,
		Category:      &category,
		VectorPointID: &pointIDStr,
		Enriched:      &enriched,
		EnrichedAt:    &now,
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("document %s disappeared during enrichment", doc.DIPID)
	}

	o.logger.Info("document enriched", "dipId", doc.DIPID, "category", category, "pointId", pointID)
	return nil
}

// workingText picks the best available text for the document: extracted PDF
// text, the registry abstract, then the bare title.
func (o *Orchestrator) workingText(ctx context.Context, doc document.Document) (string, TextSource) {
	if doc.PDFURL != "" {
		text, err := o.extractor.Extract(ctx, doc.PDFURL)
		if err != nil {
			o.logger.Warn("text extraction failed, falling back", "dipId", doc.DIPID, "error", err)
		} else if strings.TrimSpace(text) != "" {
			return text, SourceExtracted
		}
	}
	if doc.Abstract != "" {
		return doc.Abstract, SourceAbstract
	}
	return doc.Title, SourceTitle
}

// embedInput builds the embedding text: title and summary in full, document
// text truncated so one field cannot crowd out the others.
func embedInput(title, summary, text string) string {
	return title + "\n\n" + summary + "\n\n" + truncate(text, embedTextLimit)
}
