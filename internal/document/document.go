// Package document defines the legislative document model and its
// repository contract.
package document

import (
	"context"
	"time"
)

// Document is one legislative printed paper (Drucksache) as tracked by the
// registry, plus the AI-derived fields the enrichment pipeline fills in.
type Document struct {
	// Registry state, overwritten on every sync pass.
	DIPID             string    `json:"dipId"` // natural key, registry-assigned
	Title             string    `json:"titel"`
	DocumentKind      string    `json:"dokumentart"`
	DocumentType      string    `json:"drucksachetyp"`
	Date              time.Time `json:"datum"`
	Department        string    `json:"ressort"`
	Authors           []string  `json:"urheber"`
	PDFURL            string    `json:"pdfUrl"`
	Abstract          string    `json:"abstract"`
	LegislativePeriod int       `json:"wahlperiode"`
	DocumentNumber    string    `json:"dokumentnummer"`

	// AI-derived fields, written once by the enrichment pipeline.
	Summary       string     `json:"summary,omitempty"`
	Category      string     `json:"category,omitempty"`
	VectorPointID string     `json:"vectorPointId,omitempty"`
	Enriched      bool       `json:"enriched"`
	EnrichedAt    *time.Time `json:"enrichedAt,omitempty"`
}

// EnrichmentUpdate carries the AI fields written back after a successful
// enrichment pass. Nil fields are left untouched.
type EnrichmentUpdate struct {
	Summary       *string
	Category      *string
	VectorPointID *string
	Enriched      *bool
	EnrichedAt    *time.Time
}

// ListQuery filters and pages the browse endpoint.
type ListQuery struct {
	Department string
	Category   string
	Search     string // matches title, abstract, or document number
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
	SortBy     string // "datum" (default) or "titel"
	SortAsc    bool
}

// Repository is the document store contract. Upsert is idempotent on the
// natural key; registry-state fields are last-write-wins while AI fields are
// only ever touched through UpdateEnrichment.
type Repository interface {
	// UpsertByDIPID inserts the document or overwrites its registry-state
	// fields, returning the stored row.
	UpsertByDIPID(ctx context.Context, doc Document) (Document, error)
	// FindUnenriched returns up to limit documents that have not been
	// enriched and carry a usable PDF URL, most recent first.
	FindUnenriched(ctx context.Context, limit int) ([]Document, error)
	// UpdateEnrichment applies the given AI fields; returns false when no
	// document with that natural key exists.
	UpdateEnrichment(ctx context.Context, dipID string, update EnrichmentUpdate) (Document, bool, error)

	FindByDIPID(ctx context.Context, dipID string) (Document, bool, error)
	List(ctx context.Context, q ListQuery) ([]Document, int, error)
	Departments(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)

	Close() error
}
