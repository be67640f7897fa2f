package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civitas-labs/legisync/internal/document"
)

// API is the slice of the registry client the sync engine needs.
type API interface {
	Configured() bool
	FetchPage(ctx context.Context, cursor string) (*Page, error)
}

// Result aggregates one sync invocation.
type Result struct {
	Synced int `json:"synced"`
	Errors int `json:"errors"`
}

// Engine pages through the registry and upserts every record into the
// document store. One bad record never aborts the batch; a failed page
// request aborts the remaining pagination but keeps the progress already
// committed.
type Engine struct {
	api  API
	repo document.Repository
	log  *slog.Logger
}

// NewEngine creates a sync engine.
func NewEngine(api API, repo document.Repository, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{api: api, repo: repo, log: log}
}

// Sync runs one full pagination pass. A missing credential fails fast with
// {0, 1} before any request is made. There is no page retry here; the next
// scheduled invocation starts over from page one, which is safe because the
// upsert is idempotent on the natural key.
func (e *Engine) Sync(ctx context.Context) Result {
	if !e.api.Configured() {
		e.log.Error("registry api key not configured")
		return Result{Errors: 1}
	}

	var res Result
	cursor := ""

	for {
		page, err := e.api.FetchPage(ctx, cursor)
		if err != nil {
			e.log.Error("sync aborted", "cursor", cursor, "error", err)
			res.Errors++
			return res
		}

		for _, rec := range page.Documents {
			doc, err := mapRecord(rec)
			if err == nil {
				_, err = e.repo.UpsertByDIPID(ctx, doc)
			}
			if err != nil {
				e.log.Error("failed to sync document", "dip_id", rec.ID, "error", err)
				res.Errors++
				continue
			}
			res.Synced++
		}

		e.log.Info("synced page", "documents", len(page.Documents))

		// An absent cursor ends pagination; so does a cursor the registry
		// echoes back unchanged (how DIP signals the final page).
		if page.Cursor == "" || page.Cursor == cursor {
			break
		}
		cursor = page.Cursor
	}

	e.log.Info("sync completed", "synced", res.Synced, "errors", res.Errors)
	return res
}

// mapRecord converts a registry record to the Document shape.
func mapRecord(rec Record) (document.Document, error) {
	if rec.ID == "" {
		return document.Document{}, fmt.Errorf("record without id")
	}
	if rec.Titel == "" {
		return document.Document{}, fmt.Errorf("record %s without title", rec.ID)
	}

	doc := document.Document{
		DIPID:             rec.ID,
		Title:             rec.Titel,
		DocumentKind:      rec.Dokumentart,
		DocumentType:      rec.Drucksachetyp,
		Abstract:          rec.Abstract,
		LegislativePeriod: rec.Wahlperiode,
	}

	if rec.Datum != "" {
		t, err := time.Parse("2006-01-02", rec.Datum)
		if err != nil {
			return document.Document{}, fmt.Errorf("record %s: bad date %q: %w", rec.ID, rec.Datum, err)
		}
		doc.Date = t
	}
	if rec.Fundstelle != nil {
		doc.PDFURL = rec.Fundstelle.PDFURL
		doc.DocumentNumber = rec.Fundstelle.Dokumentnummer
	}
	if len(rec.Ressort) > 0 {
		doc.Department = rec.Ressort[0].Titel
	}
	for _, u := range rec.Urheber {
		doc.Authors = append(doc.Authors, u.Titel)
	}

	return doc, nil
}
