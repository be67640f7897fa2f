package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/civitas-labs/legisync/internal/document"
	"github.com/civitas-labs/legisync/internal/enrich"
	"github.com/civitas-labs/legisync/internal/news"
	"github.com/civitas-labs/legisync/internal/registry"
	"github.com/civitas-labs/legisync/internal/vector"
)

// SyncRunner triggers one registry sync pass.
type SyncRunner interface {
	Sync(ctx context.Context) registry.Result
}

// Enricher triggers one enrichment batch.
type Enricher interface {
	Run(ctx context.Context) (enrich.Result, error)
	Running() bool
}

// Embedder turns a search query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewsFetcher returns the current press feed items.
type NewsFetcher interface {
	Fetch(ctx context.Context) ([]news.Item, error)
}

// API serves the JSON endpoints. Any dependency may be nil; its endpoints
// then answer 503.
type API struct {
	repo     document.Repository
	sync     SyncRunner
	enricher Enricher
	embedder Embedder
	vectors  vector.Store
	news     NewsFetcher
	logger   *slog.Logger
}

// APIConfig wires the API's dependencies.
type APIConfig struct {
	Repo     document.Repository
	Sync     SyncRunner
	Enricher Enricher
	Embedder Embedder
	Vectors  vector.Store
	News     NewsFetcher
	Logger   *slog.Logger
}

// NewAPI creates the API handler set.
func NewAPI(cfg APIConfig) *API {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		repo:     cfg.Repo,
		sync:     cfg.Sync,
		enricher: cfg.Enricher,
		embedder: cfg.Embedder,
		vectors:  cfg.Vectors,
		news:     cfg.News,
		logger:   logger,
	}
}

// Register mounts all API routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/documents", a.logged(a.handleListDocuments))
	mux.HandleFunc("GET /api/documents/departments", a.logged(a.handleDepartments))
	mux.HandleFunc("GET /api/documents/categories", a.logged(a.handleCategories))
	mux.HandleFunc("GET /api/documents/{dipID}", a.logged(a.handleGetDocument))
	mux.HandleFunc("GET /api/search/similar", a.logged(a.handleSimilarSearch))
	mux.HandleFunc("GET /api/news", a.logged(a.handleNews))
	mux.HandleFunc("POST /api/sync/trigger", a.logged(a.handleSyncTrigger))
	mux.HandleFunc("POST /api/enrich/trigger", a.logged(a.handleEnrichTrigger))
}

// logged wraps a handler with request logging.
func (a *API) logged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		a.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (a *API) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := document.ListQuery{
		Department: r.URL.Query().Get("ressort"),
		Category:   r.URL.Query().Get("category"),
		Search:     r.URL.Query().Get("search"),
		Limit:      queryInt(r, "limit", 20),
		Offset:     queryInt(r, "offset", 0),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortAsc:    r.URL.Query().Get("order") == "asc",
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad from date: "+from)
			return
		}
		q.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad to date: "+to)
			return
		}
		q.To = &t
	}

	docs, total, err := a.repo.List(r.Context(), q)
	if err != nil {
		a.logger.Error("listing documents", "error", err)
		writeError(w, http.StatusInternalServerError, "listing documents failed")
		return
	}
	if docs == nil {
		docs = []document.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
		"limit":     q.Limit,
		"offset":    q.Offset,
	})
}

func (a *API) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	dipID := r.PathValue("dipID")
	doc, found, err := a.repo.FindByDIPID(r.Context(), dipID)
	if err != nil {
		a.logger.Error("fetching document", "dip_id", dipID, "error", err)
		writeError(w, http.StatusInternalServerError, "fetching document failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "document not found: "+dipID)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := a.repo.Departments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing departments failed")
		return
	}
	if departments == nil {
		departments = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.repo.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing categories failed")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleSimilarSearch(w http.ResponseWriter, r *http.Request) {
	if a.embedder == nil || a.vectors == nil {
		writeError(w, http.StatusServiceUnavailable, "similarity search is not configured")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := queryInt(r, "limit", 10)

	vec, err := a.embedder.Embed(r.Context(), query)
	if err != nil {
		a.logger.Error("embedding search query", "error", err)
		writeError(w, http.StatusBadGateway, "embedding the query failed")
		return
	}

	var filter *vector.Filter
	category := r.URL.Query().Get("category")
	department := r.URL.Query().Get("ressort")
	if category != "" || department != "" {
		filter = &vector.Filter{Category: category, Department: department}
	}

	hits, err := a.vectors.Search(r.Context(), vec, limit, filter)
	if err != nil {
		a.logger.Error("vector search", "error", err)
		writeError(w, http.StatusBadGateway, "vector search failed")
		return
	}
	if hits == nil {
		hits = []vector.Hit{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

func (a *API) handleNews(w http.ResponseWriter, r *http.Request) {
	if a.news == nil {
		writeError(w, http.StatusServiceUnavailable, "news feed is not configured")
		return
	}
	items, err := a.news.Fetch(r.Context())
	if err != nil {
		a.logger.Error("fetching news feed", "error", err)
		writeError(w, http.StatusBadGateway, "fetching the news feed failed")
		return
	}
	if items == nil {
		items = []news.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if a.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	res := a.sync.Sync(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "sync completed",
		"synced":  res.Synced,
		"errors":  res.Errors,
	})
}

func (a *API) handleEnrichTrigger(w http.ResponseWriter, r *http.Request) {
	if a.enricher == nil {
		writeError(w, http.StatusServiceUnavailable, "enrichment is not configured")
		return
	}
	if a.enricher.Running() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"message": "enrichment already running",
		})
		return
	}
	res, err := a.enricher.Run(r.Context())
	if err != nil {
		a.logger.Error("enrichment run", "error", err)
		writeError(w, http.StatusInternalServerError, "enrichment run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "enrichment completed",
		"processed": res.Processed,
		"errors":    res.Errors,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
