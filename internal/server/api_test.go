package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civitas-labs/legisync/internal/document"
	"github.com/civitas-labs/legisync/internal/enrich"
	"github.com/civitas-labs/legisync/internal/news"
	"github.com/civitas-labs/legisync/internal/registry"
	"github.com/civitas-labs/legisync/internal/vector"
)

// fakeRepo serves canned documents for the read endpoints.
type fakeRepo struct {
	docs    []document.Document
	lastQ   document.ListQuery
	listErr error
}

func (f *fakeRepo) UpsertByDIPID(_ context.Context, doc document.Document) (document.Document, error) {
	return doc, nil
}

func (f *fakeRepo) FindUnenriched(_ context.Context, _ int) ([]document.Document, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateEnrichment(_ context.Context, _ string, _ document.EnrichmentUpdate) (document.Document, bool, error) {
	return document.Document{}, false, nil
}

func (f *fakeRepo) FindByDIPID(_ context.Context, dipID string) (document.Document, bool, error) {
	for _, d := range f.docs {
		if d.DIPID == dipID {
			return d, true, nil
		}
	}
	return document.Document{}, false, nil
}

func (f *fakeRepo) List(_ context.Context, q document.ListQuery) ([]document.Document, int, error) {
	f.lastQ = q
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.docs, len(f.docs), nil
}

func (f *fakeRepo) Departments(_ context.Context) ([]string, error) {
	return []string{"BMG", "BMJ"}, nil
}

func (f *fakeRepo) Categories(_ context.Context) ([]string, error) {
	return []string{"Gesundheit"}, nil
}

func (f *fakeRepo) Close() error { return nil }

type fakeSync struct {
	result registry.Result
	calls  int
}

func (f *fakeSync) Sync(_ context.Context) registry.Result {
	f.calls++
	return f.result
}

type fakeEnricher struct {
	result  enrich.Result
	err     error
	running bool
}

func (f *fakeEnricher) Run(_ context.Context) (enrich.Result, error) { return f.result, f.err }
func (f *fakeEnricher) Running() bool                                { return f.running }

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeVectorStore struct {
	hits       []vector.Hit
	lastFilter *vector.Filter
	err        error
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context) error { return nil }
func (f *fakeVectorStore) Upsert(_ context.Context, _ vector.Point) error {
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, _ int, filter *vector.Filter) ([]vector.Hit, error) {
	f.lastFilter = filter
	return f.hits, f.err
}

func (f *fakeVectorStore) Delete(_ context.Context, _ string) error { return nil }
func (f *fakeVectorStore) Close() error                             { return nil }

type fakeNews struct {
	items []news.Item
	err   error
}

func (f *fakeNews) Fetch(_ context.Context) ([]news.Item, error) { return f.items, f.err }

func newTestMux(cfg APIConfig) *http.ServeMux {
	mux := http.NewServeMux()
	NewAPI(cfg).Register(mux)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestListDocuments(t *testing.T) {
	repo := &fakeRepo{docs: []document.Document{
		{DIPID: "278441", Title: "Entwurf eines Gesetzes", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
	mux := newTestMux(APIConfig{Repo: repo})

	rec := doRequest(t, mux, http.MethodGet, "/api/documents?ressort=BMG&limit=5&order=asc&from=2025-01-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["total"].(float64) != 1 {
		t.Errorf("total = %v", body["total"])
	}
	if repo.lastQ.Department != "BMG" || repo.lastQ.Limit != 5 || !repo.lastQ.SortAsc {
		t.Errorf("query = %+v", repo.lastQ)
	}
	if repo.lastQ.From == nil || repo.lastQ.From.Year() != 2025 {
		t.Errorf("from = %v", repo.lastQ.From)
	}
}

func TestListDocuments_BadDate(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}})

	rec := doRequest(t, mux, http.MethodGet, "/api/documents?from=gestern")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListDocuments_RepoError(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{listErr: errors.New("db locked")}})

	rec := doRequest(t, mux, http.MethodGet, "/api/documents")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetDocument(t *testing.T) {
	repo := &fakeRepo{docs: []document.Document{{DIPID: "278441", Title: "Gesetzentwurf"}}}
	mux := newTestMux(APIConfig{Repo: repo})

	rec := doRequest(t, mux, http.MethodGet, "/api/documents/278441")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["titel"] != "Gesetzentwurf" {
		t.Errorf("titel = %v", body["titel"])
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/documents/999999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d", rec.Code)
	}
}

func TestDepartmentsAndCategories(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}})

	rec := doRequest(t, mux, http.MethodGet, "/api/documents/departments")
	if rec.Code != http.StatusOK {
		t.Fatalf("departments status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); len(body["departments"].([]any)) != 2 {
		t.Errorf("departments = %v", body["departments"])
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/documents/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("categories status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); len(body["categories"].([]any)) != 1 {
		t.Errorf("categories = %v", body["categories"])
	}
}

func TestSyncTrigger(t *testing.T) {
	sync := &fakeSync{result: registry.Result{Synced: 42, Errors: 1}}
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}, Sync: sync})

	rec := doRequest(t, mux, http.MethodPost, "/api/sync/trigger")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["synced"].(float64) != 42 || body["errors"].(float64) != 1 {
		t.Errorf("body = %v", body)
	}
	if sync.calls != 1 {
		t.Errorf("sync calls = %d", sync.calls)
	}
}

func TestSyncTrigger_NotConfigured(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}})

	rec := doRequest(t, mux, http.MethodPost, "/api/sync/trigger")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestEnrichTrigger(t *testing.T) {
	mux := newTestMux(APIConfig{
		Repo:     &fakeRepo{},
		Enricher: &fakeEnricher{result: enrich.Result{Processed: 3, Errors: 0}},
	})

	rec := doRequest(t, mux, http.MethodPost, "/api/enrich/trigger")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["processed"].(float64) != 3 {
		t.Errorf("body = %v", body)
	}
}

func TestEnrichTrigger_AlreadyRunning(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}, Enricher: &fakeEnricher{running: true}})

	rec := doRequest(t, mux, http.MethodPost, "/api/enrich/trigger")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSimilarSearch(t *testing.T) {
	store := &fakeVectorStore{hits: []vector.Hit{{DIPID: "278441", Title: "Treffer", Score: 0.91}}}
	mux := newTestMux(APIConfig{
		Repo:     &fakeRepo{},
		Embedder: &fakeEmbedder{vec: []float32{0.1, 0.2}},
		Vectors:  store,
	})

	rec := doRequest(t, mux, http.MethodGet, "/api/search/similar?q=Krankenhausreform&category=Gesundheit")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if len(body["results"].([]any)) != 1 {
		t.Errorf("results = %v", body["results"])
	}
	if store.lastFilter == nil || store.lastFilter.Category != "Gesundheit" {
		t.Errorf("filter = %+v", store.lastFilter)
	}
}

func TestSimilarSearch_MissingQuery(t *testing.T) {
	mux := newTestMux(APIConfig{
		Repo:     &fakeRepo{},
		Embedder: &fakeEmbedder{},
		Vectors:  &fakeVectorStore{},
	})

	rec := doRequest(t, mux, http.MethodGet, "/api/search/similar")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSimilarSearch_NotConfigured(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}})

	rec := doRequest(t, mux, http.MethodGet, "/api/search/similar?q=test")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSimilarSearch_EmbedFailure(t *testing.T) {
	mux := newTestMux(APIConfig{
		Repo:     &fakeRepo{},
		Embedder: &fakeEmbedder{err: errors.New("provider down")},
		Vectors:  &fakeVectorStore{},
	})

	rec := doRequest(t, mux, http.MethodGet, "/api/search/similar?q=test")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNews(t *testing.T) {
	mux := newTestMux(APIConfig{
		Repo: &fakeRepo{},
		News: &fakeNews{items: []news.Item{{Title: "hib-Meldung"}}},
	})

	rec := doRequest(t, mux, http.MethodGet, "/api/news")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); len(body["items"].([]any)) != 1 {
		t.Errorf("items = %v", body["items"])
	}
}

func TestNews_FeedFailure(t *testing.T) {
	mux := newTestMux(APIConfig{Repo: &fakeRepo{}, News: &fakeNews{err: errors.New("timeout")}})

	rec := doRequest(t, mux, http.MethodGet, "/api/news")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}
