package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchPage_QueryParameters(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"documents":[],"numFound":0,"cursor":""}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		DocumentType: "Gesetzentwurf",
		Body:         "BT",
	})

	if _, err := client.FetchPage(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for param, want := range map[string]string{
		"f.drucksachetyp": "Gesetzentwurf",
		"f.zuordnung":     "BT",
		"apikey":          "test-key",
	} {
		if got := gotQuery[param]; len(got) != 1 || got[0] != want {
			t.Errorf("query param %s = %v, want %q", param, got, want)
		}
	}
	if _, ok := gotQuery["cursor"]; ok {
		t.Error("first page must not carry a cursor parameter")
	}
}

func TestFetchPage_CursorForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cursor"); got != "abc123" {
			t.Errorf("cursor = %q, want abc123", got)
		}
		w.Write([]byte(`{"documents":[],"cursor":"abc123"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	page, err := client.FetchPage(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Cursor != "abc123" {
		t.Errorf("page cursor = %q", page.Cursor)
	}
}

func TestFetchPage_DecodesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"documents": [{
				"id": "265123",
				"titel": "Entwurf eines Gesetzes",
				"drucksachetyp": "Gesetzentwurf",
				"datum": "2024-03-15",
				"fundstelle": {"pdf_url": "https://example.org/d.pdf", "dokumentnummer": "20/1234"},
				"ressort": [{"titel": "BMJ"}],
				"urheber": [{"titel": "Bundesregierung"}],
				"wahlperiode": 20
			}],
			"numFound": 1,
			"cursor": "next"
		}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"})
	page, err := client.FetchPage(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(page.Documents))
	}
	rec := page.Documents[0]
	if rec.ID != "265123" || rec.Wahlperiode != 20 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Fundstelle == nil || rec.Fundstelle.PDFURL != "https://example.org/d.pdf" {
		t.Errorf("fundstelle = %+v", rec.Fundstelle)
	}
}

func TestFetchPage_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "bad"})
	if _, err := client.FetchPage(context.Background(), ""); err == nil {
		t.Error("expected error for 401 response")
	}
}

func TestConfigured(t *testing.T) {
	if NewClient(ClientConfig{}).Configured() {
		t.Error("client without key reports configured")
	}
	if !NewClient(ClientConfig{APIKey: "k"}).Configured() {
		t.Error("client with key reports not configured")
	}
}
