package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>hib - heute im bundestag</title>
    <item>
      <title>Anhörung zum Gesundheitsgesetz</title>
      <link>https://www.bundestag.de/presse/hib/1</link>
      <description>Der Ausschuss berät über den Entwurf.</description>
      <pubDate>Mon, 31 Aug 2026 10:00:00 +0200</pubDate>
      <category>Gesundheit</category>
      <category>Anhörungen</category>
      <guid>hib-1</guid>
    </item>
    <item>
      <title>Haushaltsdebatte beginnt</title>
      <link>https://www.bundestag.de/presse/hib/2</link>
      <description>Erste Lesung des Etats.</description>
      <pubDate>Mon, 31 Aug 2026 12:00:00 +0200</pubDate>
    </item>
  </channel>
</rss>`

func TestFetch_DecodesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Anhörung zum Gesundheitsgesetz" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Link != "https://www.bundestag.de/presse/hib/1" {
		t.Errorf("link = %q", first.Link)
	}
	if len(first.Categories) != 2 || first.Categories[0] != "Gesundheit" {
		t.Errorf("categories = %v", first.Categories)
	}
	if first.GUID != "hib-1" {
		t.Errorf("guid = %q", first.GUID)
	}

	second := items[1]
	if second.Title != "Haushaltsdebatte beginnt" {
		t.Errorf("title = %q", second.Title)
	}
	if len(second.Categories) != 0 {
		t.Errorf("categories = %v, want none", second.Categories)
	}
}

func TestFetch_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotUA, "legisync/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestFetch_MalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<rss><channel><item>"))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("expected decode error for truncated XML")
	}
}
