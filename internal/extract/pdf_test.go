package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace runs", "a  b\t\tc\n\nd", "a b c d"},
		{"strips control characters", "a\x00b\x1fc\x7fd", "abcd"},
		{"trims", "  hello  ", "hello"},
		{"keeps umlauts", "Änderung  des  Grundgesetzes", "Änderung des Grundgesetzes"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract_DownloadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := NewExtractor()
	if _, err := e.Extract(context.Background(), srv.URL+"/missing.pdf"); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestExtract_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("not a pdf"))
	}))
	defer srv.Close()

	e := NewExtractor()
	// Parse fails on non-PDF bytes; only the request headers matter here.
	_, err := e.Extract(context.Background(), srv.URL+"/doc.pdf")
	if err == nil {
		t.Error("expected parse error for non-PDF body")
	}
	if !strings.HasPrefix(gotUA, "legisync/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
}
