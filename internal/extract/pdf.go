// Package extract downloads source PDFs and turns them into normalized
// plain text for the enrichment pipeline.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	downloadTimeout = 60 * time.Second
	userAgent       = "legisync/1.0"
)

// Extractor downloads and extracts text from PDF documents. It never retries;
// the orchestrator's pacing between documents is the only backoff.
type Extractor struct {
	http *http.Client
}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		http: &http.Client{Timeout: downloadTimeout},
	}
}

// Extract downloads the PDF at url and returns its normalized plain text,
// pages concatenated in order. Any download or parse failure is returned to
// the caller, which decides the fallback.
func (e *Extractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	text, err := extractText(data)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}
	return text, nil
}

func extractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		parts = append(parts, pageText)
	}

	return CleanText(strings.Join(parts, "\n")), nil
}

// CleanText collapses whitespace runs to single spaces, strips control
// characters and trims the result.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case r < 0x20 || r == 0x7F:
			// control character, drop
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}
