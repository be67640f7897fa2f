// Package registry talks to the DIP document registry and keeps the local
// document store in sync with it.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://search.dip.bundestag.de/api/v1"

// Record is one document as returned by the registry.
type Record struct {
	ID            string `json:"id"`
	Titel         string `json:"titel"`
	Dokumentart   string `json:"dokumentart"`
	Drucksachetyp string `json:"drucksachetyp"`
	Datum         string `json:"datum"`
	Fundstelle    *struct {
		PDFURL         string `json:"pdf_url"`
		Dokumentnummer string `json:"dokumentnummer"`
	} `json:"fundstelle"`
	Ressort []struct {
		Titel string `json:"titel"`
	} `json:"ressort"`
	Urheber []struct {
		Titel string `json:"titel"`
	} `json:"urheber"`
	Abstract    string `json:"abstract"`
	Wahlperiode int    `json:"wahlperiode"`
}

// Page is one page of the paginated registry listing. An empty Cursor ends
// pagination.
type Page struct {
	Documents []Record `json:"documents"`
	NumFound  int      `json:"numFound"`
	Cursor    string   `json:"cursor"`
}

// ClientConfig configures the registry client.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	DocumentType string // f.drucksachetyp filter
	Body         string // f.zuordnung filter (issuing body)
}

// Client fetches paginated document listings from the registry.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates a registry client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.DocumentType == "" {
		cfg.DocumentType = "Gesetzentwurf"
	}
	if cfg.Body == "" {
		cfg.Body = "BT"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an access credential is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// FetchPage requests one page, passing the previous page's cursor if any.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	params := url.Values{}
	params.Set("f.drucksachetyp", c.cfg.DocumentType)
	params.Set("f.zuordnung", c.cfg.Body)
	params.Set("apikey", c.cfg.APIKey)
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/drucksache?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: %s: %s", resp.Status, body)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("registry: decoding page: %w", err)
	}
	return &page, nil
}
