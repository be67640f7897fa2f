// Package news fetches the parliamentary press feed.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Item is one normalized feed entry.
type Item struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	PubDate     string   `json:"pubDate"`
	Categories  []string `json:"categories,omitempty"`
	GUID        string   `json:"guid,omitempty"`
}

// rssDocument mirrors the RSS 2.0 envelope, only the fields we read.
type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
	GUID        string   `xml:"guid"`
}

// Client fetches and decodes the RSS feed.
type Client struct {
	feedURL string
	http    *http.Client
}

// NewClient creates a feed client for the given URL.
func NewClient(feedURL string) *Client {
	return &Client{
		feedURL: feedURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the feed and returns its items in document order.
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "legisync/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	items := make([]Item, len(doc.Channel.Items))
	for i, it := range doc.Channel.Items {
		items[i] = Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			PubDate:     it.PubDate,
			Categories:  it.Categories,
			GUID:        it.GUID,
		}
	}
	return items, nil
}
