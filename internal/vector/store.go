// Package vector stores document embeddings and serves similarity search.
package vector

import "context"

// Payload is the denormalized document snapshot carried on every point.
type Payload struct {
	DIPID      string `json:"dipId"`
	Title      string `json:"titel"`
	Category   string `json:"category"`
	Date       string `json:"datum"`
	Department string `json:"ressort"`
	Summary    string `json:"summary"`
}

// Point is one vector-store record. ID is derived from the document's
// natural key via PointID, so re-upserting a document always overwrites the
// same point.
type Point struct {
	ID      uint32
	Vector  []float32
	Payload Payload
}

// Filter restricts a search to exact matches on indexed payload fields.
// Empty fields are not applied; set fields are conjoined.
type Filter struct {
	Category   string
	Department string
}

// Hit is a single similarity-search match.
type Hit struct {
	DIPID   string  `json:"dipId"`
	Title   string  `json:"titel"`
	Score   float32 `json:"score"`
	Payload Payload `json:"payload"`
}

// Store is the vector-store contract. All operations return transport errors
// when the store is unreachable; callers isolate those per document.
type Store interface {
	// EnsureCollection creates the collection and its payload indexes if
	// absent. Idempotent; safe to call on every startup.
	EnsureCollection(ctx context.Context) error
	// Upsert writes the point, overwriting any point with the same id, and
	// waits for index acknowledgment.
	Upsert(ctx context.Context, p Point) error
	// Search returns the top-limit nearest neighbors by cosine similarity.
	Search(ctx context.Context, vec []float32, limit int, filter *Filter) ([]Hit, error)
	// Delete removes the point derived from the given natural key.
	Delete(ctx context.Context, naturalKey string) error
	// Close releases the connection.
	Close() error
}
