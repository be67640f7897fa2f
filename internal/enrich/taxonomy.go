// Package enrich runs the per-document AI enrichment pipeline: text
// extraction with fallback, summarization, categorization, embedding,
// vector upsert and the final write-back.
package enrich

// Categories is the fixed policy-domain taxonomy. The labels are stored on
// documents and on vector-point payloads, so they must stay stable.
var Categories = []string{
	"Wirtschaft und Finanzen",
	"Umwelt und Klimaschutz",
	"Soziales und Arbeit",
	"Gesundheit",
	"Bildung und Forschung",
	"Verkehr und Infrastruktur",
	"Innere Sicherheit",
	"Außenpolitik und Verteidigung",
	"Justiz und Recht",
	"Digitalisierung und Technologie",
	"Familie und Jugend",
	"Kultur und Medien",
	"Landwirtschaft und Ernährung",
	"Wohnen und Bauen",
	"Sonstiges",
}

// CategoryOther is the catch-all label.
const CategoryOther = "Sonstiges"

// IsCategory reports whether label is part of the taxonomy.
func IsCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}
