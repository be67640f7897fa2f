package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/civitas-labs/legisync/internal/llm"
)

// Character budgets per stage, matching the provider context limits the
// pipeline was tuned for.
const (
	summarizeTextLimit  = 15000
	categorizeTextLimit = 8000
	embedTextLimit      = 10000
	embedInputCap       = 30000
)

// Summary is the structured summarization result.
type Summary struct {
	Summary       string   `json:"summary"`
	KeyPoints     []string `json:"keyPoints"`
	AffectedAreas []string `json:"affectedAreas"`
}

// Categorization is the structured categorization result.
type Categorization struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Analyzer is the AI capability surface the orchestrator depends on.
type Analyzer interface {
	// Summarize produces a concise summary of the document. A malformed
	// model response degrades to a zero-value Summary; a transport failure
	// is returned as an error.
	Summarize(ctx context.Context, title, text string) (Summary, error)
	// Categorize picks exactly one taxonomy label. Same failure policy as
	// Summarize; labels outside the taxonomy are mapped to CategoryOther.
	Categorize(ctx context.Context, title, abstract, text string) (Categorization, error)
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMAnalyzer implements Analyzer over an llm.Provider.
type LLMAnalyzer struct {
	provider llm.Provider
}

// NewAnalyzer creates an analyzer backed by the given provider.
func NewAnalyzer(provider llm.Provider) *LLMAnalyzer {
	return &LLMAnalyzer{provider: provider}
}

func (a *LLMAnalyzer) Summarize(ctx context.Context, title, text string) (Summary, error) {
	prompt := fmt.Sprintf(`Du bist ein Experte für deutsche Gesetzgebung. Erstelle eine Zusammenfassung des folgenden Gesetzentwurfs.

Titel: %s

Volltext (Auszug):
%s

Erstelle eine Zusammenfassung mit maximal 3 Sätzen, die wichtigsten Punkte und betroffene Bereiche.

Antworte im JSON-Format:
{
  "summary": "Prägnante Zusammenfassung in 2-3 Sätzen",
  "keyPoints": ["Punkt 1", "Punkt 2", ...],
  "affectedAreas": ["Bereich 1", "Bereich 2", ...]
}`, title, truncate(text, summarizeTextLimit))

	resp, err := a.provider.Complete(ctx, &llm.Prompt{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	}, &llm.RequestOptions{Temperature: llm.Float64(0.5), JSONMode: true})
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	// A model that did not produce valid JSON yields an empty summary
	// rather than failing the document.
	var out Summary
	raw := llm.ExtractJSONObject(resp.Content)
	if raw == "" {
		return Summary{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Summary{}, nil
	}
	return out, nil
}

func (a *LLMAnalyzer) Categorize(ctx context.Context, title, abstract, text string) (Categorization, error) {
	if abstract == "" {
		abstract = "Nicht verfügbar"
	}
	var labels strings.Builder
	for i, c := range Categories {
		fmt.Fprintf(&labels, "%d. %s\n", i+1, c)
	}

	prompt := fmt.Sprintf(`Du bist ein Experte für deutsche Gesetzgebung. Kategorisiere das folgende Gesetzesdokument.

Titel: %s

Abstract: %s

Textauszug: %s

Verfügbare Kategorien:
%s
Antworte im JSON-Format:
{
  "category": "Name der passendsten Kategorie",
  "confidence": 0.0-1.0,
  "reasoning": "Kurze Begründung"
}`, title, abstract, truncate(text, categorizeTextLimit), labels.String())

	resp, err := a.provider.Complete(ctx, &llm.Prompt{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	}, &llm.RequestOptions{Temperature: llm.Float64(0.3), JSONMode: true})
	if err != nil {
		return Categorization{}, fmt.Errorf("categorize: %w", err)
	}

	var out Categorization
	raw := llm.ExtractJSONObject(resp.Content)
	if raw == "" {
		return Categorization{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Categorization{}, nil
	}
	if out.Category != "" && !IsCategory(out.Category) {
		out.Category = CategoryOther
	}
	return out, nil
}

func (a *LLMAnalyzer) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.provider.Embed(ctx, []string{truncate(text, embedInputCap)})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embed: provider returned no vector")
	}
	return vectors[0], nil
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
