package llm

// RequestOptions tunes a single completion call. Nil fields use provider
// defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string

	// JSONMode asks the provider for a structured JSON object response
	// (OpenAI response_format). Providers without such a switch ignore it;
	// callers must still validate the returned content.
	JSONMode bool
}

// Float64 returns a pointer to v, for inline option literals.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for inline option literals.
func Int(v int) *int { return &v }
