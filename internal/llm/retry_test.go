package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockRetryProvider fails with scripted errors before succeeding.
type mockRetryProvider struct {
	name           string
	errors         []error
	responses      []*Response
	embedErrors    []error
	embedResponses [][][]float32
	calls          int
	embedCalls     int
}

func (m *mockRetryProvider) Name() string { return m.name }

func (m *mockRetryProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	i := m.calls
	m.calls++
	if i < len(m.errors) {
		return nil, m.errors[i]
	}
	j := i - len(m.errors)
	if j < len(m.responses) {
		return m.responses[j], nil
	}
	return &Response{}, nil
}

func (m *mockRetryProvider) Embed(_ context.Context, _ []string) ([][]float32, error) {
	i := m.embedCalls
	m.embedCalls++
	if i < len(m.embedErrors) {
		return nil, m.embedErrors[i]
	}
	j := i - len(m.embedErrors)
	if j < len(m.embedResponses) {
		return m.embedResponses[j], nil
	}
	return [][]float32{}, nil
}

func testRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		RetryDelay: 10 * time.Millisecond,
		MaxDelay:   time.Second,
		Timeout:    5 * time.Second,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != 3 {
		t.Errorf("expected 3 max retries, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 1*time.Second {
		t.Errorf("expected 1 second retry delay, got %v", cfg.RetryDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("expected 30 second max delay, got %v", cfg.MaxDelay)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("expected 2 minute timeout, got %v", cfg.Timeout)
	}
}

func TestNewRetryProvider_NilConfig(t *testing.T) {
	retry := NewRetryProvider(&mockRetryProvider{name: "test"}, nil)

	if retry.config == nil {
		t.Fatal("expected config to be set")
	}
	if retry.config.MaxRetries != 3 {
		t.Errorf("expected default 3 retries, got %d", retry.config.MaxRetries)
	}
	if retry.Name() != "test" {
		t.Errorf("expected inner name, got %s", retry.Name())
	}
}

func TestRetryProvider_SucceedsFirstTry(t *testing.T) {
	inner := &mockRetryProvider{
		name:      "test",
		responses: []*Response{{Content: "success"}},
	}
	retry := NewRetryProvider(inner, testRetryConfig(3))

	resp, err := retry.Complete(context.Background(), &Prompt{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "success" {
		t.Errorf("expected 'success', got %q", resp.Content)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls)
	}
}

func TestRetryProvider_RetriesOnRetryableError(t *testing.T) {
	inner := &mockRetryProvider{
		name: "test",
		errors: []error{
			errors.New("500 Internal Server Error"),
			errors.New("503 Service Unavailable"),
		},
		responses: []*Response{{Content: "success after retries"}},
	}
	retry := NewRetryProvider(inner, testRetryConfig(3))

	if _, err := retry.Complete(context.Background(), &Prompt{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", inner.calls)
	}
}

func TestRetryProvider_FailsNonRetryableError(t *testing.T) {
	inner := &mockRetryProvider{
		name:   "test",
		errors: []error{errors.New("401 Unauthorized")},
	}
	retry := NewRetryProvider(inner, testRetryConfig(3))

	_, err := retry.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "non-retryable") {
		t.Errorf("expected 'non-retryable' in error, got: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call (no retries), got %d", inner.calls)
	}
}

func TestRetryProvider_RespectsMaxRetries(t *testing.T) {
	inner := &mockRetryProvider{
		name: "test",
		errors: []error{
			errors.New("500"), errors.New("500"), errors.New("500"),
			errors.New("500"), errors.New("500"),
		},
	}
	retry := NewRetryProvider(inner, testRetryConfig(2))

	_, err := retry.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "max retries") {
		t.Errorf("expected 'max retries' in error, got: %v", err)
	}
	// Initial attempt + 2 retries.
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryProvider_RespectsContextCancellation(t *testing.T) {
	inner := &mockRetryProvider{
		name:   "test",
		errors: []error{errors.New("500")},
	}
	retry := NewRetryProvider(inner, testRetryConfig(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retry.Complete(ctx, &Prompt{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestRetryProvider_EmbedFollowsRetryLogic(t *testing.T) {
	inner := &mockRetryProvider{
		name:           "test",
		embedErrors:    []error{errors.New("503 Service Unavailable")},
		embedResponses: [][][]float32{{{0.1, 0.2, 0.3}}},
	}
	retry := NewRetryProvider(inner, testRetryConfig(3))

	embeddings, err := retry.Embed(context.Background(), []string{"test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(embeddings))
	}
	if inner.embedCalls != 2 {
		t.Errorf("expected 2 calls (1 failure + 1 success), got %d", inner.embedCalls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"daily token limit", errors.New("429 tokens per day limit reached"), false},
		{"TPD limit", errors.New("429: TPD exceeded"), false},
		{"server error", errors.New("500 Internal Server Error"), true},
		{"bad gateway", errors.New("502 Bad Gateway"), true},
		{"unauthorized", errors.New("401 Unauthorized"), false},
		{"not found", errors.New("404 Not Found"), false},
		{"unknown", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_CapsAtMaxDelay(t *testing.T) {
	retry := NewRetryProvider(&mockRetryProvider{}, &RetryConfig{
		MaxRetries: 10,
		RetryDelay: time.Second,
		MaxDelay:   4 * time.Second,
		Timeout:    time.Minute,
	})

	if got := retry.calculateBackoff(1); got != time.Second {
		t.Errorf("attempt 1: %v, want 1s", got)
	}
	if got := retry.calculateBackoff(2); got != 2*time.Second {
		t.Errorf("attempt 2: %v, want 2s", got)
	}
	if got := retry.calculateBackoff(8); got != 4*time.Second {
		t.Errorf("attempt 8: %v, want capped 4s", got)
	}
}

func TestWrapWithRetry_NilProvider(t *testing.T) {
	if WrapWithRetry(nil, ProviderConfig{}) != nil {
		t.Error("wrapping nil must return nil")
	}
}
