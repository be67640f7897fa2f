package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockTestProvider is a simple mock for factory tests.
type mockTestProvider struct {
	name string
}

func (m *mockTestProvider) Name() string { return m.name }

func (m *mockTestProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	return &Response{Content: "test"}, nil
}

func (m *mockTestProvider) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, nil
}

func TestFactoryCreate_EmptyAndNone(t *testing.T) {
	f := NewFactory()

	for _, name := range []string{"", "none"} {
		p, err := f.Create(ProviderConfig{Provider: name})
		if err != nil {
			t.Fatalf("provider %q: unexpected error: %v", name, err)
		}
		if p != nil {
			t.Errorf("provider %q: expected nil provider", name)
		}
	}
}

func TestFactoryCreate_UnknownProvider(t *testing.T) {
	f := NewFactory()
	f.Register("openai", func(cfg ProviderConfig) (Provider, error) { return nil, nil })

	if _, err := f.Create(ProviderConfig{Provider: "unknown"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestFactoryCreate_RegisteredProvider(t *testing.T) {
	f := NewFactory()
	var gotCfg ProviderConfig
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		gotCfg = cfg
		return &mockTestProvider{name: "test"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "test", APIKey: "key", Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
	if gotCfg.APIKey != "key" || gotCfg.Model != "m" {
		t.Errorf("constructor config = %+v", gotCfg)
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	wantErr := errors.New("constructor failed")
	f.Register("failing", func(cfg ProviderConfig) (Provider, error) {
		return nil, wantErr
	})

	p, err := f.Create(ProviderConfig{Provider: "failing"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected constructor error, got: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil provider on error")
	}
}

func TestFactoryCreate_WithTimeoutWrapsRetry(t *testing.T) {
	f := NewFactory()
	inner := &mockTestProvider{name: "inner"}
	f.Register("test", func(cfg ProviderConfig) (Provider, error) { return inner, nil })

	p, err := f.Create(ProviderConfig{Provider: "test", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retry, ok := p.(*RetryProvider)
	if !ok {
		t.Fatalf("expected RetryProvider wrapper, got %T", p)
	}
	if retry.Name() != "inner" {
		t.Errorf("wrapper name = %s", retry.Name())
	}
}

func TestFactoryCreate_WithMaxRetriesWrapsRetry(t *testing.T) {
	f := NewFactory()
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		return &mockTestProvider{name: "inner"}, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "test", MaxRetries: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retry, ok := p.(*RetryProvider)
	if !ok {
		t.Fatalf("expected RetryProvider wrapper, got %T", p)
	}
	if retry.config.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", retry.config.MaxRetries)
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()

	if cfg.Timeout != 2*time.Minute {
		t.Errorf("expected 2 minute timeout, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected 3 max retries, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 1*time.Second {
		t.Errorf("expected 1 second retry delay, got %v", cfg.RetryDelay)
	}
}

func TestKnownProviders(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "groq", "ollama", "together", "deepseek"} {
		if _, ok := KnownProviders[name]; !ok {
			t.Errorf("expected provider %q in KnownProviders", name)
		}
	}
}
