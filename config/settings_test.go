package config

import (
	"testing"
	"time"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.Agent.MaxMessages != DefaultMaxMessages {
		t.Errorf("expected default window %d, got %d", DefaultMaxMessages, settings.Agent.MaxMessages)
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}

	settings, err = New("coze")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "compatible" {
		t.Errorf("expected provider 'compatible', got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForFallsBackToGenericKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_KEY", "generic")

	key, err := APIKeyFor("deepseek")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "generic" {
		t.Errorf("expected 'generic', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelFor(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "")
	model, err := ModelFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %q", model)
	}

	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	model, _ = ModelFor("openai")
	if model != "gpt-4o-mini" {
		t.Errorf("expected env override, got %q", model)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LLM_MAX_TOKENS", "not-a-number"},
		{"LLM_TEMPERATURE", "warm"},
		{"AGENT_MAX_ITERATIONS", "0"},
		{"AGENT_MAX_MESSAGES", "-5"},
		{"SEARCH_TIMEOUT", "soon"},
		{"SEARCH_PROVIDER", "bing"},
		{"SEARCH_CACHE_TTL", "-1m"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := New("openai"); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestSearchSettings(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "tavily")
	t.Setenv("TAVILY_API_KEY", "")
	if _, err := New("openai"); err == nil {
		t.Fatal("expected error when tavily key is missing")
	}

	t.Setenv("TAVILY_API_KEY", "tv-key")
	t.Setenv("SEARCH_TIMEOUT", "20")
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Search.Provider != "tavily" || settings.Search.APIKey != "tv-key" {
		t.Errorf("unexpected search settings %+v", settings.Search)
	}
	if settings.Search.Timeout != 20*time.Second {
		t.Errorf("expected 20s timeout, got %v", settings.Search.Timeout)
	}

	t.Setenv("SEARCH_TIMEOUT", "1500ms")
	settings, _ = New("openai")
	if settings.Search.Timeout != 1500*time.Millisecond {
		t.Errorf("expected 1.5s timeout, got %v", settings.Search.Timeout)
	}
}

func TestSearchDefaults(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "")
	t.Setenv("SEARCH_TIMEOUT", "")

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Search.Provider != DefaultSearchProvider || settings.Search.Timeout != DefaultSearchTimeout {
		t.Errorf("unexpected defaults %+v", settings.Search)
	}
}

func TestStoragePath(t *testing.T) {
	t.Setenv("BASETAG_DB", "/tmp/basetag.db")
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Storage.Path != "/tmp/basetag.db" {
		t.Errorf("expected db path, got %q", settings.Storage.Path)
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) != 5 {
		t.Fatalf("expected 5 providers, got %v", providers)
	}
	if providers[0] != "anthropic" {
		t.Errorf("expected sorted list, got %v", providers)
	}
}

func TestSearchCacheTTL(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "")
	t.Setenv("SEARCH_CACHE_TTL", "")
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Search.CacheTTL != DefaultSearchCacheTTL {
		t.Errorf("expected default cache ttl, got %v", settings.Search.CacheTTL)
	}

	t.Setenv("SEARCH_CACHE_TTL", "0")
	settings, _ = New("openai")
	if settings.Search.CacheTTL != 0 {
		t.Errorf("expected cache disabled, got %v", settings.Search.CacheTTL)
	}

	t.Setenv("SEARCH_CACHE_TTL", "90s")
	settings, _ = New("openai")
	if settings.Search.CacheTTL != 90*time.Second {
		t.Errorf("expected 90s, got %v", settings.Search.CacheTTL)
	}
}
