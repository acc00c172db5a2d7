// Package config provides application settings loaded from environment
// variables and the agent configuration file.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Agent   AgentConfig
	Search  SearchConfig
	Storage StorageConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxIterations int
	MaxMessages   int
}

// SearchConfig selects the web search backend.
type SearchConfig struct {
	Provider string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration // zero disables the response cache
}

// StorageConfig locates the checkpoint database. An empty path keeps
// history in memory.
type StorageConfig struct {
	Path string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":     {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic":  {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":   {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":     {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
	"compatible": {"LLM_MODEL", "", "LLM_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude":            "anthropic",
	"google":            "gemini",
	"gpt":               "openai",
	"openai-compatible": "compatible",
	"coze":              "compatible",
	"ark":               "compatible",
}

// Search backends and the variable holding their key.
var searchKeys = map[string]string{
	"tavily":     "TAVILY_API_KEY",
	"brave":      "BRAVE_API_KEY",
	"duckduckgo": "",
}

// Defaults.
const (
	DefaultMaxMessages    = 40
	DefaultSearchProvider = "duckduckgo"
	DefaultSearchTimeout  = 15 * time.Second
	DefaultSearchCacheTTL = 10 * time.Minute
)

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxIterations, err := getEnvPositiveInt("AGENT_MAX_ITERATIONS", 10)
	if err != nil {
		return Settings{}, err
	}

	maxMessages, err := getEnvPositiveInt("AGENT_MAX_MESSAGES", DefaultMaxMessages)
	if err != nil {
		return Settings{}, err
	}

	search, err := SearchFromEnv()
	if err != nil {
		return Settings{}, err
	}

	// Get model from environment or use default
	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			BaseURL:     os.Getenv("LLM_BASE_URL"),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			MaxIterations: maxIterations,
			MaxMessages:   maxMessages,
		},
		Search:  search,
		Storage: StorageConfig{Path: os.Getenv("BASETAG_DB")},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// SearchFromEnv reads the search backend settings.
func SearchFromEnv() (SearchConfig, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("SEARCH_PROVIDER")))
	if name == "" {
		name = DefaultSearchProvider
	}

	keyEnv, ok := searchKeys[name]
	if !ok {
		return SearchConfig{}, fmt.Errorf("unknown search provider: %q", name)
	}

	var key string
	if keyEnv != "" {
		key = os.Getenv(keyEnv)
		if key == "" {
			return SearchConfig{}, fmt.Errorf("%s environment variable not set", keyEnv)
		}
	}

	timeout, err := getEnvDuration("SEARCH_TIMEOUT", DefaultSearchTimeout)
	if err != nil {
		return SearchConfig{}, err
	}

	cacheTTL := DefaultSearchCacheTTL
	if val := os.Getenv("SEARCH_CACHE_TTL"); val == "0" {
		cacheTTL = 0
	} else if cacheTTL, err = getEnvDuration("SEARCH_CACHE_TTL", DefaultSearchCacheTTL); err != nil {
		return SearchConfig{}, err
	}

	return SearchConfig{Provider: name, APIKey: key, Timeout: timeout, CacheTTL: cacheTTL}, nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider. The provider's own variable
// wins; LLM_API_KEY is the fallback for every provider.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if key := os.Getenv(info.apiKeyEnv); key != "" {
		return key, nil
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the supported provider names in sorted order.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvPositiveInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %q: must be positive", key, val)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

// getEnvDuration accepts a Go duration ("20s") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid value for %s: %q: must be positive", key, val)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %q: must be positive", key, val)
	}
	return d, nil
}
