package search

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 15 * time.Second

// Config selects and configures a search backend.
type Config struct {
	Provider string // tavily, brave or duckduckgo
	APIKey   string
	Depth    string // tavily only
	Timeout  time.Duration
}

// New builds the configured client.
func New(cfg Config) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "tavily":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("tavily: TAVILY_API_KEY is not set")
		}
		return NewTavily(cfg.APIKey, cfg.Depth, client), nil
	case "brave":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("brave: BRAVE_API_KEY is not set")
		}
		return NewBrave(cfg.APIKey, client), nil
	case "duckduckgo", "ddg", "":
		return NewDuckDuckGo(client), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %q", cfg.Provider)
	}
}
