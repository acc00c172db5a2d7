package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed agent_llm_config.json
var defaultAgentFile []byte

// Agent file defaults.
const (
	DefaultTemperature    = 0.7
	DefaultTimeoutSeconds = 600
	DefaultThinking       = "disabled"
)

// AgentFile is the agent configuration document: the system prompt and
// model parameters. It is read once at startup.
type AgentFile struct {
	SystemPrompt string      `json:"sp" yaml:"sp"`
	Config       ModelConfig `json:"config" yaml:"config"`
}

// ModelConfig carries the model parameters of an agent file.
type ModelConfig struct {
	Provider    string            `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string            `json:"model" yaml:"model"`
	BaseURL     string            `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Temperature *float64          `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Timeout     float64           `json:"timeout,omitempty" yaml:"timeout,omitempty"` // seconds
	Thinking    string            `json:"thinking,omitempty" yaml:"thinking,omitempty"`
	MaxTokens   uint32            `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// TimeoutDuration returns the model request timeout.
func (c ModelConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}

// TemperatureValue returns the sampling temperature.
func (c ModelConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// LoadAgentFile reads an agent file. YAML is used for .yaml and .yml
// files, JSON otherwise. An empty path loads the built-in file.
func LoadAgentFile(path string) (AgentFile, error) {
	if path == "" {
		af, err := ParseAgentFile(defaultAgentFile, "json")
		if err != nil {
			return AgentFile{}, fmt.Errorf("built-in agent file: %w", err)
		}
		return af, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return AgentFile{}, fmt.Errorf("read agent file: %w", err)
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}

	af, err := ParseAgentFile(data, format)
	if err != nil {
		return AgentFile{}, fmt.Errorf("agent file %s: %w", path, err)
	}
	return af, nil
}

// ParseAgentFile decodes, defaults and validates an agent file. format is
// "json" or "yaml".
func ParseAgentFile(data []byte, format string) (AgentFile, error) {
	var af AgentFile

	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &af); err != nil {
			return AgentFile{}, fmt.Errorf("parse yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &af); err != nil {
			return AgentFile{}, fmt.Errorf("parse json: %w", err)
		}
	default:
		return AgentFile{}, fmt.Errorf("unsupported agent file format: %q", format)
	}

	af.applyDefaults()
	if err := af.Validate(); err != nil {
		return AgentFile{}, err
	}
	return af, nil
}

func (af *AgentFile) applyDefaults() {
	c := &af.Config
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeoutSeconds
	}
	if c.Thinking == "" {
		c.Thinking = DefaultThinking
	}
	c.Provider = normalizeProvider(c.Provider)
}

// Validate reports the first problem with the file.
func (af AgentFile) Validate() error {
	if strings.TrimSpace(af.SystemPrompt) == "" {
		return fmt.Errorf("sp: system prompt is required")
	}
	if strings.TrimSpace(af.Config.Model) == "" {
		return fmt.Errorf("config.model is required")
	}
	switch af.Config.Thinking {
	case "enabled", "disabled", "auto":
	default:
		return fmt.Errorf("config.thinking: must be enabled, disabled or auto, got %q", af.Config.Thinking)
	}
	if af.Config.Timeout < 0 {
		return fmt.Errorf("config.timeout: must be positive")
	}
	if t := af.Config.TemperatureValue(); t < 0 || t > 2 {
		return fmt.Errorf("config.temperature: must be within [0, 2], got %v", t)
	}
	if af.Config.Provider != "" {
		if _, err := getProviderInfo(af.Config.Provider); err != nil {
			return fmt.Errorf("config.provider: %w", err)
		}
	}
	return nil
}
