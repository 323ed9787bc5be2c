package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/unsure/pkg/agent"
)

// DefaultTimeout bounds a single question when nothing else is configured
const DefaultTimeout = 2 * time.Minute

// Config represents the unsure configuration
type Config struct {
	// Model selected for new questions
	Model string `json:"model" mapstructure:"model"`

	// Credentials, one per provider. The key used for a question is chosen
	// by the provider serving Model.
	APIKey          string `json:"api_key" mapstructure:"api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`

	// Optional endpoint overrides (gateways, proxies)
	OpenAIBaseURL    string `json:"openai_base_url,omitempty" mapstructure:"openai_base_url"`
	AnthropicBaseURL string `json:"anthropic_base_url,omitempty" mapstructure:"anthropic_base_url"`

	// Timeout bounds how long a question waits for the provider
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// ShowTrace prints the model's reasoning trace above each answer
	ShowTrace bool `json:"show_trace" mapstructure:"show_trace"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"` // empty disables the endpoint
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"` // OTLP/HTTP collector URL
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Model:     agent.DefaultModelID,
		Timeout:   DefaultTimeout,
		ShowTrace: true,
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   10,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled: true,
		},
	}
}

// String returns a JSON representation of the config with credentials masked
func (c *Config) String() string {
	masked := *c
	masked.APIKey = mask(c.APIKey)
	masked.AnthropicAPIKey = mask(c.AnthropicAPIKey)
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	return "********"
}

// Validate checks if the configuration is valid. A missing credential is
// not an error here: the session reports it when a question is asked.
func (c *Config) Validate() error {
	if !agent.IsSupportedModel(c.Model) {
		return fmt.Errorf("unsupported model %q (run `unsure models` for the list)", c.Model)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// CredentialFor returns the configured key for the provider serving model
func (c *Config) CredentialFor(model string) string {
	info, ok := agent.LookupModel(model)
	if !ok {
		return ""
	}
	if info.Provider == agent.ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.APIKey
}

// SetCredential stores key for the provider serving model
func (c *Config) SetCredential(model, key string) {
	if info, ok := agent.LookupModel(model); ok && info.Provider == agent.ProviderAnthropic {
		c.AnthropicAPIKey = key
		return
	}
	c.APIKey = key
}

// SessionConfig derives the session config for the configured model.
// Unsupported models are passed through so the session reports them.
func (c *Config) SessionConfig() agent.SessionConfig {
	return agent.SessionConfig{
		ModelID:    c.Model,
		Credential: c.CredentialFor(c.Model),
	}
}

// ProviderOptions derives the provider factory options
func (c *Config) ProviderOptions() agent.ProviderOptions {
	return agent.ProviderOptions{
		OpenAIBaseURL:    c.OpenAIBaseURL,
		AnthropicBaseURL: c.AnthropicBaseURL,
	}
}
