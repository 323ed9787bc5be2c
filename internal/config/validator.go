package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/harun/unsure/pkg/agent"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey checks the key format expected by provider
func (v *Validator) ValidateAPIKey(key string, provider agent.ProviderKind) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("%s API key must not contain whitespace", provider)
	}

	switch provider {
	case agent.ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case agent.ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateModel checks model is on the allow-list
func (v *Validator) ValidateModel(model string) error {
	if model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if !agent.IsSupportedModel(model) {
		ids := make([]string, 0, len(agent.SupportedModels()))
		for _, m := range agent.SupportedModels() {
			ids = append(ids, m.ID)
		}
		return fmt.Errorf("unsupported model: %s (must be one of: %s)", model, strings.Join(ids, ", "))
	}
	return nil
}

// ValidateTimeout validates the per-question timeout
func (v *Validator) ValidateTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	if timeout > time.Hour {
		return fmt.Errorf("timeout too large (max 1h), got %s", timeout)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation. Missing keys are not
// reported; only keys that are set must be well formed.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if err := v.ValidateModel(cfg.Model); err != nil {
		errs = append(errs, err)
	}
	if cfg.APIKey != "" {
		if err := v.ValidateAPIKey(cfg.APIKey, agent.ProviderOpenAI); err != nil {
			errs = append(errs, fmt.Errorf("api_key: %w", err))
		}
	}
	if cfg.AnthropicAPIKey != "" {
		if err := v.ValidateAPIKey(cfg.AnthropicAPIKey, agent.ProviderAnthropic); err != nil {
			errs = append(errs, fmt.Errorf("anthropic_api_key: %w", err))
		}
	}
	if err := v.ValidateTimeout(cfg.Timeout); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if cfg.Logging.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("logging.max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("logging.max_age must be >= 0"))
	}

	return errs
}
