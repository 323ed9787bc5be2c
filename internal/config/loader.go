package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDirName  = ".unsure"
	configFileName = "unsure.json"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader. An empty path selects
// $HOME/.unsure/unsure.json.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load reads the config file (if present) and applies environment
// overrides. UNSURE_* variables override file values; OPENAI_API_KEY and
// ANTHROPIC_API_KEY are used when no key is configured otherwise.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.path()
	if err != nil {
		return nil, err
	}

	v := l.newViper(configPath)

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(configPath)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "unsure.log")
	}

	return cfg, nil
}

func (l *Loader) newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// Unmarshal only sees keys viper knows about, so every key gets a
	// default for AutomaticEnv to override.
	defaults := DefaultConfig()
	v.SetDefault("model", defaults.Model)
	v.SetDefault("api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("anthropic_base_url", "")
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("show_trace", defaults.ShowTrace)
	v.SetDefault("data_dir", "")
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.console", defaults.Logging.Console)
	v.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	v.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
	v.SetDefault("logging.redaction", defaults.Logging.Redaction)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", "")

	v.SetEnvPrefix("UNSURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Save writes cfg to the config file with owner-only permissions
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetConfigPermissions(0600)

	v.Set("model", cfg.Model)
	v.Set("api_key", cfg.APIKey)
	v.Set("anthropic_api_key", cfg.AnthropicAPIKey)
	if cfg.OpenAIBaseURL != "" {
		v.Set("openai_base_url", cfg.OpenAIBaseURL)
	}
	if cfg.AnthropicBaseURL != "" {
		v.Set("anthropic_base_url", cfg.AnthropicBaseURL)
	}
	v.Set("timeout", cfg.Timeout.String())
	v.Set("show_trace", cfg.ShowTrace)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)
	v.Set("metrics", cfg.Metrics)
	v.Set("tracing", cfg.Tracing)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// WriteConfigAs keeps the mode of an existing file
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.path()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) path() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
