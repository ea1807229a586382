// ABOUTME: Configuration loading and parsing for fromage
// ABOUTME: Supports YAML files with environment variable expansion and defaults

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultHistoryLimit bounds the context window when the config omits one.
const DefaultHistoryLimit = 10

// DefaultSystemPrompt governs conversations with no prompt override.
const DefaultSystemPrompt = "You are a thoughtful conversational companion. Your purpose is to engage in meaningful, authentic dialogue. " +
	"Listen attentively to the user, whose name is provided in the 'name' field. Respond with genuine curiosity and aim to understand their perspective. " +
	"Encourage introspection and explore topics with nuance and depth. Avoid small talk or superficiality. " +
	"Your tone should be calm, non-judgmental, and supportive. Address the user by name when appropriate, but vary your responses naturally. " +
	"Do not mention being an AI or a bot."

// Config represents the complete fromage configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig bounds the per-request context window
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// PromptConfig holds the process-wide default system prompt
type PromptConfig struct {
	Default string `yaml:"default"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Missing optional fields fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a Config with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "history.db"
	}
	if c.History.Limit == 0 {
		c.History.Limit = DefaultHistoryLimit
	}
	if c.Prompt.Default == "" {
		c.Prompt.Default = DefaultSystemPrompt
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
