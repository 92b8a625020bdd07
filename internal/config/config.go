// Package config loads the splitter's YAML configuration. Secrets (API keys)
// are referenced by environment variable name, never stored in the file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wmcube/settlesplit/internal/email"
	"github.com/wmcube/settlesplit/internal/names"
)

// OracleConfig selects and configures the extraction backend.
type OracleConfig struct {
	// Backend is "gemini", "openai", or "none" (regex fallback only).
	Backend string `yaml:"backend"`

	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the OpenAI key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// OverrideEntry is one extra name-override row appended after the built-in
// table.
type OverrideEntry struct {
	Match string `yaml:"match"`
	Label string `yaml:"label"`
}

// EmailConfig configures the Gmail drafting collaborator.
type EmailConfig struct {
	CC    string            `yaml:"cc"`
	Token email.TokenConfig `yaml:"token"`
}

// CloudConfig configures the CloudEvent deployment and the run ledger.
type CloudConfig struct {
	ProjectID        string `yaml:"project_id"`
	OutputBucket     string `yaml:"output_bucket"`
	LedgerCollection string `yaml:"ledger_collection"`
}

// Config is the full configuration tree.
type Config struct {
	Oracle    OracleConfig    `yaml:"oracle"`
	Email     EmailConfig     `yaml:"email"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Overrides []OverrideEntry `yaml:"overrides"`

	// RenderDPI overrides the page render resolution. Zero keeps the
	// default.
	RenderDPI int `yaml:"render_dpi"`
}

// Defaults used when keys are absent from the file.
const (
	DefaultBackend     = "gemini"
	DefaultRegion      = "us-central1"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultAPIKeyEnv   = "OPENAI_API_KEY"
)

// Load reads and validates a YAML config file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Oracle.Backend == "" {
		c.Oracle.Backend = DefaultBackend
	}
	if c.Oracle.Region == "" {
		c.Oracle.Region = DefaultRegion
	}
	if c.Oracle.Model == "" && c.Oracle.Backend == "gemini" {
		c.Oracle.Model = DefaultGeminiModel
	}
	if c.Oracle.APIKeyEnv == "" {
		c.Oracle.APIKeyEnv = DefaultAPIKeyEnv
	}
}

func (c *Config) validate() error {
	switch c.Oracle.Backend {
	case "gemini", "openai", "none":
	default:
		return fmt.Errorf("unknown oracle backend %q", c.Oracle.Backend)
	}
	return nil
}

// OpenAIKey resolves the OpenAI API key from the configured environment
// variable.
func (c *Config) OpenAIKey() string {
	return os.Getenv(c.Oracle.APIKeyEnv)
}

// Normalizer builds the name normalizer: built-in override table plus any
// configured extras, in file order.
func (c *Config) Normalizer() *names.Normalizer {
	extra := make([]names.Override, 0, len(c.Overrides))
	for _, o := range c.Overrides {
		extra = append(extra, names.Override{Match: o.Match, Label: o.Label})
	}
	return names.NewNormalizer(extra...)
}
