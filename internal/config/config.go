// Package config provides configuration loading for inboxplan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variable overrides.
// A double underscore separates nesting levels so that field names
// containing underscores stay addressable:
//
//	INBOXPLAN_PROVIDERS__ORDER          -> providers.order
//	INBOXPLAN_PIPELINE__MAX_WORKERS     -> pipeline.max_workers
//	INBOXPLAN_STORE__PATH               -> store.path
const envPrefix = "INBOXPLAN_"

// defaultYAML holds the hardcoded defaults, lowest in precedence.
var defaultYAML = []byte(`
log:
  level: info
gmail:
  query: 'label:"Tasks to be tracked"'
  max_results: 20
providers:
  order: [anthropic, gemini, ollama]
  timeout: 30s
  anthropic:
    model: claude-haiku-4-5
  gemini:
    model: gemini-1.5-flash
  ollama:
    server_url: http://localhost:11434
    model: llama3
pipeline:
  max_workers: 4
  similarity_threshold: 0.85
  body_limit: 2000
calendar:
  id: primary
  event_duration: 1h
store:
  path: ""
`)

// Config is the root configuration for a pipeline run.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Gmail     GmailConfig     `koanf:"gmail"`
	Providers ProvidersConfig `koanf:"providers"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Calendar  CalendarConfig  `koanf:"calendar"`
	Store     StoreConfig     `koanf:"store"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// GmailConfig controls which messages a run fetches.
type GmailConfig struct {
	Query      string `koanf:"query"`
	MaxResults int64  `koanf:"max_results"`
}

// ProvidersConfig configures the extraction provider chain.
type ProvidersConfig struct {
	// Order is the fallback priority, most capable first.
	Order     []string        `koanf:"order"`
	Timeout   time.Duration   `koanf:"timeout"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Ollama    OllamaConfig    `koanf:"ollama"`
}

// AnthropicConfig configures the Anthropic provider adapter.
type AnthropicConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// GeminiConfig configures the Google Gemini provider adapter.
type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// OllamaConfig configures the local Ollama provider adapter.
type OllamaConfig struct {
	ServerURL string `koanf:"server_url"`
	Model     string `koanf:"model"`
}

// PipelineConfig controls run-level behavior.
type PipelineConfig struct {
	// MaxWorkers bounds concurrent per-message extraction.
	MaxWorkers int `koanf:"max_workers"`
	// SimilarityThreshold is the normalized Levenshtein similarity above
	// which two titles from the same message are considered duplicates.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	// BodyLimit caps the email body length included in provider prompts.
	BodyLimit int `koanf:"body_limit"`
}

// CalendarConfig controls calendar reconciliation.
type CalendarConfig struct {
	ID            string        `koanf:"id"`
	EventDuration time.Duration `koanf:"event_duration"`
}

// StoreConfig locates the durable fingerprint database.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// Load loads configuration with the precedence (highest to lowest):
//
//  1. Environment variables (INBOXPLAN_* with __ as the level separator)
//  2. YAML config file (default ~/.config/inboxplan/config.yaml)
//  3. Hardcoded defaults
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "inboxplan", "config.yaml")
		}
	}
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// transformEnv maps INBOXPLAN_PROVIDERS__TIMEOUT to providers.timeout.
func transformEnv(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "inboxplan.db"
	}
	return filepath.Join(home, ".local", "share", "inboxplan", "fingerprints.db")
}

// Validate reports configuration values that cannot produce a working run.
func (c *Config) Validate() error {
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must name at least one provider")
	}
	for _, name := range c.Providers.Order {
		switch name {
		case "anthropic", "gemini", "ollama":
		default:
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive, got %s", c.Providers.Timeout)
	}
	if c.Pipeline.MaxWorkers < 1 {
		return fmt.Errorf("pipeline.max_workers must be at least 1, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be in (0, 1], got %g", c.Pipeline.SimilarityThreshold)
	}
	if c.Gmail.MaxResults < 1 {
		return fmt.Errorf("gmail.max_results must be at least 1, got %d", c.Gmail.MaxResults)
	}
	if c.Calendar.ID == "" {
		return fmt.Errorf("calendar.id must not be empty")
	}
	return nil
}
