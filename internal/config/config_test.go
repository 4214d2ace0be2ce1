package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, `label:"Tasks to be tracked"`, cfg.Gmail.Query)
	assert.Equal(t, int64(20), cfg.Gmail.MaxResults)
	assert.Equal(t, []string{"anthropic", "gemini", "ollama"}, cfg.Providers.Order)
	assert.Equal(t, 30*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 4, cfg.Pipeline.MaxWorkers)
	assert.InDelta(t, 0.85, cfg.Pipeline.SimilarityThreshold, 1e-9)
	assert.Equal(t, "primary", cfg.Calendar.ID)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
gmail:
  query: "label:todo"
  max_results: 5
providers:
  order: [ollama]
pipeline:
  max_workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "label:todo", cfg.Gmail.Query)
	assert.Equal(t, int64(5), cfg.Gmail.MaxResults)
	assert.Equal(t, []string{"ollama"}, cfg.Providers.Order)
	assert.Equal(t, 2, cfg.Pipeline.MaxWorkers)
	// Untouched values keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Providers.Timeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("calendar:\n  id: work\n"), 0o600))

	t.Setenv("INBOXPLAN_CALENDAR__ID", "personal")
	t.Setenv("INBOXPLAN_PIPELINE__MAX_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "personal", cfg.Calendar.ID)
	assert.Equal(t, 8, cfg.Pipeline.MaxWorkers)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider order", func(c *Config) { c.Providers.Order = nil }},
		{"unknown provider", func(c *Config) { c.Providers.Order = []string{"gpt4"} }},
		{"zero timeout", func(c *Config) { c.Providers.Timeout = 0 }},
		{"zero workers", func(c *Config) { c.Pipeline.MaxWorkers = 0 }},
		{"threshold above one", func(c *Config) { c.Pipeline.SimilarityThreshold = 1.5 }},
		{"zero max results", func(c *Config) { c.Gmail.MaxResults = 0 }},
		{"empty calendar id", func(c *Config) { c.Calendar.ID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
