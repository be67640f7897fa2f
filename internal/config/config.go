// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Registry  RegistryConfig  `mapstructure:"registry"`
	Store     StoreConfig     `mapstructure:"store"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	News      NewsConfig      `mapstructure:"news"`
	Server    ServerConfig    `mapstructure:"server"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// RegistryConfig configures the DIP document registry connection.
type RegistryConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	DocumentType string `mapstructure:"document_type"` // f.drucksachetyp filter
	Body         string `mapstructure:"body"`          // f.zuordnung filter
	SyncSchedule string `mapstructure:"sync_schedule"` // cron spec
}

// StoreConfig configures the document store.
type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite database file
}

// LLMConfig configures the enrichment provider.
type LLMConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	EmbedModel string        `mapstructure:"embed_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// VectorConfig configures the vector store.
type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

// EnrichConfig configures the enrichment orchestrator.
type EnrichConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	Pacing    time.Duration `mapstructure:"pacing"`
	Schedule  string        `mapstructure:"schedule"` // cron spec
}

// NewsConfig configures the press feed.
type NewsConfig struct {
	FeedURL string `mapstructure:"feed_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// TemporalConfig configures the durable-scheduler deployment (cmd/worker).
type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Registry.APIKey == "" {
		warnings = append(warnings, "registry api_key is empty — sync will fail fast until it is configured")
	}
	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.Vector.Dimension < 0 {
		warnings = append(warnings, fmt.Sprintf("vector dimension %d is negative", c.Vector.Dimension))
	}
	if c.Enrich.BatchSize < 0 {
		warnings = append(warnings, fmt.Sprintf("enrich batch_size %d is negative", c.Enrich.BatchSize))
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LEGISYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.base_url", "https://search.dip.bundestag.de/api/v1")
	v.SetDefault("registry.document_type", "Gesetzentwurf")
	v.SetDefault("registry.body", "BT")
	v.SetDefault("registry.sync_schedule", "@every 10h")
	v.SetDefault("store.path", "legisync.db")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.embed_model", "text-embedding-3-small")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "drucksachen")
	v.SetDefault("vector.dimension", 1536)
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.pacing", 2*time.Second)
	v.SetDefault("enrich.schedule", "@every 10m")
	v.SetDefault("news.feed_url", "https://www.bundestag.de/static/appdata/includes/rss/hib.rss")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "legisync")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("telemetry.environment", "development")
}
