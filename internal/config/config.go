package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"

	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

// Extraction providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the process configuration. Every field can be set from the
// environment; commands may override individual values with flags.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Provider       string `env:"EXTRACTION_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	ConverterModel string `env:"CONVERTER_MODEL" envDefault:"gemini-2.5-flash"`
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel    string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	WindowSize        int     `env:"WINDOW_SIZE" envDefault:"4000"`
	WindowOverlap     int     `env:"WINDOW_OVERLAP" envDefault:"500"`
	MaxConcurrency    int     `env:"EXTRACTION_MAX_CONCURRENCY" envDefault:"4"`
	RequestsPerSecond float64 `env:"EXTRACTION_RPS" envDefault:"2"`
	Burst             int     `env:"EXTRACTION_BURST" envDefault:"4"`

	CurrencyPolicy  string `env:"CURRENCY_POLICY" envDefault:"fixed"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"EUR"`
	BankID          string `env:"QBO_BANK_ID" envDefault:"3000"`
	RulesFile       string `env:"RULES_FILE"`

	GCSBucket       string `env:"GCS_BUCKET"`
	BigQueryProject string `env:"BIGQUERY_PROJECT"`
	BigQueryDataset string `env:"BIGQUERY_DATASET" envDefault:"statements"`

	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	JobWorkers     int   `env:"JOB_WORKERS" envDefault:"5"`
	JobQueueSize   int   `env:"JOB_QUEUE_SIZE" envDefault:"100"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("Load: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("Validate: OPENAI_API_KEY is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("Validate: unknown extraction provider %q", c.Provider)
	}

	if c.WindowSize <= 0 {
		return fmt.Errorf("Validate: window size must be positive, got %d", c.WindowSize)
	}
	if c.WindowOverlap < 0 || c.WindowOverlap >= c.WindowSize {
		return fmt.Errorf("Validate: window overlap must be in [0, %d), got %d", c.WindowSize, c.WindowOverlap)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("Validate: max concurrency must be positive, got %d", c.MaxConcurrency)
	}

	switch c.CurrencyPolicy {
	case pipeline.CurrencyFixed, pipeline.CurrencyFirstSeen:
	default:
		return fmt.Errorf("Validate: unknown currency policy %q", c.CurrencyPolicy)
	}
	currency := strings.ToUpper(strings.TrimSpace(c.DefaultCurrency))
	if len(currency) != 3 {
		return fmt.Errorf("Validate: default currency must be a 3-letter code, got %q", c.DefaultCurrency)
	}
	c.DefaultCurrency = currency

	return nil
}

// RecordingEnabled reports whether runs should be persisted to BigQuery.
func (c *Config) RecordingEnabled() bool {
	return c.BigQueryProject != ""
}

// ArchiveEnabled reports whether inputs and outputs should be archived to GCS.
func (c *Config) ArchiveEnabled() bool {
	return c.GCSBucket != ""
}
