package config

import (
	"testing"

	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WindowSize != 4000 || cfg.WindowOverlap != 500 {
		t.Errorf("window = %d/%d, want 4000/500", cfg.WindowSize, cfg.WindowOverlap)
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", cfg.MaxConcurrency)
	}
	if cfg.CurrencyPolicy != pipeline.CurrencyFixed || cfg.DefaultCurrency != "EUR" {
		t.Errorf("currency = %s/%s, want fixed/EUR", cfg.CurrencyPolicy, cfg.DefaultCurrency)
	}
	if cfg.BankID != "3000" {
		t.Errorf("BankID = %q, want 3000", cfg.BankID)
	}
	if cfg.RecordingEnabled() || cfg.ArchiveEnabled() {
		t.Error("recording and archive should be disabled by default")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("WINDOW_SIZE", "2000")
	t.Setenv("WINDOW_OVERLAP", "200")
	t.Setenv("CURRENCY_POLICY", "first-seen")
	t.Setenv("GCS_BUCKET", "statements-archive")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WindowSize != 2000 || cfg.WindowOverlap != 200 {
		t.Errorf("window = %d/%d, want 2000/200", cfg.WindowSize, cfg.WindowOverlap)
	}
	if cfg.CurrencyPolicy != pipeline.CurrencyFirstSeen {
		t.Errorf("CurrencyPolicy = %q", cfg.CurrencyPolicy)
	}
	if !cfg.ArchiveEnabled() {
		t.Error("expected archive to be enabled")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Provider:        ProviderGemini,
			WindowSize:      4000,
			WindowOverlap:   500,
			MaxConcurrency:  4,
			CurrencyPolicy:  pipeline.CurrencyFixed,
			DefaultCurrency: "EUR",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown provider", func(c *Config) { c.Provider = "llama" }, true},
		{"openai without key", func(c *Config) { c.Provider = ProviderOpenAI }, true},
		{"openai with key", func(c *Config) { c.Provider = ProviderOpenAI; c.OpenAIAPIKey = "sk-test" }, false},
		{"overlap equals window", func(c *Config) { c.WindowOverlap = 4000 }, true},
		{"negative overlap", func(c *Config) { c.WindowOverlap = -1 }, true},
		{"zero window", func(c *Config) { c.WindowSize = 0 }, true},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, true},
		{"unknown currency policy", func(c *Config) { c.CurrencyPolicy = "majority" }, true},
		{"bad currency code", func(c *Config) { c.DefaultCurrency = "EURO" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NormalizesCurrency(t *testing.T) {
	t.Setenv("DEFAULT_CURRENCY", " eur ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Errorf("DefaultCurrency = %q, want EUR", cfg.DefaultCurrency)
	}
}
