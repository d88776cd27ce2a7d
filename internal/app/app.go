// Package app wires the statement service from configuration. Both the API
// server and the CLI build their processor here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-splitter/internal/config"
	"github.com/dvloznov/statement-splitter/internal/extraction/gemini"
	"github.com/dvloznov/statement-splitter/internal/extraction/openai"
	"github.com/dvloznov/statement-splitter/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-splitter/internal/infra/bigquery"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

// App holds the wired service and the clients that must be closed with it.
type App struct {
	Service *pipeline.Service
	Rules   *rules.Rules

	// Storage is nil unless a GCS bucket is configured or required.
	Storage *gcsuploader.Client
	// Runs is nil unless BigQuery recording is configured.
	Runs *infraBQ.Repository

	closers []func() error
}

// Options tweak what New connects to.
type Options struct {
	// NeedStorage opens a storage client even without an archive bucket,
	// e.g. to read gs:// inputs.
	NeedStorage bool
}

// New builds the extraction clients, the optional recorder and archiver,
// and the statement service.
func New(ctx context.Context, cfg *config.Config, opts Options, log zerolog.Logger) (*App, error) {
	r, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	a := &App{Rules: r}

	gc, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		ConverterModel: cfg.ConverterModel,
	})
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	var (
		extractor pipeline.Extractor      = gc
		images    pipeline.ImageExtractor = gc
	)
	if cfg.Provider == config.ProviderOpenAI {
		oc := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		extractor, images = oc, oc
	}
	log.Info().Str("provider", cfg.Provider).Msg("Extraction provider configured")

	deps := pipeline.Deps{
		Converter: gc,
		Images:    images,
		Dispatcher: pipeline.NewDispatcher(extractor, pipeline.DispatcherConfig{
			MaxConcurrency:    cfg.MaxConcurrency,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}),
	}

	if cfg.RecordingEnabled() {
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		repo.ParserType = cfg.Provider
		a.Runs = repo
		a.closers = append(a.closers, repo.Close)
		deps.Recorder = repo
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Run recording enabled")
	}

	if cfg.ArchiveEnabled() || opts.NeedStorage {
		sc, err := gcsuploader.NewClient(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.Storage = sc
		a.closers = append(a.closers, sc.Close)
		if cfg.ArchiveEnabled() {
			deps.Archiver = gcsuploader.NewArchiver(sc, cfg.GCSBucket)
			log.Info().Str("bucket", cfg.GCSBucket).Msg("Archiving enabled")
		}
	}

	a.Service = pipeline.NewService(deps, pipeline.Options{
		WindowSize:    cfg.WindowSize,
		WindowOverlap: cfg.WindowOverlap,
		BankID:        cfg.BankID,
		Rules:         r,
		Currency: pipeline.CurrencyPolicy{
			Mode:    cfg.CurrencyPolicy,
			Default: cfg.DefaultCurrency,
		},
		Now: time.Now,
	})

	return a, nil
}

// Close releases every client New opened.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
