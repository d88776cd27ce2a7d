package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-splitter/internal/api/handlers"
	"github.com/dvloznov/statement-splitter/internal/api/middleware"
	"github.com/dvloznov/statement-splitter/internal/app"
	"github.com/dvloznov/statement-splitter/internal/config"
	"github.com/dvloznov/statement-splitter/internal/jobs"
	"github.com/dvloznov/statement-splitter/internal/jobs/inmemory"
	"github.com/dvloznov/statement-splitter/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.GCSBucket, "bucket", cfg.GCSBucket, "GCS bucket for archived statements (or set GCS_BUCKET env)")
	flag.Parse()

	log, err := logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logger configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, app.Options{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize statement service")
	}
	defer a.Close()

	if !cfg.ArchiveEnabled() {
		log.Warn().Msg("No GCS bucket configured - statements will not be archived and gs:// jobs will fail")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueConfig{
		BufferSize: cfg.JobQueueSize,
		Workers:    cfg.JobWorkers,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Jobs naming gs:// objects need a storage client
	var fetch jobs.Fetcher
	if a.Storage != nil {
		fetch = a.Storage
	}
	jobHandler := jobs.NewExtractHandler(a.Service, jobStore, fetch)

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	router := handlers.NewRouter(
		handlers.NewExtractHandler(a.Service, cfg.MaxUploadBytes, log),
		handlers.NewJobsHandler(jobQueue, jobStore, cfg.MaxUploadBytes, log),
	)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(router),
			),
		),
	)

	// WriteTimeout stays zero: extraction streams outlive any fixed deadline.
	server := &http.Server{
		Addr:              ":" + *port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
