package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-splitter/internal/app"
	"github.com/dvloznov/statement-splitter/internal/config"
	"github.com/dvloznov/statement-splitter/internal/export"
	"github.com/dvloznov/statement-splitter/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-splitter/internal/infra/bigquery"
	"github.com/dvloznov/statement-splitter/internal/logger"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if log, err = logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logger configuration")
	}

	switch os.Args[1] {
	case "extract":
		runExtract(cfg, log)
	case "segment":
		runSegment(cfg, log)
	case "rules":
		runRules(cfg, log)
	case "upload":
		runUpload(log)
	case "runs":
		runRuns(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Splitter CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  extract   Extract a statement (local file or gs:// URI) into QBO/CSV/XLSX files")
	fmt.Println("  segment   Print the text windows of a text or markdown file")
	fmt.Println("  rules     Print the effective rule table as YAML")
	fmt.Println("  upload    Upload a statement file to GCS")
	fmt.Println("  runs      List recorded parsing runs from BigQuery")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runExtract(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	input := fs.String("file", "", "Local path or gs:// URI of the statement")
	outDir := fs.String("out", ".", "Directory for the generated files")
	formats := fs.String("formats", "qbo,csv", "Comma separated output formats: qbo, csv, xlsx")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall extraction timeout")
	fs.IntVar(&cfg.WindowSize, "window-size", cfg.WindowSize, "Window size in characters")
	fs.IntVar(&cfg.WindowOverlap, "window-overlap", cfg.WindowOverlap, "Window overlap in characters")
	fs.StringVar(&cfg.RulesFile, "rules", cfg.RulesFile, "YAML rules file")
	fs.Parse(os.Args[2:])

	if *input == "" {
		log.Fatal().Msg("Error: -file is required")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid options")
	}

	outFormats := strings.Split(*formats, ",")
	for i, f := range outFormats {
		outFormats[i] = strings.TrimSpace(f)
		if _, ok := export.ContentTypes[outFormats[i]]; !ok {
			log.Fatal().Str("format", f).Msg("Unknown output format")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	isGCS := strings.HasPrefix(*input, "gs://")

	a, err := app.New(ctx, cfg, app.Options{NeedStorage: isGCS}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize statement service")
	}
	defer a.Close()

	var (
		data     []byte
		filename string
	)
	if isGCS {
		filename = gcsuploader.ExtractFilenameFromGCSURI(*input)
		data, err = a.Storage.FetchFromGCS(ctx, *input)
	} else {
		filename = filepath.Base(*input)
		data, err = os.ReadFile(*input)
	}
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("Failed to read statement")
	}

	doc, err := pipeline.NewDocument(filename, "", data)
	if err != nil {
		log.Fatal().Err(err).Msg("Unsupported statement")
	}
	if isGCS {
		doc.SourceURI = *input
	}

	acct, err := a.Service.Process(ctx, doc, func(status string) {
		fmt.Fprintln(os.Stderr, status)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}
	for _, format := range outFormats {
		out, err := export.Render(acct, format)
		if err != nil {
			log.Fatal().Err(err).Str("format", format).Msg("Failed to render output")
		}
		path := filepath.Join(*outDir, export.SuggestedFilename(acct, format))
		if err := os.WriteFile(path, out, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to write output")
		}
		fmt.Printf("Wrote %s\n", path)
	}

	fmt.Printf("%s (%s, %s): %d transactions\n", acct.Name, acct.NumberPartial, acct.Currency, len(acct.Transactions))
}

func runSegment(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a text or markdown file")
	size := fs.Int("size", cfg.WindowSize, "Window size in characters")
	overlap := fs.Int("overlap", cfg.WindowOverlap, "Window overlap in characters")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	windows := pipeline.Segment(string(data), *size, *overlap)
	for i, w := range windows {
		fmt.Printf("=== Window %d/%d (%d chars) ===\n", i+1, len(windows), len([]rune(w)))
		fmt.Println(w)
	}
}

func runRules(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	fs.StringVar(&cfg.RulesFile, "rules", cfg.RulesFile, "YAML rules file to merge over the defaults")
	fs.Parse(os.Args[2:])

	r, err := rules.Load(cfg.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load rules")
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode rules")
	}
	fmt.Print(string(out))
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local statement file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := gcsuploader.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer client.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := client.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runRuns(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	documentID := fs.String("document-id", "", "Only list runs of this document")
	limit := fs.Int("limit", 20, "Maximum number of runs")
	fs.Parse(os.Args[2:])

	if !cfg.RecordingEnabled() {
		log.Fatal().Msg("BIGQUERY_PROJECT is not set")
	}

	ctx := logger.WithContext(context.Background(), log)

	repo, err := infraBQ.NewRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	runs, err := repo.ListParsingRuns(ctx, *documentID, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list parsing runs")
	}

	fmt.Printf("\n=== Parsing runs (%d) ===\n", len(runs))
	for _, run := range runs {
		finished := "-"
		if run.FinishedTS.Valid {
			finished = run.FinishedTS.Timestamp.Format(time.RFC3339)
		}
		fmt.Printf("\n%s  %s\n", run.ParsingRunID, run.Status)
		fmt.Printf("   Document: %s\n", run.DocumentID)
		fmt.Printf("   Parser:   %s %s\n", run.ParserType, run.ParserVersion)
		fmt.Printf("   Started:  %s\n", run.StartedTS.Format(time.RFC3339))
		fmt.Printf("   Finished: %s\n", finished)
		if run.ErrorMessage != "" {
			fmt.Printf("   Error:    %s\n", run.ErrorMessage)
		}
	}
	fmt.Println()
}
