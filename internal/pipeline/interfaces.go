package pipeline

import (
	"context"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/extraction"
)

// Extractor turns one text window into candidate accounts.
type Extractor interface {
	ExtractWindow(ctx context.Context, window string, index int) (*extraction.Result, error)
}

// ImageExtractor turns a whole image into candidate accounts in one call.
type ImageExtractor interface {
	ExtractImage(ctx context.Context, data []byte, mimeType string) (*extraction.Result, error)
}

// Converter turns a binary document into Markdown text.
type Converter interface {
	Convert(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Processor runs one document through the pipeline, reporting progress
// through status. The stream and job layers depend on this.
type Processor interface {
	Process(ctx context.Context, doc *Document, status func(string)) (*domain.CanonicalAccount, error)
}

// Recorder persists the history of a run. Recording errors are logged by the
// pipeline and never fail a run.
type Recorder interface {
	StartRun(ctx context.Context, doc *Document) (runID string, err error)
	RecordWindow(ctx context.Context, runID string, doc *Document, result WindowResult) error
	RecordLedger(ctx context.Context, runID string, doc *Document, account *domain.CanonicalAccount) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Archiver stores the source document and its outputs.
type Archiver interface {
	Archive(ctx context.Context, doc *Document, account *domain.CanonicalAccount) ([]string, error)
}

// NopRecorder records nothing.
type NopRecorder struct{}

func (NopRecorder) StartRun(context.Context, *Document) (string, error) { return "", nil }

func (NopRecorder) RecordWindow(context.Context, string, *Document, WindowResult) error {
	return nil
}

func (NopRecorder) RecordLedger(context.Context, string, *Document, *domain.CanonicalAccount) error {
	return nil
}

func (NopRecorder) FinishRun(context.Context, string, error) error { return nil }

// NopArchiver archives nothing.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, *Document, *domain.CanonicalAccount) ([]string, error) {
	return nil, nil
}
