package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/logger"
	"github.com/dvloznov/statement-splitter/internal/qbo"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Document *Document
	RunID    string
	Text     string
	Windows  []string
	Results  []WindowResult
	Account  *domain.CanonicalAccount
	Archived []string

	// Status receives progress messages. It may be nil.
	Status func(text string)
}

func (s *PipelineState) report(text string) {
	if s.Status != nil {
		s.Status(text)
	}
}

// StartRunStep opens a run in the recorder.
type StartRunStep struct {
	recorder Recorder
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	runID, err := s.recorder.StartRun(ctx, state.Document)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record run start")
		return nil
	}
	state.RunID = runID
	return nil
}

// ConvertStep turns the document into text. Text documents are used as is.
type ConvertStep struct {
	converter Converter
}

func (s *ConvertStep) Execute(ctx context.Context, state *PipelineState) error {
	state.report(StatusReadingDocument)

	doc := state.Document
	if doc.Kind == KindText {
		state.Text = string(doc.Data)
		return nil
	}

	text, err := s.converter.Convert(ctx, doc.Data, doc.MIMEType)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ConvertStep: %w", ctx.Err())
		}
		return fmt.Errorf("ConvertStep: %w: %w", ErrConversion, err)
	}
	state.Text = text

	log := logger.FromContext(ctx)
	log.Debug().Int("text_len", len(text)).Msg("Document converted")
	return nil
}

// SegmentStep splits the text into overlapping windows.
type SegmentStep struct {
	size    int
	overlap int
}

func (s *SegmentStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Windows = Segment(state.Text, s.size, s.overlap)
	return nil
}

// DispatchStep extracts every window.
type DispatchStep struct {
	dispatcher *Dispatcher
}

func (s *DispatchStep) Execute(ctx context.Context, state *PipelineState) error {
	state.report(StatusAnalyzing(len(state.Windows)))

	results, err := s.dispatcher.Dispatch(ctx, state.Windows)
	if err != nil {
		return fmt.Errorf("DispatchStep: %w", err)
	}
	state.Results = results
	return nil
}

// ImageExtractStep extracts an image in a single call. A failure here has
// no other window to fall back on, so it ends the run.
type ImageExtractStep struct {
	extractor ImageExtractor
}

func (s *ImageExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	state.report(StatusScanningImage)

	start := time.Now()
	doc := state.Document
	out, err := s.extractor.ExtractImage(ctx, doc.Data, doc.MIMEType)

	res := WindowResult{Index: 0, Err: err, Elapsed: time.Since(start)}
	if out != nil {
		res.Raw = out.Raw
		res.Model = out.Model
		res.Accounts = out.Accounts
	}
	state.Results = []WindowResult{res}

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ImageExtractStep: %w", ctx.Err())
		}
		return fmt.Errorf("ImageExtractStep: %w: %w", ErrExtraction, err)
	}
	return nil
}

// RecordOutputsStep stores the raw model output of every window.
type RecordOutputsStep struct {
	recorder Recorder
}

func (s *RecordOutputsStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.RunID == "" {
		return nil
	}
	log := logger.FromContext(ctx)
	for _, res := range state.Results {
		if err := s.recorder.RecordWindow(ctx, state.RunID, state.Document, res); err != nil {
			log.Warn().Err(err).Int("window", res.Index).Msg("Failed to record model output")
		}
	}
	return nil
}

// MergeStep folds the window results into the canonical account.
type MergeStep struct {
	merger *Merger
}

func (s *MergeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.report(StatusMerging)
	state.Account = s.merger.Merge(state.Results)

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_name", state.Account.Name).
		Int("transactions", len(state.Account.Transactions)).
		Msg("Ledger merged")
	return nil
}

// SerializeStep renders the interchange text.
type SerializeStep struct {
	bankID string
	rules  *rules.Rules
	now    func() time.Time
}

func (s *SerializeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Account.Interchange = qbo.Render(state.Account, qbo.Options{
		BankID: s.bankID,
		SignOn: s.now(),
		Rules:  s.rules,
	})
	return nil
}

// RecordLedgerStep stores the final transactions and closes the run.
type RecordLedgerStep struct {
	recorder Recorder
}

func (s *RecordLedgerStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.RunID == "" {
		return nil
	}
	log := logger.FromContext(ctx)
	if err := s.recorder.RecordLedger(ctx, state.RunID, state.Document, state.Account); err != nil {
		log.Warn().Err(err).Msg("Failed to record ledger")
	}
	if err := s.recorder.FinishRun(ctx, state.RunID, nil); err != nil {
		log.Warn().Err(err).Msg("Failed to mark run succeeded")
	}
	return nil
}

// ArchiveStep stores the source document and its outputs.
type ArchiveStep struct {
	archiver Archiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	uris, err := s.archiver.Archive(ctx, state.Document, state.Account)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to archive document")
		return nil
	}
	state.Archived = uris
	return nil
}
