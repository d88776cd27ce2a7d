package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/logger"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

// Options configures a Service.
type Options struct {
	WindowSize    int
	WindowOverlap int
	BankID        string
	Rules         *rules.Rules
	Currency      CurrencyPolicy

	// Now supplies the sign-on time of rendered files. Defaults to time.Now.
	Now func() time.Time
}

// Deps are the collaborators of a Service. Recorder and Archiver are
// optional.
type Deps struct {
	Converter  Converter
	Images     ImageExtractor
	Dispatcher *Dispatcher
	Recorder   Recorder
	Archiver   Archiver
}

// Service processes statements end to end.
type Service struct {
	text  *Pipeline
	image *Pipeline

	recorder Recorder
}

// NewService wires the text and image pipelines.
func NewService(deps Deps, opts Options) *Service {
	if opts.Rules == nil {
		opts.Rules = rules.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.WindowOverlap < 0 {
		opts.WindowOverlap = DefaultWindowOverlap
	}
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	if deps.Archiver == nil {
		deps.Archiver = NopArchiver{}
	}

	merger := NewMerger(opts.Rules, opts.Currency)
	serialize := &SerializeStep{bankID: opts.BankID, rules: opts.Rules, now: opts.Now}

	return &Service{
		text: NewPipeline(
			&StartRunStep{recorder: deps.Recorder},
			&ConvertStep{converter: deps.Converter},
			&SegmentStep{size: opts.WindowSize, overlap: opts.WindowOverlap},
			&DispatchStep{dispatcher: deps.Dispatcher},
			&RecordOutputsStep{recorder: deps.Recorder},
			&MergeStep{merger: merger},
			serialize,
			&RecordLedgerStep{recorder: deps.Recorder},
			&ArchiveStep{archiver: deps.Archiver},
		),
		image: NewPipeline(
			&StartRunStep{recorder: deps.Recorder},
			&ImageExtractStep{extractor: deps.Images},
			&RecordOutputsStep{recorder: deps.Recorder},
			&MergeStep{merger: merger},
			serialize,
			&RecordLedgerStep{recorder: deps.Recorder},
			&ArchiveStep{archiver: deps.Archiver},
		),
		recorder: deps.Recorder,
	}
}

// Process runs doc through the pipeline for its kind. On error no account
// is returned.
func (s *Service) Process(ctx context.Context, doc *Document, status func(string)) (*domain.CanonicalAccount, error) {
	log := logger.FromContext(ctx).With().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Str("kind", string(doc.Kind)).
		Logger()
	ctx = logger.WithContext(ctx, log)

	p := s.text
	if doc.Kind == KindImage {
		p = s.image
	}

	state := &PipelineState{Document: doc, Status: status}
	start := time.Now()
	if err := p.Execute(ctx, state); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Statement processing failed")
		if state.RunID != "" {
			if ferr := s.recorder.FinishRun(context.WithoutCancel(ctx), state.RunID, err); ferr != nil {
				log.Warn().Err(ferr).Msg("Failed to mark run failed")
			}
		}
		return nil, err
	}

	log.Info().
		Int("windows", len(state.Windows)).
		Int("transactions", len(state.Account.Transactions)).
		Dur("elapsed", time.Since(start)).
		Msg("Statement processed")
	return state.Account, nil
}
