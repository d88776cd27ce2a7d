package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-splitter/internal/logger"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

// Fetcher downloads documents referenced by URI.
type Fetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// NewExtractHandler returns a handler that runs statement jobs through proc
// and records progress in store. store may be nil; fetch may be nil when no
// job references object storage.
func NewExtractHandler(proc pipeline.Processor, store JobStore, fetch Fetcher) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*ExtractStatementJob)
		if !ok {
			return fmt.Errorf("ExtractHandler: unexpected job type %s: %w", job.GetType(), ErrPermanent)
		}

		log := logger.FromContext(ctx).With().Str("job_id", j.JobID).Logger()
		ctx = logger.WithContext(ctx, log)

		data := j.Data
		if len(data) == 0 && j.GCSURI != "" {
			if fetch == nil {
				return fmt.Errorf("ExtractHandler: no fetcher for %s: %w", j.GCSURI, ErrPermanent)
			}
			var err error
			data, err = fetch.FetchFromGCS(ctx, j.GCSURI)
			if err != nil {
				return fmt.Errorf("ExtractHandler: %w", err)
			}
		}

		doc, err := pipeline.NewDocument(j.Filename, j.MIMEType, data)
		if err != nil {
			return fmt.Errorf("ExtractHandler: %w: %w", ErrPermanent, err)
		}
		if j.DocumentID != "" {
			doc.ID = j.DocumentID
		} else {
			j.DocumentID = doc.ID
		}
		doc.SourceURI = j.GCSURI

		j.Progress = nil
		acct, err := proc.Process(ctx, doc, func(text string) {
			j.Progress = append(j.Progress, text)
			if store == nil {
				return
			}
			if err := store.SaveJob(ctx, j); err != nil {
				log.Warn().Err(err).Msg("Failed to record job progress")
			}
		})
		if err != nil {
			if errors.Is(err, pipeline.ErrUnsupportedInput) {
				return fmt.Errorf("ExtractHandler: %w: %w", ErrPermanent, err)
			}
			return fmt.Errorf("ExtractHandler: %w", err)
		}

		j.Account = acct
		j.Result = &ResultSummary{
			AccountName:          acct.Name,
			AccountNumberPartial: acct.NumberPartial,
			Currency:             acct.Currency,
			TransactionCount:     len(acct.Transactions),
		}
		return nil
	}
}
