package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

const (
	documentsTable    = "documents"
	parsingRunsTable  = "parsing_runs"
	modelOutputsTable = "model_outputs"
	transactionsTable = "transactions"
)

// Repository records statement runs in BigQuery. It holds a shared client
// to avoid creating a new connection for each operation.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	// ParserType is written to every parsing run, e.g. "gemini" or "openai".
	ParserType string
}

// NewRepository creates a repository for the given project and dataset.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) *bigquery.Table {
	return r.client.DatasetInProject(r.projectID, r.datasetID).Table(name)
}

// tableRef is the quoted table name used in DML.
func (r *Repository) tableRef(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.projectID, r.datasetID, name)
}

// runQuery runs a DML statement and waits for it to finish.
func (r *Repository) runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// StartRun registers the document and opens a parsing run for it.
func (r *Repository) StartRun(ctx context.Context, doc *pipeline.Document) (string, error) {
	if err := r.InsertDocument(ctx, newDocumentRow(doc)); err != nil {
		return "", err
	}
	return r.StartParsingRun(ctx, doc.ID, r.ParserType)
}

// RecordWindow stores the raw model output of one window.
func (r *Repository) RecordWindow(ctx context.Context, runID string, doc *pipeline.Document, result pipeline.WindowResult) error {
	return r.InsertModelOutput(ctx, newModelOutputRow(runID, doc.ID, result))
}

// RecordLedger stores the canonical transactions of a run.
func (r *Repository) RecordLedger(ctx context.Context, runID string, doc *pipeline.Document, account *domain.CanonicalAccount) error {
	return r.InsertTransactions(ctx, newTransactionRows(runID, doc.ID, account))
}

// FinishRun closes a parsing run as succeeded, or failed when runErr is set.
func (r *Repository) FinishRun(ctx context.Context, runID string, runErr error) error {
	if runErr != nil {
		return r.MarkParsingRunFailed(ctx, runID, runErr)
	}
	return r.MarkParsingRunSucceeded(ctx, runID)
}

var _ pipeline.Recorder = (*Repository)(nil)
