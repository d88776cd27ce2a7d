package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// StartParsingRun inserts a new parsing run with status=RUNNING and returns
// the generated parsing_run_id.
func (r *Repository) StartParsingRun(ctx context.Context, documentID, parserType string) (string, error) {
	parsingRunID := uuid.NewString()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s (
			parsing_run_id,
			document_id,
			started_ts,
			parser_type,
			parser_version,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@parser_version,
			@status
		)
	`, r.tableRef(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "parser_type", Value: parserType},
		{Name: "parser_version", Value: parserVersion},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := r.runQuery(ctx, q); err != nil {
		return "", fmt.Errorf("StartParsingRun: %w", err)
	}
	return parsingRunID, nil
}

// MarkParsingRunFailed sets status=FAILED, finished_ts and error_message.
func (r *Repository) MarkParsingRunFailed(ctx context.Context, parsingRunID string, runErr error) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`, r.tableRef(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := r.runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkParsingRunFailed: %w", err)
	}
	return nil
}

// MarkParsingRunSucceeded sets status=SUCCESS and finished_ts, clears error_message.
func (r *Repository) MarkParsingRunSucceeded(ctx context.Context, parsingRunID string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = ""
		WHERE parsing_run_id = @parsing_run_id
	`, r.tableRef(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := r.runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkParsingRunSucceeded: %w", err)
	}
	return nil
}

// ListParsingRuns returns the most recent runs, newest first. An empty
// documentID lists runs of every document.
func (r *Repository) ListParsingRuns(ctx context.Context, documentID string, limit int) ([]*ParsingRunRow, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT
			parsing_run_id,
			document_id,
			started_ts,
			finished_ts,
			parser_type,
			parser_version,
			status,
			error_message
		FROM %s
		WHERE @document_id = "" OR document_id = @document_id
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.tableRef(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListParsingRuns: reading query: %w", err)
	}

	var runs []*ParsingRunRow
	for {
		var row ParsingRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListParsingRuns: iterating: %w", err)
		}
		runs = append(runs, &row)
	}

	return runs, nil
}
