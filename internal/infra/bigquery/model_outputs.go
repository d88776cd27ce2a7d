package bigquery

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/statement-splitter/internal/extraction"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

type ModelOutputRow struct {
	OutputID     string `bigquery:"output_id"`      // REQUIRED
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED
	DocumentID   string `bigquery:"document_id"`    // REQUIRED
	WindowIndex  int64  `bigquery:"window_index"`   // REQUIRED

	ModelName string `bigquery:"model_name"` // NULLABLE

	// RawJSON holds the response when it is valid JSON, RawText otherwise.
	RawJSON bigquery.NullJSON   `bigquery:"raw_json"` // NULLABLE
	RawText bigquery.NullString `bigquery:"raw_text"` // NULLABLE

	AccountCount int64               `bigquery:"account_count"` // REQUIRED
	ElapsedMS    int64               `bigquery:"elapsed_ms"`    // REQUIRED
	Error        bigquery.NullString `bigquery:"error"`         // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newModelOutputRow(runID, documentID string, res pipeline.WindowResult) *ModelOutputRow {
	row := &ModelOutputRow{
		OutputID:     uuid.NewString(),
		ParsingRunID: runID,
		DocumentID:   documentID,
		WindowIndex:  int64(res.Index),
		ModelName:    res.Model,
		AccountCount: int64(len(res.Accounts)),
		ElapsedMS:    res.Elapsed.Milliseconds(),
		CreatedTS:    time.Now(),
	}

	if cleaned := extraction.CleanModelJSON(res.Raw); cleaned != "" && json.Valid([]byte(cleaned)) {
		row.RawJSON = bigquery.NullJSON{JSONVal: cleaned, Valid: true}
	} else if res.Raw != "" {
		row.RawText = bigquery.NullString{StringVal: res.Raw, Valid: true}
	}

	if res.Err != nil {
		row.Error = bigquery.NullString{StringVal: truncateError(res.Err), Valid: true}
	}

	return row
}
