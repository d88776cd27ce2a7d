package bigquery

import (
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/qbo"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED, the QBO FITID

	DocumentID   string `bigquery:"document_id"`    // REQUIRED
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED

	AccountName   string `bigquery:"account_name"`   // REQUIRED
	AccountNumber string `bigquery:"account_number"` // REQUIRED

	// TransactionDate is NULL when the statement date is not ISO-8601;
	// RawDate always keeps what the statement said.
	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE
	RawDate         string            `bigquery:"raw_date"`         // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	Direction string `bigquery:"direction"` // REQUIRED, credit or debit

	RawDescription string `bigquery:"raw_description"` // REQUIRED STRING

	LineNo int64 `bigquery:"line_no"` // REQUIRED, position in the ledger

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newTransactionRows(runID, documentID string, acct *domain.CanonicalAccount) []*TransactionRow {
	now := time.Now()
	rows := make([]*TransactionRow, 0, len(acct.Transactions))
	for i, tx := range acct.Transactions {
		row := &TransactionRow{
			TransactionID:  qbo.FITID(tx),
			DocumentID:     documentID,
			ParsingRunID:   runID,
			AccountName:    acct.Name,
			AccountNumber:  acct.NumberPartial,
			RawDate:        tx.Date,
			Amount:         tx.Amount.Rat(),
			Currency:       acct.Currency,
			Direction:      string(tx.Type),
			RawDescription: tx.Description,
			LineNo:         int64(i + 1),
			CreatedTS:      now,
		}
		if d, err := civil.ParseDate(strings.TrimSpace(tx.Date)); err == nil {
			row.TransactionDate = bigquery.NullDate{Date: d, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}
