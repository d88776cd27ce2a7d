// Package stream reports the progress of a statement extraction as an ordered
// sequence of events: init, zero or more status, then exactly one terminal
// chunk or error.
package stream

import (
	"encoding/base64"
	"encoding/json"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/export"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

// EventType tags an event.
type EventType string

const (
	EventInit   EventType = "init"
	EventStatus EventType = "status"
	EventChunk  EventType = "chunk"
	EventError  EventType = "error"
)

// Terminal reports whether no event may follow one of this type.
func (t EventType) Terminal() bool {
	return t == EventChunk || t == EventError
}

// Event is one message of the stream.
type Event struct {
	Type     EventType        `json:"type"`
	Preview  string           `json:"preview,omitempty"`
	Text     string           `json:"text,omitempty"`
	Accounts []AccountPayload `json:"accounts,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// TransactionPayload is the wire form of a transaction.
type TransactionPayload struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
}

// AccountPayload is the wire form of a canonical account with its
// downloadable renditions.
type AccountPayload struct {
	AccountName          string               `json:"account_name"`
	AccountNumberPartial string               `json:"account_number_partial"`
	Currency             string               `json:"currency"`
	Transactions         []TransactionPayload `json:"transactions"`
	QBOContent           string               `json:"qbo_content"`
	CSVContent           string               `json:"csv_content"`
	SuggestedFilenameQBO string               `json:"suggested_filename_qbo"`
	SuggestedFilenameCSV string               `json:"suggested_filename_csv"`
}

// NewAccountPayload converts acct for the wire.
func NewAccountPayload(acct *domain.CanonicalAccount) (AccountPayload, error) {
	csvContent, err := export.CSV(acct)
	if err != nil {
		return AccountPayload{}, err
	}

	txs := make([]TransactionPayload, 0, len(acct.Transactions))
	for _, tx := range acct.Transactions {
		txs = append(txs, TransactionPayload{
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      json.Number(tx.Amount.StringFixed(2)),
			Type:        string(tx.Type),
		})
	}

	return AccountPayload{
		AccountName:          acct.Name,
		AccountNumberPartial: acct.NumberPartial,
		Currency:             acct.Currency,
		Transactions:         txs,
		QBOContent:           acct.Interchange,
		CSVContent:           csvContent,
		SuggestedFilenameQBO: export.SuggestedFilename(acct, export.FormatQBO),
		SuggestedFilenameCSV: export.SuggestedFilename(acct, export.FormatCSV),
	}, nil
}

// Preview returns a data URL that lets the client render the upload. Text
// documents have no visual preview.
func Preview(doc *pipeline.Document) string {
	if doc.Kind == pipeline.KindText {
		return ""
	}
	return "data:" + doc.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
}
