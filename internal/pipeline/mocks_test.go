package pipeline

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/extraction"
)

type mockExtractor struct {
	ExtractWindowFunc func(ctx context.Context, window string, index int) (*extraction.Result, error)
}

func (m *mockExtractor) ExtractWindow(ctx context.Context, window string, index int) (*extraction.Result, error) {
	if m.ExtractWindowFunc != nil {
		return m.ExtractWindowFunc(ctx, window, index)
	}
	return &extraction.Result{}, nil
}

type mockImageExtractor struct {
	ExtractImageFunc func(ctx context.Context, data []byte, mimeType string) (*extraction.Result, error)
}

func (m *mockImageExtractor) ExtractImage(ctx context.Context, data []byte, mimeType string) (*extraction.Result, error) {
	if m.ExtractImageFunc != nil {
		return m.ExtractImageFunc(ctx, data, mimeType)
	}
	return &extraction.Result{}, nil
}

type mockConverter struct {
	ConvertFunc func(ctx context.Context, data []byte, mimeType string) (string, error)
}

func (m *mockConverter) Convert(ctx context.Context, data []byte, mimeType string) (string, error) {
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, data, mimeType)
	}
	return "", errors.New("Convert not mocked")
}

type mockRecorder struct {
	StartRunFunc     func(ctx context.Context, doc *Document) (string, error)
	RecordWindowFunc func(ctx context.Context, runID string, doc *Document, result WindowResult) error
	RecordLedgerFunc func(ctx context.Context, runID string, doc *Document, account *domain.CanonicalAccount) error
	FinishRunFunc    func(ctx context.Context, runID string, runErr error) error
}

func (m *mockRecorder) StartRun(ctx context.Context, doc *Document) (string, error) {
	if m.StartRunFunc != nil {
		return m.StartRunFunc(ctx, doc)
	}
	return "run-1", nil
}

func (m *mockRecorder) RecordWindow(ctx context.Context, runID string, doc *Document, result WindowResult) error {
	if m.RecordWindowFunc != nil {
		return m.RecordWindowFunc(ctx, runID, doc, result)
	}
	return nil
}

func (m *mockRecorder) RecordLedger(ctx context.Context, runID string, doc *Document, account *domain.CanonicalAccount) error {
	if m.RecordLedgerFunc != nil {
		return m.RecordLedgerFunc(ctx, runID, doc, account)
	}
	return nil
}

func (m *mockRecorder) FinishRun(ctx context.Context, runID string, runErr error) error {
	if m.FinishRunFunc != nil {
		return m.FinishRunFunc(ctx, runID, runErr)
	}
	return nil
}

func tx(date, desc, amount string, typ domain.TxnType) domain.Transaction {
	return domain.Transaction{
		Date:        date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
	}
}
