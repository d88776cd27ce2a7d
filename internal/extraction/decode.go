package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dvloznov/statement-splitter/internal/domain"
)

// ErrMalformedResponse is returned when the model output is not a usable
// extraction payload.
var ErrMalformedResponse = errors.New("malformed extraction response")

// Result is what one extraction call produced.
type Result struct {
	Accounts []domain.CandidateAccount

	// Raw is the model text as received, kept for run recording.
	Raw   string
	Model string
}

// Decode cleans, validates and decodes a model response.
func Decode(raw string) (*RawResponse, error) {
	clean := CleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("Decode: empty response: %w", ErrMalformedResponse)
	}

	var generic any
	if err := json.Unmarshal([]byte(clean), &generic); err != nil {
		return nil, fmt.Errorf("Decode: unmarshal JSON: %v: %w", err, ErrMalformedResponse)
	}
	if err := validateShape(generic); err != nil {
		return nil, fmt.Errorf("Decode: %v: %w", err, ErrMalformedResponse)
	}

	var resp RawResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return nil, fmt.Errorf("Decode: unmarshal response: %v: %w", err, ErrMalformedResponse)
	}
	return &resp, nil
}

// Parse decodes a model response straight into candidate accounts.
func Parse(raw string) ([]domain.CandidateAccount, error) {
	resp, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return Candidates(resp), nil
}

// CleanModelJSON strips Markdown fences and any chatter around the JSON object.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return strings.TrimSpace(s)
}

// Candidates converts a decoded response into strict domain values. Missing
// or unparseable amounts become zero so the sanitizer drops them.
func Candidates(resp *RawResponse) []domain.CandidateAccount {
	if resp == nil {
		return nil
	}

	accounts := make([]domain.CandidateAccount, 0, len(resp.Accounts))
	for _, ra := range resp.Accounts {
		acc := domain.CandidateAccount{
			Name:          strings.TrimSpace(deref(ra.AccountName)),
			NumberPartial: strings.TrimSpace(ra.AccountNumberPartial.Value),
			Currency:      normalizeCurrency(deref(ra.Currency)),
		}

		for _, rt := range ra.Transactions {
			tx := domain.Transaction{
				Date:        strings.TrimSpace(deref(rt.Date)),
				Description: strings.TrimSpace(deref(rt.Description)),
			}
			if rt.Amount.Valid {
				tx.Amount = rt.Amount.Value
			}
			tx.Type = normalizeType(rt.Type, tx)
			acc.Transactions = append(acc.Transactions, tx)
		}

		accounts = append(accounts, acc)
	}
	return accounts
}

// normalizeType maps the free-form type field onto credit or debit. A missing
// type means debit; an unrecognized one follows the sign of the amount.
func normalizeType(raw *string, tx domain.Transaction) domain.TxnType {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return domain.TxnDebit
	}

	t := strings.ToLower(*raw)
	switch {
	case strings.Contains(t, "debit"):
		return domain.TxnDebit
	case strings.Contains(t, "credit"):
		return domain.TxnCredit
	case tx.Amount.IsNegative():
		return domain.TxnDebit
	default:
		return domain.TxnCredit
	}
}

func normalizeCurrency(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if len(c) != 3 {
		return ""
	}
	for _, r := range c {
		if !unicode.IsLetter(r) {
			return ""
		}
	}
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
