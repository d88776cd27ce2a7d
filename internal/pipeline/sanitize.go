package pipeline

import (
	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

// Sanitize removes non-transaction rows and makes the amount sign agree with
// the type: debits are never positive and credits never negative.
func Sanitize(txs []domain.Transaction, r *rules.Rules) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Amount.IsZero() || r.IsBlacklisted(t.Description) {
			continue
		}

		switch t.Type {
		case domain.TxnDebit:
			if t.Amount.IsPositive() {
				t.Amount = t.Amount.Neg()
			}
		case domain.TxnCredit:
			if t.Amount.IsNegative() {
				t.Amount = t.Amount.Abs()
			}
		}
		out = append(out, t)
	}
	return out
}
