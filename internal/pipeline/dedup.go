package pipeline

import "github.com/dvloznov/statement-splitter/internal/domain"

// Flatten concatenates the transactions of every candidate, keeping order.
func Flatten(candidates []domain.CandidateAccount) []domain.Transaction {
	n := 0
	for _, c := range candidates {
		n += len(c.Transactions)
	}

	out := make([]domain.Transaction, 0, n)
	for _, c := range candidates {
		out = append(out, c.Transactions...)
	}
	return out
}

// Deduplicate drops every transaction whose signature was already seen and
// keeps the first occurrence. Overlapping windows report the same rows twice.
func Deduplicate(txs []domain.Transaction) []domain.Transaction {
	seen := make(map[domain.Signature]struct{}, len(txs))
	out := make([]domain.Transaction, 0, len(txs))
	for _, t := range txs {
		sig := t.Signature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, t)
	}
	return out
}
