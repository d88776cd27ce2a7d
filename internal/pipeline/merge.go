package pipeline

import (
	"slices"
	"strings"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

// Merger folds per-window candidates into a single canonical account.
type Merger struct {
	rules    *rules.Rules
	currency CurrencyPolicy
}

// NewMerger creates a merger. A nil rule set means rules.Default().
func NewMerger(r *rules.Rules, policy CurrencyPolicy) *Merger {
	if r == nil {
		r = rules.Default()
	}
	return &Merger{rules: r, currency: policy}
}

// Merge collects the candidates of every result in window order and merges
// them. Failed windows contribute nothing.
func (m *Merger) Merge(results []WindowResult) *domain.CanonicalAccount {
	var candidates []domain.CandidateAccount
	for _, res := range results {
		candidates = append(candidates, res.Accounts...)
	}
	return m.MergeCandidates(candidates)
}

// MergeCandidates resolves the identity, then flattens, deduplicates,
// sanitizes and sorts the transactions by date. Rows with the same date keep
// their relative order. The result is never nil, even with no candidates.
func (m *Merger) MergeCandidates(candidates []domain.CandidateAccount) *domain.CanonicalAccount {
	id := ResolveIdentity(candidates, m.rules, m.currency)

	txs := Sanitize(Deduplicate(Flatten(candidates)), m.rules)
	slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
		return strings.Compare(a.Date, b.Date)
	})

	return &domain.CanonicalAccount{
		Name:          id.Name,
		NumberPartial: id.Number,
		Currency:      id.Currency,
		Transactions:  txs,
	}
}
