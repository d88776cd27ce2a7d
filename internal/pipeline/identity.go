package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

// Currency policy modes.
const (
	CurrencyFixed     = "fixed"
	CurrencyFirstSeen = "first-seen"
)

// CurrencyPolicy decides the currency of the merged account.
type CurrencyPolicy struct {
	// Mode is CurrencyFixed or CurrencyFirstSeen.
	Mode string
	// Default is the fixed currency, and the fallback for first-seen.
	Default string
}

func (p CurrencyPolicy) fallback() string {
	if c := strings.ToUpper(strings.TrimSpace(p.Default)); c != "" {
		return c
	}
	return DefaultCurrency
}

// Identity is the name, number and currency of the merged account.
type Identity struct {
	Name     string
	Number   string
	Currency string
}

// ResolveIdentity picks the dominant identity across all candidates: the
// longest non generic name, the longest digit run, and the currency chosen by
// policy. Ties go to the candidate seen first.
func ResolveIdentity(candidates []domain.CandidateAccount, r *rules.Rules, policy CurrencyPolicy) Identity {
	id := Identity{
		Name:     DefaultAccountName,
		Number:   DefaultAccountNumber,
		Currency: policy.fallback(),
	}

	bestName := ""
	bestNumber := ""
	firstCurrency := ""
	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name != "" && !r.IsGenericName(name) && utf8.RuneCountInString(name) > utf8.RuneCountInString(bestName) {
			bestName = name
		}

		if digits := Digits(c.NumberPartial); len(digits) > len(bestNumber) {
			bestNumber = digits
		}

		if firstCurrency == "" && c.Currency != "" {
			firstCurrency = strings.ToUpper(c.Currency)
		}
	}

	if bestName != "" {
		id.Name = bestName
	}
	if bestNumber != "" {
		id.Number = bestNumber
	}
	if policy.Mode == CurrencyFirstSeen && firstCurrency != "" {
		id.Currency = firstCurrency
	}

	return id
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
