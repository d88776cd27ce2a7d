package rules

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/ghodss/yaml"
)

// Account types understood by QBO importers.
const (
	AccountTypeChecking   = "CHECKING"
	AccountTypeSavings    = "SAVINGS"
	AccountTypeCreditLine = "CREDITLINE"
)

// AccountTypeRule maps account names containing any of Keywords to Type.
type AccountTypeRule struct {
	Type     string   `json:"type"`
	Keywords []string `json:"keywords"`
}

// Rules is the editable table that drives sanitization, identity resolution
// and account type inference.
type Rules struct {
	// Blacklist holds phrases that mark a line as a summary or balance row.
	Blacklist []string `json:"blacklist"`

	// GenericNames are account names that never win identity resolution.
	GenericNames []string `json:"generic_names"`

	// AccountTypes are checked in order; the first match wins.
	AccountTypes []AccountTypeRule `json:"account_types"`

	DefaultAccountType string `json:"default_account_type"`
}

// Default returns the built-in rule table.
func Default() *Rules {
	return &Rules{
		Blacklist: []string{
			// Portuguese statement summaries
			"SALDO INICIAL", "SALDO FINAL", "SALDO DISPONIVEL",
			"A TRANSPORTAR", "TRANSPORTE", "TOTAL", "CARTOES",
			"PAGAMENTO DE VENCIMENTO", "RESUMO",

			// English statement summaries
			"OPENING BALANCE", "CLOSING BALANCE", "BALANCE FORWARD",
			"NEW BALANCE", "PREVIOUS BALANCE", "AVAILABLE CREDIT",
			"PAYMENT DUE", "AMOUNT DUE", "TOTAL DUE",
			"PAYMENT, CREDITS", "PURCHASES", "CASH ADVANCES",
			"INTEREST CHARGED", "FEES CHARGED", "TOTAL OF PAYMENTS",
			"BEGINNING BALANCE", "ENDING BALANCE", "TOTAL DEPOSITS",
			"TOTAL WITHDRAWALS", "NET DEPOSITS", "GROSS WITHDRAWALS",

			// Credit line disclosures
			"CREDIT LIMIT", "CASH ACCESS LINE", "PAST DUE AMOUNT",
			"BALANCE OVER THE CREDIT LIMIT", "ANNUAL PERCENTAGE RATE",
			"DAYS IN BILLING PERIOD", "AVERAGE DAILY BALANCE",
		},
		GenericNames: []string{"account", "main account", "unknown", "string"},
		AccountTypes: []AccountTypeRule{
			{Type: AccountTypeCreditLine, Keywords: []string{"credit", "card"}},
			{Type: AccountTypeSavings, Keywords: []string{"saving"}},
		},
		DefaultAccountType: AccountTypeChecking,
	}
}

// Load reads a YAML rule file and fills every section it leaves empty from
// the built-in defaults. An empty path returns the defaults.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: reading rules file %q: %w", path, err)
	}

	return Parse(raw)
}

// Parse decodes a YAML rule table and merges it over the defaults.
func Parse(raw []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("Parse: decoding rules: %w", err)
	}

	if err := mergo.Merge(&r, Default()); err != nil {
		return nil, fmt.Errorf("Parse: merging defaults: %w", err)
	}

	return &r, nil
}

// NormalizeDescription returns the form of a description used for matching.
func NormalizeDescription(desc string) string {
	return strings.ToUpper(strings.TrimSpace(desc))
}

// IsBlacklisted reports whether the description contains any blacklisted phrase.
func (r *Rules) IsBlacklisted(desc string) bool {
	norm := NormalizeDescription(desc)
	if norm == "" {
		return false
	}
	for _, phrase := range r.Blacklist {
		if p := NormalizeDescription(phrase); p != "" && strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// IsGenericName reports whether name is a placeholder rather than a real
// account name. Comparison ignores case and surrounding whitespace.
func (r *Rules) IsGenericName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, g := range r.GenericNames {
		if n == strings.ToLower(strings.TrimSpace(g)) {
			return true
		}
	}
	return false
}

// AccountType infers the account type from the account name.
func (r *Rules) AccountType(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range r.AccountTypes {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Type
			}
		}
	}
	if r.DefaultAccountType == "" {
		return AccountTypeChecking
	}
	return r.DefaultAccountType
}
