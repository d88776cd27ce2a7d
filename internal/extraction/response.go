package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// RawResponse is the extraction payload as the model produced it. Every field
// is optional; Candidates turns it into strict domain values.
type RawResponse struct {
	Accounts []RawAccount `json:"accounts"`
}

// RawAccount is one account block of a RawResponse.
type RawAccount struct {
	AccountName          *string          `json:"account_name"`
	AccountNumberPartial FlexString       `json:"account_number_partial"`
	Currency             *string          `json:"currency"`
	Transactions         []RawTransaction `json:"transactions"`
}

// RawTransaction is one statement line of a RawAccount.
type RawTransaction struct {
	Date        *string    `json:"date"`
	Description *string    `json:"description"`
	Amount      FlexNumber `json:"amount"`
	Type        *string    `json:"type"`
}

// FlexString accepts a JSON string or number. Models return account numbers
// in either form.
type FlexString struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexString{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString{Value: s, Valid: true}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("FlexString: expected string or number, got %s", data)
	}
	*f = FlexString{Value: n.String(), Valid: true}
	return nil
}

// FlexNumber accepts a JSON number or a formatted amount string such as
// "1.234,56", "(42.50)" or "€ 12,00". Unparseable values leave Valid false.
type FlexNumber struct {
	Value decimal.Decimal
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FlexNumber{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if d, err := ParseAmount(s); err == nil {
			*f = FlexNumber{Value: d, Valid: true}
		}
		return nil
	}

	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return nil
	}
	*f = FlexNumber{Value: d, Valid: true}
	return nil
}

// ParseAmount parses a human formatted amount. Both "1,234.56" and "1.234,56"
// are understood; the right-most separator followed by at most two digits is
// taken as the decimal point.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("ParseAmount: empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case r == '-':
			negative = !negative
		case r == '+', unicode.IsSpace(r), unicode.IsLetter(r), unicode.Is(unicode.Sc, r):
		default:
			return decimal.Zero, fmt.Errorf("ParseAmount: unexpected character %q in %q", r, s)
		}
	}

	digits := normalizeSeparators(b.String())
	if digits == "" {
		return decimal.Zero, fmt.Errorf("ParseAmount: no digits in %q", s)
	}

	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %w", err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites s to use '.' as the only decimal separator and
// drops thousands separators.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	decimalSep := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalSep = max(lastDot, lastComma)
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			decimalSep = lastComma
		}
	case lastDot >= 0:
		if strings.Count(s, ".") == 1 {
			decimalSep = lastDot
		}
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case i == decimalSep:
			b.WriteByte('.')
		case r == '.' || r == ',':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
