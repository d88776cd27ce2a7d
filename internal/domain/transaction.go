package domain

import (
	"github.com/shopspring/decimal"
)

// TxnType is the direction of a statement line as reported by the statement.
type TxnType string

const (
	TxnCredit TxnType = "credit"
	TxnDebit  TxnType = "debit"
)

// signaturePrefixLen is the number of description characters that take part
// in a transaction signature.
const signaturePrefixLen = 20

// Transaction is one statement line after it has been validated out of the
// extraction response. Date is kept as the ISO-8601 text the statement
// produced so that malformed dates survive until serialization.
type Transaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Type        TxnType
}

// Signature identifies a transaction for deduplication across overlapping
// windows. Two transactions with equal signatures are the same real-world line.
type Signature struct {
	Date   string
	Amount string
	Prefix string
}

// Signature returns the deduplication key of t.
func (t Transaction) Signature() Signature {
	prefix := []rune(t.Description)
	if len(prefix) > signaturePrefixLen {
		prefix = prefix[:signaturePrefixLen]
	}
	return Signature{
		Date:   t.Date,
		Amount: t.Amount.String(),
		Prefix: string(prefix),
	}
}
