// Package qbo renders a canonical account as a QuickBooks Web Connect (.qbo)
// file, which is OFX 1.02 SGML with Intuit's bank id extension.
package qbo

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cespare/xxhash/v2"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/rules"
)

const header = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE
`

const timestampSuffix = "000000"

// emptyRangeDate is DTSTART and DTEND of a ledger with no transactions.
const emptyRangeDate = "19700101" + timestampSuffix

// DefaultBankID is accepted by every QuickBooks edition.
const DefaultBankID = "3000"

// Options controls the parts of the file that do not come from the account.
type Options struct {
	BankID string
	// SignOn is written to DTSERVER. It is the only time-dependent field.
	SignOn time.Time
	// Rules decides the account type. Nil means rules.Default().
	Rules *rules.Rules
}

// Render returns the QBO text for acct.
func Render(acct *domain.CanonicalAccount, opts Options) string {
	if opts.BankID == "" {
		opts.BankID = DefaultBankID
	}
	if opts.Rules == nil {
		opts.Rules = rules.Default()
	}
	if opts.SignOn.IsZero() {
		opts.SignOn = time.Now()
	}

	signOn := opts.SignOn.Format("20060102150405")
	start, end := statementRange(acct.Transactions)

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, `<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>%s
<LANGUAGE>ENG
<INTU.BID>%s
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>%s
<BANKACCTFROM>
<BANKID>%s
<ACCTID>%s
<ACCTTYPE>%s
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>%s
<DTEND>%s
`, signOn, opts.BankID, acct.Currency, opts.BankID, acct.NumberPartial, opts.Rules.AccountType(acct.Name), start, end)

	for _, tx := range acct.Transactions {
		writeTransaction(&b, tx)
	}

	fmt.Fprintf(&b, `</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>0.00
<DTASOF>%s
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`, end)

	return b.String()
}

func writeTransaction(b *strings.Builder, tx domain.Transaction) {
	trnType := "CREDIT"
	if tx.Amount.IsNegative() {
		trnType = "DEBIT"
	}

	name := tx.Description
	if strings.TrimSpace(name) == "" {
		name = "Unknown"
	}

	fmt.Fprintf(b, `<STMTTRN>
<TRNTYPE>%s
<DTPOSTED>%s
<TRNAMT>%s
<FITID>%s
<NAME>%s
</STMTTRN>
`, trnType, FormatDate(tx.Date), tx.Amount.StringFixed(2), FITID(tx), EscapeText(name))
}

// statementRange returns DTSTART and DTEND. Dates compare as ISO text, so
// the range of a ledger with malformed dates is approximate. An empty ledger
// gets a fixed range so its output does not depend on the sign-on time.
func statementRange(txs []domain.Transaction) (string, string) {
	if len(txs) == 0 {
		return emptyRangeDate, emptyRangeDate
	}

	first, last := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date < first {
			first = tx.Date
		}
		if tx.Date > last {
			last = tx.Date
		}
	}
	return FormatDate(first), FormatDate(last)
}

// FormatDate turns an ISO-8601 date into YYYYMMDD000000. Anything else has
// its separators stripped and the time suffix appended.
func FormatDate(date string) string {
	d, err := civil.ParseDate(strings.TrimSpace(date))
	if err == nil {
		return fmt.Sprintf("%04d%02d%02d%s", d.Year, int(d.Month), d.Day, timestampSuffix)
	}

	stripped := strings.NewReplacer("-", "", "/", "", ".", "", " ", "").Replace(date)
	return stripped + timestampSuffix
}

// FITID is a stable identifier for tx so that QuickBooks skips it when the
// same statement is imported twice. It is a content hash, not a secret.
func FITID(tx domain.Transaction) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(tx.Date+tx.Amount.StringFixed(2)+tx.Description))
}

// EscapeText escapes the one character OFX SGML cannot carry literally.
func EscapeText(s string) string {
	return strings.ReplaceAll(s, "&", "&amp;")
}
