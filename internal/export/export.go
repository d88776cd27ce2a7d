// Package export renders a canonical account in spreadsheet formats.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-splitter/internal/domain"
)

// Formats accepted by Render.
const (
	FormatQBO  = "qbo"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentTypes maps formats to the Content-Type they are served with.
var ContentTypes = map[string]string{
	FormatQBO:  "application/vnd.intu.qbo",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var header = []string{"Date", "Description", "Amount", "Type"}

const sheetName = "Transactions"

// CSV returns the transactions as comma separated values with a header row.
func CSV(acct *domain.CanonicalAccount) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("CSV: writing header: %w", err)
	}
	for _, tx := range acct.Transactions {
		if err := w.Write(row(tx)); err != nil {
			return "", fmt.Errorf("CSV: writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("CSV: flushing: %w", err)
	}
	return buf.String(), nil
}

func row(tx domain.Transaction) []string {
	return []string{tx.Date, tx.Description, tx.Amount.StringFixed(2), string(tx.Type)}
}

// XLSX returns a workbook with one sheet of transactions. Amounts are stored
// as numbers so that spreadsheet formulas work on them.
func XLSX(acct *domain.CanonicalAccount) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("XLSX: naming sheet: %w", err)
	}

	for col, h := range header {
		if err := setCell(f, col+1, 1, h); err != nil {
			return nil, fmt.Errorf("XLSX: writing header: %w", err)
		}
	}

	for i, tx := range acct.Transactions {
		r := i + 2
		amount, _ := tx.Amount.Round(2).Float64()
		values := []any{tx.Date, tx.Description, amount, string(tx.Type)}
		for col, v := range values {
			if err := setCell(f, col+1, r, v); err != nil {
				return nil, fmt.Errorf("XLSX: writing row %d: %w", r, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "B", "B", 48); err != nil {
		return nil, fmt.Errorf("XLSX: sizing columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("XLSX: encoding workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, cell, v)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// SuggestedFilename builds a download name like Chase_Checking_3456.qbo.
func SuggestedFilename(acct *domain.CanonicalAccount, format string) string {
	name := unsafeFilename.ReplaceAllString(strings.TrimSpace(acct.Name), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "Account"
	}
	if acct.NumberPartial != "" {
		name += "_" + acct.NumberPartial
	}
	return name + "." + format
}

// Render returns the account in the requested format.
func Render(acct *domain.CanonicalAccount, format string) ([]byte, error) {
	switch format {
	case FormatQBO:
		return []byte(acct.Interchange), nil
	case FormatCSV:
		s, err := CSV(acct)
		return []byte(s), err
	case FormatXLSX:
		return XLSX(acct)
	default:
		return nil, fmt.Errorf("Render: unknown format %q", format)
	}
}
