package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-splitter/internal/domain"
)

func testAccount() *domain.CanonicalAccount {
	return &domain.CanonicalAccount{
		Name:          "Chase Checking",
		NumberPartial: "3456",
		Currency:      "USD",
		Transactions: []domain.Transaction{
			{Date: "2024-01-02", Description: "Walmart, Store", Amount: decimal.RequireFromString("-50"), Type: domain.TxnDebit},
			{Date: "2024-01-03", Description: `Refund "A"`, Amount: decimal.RequireFromString("12.5"), Type: domain.TxnCredit},
		},
		Interchange: "OFXHEADER:100",
	}
}

func TestCSV(t *testing.T) {
	got, err := CSV(testAccount())
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	want := "Date,Description,Amount,Type\n" +
		"2024-01-02,\"Walmart, Store\",-50.00,debit\n" +
		"2024-01-03,\"Refund \"\"A\"\"\",12.50,credit\n"
	if got != want {
		t.Errorf("CSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(testAccount())
	if err != nil {
		t.Fatalf("XLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][3] != "Type" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "Walmart, Store" || rows[1][2] != "-50" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][2] != "12.5" {
		t.Errorf("row 2 amount = %q", rows[2][2])
	}
}

func TestSuggestedFilename(t *testing.T) {
	tests := []struct {
		name   string
		number string
		format string
		want   string
	}{
		{"Chase Checking", "3456", FormatQBO, "Chase_Checking_3456.qbo"},
		{"Conta à Ordem / Principal", "12", FormatCSV, "Conta_Ordem_Principal_12.csv"},
		{"  ", "", FormatXLSX, "Account.xlsx"},
	}

	for _, tt := range tests {
		acct := &domain.CanonicalAccount{Name: tt.name, NumberPartial: tt.number}
		if got := SuggestedFilename(acct, tt.format); got != tt.want {
			t.Errorf("SuggestedFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	acct := testAccount()

	q, err := Render(acct, FormatQBO)
	if err != nil || string(q) != "OFXHEADER:100" {
		t.Errorf("Render(qbo) = %q, %v", q, err)
	}
	if _, err := Render(acct, "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}
