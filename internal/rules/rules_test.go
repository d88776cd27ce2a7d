package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsBlacklisted(t *testing.T) {
	r := Default()

	tests := []struct {
		desc string
		want bool
	}{
		{"  Saldo Inicial  ", true},
		{"opening balance 01/01", true},
		{"TOTAL DUE THIS MONTH", true},
		{"Payment, Credits and adjustments", true},
		{"STARBUCKS STORE 1234", false},
		{"WALMART SUPERCENTER", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := r.IsBlacklisted(tt.desc); got != tt.want {
				t.Errorf("IsBlacklisted(%q) = %v, want %v", tt.desc, got, tt.want)
			}
		})
	}
}

func TestIsGenericName(t *testing.T) {
	r := Default()

	for _, name := range []string{"Account", " MAIN ACCOUNT ", "unknown", "String"} {
		if !r.IsGenericName(name) {
			t.Errorf("IsGenericName(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"Chase Checking", "Accounts Payable", ""} {
		if r.IsGenericName(name) {
			t.Errorf("IsGenericName(%q) = true, want false", name)
		}
	}
}

func TestAccountType(t *testing.T) {
	r := Default()

	tests := []struct {
		name string
		want string
	}{
		{"Platinum Rewards Card", AccountTypeCreditLine},
		{"Visa Credit", AccountTypeCreditLine},
		{"High Yield Savings", AccountTypeSavings},
		{"Business Checking", AccountTypeChecking},
		{"Account", AccountTypeChecking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.AccountType(tt.name); got != tt.want {
				t.Errorf("AccountType(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestParse_MergesDefaults(t *testing.T) {
	raw := []byte(`
blacklist:
  - SUBTOTAL
account_types:
  - type: SAVINGS
    keywords: [poupanca]
`)

	r, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(r.Blacklist) != 1 || r.Blacklist[0] != "SUBTOTAL" {
		t.Errorf("Blacklist = %v, want [SUBTOTAL]", r.Blacklist)
	}
	if !r.IsGenericName("unknown") {
		t.Error("expected default generic names to be kept")
	}
	if got := r.AccountType("Conta Poupanca"); got != AccountTypeSavings {
		t.Errorf("AccountType = %q, want %q", got, AccountTypeSavings)
	}
	if r.DefaultAccountType != AccountTypeChecking {
		t.Errorf("DefaultAccountType = %q, want %q", r.DefaultAccountType, AccountTypeChecking)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		r, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(r.Blacklist) != len(Default().Blacklist) {
			t.Errorf("Blacklist has %d entries, want %d", len(r.Blacklist), len(Default().Blacklist))
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte("generic_names: [conta]\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		r, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !r.IsGenericName("Conta") {
			t.Error("expected generic name from file")
		}
		if r.IsGenericName("unknown") {
			t.Error("file section should replace the default generic names")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
