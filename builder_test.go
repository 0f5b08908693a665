package ledgerline

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func buildGroup(t *testing.T, rows ...SourceRow) (*Transaction, error) {
	t.Helper()
	groups := GroupRows(rows, testInst)
	if len(groups) != 1 {
		t.Fatalf("rows form %d groups, want 1", len(groups))
	}
	b := &Builder{Institution: testInst, Resolver: NewAssetRegistry(), Currency: "USD"}
	return b.Build(groups[0])
}

func TestBuildBuyWithSettlement(t *testing.T) {
	tx, err := buildGroup(t,
		testRow(1, "01/15/2025", "BOUGHT SPY", "SPY", "4", "", ""),
		testRow(2, "01/15/2025", "", "", "", "-2019.24", "142199.02"),
	)
	if err != nil {
		t.Fatal(err)
	}

	if tx.Class != ClassBuy {
		t.Errorf("class = %s, want %s", tx.Class, ClassBuy)
	}
	if got, want := len(tx.Entries), 2; got != want {
		t.Fatalf("entries = %d, want %d", got, want)
	}
	asset, cash := tx.Entries[0], tx.Entries[1]
	if asset.Class != AccountAsset || asset.Account != "Securities:SPY" {
		t.Errorf("first leg = %s %q, want asset Securities:SPY", asset.Class, asset.Account)
	}
	if got := asset.Debit.String(); got != "$2,019.24" {
		t.Errorf("asset debit = %s, want $2,019.24", got)
	}
	if !asset.Quantity.Equal(Q(decimal.NewFromInt(4))) {
		t.Errorf("asset quantity = %s, want 4", asset.Quantity)
	}
	if cash.Class != AccountCash || cash.Credit.IsZero() {
		t.Errorf("second leg = %s debit=%s credit=%s, want cash credit", cash.Class, cash.Debit, cash.Credit)
	}
	if !tx.IsBalanced() {
		t.Error("transaction is not balanced")
	}
	if err := tx.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestBuildClasses(t *testing.T) {
	testCases := []struct {
		name       string
		action     string
		symbol     string
		qty        string
		amount     string
		wantClass  TxClass
		wantDebit  AccountClass // class of the debit leg
		wantCredit AccountClass
	}{
		{"sell", "SOLD 10 AAPL", "AAPL", "10", "1750.00", ClassSell, AccountCash, AccountAsset},
		{"cash dividend", "CASH DIV", "SPY", "", "12.50", ClassDividend, AccountCash, AccountIncome},
		{"reinvested dividend", "REINVEST SHARES", "SPY", "0.02", "12.50", ClassDividend, AccountAsset, AccountIncome},
		{"transfer in", "MONEYLINK TRANSFER", "", "", "5000.00", ClassTransferIn, AccountCash, AccountEquity},
		{"transfer out", "WIRE OUT", "", "", "-5000.00", ClassTransferOut, AccountEquity, AccountCash},
		{"fee", "ADR MGMT FEE", "", "", "-3.20", ClassFee, AccountExpense, AccountCash},
		{"interest", "BANK INTEREST", "", "", "0.42", ClassInterest, AccountCash, AccountIncome},
		{"tax", "NRA TAX WITHHOLDING", "", "", "-1.88", ClassTax, AccountExpense, AccountCash},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := buildGroup(t, testRow(1, "01/15/2025", tc.action, tc.symbol, tc.qty, tc.amount, ""))
			if err != nil {
				t.Fatal(err)
			}
			if tx.Class != tc.wantClass {
				t.Errorf("class = %s, want %s", tx.Class, tc.wantClass)
			}
			if len(tx.Entries) != 2 {
				t.Fatalf("entries = %d, want 2", len(tx.Entries))
			}
			var debit, credit AccountClass
			for _, e := range tx.Entries {
				if !e.Debit.IsZero() {
					debit = e.Class
				} else {
					credit = e.Class
				}
			}
			if debit != tc.wantDebit || credit != tc.wantCredit {
				t.Errorf("legs = debit %s / credit %s, want debit %s / credit %s",
					debit, credit, tc.wantDebit, tc.wantCredit)
			}
			if !tx.IsBalanced() {
				t.Error("transaction is not balanced")
			}
			if tx.LowConfidence {
				t.Error("known vocabulary flagged low confidence")
			}
		})
	}
}

func TestBuildUnknownActionIsLowConfidence(t *testing.T) {
	tx, err := buildGroup(t, testRow(1, "01/15/2025", "MISC CORPORATE EVENT", "", "", "-42.00", ""))
	if err != nil {
		t.Fatal(err)
	}
	if tx.Class != ClassOther {
		t.Errorf("class = %s, want %s", tx.Class, ClassOther)
	}
	if !tx.LowConfidence {
		t.Error("unknown vocabulary must be flagged low confidence")
	}
	if !tx.IsBalanced() || len(tx.Entries) != 2 {
		t.Errorf("fallback transaction must still carry 2 balanced legs, got %d", len(tx.Entries))
	}
}

func TestBuildRejections(t *testing.T) {
	b := &Builder{Institution: testInst, Resolver: NewAssetRegistry(), Currency: "USD"}

	testCases := []struct {
		name string
		rows []SourceRow
	}{
		{"settlement-only group", []SourceRow{testRow(1, "01/15/2025", "", "", "", "2019.24", "142199.02")}},
		{"no parsable date", []SourceRow{testRow(1, "", "BOUGHT SPY", "SPY", "4", "-2019.24", "")}},
		{"no parsable amount", []SourceRow{testRow(1, "01/15/2025", "BOUGHT SPY", "SPY", "4", "", "")}},
		{"buy without symbol", []SourceRow{testRow(1, "01/15/2025", "BOUGHT", "", "4", "-2019.24", "")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			groups := GroupRows(tc.rows, testInst)
			_, err := b.Build(groups[0])
			var buildErr *BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("Build() error = %v, want *BuildError", err)
			}
		})
	}
}
