package ledgerline

import "github.com/shopspring/decimal"

// Helpers shared by the package tests. They build statement rows in the
// schwab layout, which exercises the settlement-row convention.

// testInst is the institution profile used throughout the tests.
var testInst = builtinInstitutions["schwab"]

// dec parses a decimal literal, panicking on typos in the test source.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// testRow builds a source row in the schwab layout. Empty strings leave the
// field out, the way a sparse statement export does.
func testRow(num int, date, action, symbol, qty, amount, balance string) SourceRow {
	fields := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	set("Date", date)
	set("Action", action)
	set("Symbol", symbol)
	set("Quantity", qty)
	set("Amount", amount)
	set("Balance", balance)
	set("Description", action)
	return SourceRow{Num: num, File: "test.csv", Fields: fields}
}

// testBook builds a book holding the given rows.
func testBook(rows ...SourceRow) *Book {
	b := NewBook("test", "USD", testInst)
	b.AppendRows(rows...)
	return b
}

// mustBuild builds a transaction from rows through the standard builder,
// panicking on rejection. Tests that expect rejection call Build directly.
func mustBuild(b *Book, rows ...SourceRow) *Transaction {
	builder := &Builder{Institution: b.Institution(), Resolver: NewAssetRegistry(), Currency: b.Currency()}
	groups := GroupRows(rows, b.Institution())
	if len(groups) != 1 {
		panic("mustBuild wants rows forming exactly one group")
	}
	tx, err := builder.Build(groups[0])
	if err != nil {
		panic(err.Error())
	}
	return tx
}
