package ledgerline

import (
	"bytes"
	"strings"
	"testing"
)

const schwabCSV = `"Transactions for account XXXX-1234 as of 01/20/2025"

"Date","Action","Symbol","Description","Quantity","Price","Fees & Comm","Amount","Balance"
"01/15/2025","Bought","SPY","BOUGHT 4 SPY","4","504.81","","-2019.24",""
"","","","","","","","",""
"01/20/2025","Cash Dividend","SPY","CASH DIV","","","","12.50","1012.49"
`

func TestImportCSV(t *testing.T) {
	rows, err := ImportCSV(strings.NewReader(schwabCSV), "statement.csv")
	if err != nil {
		t.Fatal(err)
	}
	// The title line is skipped, blank lines are dropped.
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}
	if got := rows[0].Field("Action"); got != "Bought" {
		t.Errorf("row 0 Action = %q, want Bought", got)
	}
	if d, ok := rows[0].Decimal("Amount"); !ok || d.String() != "-2019.24" {
		t.Errorf("row 0 Amount = %v %v", d, ok)
	}
	// Empty cells stay out of the field map.
	if _, present := rows[1].Fields["Quantity"]; present {
		t.Error("empty Quantity cell should be absent from the field map")
	}
	// The csv reader drops the blank separator line entirely, so the record
	// count runs title, header, buy, empty quoted row, dividend.
	if rows[1].Line != 5 {
		t.Errorf("row 1 line = %d, want 5", rows[1].Line)
	}
}

func TestImportCSVWithoutHeader(t *testing.T) {
	_, err := ImportCSV(strings.NewReader("\"just a disclaimer\"\n"), "empty.csv")
	if err == nil || !strings.Contains(err.Error(), "no header") {
		t.Errorf("ImportCSV() error = %v, want a missing-header error", err)
	}
}

func TestExportCSV(t *testing.T) {
	rows := []SourceRow{
		{Num: 1, Fields: map[string]string{"Date": "01/15/2025", "Amount": "-2019.24"}},
		{Num: 2, Fields: map[string]string{"Date": "01/20/2025"}},
	}
	var buf bytes.Buffer
	if err := ExportCSV(&buf, rows, []string{"Date", "Amount"}); err != nil {
		t.Fatal(err)
	}
	want := "Date,Amount\n01/15/2025,-2019.24\n01/20/2025,\n"
	if buf.String() != want {
		t.Errorf("export = %q, want %q", buf.String(), want)
	}
}
