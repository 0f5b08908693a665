package ledgerline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// encodeFixture is the validation fixture plus an excluded disclaimer row and
// a resume cursor, so every record type appears in the stream.
func encodeFixture(t *testing.T) *Book {
	t.Helper()
	b := ledgerFixture(t)
	b.AppendRows(testRow(4, "", "SOME DISCLAIMER TEXT", "", "", "", ""))
	b.Coverage().Exclude([]int{4}, "statement footer")
	b.SetCursor(2)
	return b
}

func TestBookRoundTrip(t *testing.T) {
	b := encodeFixture(t)

	var buf bytes.Buffer
	if err := EncodeBook(&buf, b); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBook(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}

	if got.Name() != b.Name() || got.Currency() != b.Currency() {
		t.Errorf("decoded %s/%s, want %s/%s", got.Name(), got.Currency(), b.Name(), b.Currency())
	}
	if got.Institution().ID != b.Institution().ID {
		t.Errorf("institution = %q, want %q", got.Institution().ID, b.Institution().ID)
	}
	if got.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", got.Cursor())
	}
	if got.RowCount() != 4 || got.TransactionCount() != 3 {
		t.Errorf("decoded %d rows, %d transactions, want 4 and 3", got.RowCount(), got.TransactionCount())
	}
	if !got.Coverage().IsExcluded(4) {
		t.Error("exclusion of row 4 lost in the round trip")
	}
	if reason, _ := got.Coverage().ExclusionReason(4); reason != "statement footer" {
		t.Errorf("exclusion reason = %q", reason)
	}
	if uncovered := got.Coverage().UncoveredRows(got.RowCount()); len(uncovered) != 0 {
		t.Errorf("coverage lost in the round trip, uncovered: %v", uncovered)
	}
}

func TestEncodeBookIsCanonical(t *testing.T) {
	b := encodeFixture(t)

	var first bytes.Buffer
	if err := EncodeBook(&first, b); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeBook(bytes.NewReader(first.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	var second bytes.Buffer
	if err := EncodeBook(&second, decoded); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Errorf("re-encoding is not byte identical:\nfirst:\n%s\nsecond:\n%s", first.String(), second.String())
	}
}

func TestDecodeBookRejects(t *testing.T) {
	testCases := []struct {
		name   string
		stream string
		wantIn string
	}{
		{
			"record before header",
			`{"record":"row","num":1,"fields":{}}`,
			"before the book header",
		},
		{
			"duplicate header",
			`{"record":"book","name":"a","currency":"USD"}` + "\n" +
				`{"record":"book","name":"b","currency":"USD"}`,
			"duplicate book header",
		},
		{
			"unknown record type",
			`{"record":"book","name":"a","currency":"USD"}` + "\n" +
				`{"record":"price","symbol":"SPY"}`,
			"unknown record type",
		},
		{
			"empty stream",
			"",
			"empty book stream",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBook(strings.NewReader(tc.stream), nil)
			if err == nil || !strings.Contains(err.Error(), tc.wantIn) {
				t.Errorf("DecodeBook() error = %v, want containing %q", err, tc.wantIn)
			}
		})
	}
}

func TestDirStoreRoundTrip(t *testing.T) {
	store := &DirStore{Root: t.TempDir()}
	b := NewBook("john/schwab", "USD", testInst)
	b.AppendRows(testRow(1, "01/10/2025", "MONEYLINK TRANSFER", "", "", "1000.00", "1000.00"))
	if err := b.Insert(mustBuild(b, mustRow(t, b, 1))); err != nil {
		t.Fatal(err)
	}

	if err := store.Save(b); err != nil {
		t.Fatal(err)
	}
	got, err := store.Find("john/schwab")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "john/schwab" || got.RowCount() != 1 || got.TransactionCount() != 1 {
		t.Errorf("loaded %s with %d rows, %d transactions", got.Name(), got.RowCount(), got.TransactionCount())
	}
}

func TestDirStoreFind(t *testing.T) {
	store := &DirStore{Root: t.TempDir()}

	// An empty query over an empty store starts a fresh default book.
	b, err := store.Find("")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "ledger" || b.Currency() != "USD" {
		t.Errorf("default book = %s/%s", b.Name(), b.Currency())
	}

	if _, err := store.Find("nope"); err == nil {
		t.Error("finding a missing book by name must fail")
	}

	if err := store.Save(NewBook("a", "USD", testInst)); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(NewBook("b", "USD", testInst)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Find(""); err == nil {
		t.Error("an ambiguous query must fail")
	}
	books, err := store.FindAll("")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Errorf("FindAll found %d books, want 2", len(books))
	}
}

func TestDirStoreAppendAudit(t *testing.T) {
	store := &DirStore{Root: t.TempDir()}
	b := NewBook("a", "USD", testInst)
	if err := store.Save(b); err != nil {
		t.Fatal(err)
	}

	report := &RunReport{Outcome: Reconciled, Iterations: 1}
	events := AuditTrail(report, time.Date(2025, time.January, 20, 12, 0, 0, 0, time.UTC))
	if err := store.AppendAudit(b, events); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendAudit(b, events); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(store.Root, "a.audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(raw), "\n"); got != 2 {
		t.Errorf("audit trail holds %d lines, want 2 (appends must accumulate)", got)
	}

	// The sidecar must never be mistaken for a book.
	books, err := store.FindAll("")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 {
		t.Errorf("FindAll found %d books, want the book only", len(books))
	}
}

// mustRow fetches a row by number, failing the test if it is missing.
func mustRow(t *testing.T, b *Book, num int) SourceRow {
	t.Helper()
	r, ok := b.Row(num)
	if !ok {
		t.Fatalf("row %d missing", num)
	}
	return r
}
