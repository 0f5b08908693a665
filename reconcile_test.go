package ledgerline

import (
	"context"
	"strings"
	"testing"
)

// scriptedInvestigator answers every discrepancy with the same investigation.
type scriptedInvestigator struct {
	investigation *Investigation
	calls         int
	lastContext   ReconcileContext
}

func (i *scriptedInvestigator) Investigate(_ context.Context, d Discrepancy, rc ReconcileContext) (*Investigation, error) {
	i.calls++
	i.lastContext = rc
	return i.investigation, nil
}

// unbalance corrupts the fixture's dividend transaction and returns the
// update delta that repairs it.
func unbalance(t *testing.T, b *Book) Delta {
	t.Helper()
	victim := b.Transactions()[1]
	// Corrupt the income leg only: the cash side stays intact, so the balance
	// checkpoints keep matching and the sole discrepancy is the unbalanced
	// transaction.
	victim.Entries[1].Credit = M(999, "USD")
	return Delta{
		Kind:   DeltaUpdate,
		Reason: "debit leg does not match the statement amount",
		TxID:   victim.ID,
		Tx: &TxPayload{
			Date:        "2025-01-12",
			Class:       "dividend",
			Description: "CASH DIV",
			SourceRows:  []int{2},
			Entries: []EntryPayload{
				{Account: CashAccount, Class: "cash", Debit: dec("12.50")},
				{Account: DividendAccount, Class: "income", Credit: dec("12.50")},
			},
		},
	}
}

func TestDetectBalanceMismatch(t *testing.T) {
	b := testBook(
		testRow(1, "01/10/2025", "MONEYLINK TRANSFER", "", "", "1000.00", "1000.00"),
		testRow(2, "01/12/2025", "CASH DIV", "SPY", "", "12.50", "499000.00"),
	)
	for num := 1; num <= 2; num++ {
		r, _ := b.Row(num)
		if err := b.Insert(mustBuild(b, r)); err != nil {
			t.Fatal(err)
		}
	}

	r := &Reconciler{Book: b}
	found := r.Detect()
	if len(found) != 1 {
		t.Fatalf("got %d discrepancies, want 1: %+v", len(found), found)
	}
	d := found[0]
	if d.Kind != BalanceMismatch || d.Severity != SeverityCritical {
		t.Errorf("discrepancy = %s/%s, want %s/critical", d.Kind, d.Severity, BalanceMismatch)
	}
	if !strings.Contains(d.Detail, "499,000.00") && !strings.Contains(d.Detail, "499000") {
		t.Errorf("detail %q does not name the source balance", d.Detail)
	}
}

func TestDetectNegativeOpening(t *testing.T) {
	// A buy before any funding: the calculated balance opens negative while
	// the statement reports a positive one.
	b := testBook(testRow(1, "01/15/2025", "BOUGHT SPY", "SPY", "10", "-2019.24", "1000.00"))
	row, _ := b.Row(1)
	if err := b.Insert(mustBuild(b, row)); err != nil {
		t.Fatal(err)
	}

	r := &Reconciler{Book: b}
	found := r.Detect()

	var opening *Discrepancy
	for i := range found {
		if found[i].Kind == NegativeOpening {
			opening = &found[i]
		}
	}
	if opening == nil {
		t.Fatalf("no %s discrepancy in %+v", NegativeOpening, found)
	}
	if opening.Severity != SeverityError {
		t.Errorf("severity = %s, want error", opening.Severity)
	}
	if len(opening.Rows) != 1 || opening.Rows[0] != 1 {
		t.Errorf("rows = %v, want the first checkpoint row", opening.Rows)
	}
	// The raw mismatch is reported too, and its critical severity sorts it first.
	if found[0].Kind != BalanceMismatch {
		t.Errorf("first discrepancy is %s, want %s", found[0].Kind, BalanceMismatch)
	}
}

func TestDetectCleanBook(t *testing.T) {
	b := ledgerFixture(t)
	r := &Reconciler{Book: b}
	if found := r.Detect(); len(found) != 0 {
		t.Errorf("discrepancies on a clean book: %+v", found)
	}
}

func TestReconcileAppliesConfidentFix(t *testing.T) {
	b := ledgerFixture(t)
	fix := unbalance(t, b)

	inv := &scriptedInvestigator{investigation: &Investigation{
		Hypothesis: "amount misparsed",
		Fixes: []ProposedFix{
			{Summary: "rebuild from the statement amount", Confidence: 0.96, Deltas: []Delta{fix}},
		},
	}}
	r := &Reconciler{Book: b, Investigator: inv, Resolver: NewAssetRegistry()}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != Reconciled {
		t.Fatalf("outcome = %s, want %s (remaining %+v)", report.Outcome, Reconciled, report.Remaining)
	}
	if len(report.Applied) != 1 || len(report.Deferred) != 0 {
		t.Errorf("applied %d deferred %d, want 1 and 0", len(report.Applied), len(report.Deferred))
	}
	if status := Validate(b).Status(); status != StatusPass {
		t.Errorf("book status after reconciliation = %s, want %s", status, StatusPass)
	}
}

func TestReconcileDefersLowConfidenceFix(t *testing.T) {
	b := ledgerFixture(t)
	fix := unbalance(t, b)

	inv := &scriptedInvestigator{investigation: &Investigation{
		Fixes: []ProposedFix{
			{Summary: "maybe rebuild", Confidence: 0.80, Deltas: []Delta{fix}},
		},
	}}
	r := &Reconciler{Book: b, Investigator: inv, Resolver: NewAssetRegistry()}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != Stalled {
		t.Fatalf("outcome = %s, want %s", report.Outcome, Stalled)
	}
	if len(report.Applied) != 0 || len(report.Deferred) != 1 {
		t.Errorf("applied %d deferred %d, want 0 and 1", len(report.Applied), len(report.Deferred))
	}
	// Nothing below the threshold touches the book.
	if len(Validate(b).Unbalanced) != 1 {
		t.Error("deferred fix must leave the book unchanged")
	}
}

func TestReconcilePicksHighestConfidenceFix(t *testing.T) {
	b := ledgerFixture(t)
	good := unbalance(t, b)
	bad := Delta{Kind: DeltaDelete, TxID: "no-such-tx"}

	inv := &scriptedInvestigator{investigation: &Investigation{
		Fixes: []ProposedFix{
			{Summary: "wrong fix", Confidence: 0.95, Deltas: []Delta{bad}},
			{Summary: "right fix", Confidence: 0.99, Deltas: []Delta{good}},
		},
	}}
	r := &Reconciler{Book: b, Investigator: inv, Resolver: NewAssetRegistry()}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != Reconciled {
		t.Fatalf("outcome = %s, want %s", report.Outcome, Reconciled)
	}
	if report.Applied[0].Fix.Summary != "right fix" {
		t.Errorf("applied %q, want the highest-confidence fix", report.Applied[0].Fix.Summary)
	}
}

func TestReconcileStallsWhenFixRejected(t *testing.T) {
	b := ledgerFixture(t)
	unbalance(t, b) // discard the repairing delta

	// A confident fix that targets a transaction that does not exist: every
	// delta is rejected, the book is unchanged.
	ghost := Delta{Kind: DeltaDelete, TxID: "no-such-tx"}
	inv := &scriptedInvestigator{investigation: &Investigation{
		Fixes: []ProposedFix{{Summary: "delete a ghost", Confidence: 0.99, Deltas: []Delta{ghost}}},
	}}
	r := &Reconciler{Book: b, Investigator: inv, Resolver: NewAssetRegistry()}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != Stalled {
		t.Fatalf("outcome = %s, want %s", report.Outcome, Stalled)
	}
	if inv.calls != 1 {
		t.Errorf("investigator called %d times, want 1 (a fully rejected fix is no progress)", inv.calls)
	}
	if len(report.Applied) != 0 || len(report.Failed) != 1 {
		t.Errorf("applied %d failed %d, want 0 and 1", len(report.Applied), len(report.Failed))
	}
	if len(report.Remaining) == 0 {
		t.Error("remaining discrepancies not reported")
	}
	if len(Validate(b).Unbalanced) != 1 {
		t.Error("a rejected fix must leave the book unchanged")
	}
}

func TestReconcileStopsAtMaxIterations(t *testing.T) {
	b := ledgerFixture(t)
	unbalance(t, b) // discard the fix: the investigator proposes a no-op

	noop := Delta{Kind: DeltaExclude, Rows: []int{99}, Reason: "irrelevant"}
	inv := &scriptedInvestigator{investigation: &Investigation{
		Fixes: []ProposedFix{{Summary: "does not help", Confidence: 0.99, Deltas: []Delta{noop}}},
	}}
	r := &Reconciler{Book: b, Investigator: inv, Resolver: NewAssetRegistry()}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcome != MaxIterationsReached {
		t.Fatalf("outcome = %s, want %s", report.Outcome, MaxIterationsReached)
	}
	if report.Iterations != 3 {
		t.Errorf("iterations = %d, want the default bound of 3", report.Iterations)
	}
	if len(report.Remaining) == 0 {
		t.Error("remaining discrepancies not reported")
	}
}

func TestReconcileContextWindow(t *testing.T) {
	b := ledgerFixture(t)
	unbalance(t, b)

	inv := &scriptedInvestigator{investigation: &Investigation{}}
	r := &Reconciler{Book: b, Investigator: inv, Resolver: NewAssetRegistry()}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	rc := inv.lastContext
	if got := rc.To.Sub(rc.From); got != 14 {
		t.Errorf("context window spans %d days, want 14", got)
	}
	// All fixture rows sit within a week of the discrepancy.
	if len(rc.Rows) != 3 || len(rc.Transactions) != 3 {
		t.Errorf("context = %d rows, %d transactions, want all 3 of each", len(rc.Rows), len(rc.Transactions))
	}
}
