package ledgerline

import (
	"errors"
	"reflect"
	"testing"
)

func coveredTx(id string, rows ...int) *Transaction {
	return &Transaction{ID: id, SourceRows: rows}
}

func TestCoverageRegister(t *testing.T) {
	c := NewCoverageIndex()
	if err := c.Register(coveredTx("tx-1", 1, 2)); err != nil {
		t.Fatal(err)
	}

	// A different transaction claiming an owned row is rejected whole.
	err := c.Register(coveredTx("tx-2", 2, 3))
	var dup *DuplicateCoverageError
	if !errors.As(err, &dup) {
		t.Fatalf("Register() error = %v, want *DuplicateCoverageError", err)
	}
	if dup.Row != 2 || dup.OwnedBy != "tx-1" {
		t.Errorf("duplicate = row %d owned by %s, want row 2 owned by tx-1", dup.Row, dup.OwnedBy)
	}
	// All-or-nothing: row 3 must not have been claimed by the failed registration.
	if owners := c.Owners(3); len(owners) != 0 {
		t.Errorf("row 3 owners after failed registration = %v, want none", owners)
	}

	// Re-registering the same transaction is idempotent.
	if err := c.Register(coveredTx("tx-1", 1, 2)); err != nil {
		t.Errorf("re-registering same transaction: %v", err)
	}
	if owners := c.Owners(1); !reflect.DeepEqual(owners, []string{"tx-1"}) {
		t.Errorf("row 1 owners = %v, want [tx-1]", owners)
	}
}

func TestCoverageUnregister(t *testing.T) {
	c := NewCoverageIndex()
	c.Register(coveredTx("tx-1", 1, 2))
	c.Unregister("tx-1")

	if got := c.UncoveredRows(2); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("uncovered after unregister = %v, want [1 2]", got)
	}
	// Create then delete must land back exactly where we started.
	if c.CoveredCount() != 0 {
		t.Errorf("covered count = %d, want 0", c.CoveredCount())
	}
}

func TestCoverageExclude(t *testing.T) {
	c := NewCoverageIndex()
	c.Exclude([]int{5, 6}, "disclaimer block")
	c.Exclude([]int{5}, "second attempt")

	if !c.IsExcluded(5) || !c.IsExcluded(6) {
		t.Fatal("rows 5 and 6 must be excluded")
	}
	// Idempotent, first reason wins.
	if reason, _ := c.ExclusionReason(5); reason != "disclaimer block" {
		t.Errorf("reason = %q, want the first one", reason)
	}
	if got := c.ExcludedRows(); !reflect.DeepEqual(got, []int{5, 6}) {
		t.Errorf("excluded rows = %v, want [5 6]", got)
	}
}

func TestCoverageUncoveredRows(t *testing.T) {
	c := NewCoverageIndex()
	c.Register(coveredTx("tx-1", 1, 3))
	c.Exclude([]int{4}, "header")

	if got := c.UncoveredRows(5); !reflect.DeepEqual(got, []int{2, 5}) {
		t.Errorf("uncovered = %v, want [2 5]", got)
	}
	if got := c.UncoveredRows(0); got != nil {
		t.Errorf("uncovered of empty book = %v, want none", got)
	}
}
