package ledgerline

import (
	"fmt"
	"sort"
)

// ReportStatus is the overall verdict of a validation run.
type ReportStatus string

const (
	StatusPass     ReportStatus = "pass"
	StatusWarning  ReportStatus = "warning"
	StatusCritical ReportStatus = "critical"
)

// BalanceIssue reports one transaction whose debits and credits diverge
// beyond the tolerance.
type BalanceIssue struct {
	TxID    string
	Date    Date
	Debits  Money
	Credits Money
}

func (i BalanceIssue) Diff() Money { return i.Debits.Sub(i.Credits) }

// BalanceDrift reports one source row whose reported running balance does
// not match the balance calculated from the ledger.
type BalanceDrift struct {
	Row        int
	Date       Date
	Source     Money
	Calculated Money
}

func (d BalanceDrift) Diff() Money { return d.Calculated.Sub(d.Source) }

// PositionIssue reports a suspicious cumulative asset position.
type PositionIssue struct {
	Account  string
	Quantity Quantity
}

// Report is the structured result of validating a book. Each section is
// independent and enumerates the specific rows and transactions concerned;
// there is no aggregate-only reporting.
type Report struct {
	// Row coverage
	MissingRows   []int // neither owned nor excluded
	DuplicateRows []int // owned by more than one transaction
	ExcludedRows  []int

	// Per-transaction balance
	Unbalanced []BalanceIssue

	// Running balance replay against the source's balance column
	Drifts []BalanceDrift

	// Cumulative asset positions that went negative
	NegativePositions []PositionIssue

	// Settlement rows owned by a transaction without a non-settlement row
	LoneSettlementRows []int

	Stats Stats
}

// Status derives the overall verdict: critical when coverage or balance
// fails, warning when only the softer checks fail, pass otherwise.
func (r *Report) Status() ReportStatus {
	if len(r.MissingRows) > 0 || len(r.DuplicateRows) > 0 || len(r.Unbalanced) > 0 {
		return StatusCritical
	}
	if len(r.Drifts) > 0 || len(r.NegativePositions) > 0 || len(r.LoneSettlementRows) > 0 {
		return StatusWarning
	}
	return StatusPass
}

// Summary returns a one-line human-readable digest of the report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %d transactions, %d/%d rows covered, %d missing, %d duplicate, %d unbalanced, %d balance drifts",
		r.Status(), r.Stats.Transactions, r.Stats.RowsCovered, r.Stats.RowsTotal,
		len(r.MissingRows), len(r.DuplicateRows), len(r.Unbalanced), len(r.Drifts))
}

// Validate checks the whole book snapshot against its invariants. It is a
// pure function of the book's current state and mutates nothing.
func Validate(b *Book) *Report {
	report := &Report{Stats: b.Stats()}

	// Row coverage.
	report.MissingRows = b.Coverage().UncoveredRows(b.RowCount())
	report.DuplicateRows = b.Coverage().DuplicateRows()
	report.ExcludedRows = b.Coverage().ExcludedRows()

	// Per-transaction balance.
	for _, tx := range b.Transactions() {
		if tx.IsBalanced() {
			continue
		}
		debits, credits := tx.Totals()
		report.Unbalanced = append(report.Unbalanced, BalanceIssue{
			TxID: tx.ID, Date: tx.Date, Debits: debits, Credits: credits,
		})
	}

	// Replay the ledger against the source's running balance column.
	report.Drifts = replayBalances(b)

	// Cumulative asset positions. Negative positions are suspicious (a sale
	// of shares the ledger never saw bought) but not blocking.
	positions := b.Positions()
	accounts := make([]string, 0, len(positions))
	for account := range positions {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		if positions[account].IsNegative() {
			report.NegativePositions = append(report.NegativePositions, PositionIssue{
				Account: account, Quantity: positions[account],
			})
		}
	}

	// Settlement pairing: a settlement row must be co-owned with at least one
	// non-settlement row; owned alone it marks a mis-grouped transaction.
	inst := b.Institution()
	for row := range b.Rows() {
		if !inst.IsSettlement(row) {
			continue
		}
		owners := b.Coverage().Owners(row.Num)
		if len(owners) == 0 {
			continue // uncovered, already reported as missing
		}
		if !ownedWithActionRow(b, row.Num, owners) {
			report.LoneSettlementRows = append(report.LoneSettlementRows, row.Num)
		}
	}

	return report
}

// replayBalances derives the drift list from the balance checkpoints.
// Checkpoints owns the running replay; the validator and the reconciler read
// the same ground truth.
func replayBalances(b *Book) []BalanceDrift {
	var drifts []BalanceDrift
	for _, cp := range Checkpoints(b) {
		if cp.Matches() {
			continue
		}
		drifts = append(drifts, BalanceDrift{
			Row: cp.Row, Date: cp.Date, Source: cp.Source, Calculated: cp.Calculated,
		})
	}
	return drifts
}

// ownedWithActionRow reports whether any transaction owning the settlement
// row also owns a non-settlement row.
func ownedWithActionRow(b *Book, settlementRow int, owners []string) bool {
	inst := b.Institution()
	for _, txID := range owners {
		tx, ok := b.Transaction(txID)
		if !ok {
			continue
		}
		for _, num := range tx.SourceRows {
			if num == settlementRow {
				continue
			}
			if r, ok := b.Row(num); ok && !inst.IsSettlement(r) {
				return true
			}
		}
	}
	return false
}
