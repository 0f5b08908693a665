package ledgerline

import (
	"fmt"
	"sort"
)

// CoverageIndex tracks which transaction owns each source row, plus the rows
// that were deliberately excluded as non-transactional (disclaimers, totals
// lines). Together with the total row count it answers the completeness
// question: which rows are not yet accounted for.
type CoverageIndex struct {
	owners   map[int][]string // row number -> owning transaction IDs
	excluded map[int]string   // row number -> exclusion reason
}

// NewCoverageIndex creates an empty index.
func NewCoverageIndex() *CoverageIndex {
	return &CoverageIndex{
		owners:   make(map[int][]string),
		excluded: make(map[int]string),
	}
}

// DuplicateCoverageError reports an attempt to register a row that another
// transaction already owns.
type DuplicateCoverageError struct {
	Row     int
	OwnedBy string
	NewTx   string
}

func (e *DuplicateCoverageError) Error() string {
	return fmt.Sprintf("row %d is already owned by transaction %s, refusing to also assign it to %s",
		e.Row, e.OwnedBy, e.NewTx)
}

// Register records the transaction as owner of all its source rows. A row
// already owned by a different transaction makes the whole registration fail
// without side effects; nothing is silently overwritten.
func (c *CoverageIndex) Register(tx *Transaction) error {
	for _, row := range tx.SourceRows {
		for _, owner := range c.owners[row] {
			if owner != tx.ID {
				return &DuplicateCoverageError{Row: row, OwnedBy: owner, NewTx: tx.ID}
			}
		}
	}
	for _, row := range tx.SourceRows {
		if !contains(c.owners[row], tx.ID) {
			c.owners[row] = append(c.owners[row], tx.ID)
		}
	}
	return nil
}

// Unregister removes all row ownership of a transaction.
func (c *CoverageIndex) Unregister(txID string) {
	for row, owners := range c.owners {
		kept := owners[:0]
		for _, id := range owners {
			if id != txID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(c.owners, row)
		} else {
			c.owners[row] = kept
		}
	}
}

// Exclude marks rows as deliberately non-transactional. Excluding a row twice
// has the same effect as once; the first reason wins.
func (c *CoverageIndex) Exclude(rows []int, reason string) {
	for _, row := range rows {
		if _, ok := c.excluded[row]; !ok {
			c.excluded[row] = reason
		}
	}
}

// IsExcluded reports whether a row is in the exclusion set.
func (c *CoverageIndex) IsExcluded(row int) bool {
	_, ok := c.excluded[row]
	return ok
}

// ExclusionReason returns the recorded reason for an excluded row.
func (c *CoverageIndex) ExclusionReason(row int) (string, bool) {
	reason, ok := c.excluded[row]
	return reason, ok
}

// Owners returns the transaction IDs owning a row. The normal case is one;
// more than one is a duplicate-coverage defect surfaced by the validator.
func (c *CoverageIndex) Owners(row int) []string {
	owners := c.owners[row]
	out := make([]string, len(owners))
	copy(out, owners)
	return out
}

// UncoveredRows returns, sorted, the row numbers in [1, totalRows] that are
// neither owned by a transaction nor excluded. This set drives completeness
// checking and resumable ingestion: an appended batch asks for it to learn
// which new rows still need categorization.
func (c *CoverageIndex) UncoveredRows(totalRows int) []int {
	var uncovered []int
	for row := 1; row <= totalRows; row++ {
		if _, owned := c.owners[row]; owned {
			continue
		}
		if _, skipped := c.excluded[row]; skipped {
			continue
		}
		uncovered = append(uncovered, row)
	}
	return uncovered
}

// DuplicateRows returns, sorted, the rows owned by more than one transaction.
func (c *CoverageIndex) DuplicateRows() []int {
	var dups []int
	for row, owners := range c.owners {
		if len(owners) > 1 {
			dups = append(dups, row)
		}
	}
	sort.Ints(dups)
	return dups
}

// ExcludedRows returns the sorted exclusion set.
func (c *CoverageIndex) ExcludedRows() []int {
	rows := make([]int, 0, len(c.excluded))
	for row := range c.excluded {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// CoveredCount returns the number of rows owned by at least one transaction.
func (c *CoverageIndex) CoveredCount() int { return len(c.owners) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
