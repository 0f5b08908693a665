package ledgerline

import (
	"fmt"
	"iter"
	"log"
	"sort"
)

// Book is one account's ledger: the immutable source rows, the transactions
// built from them, and the coverage index tying the two together.
//
// A Book is a single logical resource: all mutation of one Book must be
// serialized by its caller (a Session). Distinct books may be worked on
// concurrently.
type Book struct {
	name        string
	currency    string
	institution Institution

	rows         []SourceRow // sorted by global row number
	transactions map[string]*Transaction
	order        []string // transaction IDs in insertion order
	coverage     *CoverageIndex

	cursor int // highest row number already offered for categorization
}

// NewBook creates an empty book for one account.
func NewBook(name, currency string, inst Institution) *Book {
	return &Book{
		name:         name,
		currency:     currency,
		institution:  inst,
		transactions: make(map[string]*Transaction),
		coverage:     NewCoverageIndex(),
	}
}

// Name returns the book name.
func (b *Book) Name() string { return b.name }

// Currency returns the book's reporting currency.
func (b *Book) Currency() string { return b.currency }

// Institution returns the profile of the brokerage the rows come from.
func (b *Book) Institution() Institution { return b.institution }

// Coverage exposes the book's coverage index.
func (b *Book) Coverage() *CoverageIndex { return b.coverage }

// Cursor returns the highest row number already processed by ingestion.
func (b *Book) Cursor() int { return b.cursor }

// SetCursor advances the ingestion cursor. It never moves backwards.
func (b *Book) SetCursor(n int) {
	if n > b.cursor {
		b.cursor = n
	}
}

// AppendRows adds source rows to the book. Rows are append-only: a row number
// already present is logged and kept out, never overwritten (source data is
// immutable once ingested). Rows with Num == 0 are assigned the next free
// global numbers.
func (b *Book) AppendRows(rows ...SourceRow) {
	next := b.RowCount() + 1
	seen := make(map[int]bool, len(b.rows))
	for _, r := range b.rows {
		seen[r.Num] = true
	}
	for _, row := range rows {
		if row.Num == 0 {
			row.Num = next
		}
		if seen[row.Num] {
			log.Printf("row %d: duplicate row number on append, keeping the original", row.Num)
			continue
		}
		seen[row.Num] = true
		if row.Num >= next {
			next = row.Num + 1
		}
		b.rows = append(b.rows, row)
	}
	sortRowsByNum(b.rows)
}

// RowCount returns the highest global row number in the book.
func (b *Book) RowCount() int {
	if len(b.rows) == 0 {
		return 0
	}
	return b.rows[len(b.rows)-1].Num
}

// Row returns the source row with the given global number.
func (b *Book) Row(num int) (SourceRow, bool) {
	i := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].Num >= num })
	if i < len(b.rows) && b.rows[i].Num == num {
		return b.rows[i], true
	}
	return SourceRow{}, false
}

// Rows returns an iterator over all source rows in global-number order.
func (b *Book) Rows() iter.Seq[SourceRow] {
	return func(yield func(SourceRow) bool) {
		for _, r := range b.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// RowsBetween returns the rows whose date field falls within [from, to].
// Rows without a parsable date are skipped.
func (b *Book) RowsBetween(from, to Date) []SourceRow {
	var out []SourceRow
	for _, r := range b.rows {
		d, ok := r.Date(b.institution.DateField)
		if !ok {
			continue
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Insert validates a transaction, registers its row ownership, and adds it to
// the book. Either everything succeeds or the book is unchanged.
func (b *Book) Insert(tx *Transaction) error {
	if err := tx.Check(); err != nil {
		return fmt.Errorf("refusing transaction %s: %w", tx.ID, err)
	}
	if _, exists := b.transactions[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	if err := b.coverage.Register(tx); err != nil {
		return err
	}
	b.transactions[tx.ID] = tx
	b.order = append(b.order, tx.ID)
	return nil
}

// Remove unregisters a transaction's row ownership and deletes it.
func (b *Book) Remove(txID string) error {
	if _, ok := b.transactions[txID]; !ok {
		return fmt.Errorf("transaction %s does not exist", txID)
	}
	b.coverage.Unregister(txID)
	delete(b.transactions, txID)
	for i, id := range b.order {
		if id == txID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// Transaction returns a transaction by ID.
func (b *Book) Transaction(id string) (*Transaction, bool) {
	tx, ok := b.transactions[id]
	return tx, ok
}

// TransactionCount returns the number of transactions in the book.
func (b *Book) TransactionCount() int { return len(b.transactions) }

// Transactions returns all transactions sorted by date; transactions on the
// same day keep their insertion order.
func (b *Book) Transactions() []*Transaction {
	txs := make([]*Transaction, 0, len(b.order))
	for _, id := range b.order {
		if tx, ok := b.transactions[id]; ok {
			txs = append(txs, tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs
}

// TransactionsBetween returns transactions dated within [from, to], sorted by date.
func (b *Book) TransactionsBetween(from, to Date) []*Transaction {
	var out []*Transaction
	for _, tx := range b.Transactions() {
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// CashBalanceAsOf computes the running cash balance: the sum of cash-account
// net effects of every transaction dated up to and including the given date.
func (b *Book) CashBalanceAsOf(on Date) Money {
	balance := M(0, b.currency)
	for _, tx := range b.Transactions() {
		if tx.Date.After(on) {
			// Transactions are sorted by date, safe to stop.
			break
		}
		balance = balance.Add(tx.CashEffect())
	}
	return balance
}

// Positions returns the cumulative signed quantity per asset account,
// accumulated over all transactions in date order.
func (b *Book) Positions() map[string]Quantity {
	positions := make(map[string]Quantity)
	for _, tx := range b.Transactions() {
		for _, e := range tx.Entries {
			if e.Class != AccountAsset || e.Quantity.IsZero() {
				continue
			}
			q := e.Quantity
			if !e.Credit.IsZero() {
				q = q.Neg()
			}
			positions[e.Account] = positions[e.Account].Add(q)
		}
	}
	return positions
}

// Stats summarizes the book's aggregate session statistics.
type Stats struct {
	Transactions int
	RowsCovered  int
	RowsExcluded int
	RowsTotal    int
}

// Stats recomputes the aggregate statistics of the book.
func (b *Book) Stats() Stats {
	return Stats{
		Transactions: len(b.transactions),
		RowsCovered:  b.coverage.CoveredCount(),
		RowsExcluded: len(b.coverage.excluded),
		RowsTotal:    b.RowCount(),
	}
}
