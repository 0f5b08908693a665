package ledgerline

// BalanceCheckpoint pins the ledger against ground truth: one source row that
// reports a running balance, paired with the balance the ledger calculates at
// the same point.
type BalanceCheckpoint struct {
	Row        int
	Date       Date
	Source     Money
	Calculated Money
}

// Diff returns calculated minus source.
func (c BalanceCheckpoint) Diff() Money { return c.Calculated.Sub(c.Source) }

// Matches reports whether the two balances agree within the tolerance.
func (c BalanceCheckpoint) Matches() bool { return c.Calculated.WithinTolerance(c.Source) }

// Checkpoints builds a checkpoint from every source row that carries a
// ground-truth balance, replaying the ledger in row order. Books whose
// institution has no balance column yield none.
func Checkpoints(b *Book) []BalanceCheckpoint {
	inst := b.Institution()
	if inst.BalanceField == "" {
		return nil
	}

	effectAt := make(map[int]Money)
	for _, tx := range b.Transactions() {
		last := 0
		for _, num := range tx.SourceRows {
			if num > last {
				last = num
			}
		}
		if last == 0 {
			continue
		}
		effectAt[last] = effectAt[last].Add(tx.CashEffect())
	}

	var checkpoints []BalanceCheckpoint
	calculated := M(0, b.Currency())
	for row := range b.Rows() {
		calculated = calculated.Add(effectAt[row.Num])
		reported, ok := row.Decimal(inst.BalanceField)
		if !ok {
			continue
		}
		date, _ := row.Date(inst.DateField)
		checkpoints = append(checkpoints, BalanceCheckpoint{
			Row:        row.Num,
			Date:       date,
			Source:     M(reported, b.Currency()),
			Calculated: calculated,
		})
	}
	return checkpoints
}
