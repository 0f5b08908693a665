package ledgerline

import "log"

// RowGroup is an ordered run of source rows that together describe one
// economic event: one action row, optionally followed by the settlement
// rows that carry its cash leg.
type RowGroup struct {
	Rows    []SourceRow
	primary int // index of the action row in Rows, -1 when the group is settlement-only
}

// Primary returns the action row of the group and true, or the first row and
// false when the group holds only settlement rows.
func (g RowGroup) Primary() (SourceRow, bool) {
	if g.primary < 0 {
		return g.Rows[0], false
	}
	return g.Rows[g.primary], true
}

// Nums returns the global row numbers of the group, in order.
func (g RowGroup) Nums() []int {
	nums := make([]int, len(g.Rows))
	for i, r := range g.Rows {
		nums[i] = r.Num
	}
	return nums
}

// GroupRows partitions an ordered run of source rows into transaction groups
// for the given institution.
//
// A non-settlement row always starts a new group; a settlement row attaches
// to the group currently open. Concatenating the returned groups reproduces
// the input exactly once: no row is ever dropped or duplicated. A settlement
// row with no open group to attach to (an export starting mid-event, or a
// malformed file) becomes its own single-row group and is logged; downstream
// builders will reject it, but the row stays visible in coverage reports.
//
// For institutions without a settlement-row convention every row is its own
// group.
func GroupRows(rows []SourceRow, inst Institution) []RowGroup {
	groups := make([]RowGroup, 0, len(rows))

	for _, row := range rows {
		if !inst.IsSettlement(row) {
			groups = append(groups, RowGroup{Rows: []SourceRow{row}, primary: 0})
			continue
		}
		if len(groups) == 0 || groups[len(groups)-1].primary < 0 {
			// Orphaned settlement row. Keep it as its own group rather than
			// guessing an owner or dropping source data.
			log.Printf("row %d: orphaned settlement row, keeping as single-row group", row.Num)
			groups = append(groups, RowGroup{Rows: []SourceRow{row}, primary: -1})
			continue
		}
		last := &groups[len(groups)-1]
		last.Rows = append(last.Rows, row)
	}
	return groups
}
