package ledgerline

import (
	"reflect"
	"testing"
)

func TestGroupRows(t *testing.T) {
	action := testRow(1, "01/15/2025", "BOUGHT SPY", "SPY", "4", "-2019.24", "")
	settle := testRow(2, "01/15/2025", "", "", "", "2019.24", "142199.02")
	dividend := testRow(3, "01/20/2025", "CASH DIV", "SPY", "", "12.50", "")

	testCases := []struct {
		name      string
		rows      []SourceRow
		wantNums  [][]int
		wantOwner []bool // primary present per group
	}{
		{
			name:      "settlement attaches to preceding action",
			rows:      []SourceRow{action, settle, dividend},
			wantNums:  [][]int{{1, 2}, {3}},
			wantOwner: []bool{true, true},
		},
		{
			name:      "orphan settlement kept as its own group",
			rows:      []SourceRow{settle, dividend},
			wantNums:  [][]int{{2}, {3}},
			wantOwner: []bool{false, true},
		},
		{
			name:      "consecutive settlements share one group",
			rows:      []SourceRow{action, settle, testRow(4, "01/15/2025", "", "", "", "-1.02", "142198.00")},
			wantNums:  [][]int{{1, 2, 4}},
			wantOwner: []bool{true},
		},
		{
			name:     "empty input yields no groups",
			rows:     nil,
			wantNums: [][]int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			groups := GroupRows(tc.rows, testInst)
			if len(groups) != len(tc.wantNums) {
				t.Fatalf("got %d groups, want %d", len(groups), len(tc.wantNums))
			}
			var flat []int
			for i, g := range groups {
				if !reflect.DeepEqual(g.Nums(), tc.wantNums[i]) {
					t.Errorf("group %d rows = %v, want %v", i, g.Nums(), tc.wantNums[i])
				}
				if _, ok := g.Primary(); ok != tc.wantOwner[i] {
					t.Errorf("group %d primary presence = %v, want %v", i, ok, tc.wantOwner[i])
				}
				flat = append(flat, g.Nums()...)
			}
			// Concatenating the groups must reproduce the input exactly once.
			var input []int
			for _, r := range tc.rows {
				input = append(input, r.Num)
			}
			if !reflect.DeepEqual(flat, input) {
				t.Errorf("concatenated groups = %v, want the input order %v", flat, input)
			}
		})
	}
}

func TestGroupRowsWithoutSettlementConvention(t *testing.T) {
	inst := LookupInstitution("generic")
	rows := []SourceRow{
		{Num: 1, Fields: map[string]string{"date": "2025-01-15", "amount": "-10"}},
		{Num: 2, Fields: map[string]string{"date": "2025-01-15"}},
	}
	groups := GroupRows(rows, inst)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want one group per row", len(groups))
	}
}
