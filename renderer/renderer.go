// Package renderer formats the engine's reports as markdown, ready for a
// terminal renderer or a plain pager.
package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"

	"github.com/ledgerline/ledgerline"
)

// ValidationMarkdown renders a validation report.
func ValidationMarkdown(r *ledgerline.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Validation Report")
	doc.PlainText(fmt.Sprintf("Status: **%s**", r.Status()))
	doc.PlainText("")

	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Metric", "Value"},
		Rows: [][]string{
			{"Transactions", fmt.Sprint(r.Stats.Transactions)},
			{"Rows covered", fmt.Sprintf("%d / %d", r.Stats.RowsCovered, r.Stats.RowsTotal)},
			{"Rows excluded", fmt.Sprint(r.Stats.RowsExcluded)},
		},
	})

	if len(r.MissingRows) > 0 {
		doc.H2("Uncovered Rows")
		doc.PlainText(fmt.Sprintf("Rows neither owned by a transaction nor excluded: %s", intList(r.MissingRows)))
	}
	if len(r.DuplicateRows) > 0 {
		doc.H2("Duplicate Coverage")
		doc.PlainText(fmt.Sprintf("Rows owned by more than one transaction: %s", intList(r.DuplicateRows)))
	}
	if len(r.Unbalanced) > 0 {
		doc.H2("Unbalanced Transactions")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Transaction", "Date", "Debits", "Credits", "Diff"},
		}
		for _, issue := range r.Unbalanced {
			table.Rows = append(table.Rows, []string{
				issue.TxID, issue.Date.String(),
				issue.Debits.String(), issue.Credits.String(), issue.Diff().SignedString(),
			})
		}
		doc.Table(table)
	}
	if len(r.Drifts) > 0 {
		doc.H2("Balance Drifts")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignRight, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Row", "Date", "Source", "Calculated", "Diff"},
		}
		for _, d := range r.Drifts {
			table.Rows = append(table.Rows, []string{
				fmt.Sprint(d.Row), d.Date.String(),
				d.Source.String(), d.Calculated.String(), d.Diff().SignedString(),
			})
		}
		doc.Table(table)
	}
	if len(r.NegativePositions) > 0 {
		doc.H2("Negative Positions")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Account", "Quantity"},
		}
		for _, p := range r.NegativePositions {
			table.Rows = append(table.Rows, []string{p.Account, p.Quantity.String()})
		}
		doc.Table(table)
	}
	if len(r.LoneSettlementRows) > 0 {
		doc.H2("Lone Settlement Rows")
		doc.PlainText(fmt.Sprintf("Settlement rows owned without an action row: %s", intList(r.LoneSettlementRows)))
	}

	return doc.String()
}

func intList(nums []int) string {
	var b bytes.Buffer
	for i, n := range nums {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, n)
	}
	return b.String()
}
