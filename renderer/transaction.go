package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"

	"github.com/ledgerline/ledgerline"
)

// Transaction renders a transaction to a one-line string.
func Transaction(tx *ledgerline.Transaction) string {
	debits, _ := tx.Totals()
	flag := ""
	if tx.LowConfidence {
		flag = " (low confidence)"
	}
	return fmt.Sprintf("%s %s %s %s%s", tx.Date, tx.Class, debits, tx.Description, flag)
}

// TransactionsMarkdown renders a transaction list with its journal entries.
func TransactionsMarkdown(txs []*ledgerline.Transaction) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Transactions")
	for _, tx := range txs {
		doc.H2(Transaction(tx))
		doc.PlainText(fmt.Sprintf("ID: `%s`, source rows: %s", tx.ID, intList(tx.SourceRows)))
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Account", "Class", "Debit", "Credit", "Quantity"},
		}
		for _, e := range tx.Entries {
			qty := ""
			if !e.Quantity.IsZero() {
				qty = e.Quantity.String()
			}
			debit, credit := "", ""
			if !e.Debit.IsZero() {
				debit = e.Debit.String()
			}
			if !e.Credit.IsZero() {
				credit = e.Credit.String()
			}
			table.Rows = append(table.Rows, []string{e.Account, string(e.Class), debit, credit, qty})
		}
		doc.Table(table)
	}

	return doc.String()
}
