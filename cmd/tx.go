package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ledgerline/ledgerline"
	"github.com/ledgerline/ledgerline/renderer"
)

// txCmd holds the flags for the 'tx' subcommand.
type txCmd struct {
	book string
	from string
	to   string
	full bool
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the book's transactions" }
func (*txCmd) Usage() string {
	return `llc tx [-b <book>] [-from <date>] [-to <date>] [-v] [<tx-id>]

  Lists transactions, one line each, oldest first. With -v or a transaction
  id, shows the full journal entries.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.book, "b", "", "Book to list. Defaults to the only book if one exists.")
	f.StringVar(&c.from, "from", "", "Only transactions on or after this date")
	f.StringVar(&c.to, "to", "", "Only transactions on or before this date")
	f.BoolVar(&c.full, "v", false, "Show journal entries")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := store()
	if err != nil {
		return fail(err)
	}
	book, err := s.Find(c.book)
	if err != nil {
		return fail(err)
	}

	if f.NArg() == 1 {
		tx, ok := book.Transaction(f.Arg(0))
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: transaction %q does not exist\n", f.Arg(0))
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.TransactionsMarkdown([]*ledgerline.Transaction{tx}))
		return subcommands.ExitSuccess
	}

	txs, status := c.selectTransactions(book)
	if status != subcommands.ExitSuccess {
		return status
	}
	if c.full {
		printMarkdown(renderer.TransactionsMarkdown(txs))
		return subcommands.ExitSuccess
	}
	for _, tx := range txs {
		fmt.Printf("%s  %s\n", tx.ID, renderer.Transaction(tx))
	}
	return subcommands.ExitSuccess
}

func (c *txCmd) selectTransactions(book *ledgerline.Book) ([]*ledgerline.Transaction, subcommands.ExitStatus) {
	if c.from == "" && c.to == "" {
		return book.Transactions(), subcommands.ExitSuccess
	}
	from, to := ledgerline.NewDate(1, 1, 1), ledgerline.Today()
	var err error
	if c.from != "" {
		if from, err = ledgerline.ParseDate(c.from); err != nil {
			fail(err)
			return nil, subcommands.ExitUsageError
		}
	}
	if c.to != "" {
		if to, err = ledgerline.ParseDate(c.to); err != nil {
			fail(err)
			return nil, subcommands.ExitUsageError
		}
	}
	return book.TransactionsBetween(from, to), subcommands.ExitSuccess
}
