package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/ledgerline/ledgerline"
	"github.com/ledgerline/ledgerline/xlsx"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	book        string
	institution string
	currency    string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a brokerage statement into a book" }
func (*importCmd) Usage() string {
	return `llc import [-b <book>] [-i <institution>] [-c <currency>] <statement.csv|statement.xlsx>...

  Appends the statement's rows to the book, creating the book if needed.
  Rows are append-only: re-importing a file never overwrites existing rows.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.book, "b", "", "Book to import into. Defaults to the only book if one exists.")
	f.StringVar(&c.institution, "i", "", "Institution profile for new books (generic, schwab, fidelity, ...)")
	f.StringVar(&c.currency, "c", "USD", "Reporting currency for new books")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no statement file given")
		return subcommands.ExitUsageError
	}
	s, err := store()
	if err != nil {
		return fail(err)
	}

	books, err := s.FindAll(c.book)
	if err != nil {
		return fail(err)
	}
	var book *ledgerline.Book
	switch len(books) {
	case 0:
		// A book that does not exist yet is created on first import, with the
		// institution and currency flags applied.
		name := c.book
		if name == "" {
			name = "ledger"
		}
		book = ledgerline.NewBook(name, c.currency, ledgerline.LookupInstitution(c.institution))
	case 1:
		book = books[0]
	default:
		return fail(fmt.Errorf("multiple books found for %q, pick one with -b", c.book))
	}

	total := 0
	for _, path := range f.Args() {
		rows, err := readStatement(path)
		if err != nil {
			return fail(err)
		}
		book.AppendRows(rows...)
		total += len(rows)
	}
	if err := s.Save(book); err != nil {
		return fail(err)
	}
	fmt.Printf("Imported %d rows into book %q (%d rows total)\n", total, book.Name(), book.RowCount())
	return subcommands.ExitSuccess
}

// readStatement picks the decoder from the file extension.
func readStatement(path string) ([]ledgerline.SourceRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return xlsx.ImportFile(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open %q: %w", path, err)
		}
		defer f.Close()
		return ledgerline.ImportCSV(f, filepath.Base(path))
	default:
		return nil, fmt.Errorf("unsupported statement format %q, want .csv or .xlsx", path)
	}
}
