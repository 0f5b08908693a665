package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/ledgerline/ledgerline"
	"github.com/ledgerline/ledgerline/renderer"
)

// validateCmd holds the flags for the 'validate' subcommand.
type validateCmd struct {
	book  string
	quiet bool
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "check a book against its invariants" }
func (*validateCmd) Usage() string {
	return `llc validate [-b <book>] [-q]

  Checks row coverage, per-transaction balance, the running balance against
  the statement's balance column, and asset positions. Exits non-zero on a
  critical finding.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.book, "b", "", "Book to validate. Defaults to the only book if one exists.")
	f.BoolVar(&c.quiet, "q", false, "Print the one-line summary only")
}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := store()
	if err != nil {
		return fail(err)
	}
	book, err := s.Find(c.book)
	if err != nil {
		return fail(err)
	}

	report := ledgerline.Validate(book)
	if c.quiet {
		printMarkdown(report.Summary() + "\n")
	} else {
		printMarkdown(renderer.ValidationMarkdown(report))
	}
	if report.Status() == ledgerline.StatusCritical {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
