package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// fmtCmd holds the flags for the 'fmt' subcommand.
type fmtCmd struct{}

func (*fmtCmd) Name() string     { return "fmt" }
func (*fmtCmd) Synopsis() string { return "rewrite book files in canonical form" }
func (*fmtCmd) Usage() string {
	return `llc fmt

  Loads every book in the store and writes it back. Encoding is canonical,
  so formatted files diff cleanly under version control.
`
}

func (*fmtCmd) SetFlags(f *flag.FlagSet) {}

func (*fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := store()
	if err != nil {
		return fail(err)
	}
	books, err := s.FindAll("")
	if err != nil {
		return fail(err)
	}
	for _, book := range books {
		if err := s.Save(book); err != nil {
			return fail(err)
		}
	}
	fmt.Printf("Formatted %d book(s)\n", len(books))
	return subcommands.ExitSuccess
}
