// Package cmd implements the CLI application to build and reconcile ledgers.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/ledgerline/ledgerline"
)

// Register the subcommands.
// A main package calls Register() to install them, and Execute() on the
// user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "statements")
	c.Register(&ingestCmd{}, "statements")

	c.Register(&validateCmd{}, "ledger")
	c.Register(&reconcileCmd{}, "ledger")
	c.Register(&txCmd{}, "ledger")
	c.Register(&excludeCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var storePath = flag.String("store-path", ".", "Path to the folder containing book files (JSONL format)")
var institutionsFile = flag.String("institutions-file", "", "Optional YAML file with extra institution profiles")

// store builds the book store from the app flags, loading extra institution
// profiles when configured.
func store() (*ledgerline.DirStore, error) {
	s := &ledgerline.DirStore{Root: *storePath}
	if *institutionsFile == "" {
		return s, nil
	}
	f, err := os.Open(*institutionsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open institutions file %q: %w", *institutionsFile, err)
	}
	defer f.Close()
	// Profiles merge over the builtins process-wide; the default lookup sees them.
	if _, err := ledgerline.DecodeInstitutions(f); err != nil {
		return nil, fmt.Errorf("could not parse institutions file %q: %w", *institutionsFile, err)
	}
	return s, nil
}

// printMarkdown renders markdown to the terminal, falling back to the raw
// text when the renderer cannot be built (dumb terminals, pipes).
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// fail prints the error and returns the failure exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
