package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/ledgerline/ledgerline"
	"github.com/ledgerline/ledgerline/advisor"
	"github.com/ledgerline/ledgerline/renderer"
)

// ingestCmd holds the flags for the 'ingest' subcommand.
type ingestCmd struct {
	book   string
	window int
	wait   bool
	dryRun bool
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "build transactions from imported statement rows" }
func (*ingestCmd) Usage() string {
	return `llc ingest [-b <book>] [-window n] [-wait] [-n]

  Processes the book's unprocessed rows window by window: deterministic
  rules first, then the categorizer model for the rest. Progress is saved
  after every step, so an interrupted ingest resumes where it stopped.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.book, "b", "", "Book to ingest. Defaults to the only book if one exists.")
	f.IntVar(&c.window, "window", 0, "Rows per step (default 30)")
	f.BoolVar(&c.wait, "wait", false, "Sleep through categorizer rate limits instead of stopping")
	f.BoolVar(&c.dryRun, "n", false, "Deterministic rules only, skip the categorizer")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := store()
	if err != nil {
		return fail(err)
	}
	book, err := s.Find(c.book)
	if err != nil {
		return fail(err)
	}

	session := &ledgerline.Session{
		Book:       book,
		Resolver:   ledgerline.NewAssetRegistry(),
		WindowSize: c.window,
	}
	if !c.dryRun {
		client, err := advisor.NewClient(ctx)
		if err != nil {
			return fail(err)
		}
		categorizer, err := advisor.NewCategorizer(ctx, client)
		if err != nil {
			return fail(err)
		}
		session.Categorizer = categorizer
	}

	for {
		res, err := session.Run(ctx)
		if res != nil {
			printMarkdown(renderer.SessionMarkdown(res))
		}
		// Save whatever landed, even on the way to an error.
		if saveErr := s.Save(book); saveErr != nil {
			return fail(saveErr)
		}
		if err != nil {
			return fail(err)
		}

		if res.Status == ledgerline.StepWaiting && c.wait {
			// Sleeping is a CLI decision; the engine only reports the delay.
			fmt.Printf("Rate limited, retrying in %s...\n", res.RetryAfter)
			select {
			case <-time.After(res.RetryAfter):
				continue
			case <-ctx.Done():
				return fail(ctx.Err())
			}
		}
		if res.Status == ledgerline.StepStalled {
			fmt.Println("Ingestion stalled; inspect the remaining rows with 'llc validate' or exclude them.")
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
}
