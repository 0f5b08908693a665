package cmd

import (
	"context"
	"flag"
	"time"

	"github.com/google/subcommands"

	"github.com/ledgerline/ledgerline"
	"github.com/ledgerline/ledgerline/advisor"
	"github.com/ledgerline/ledgerline/renderer"
)

// reconcileCmd holds the flags for the 'reconcile' subcommand.
type reconcileCmd struct {
	book       string
	iterations int
	threshold  float64
	detectOnly bool
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "detect and repair ledger discrepancies" }
func (*reconcileCmd) Usage() string {
	return `llc reconcile [-b <book>] [-iterations n] [-threshold x] [-n]

  Compares the ledger with the statement's balance column, has the
  investigator model analyse each discrepancy, and auto-applies fixes above
  the confidence threshold. Lower-confidence fixes are reported for review.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.book, "b", "", "Book to reconcile. Defaults to the only book if one exists.")
	f.IntVar(&c.iterations, "iterations", 0, "Maximum detect-investigate-apply rounds (default 3)")
	f.Float64Var(&c.threshold, "threshold", 0, "Minimum confidence to auto-apply a fix (default 0.95)")
	f.BoolVar(&c.detectOnly, "n", false, "Detect and report discrepancies, do not investigate")
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	s, err := store()
	if err != nil {
		return fail(err)
	}
	book, err := s.Find(c.book)
	if err != nil {
		return fail(err)
	}

	reconciler := &ledgerline.Reconciler{
		Book:          book,
		Resolver:      ledgerline.NewAssetRegistry(),
		MaxIterations: c.iterations,
		Threshold:     c.threshold,
	}

	if c.detectOnly {
		report := &ledgerline.RunReport{Remaining: reconciler.Detect()}
		if len(report.Remaining) == 0 {
			report.Outcome = ledgerline.Reconciled
		} else {
			report.Outcome = ledgerline.Stalled
		}
		printMarkdown(renderer.ReconcileMarkdown(report))
		return subcommands.ExitSuccess
	}

	client, err := advisor.NewClient(ctx)
	if err != nil {
		return fail(err)
	}
	investigator, err := advisor.NewInvestigator(ctx, client)
	if err != nil {
		return fail(err)
	}
	reconciler.Investigator = investigator

	report, err := reconciler.Run(ctx)
	if report != nil {
		printMarkdown(renderer.ReconcileMarkdown(report))
		if auditErr := s.AppendAudit(book, ledgerline.AuditTrail(report, time.Now())); auditErr != nil {
			return fail(auditErr)
		}
	}
	if saveErr := s.Save(book); saveErr != nil {
		return fail(saveErr)
	}
	if err != nil {
		return fail(err)
	}
	if report.Outcome != ledgerline.Reconciled {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
