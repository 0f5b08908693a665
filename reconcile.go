package ledgerline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
)

// DiscrepancyKind names the ways a ledger can deviate from its source.
type DiscrepancyKind string

const (
	BalanceMismatch   DiscrepancyKind = "balanceMismatch"
	UnbalancedTx      DiscrepancyKind = "unbalancedTransaction"
	DuplicateCoverage DiscrepancyKind = "duplicateCoverage"
	NegativeOpening   DiscrepancyKind = "negativeOpening"
)

// Severity orders discrepancies for investigation; higher is worse.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityError:
		return "error"
	default:
		return "warning"
	}
}

// Discrepancy is one detected deviation between the ledger and ground truth.
type Discrepancy struct {
	ID       string          `json:"id"`
	Kind     DiscrepancyKind `json:"kind"`
	Severity Severity        `json:"severity"`
	Date     Date            `json:"date"`
	Rows     []int           `json:"rows,omitempty"`
	TxID     string          `json:"txId,omitempty"`
	Detail   string          `json:"detail"`
	Resolved bool            `json:"resolved"`
}

// ProposedFix is one candidate remedy for a discrepancy, with the deltas that
// would implement it and the investigator's confidence in [0,1].
type ProposedFix struct {
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
	Deltas     []Delta `json:"deltas"`
}

// Investigation is the external collaborator's analysis of one discrepancy.
type Investigation struct {
	Hypothesis string        `json:"hypothesis"`
	Evidence   []string      `json:"evidence,omitempty"`
	Fixes      []ProposedFix `json:"fixes"`
}

// ReconcileContext is the bounded window of source data handed to the
// investigator alongside a discrepancy.
type ReconcileContext struct {
	From         Date
	To           Date
	Rows         []SourceRow
	Transactions []*Transaction
}

// Investigator analyses one discrepancy within its context window and
// proposes ranked fixes. Implementations talk to external services and are
// the only operations of a reconciliation that suspend.
type Investigator interface {
	Investigate(ctx context.Context, d Discrepancy, rc ReconcileContext) (*Investigation, error)
}

// Outcome is the terminal state of a reconciliation run.
type Outcome string

const (
	Reconciled           Outcome = "reconciled"
	Stalled              Outcome = "stalled"
	MaxIterationsReached Outcome = "maxIterationsReached"
)

// AppliedFix records a fix that was auto-applied.
type AppliedFix struct {
	Discrepancy Discrepancy
	Fix         ProposedFix
	Results     []DeltaResult
}

// DeferredFix records a fix below the acceptance threshold, surfaced for a
// manual decision instead of being auto-applied.
type DeferredFix struct {
	Discrepancy Discrepancy
	Fix         ProposedFix
}

// RunReport summarizes one reconciliation run for auditing. It enumerates
// every discrepancy and fix individually.
type RunReport struct {
	Outcome    Outcome
	Iterations int
	Applied    []AppliedFix
	// Failed holds confident fixes whose every delta was rejected; the book
	// is unchanged by them.
	Failed    []AppliedFix
	Deferred  []DeferredFix
	Remaining []Discrepancy
}

// Reconciler drives the detect → investigate → apply loop over one book.
type Reconciler struct {
	Book         *Book
	Investigator Investigator
	Resolver     AssetResolver

	// MaxIterations bounds the loop; 0 means the default of 3.
	MaxIterations int
	// Threshold is the minimum confidence for auto-applying a fix;
	// 0 means the default of 0.95.
	Threshold float64
	// ContextDays is the half-width of the investigation window in days;
	// 0 means the default of 7.
	ContextDays int
}

const (
	defaultMaxIterations = 3
	defaultThreshold     = 0.95
	defaultContextDays   = 7
)

// Detect builds balance checkpoints, runs the validator, and returns the
// discrepancy list sorted by severity, worst first.
func (r *Reconciler) Detect() []Discrepancy {
	var found []Discrepancy

	for _, cp := range Checkpoints(r.Book) {
		if cp.Matches() {
			continue
		}
		found = append(found, Discrepancy{
			ID:       uuid.NewString(),
			Kind:     BalanceMismatch,
			Severity: SeverityCritical,
			Date:     cp.Date,
			Rows:     []int{cp.Row},
			Detail: fmt.Sprintf("row %d: source balance %s but ledger calculates %s (off by %s)",
				cp.Row, cp.Source, cp.Calculated, cp.Diff()),
		})
	}

	report := Validate(r.Book)
	for _, issue := range report.Unbalanced {
		found = append(found, Discrepancy{
			ID:       uuid.NewString(),
			Kind:     UnbalancedTx,
			Severity: SeverityCritical,
			Date:     issue.Date,
			TxID:     issue.TxID,
			Detail: fmt.Sprintf("transaction %s: debits %s != credits %s",
				issue.TxID, issue.Debits, issue.Credits),
		})
	}
	for _, row := range report.DuplicateRows {
		found = append(found, Discrepancy{
			ID:       uuid.NewString(),
			Kind:     DuplicateCoverage,
			Severity: SeverityError,
			Rows:     []int{row},
			Detail:   fmt.Sprintf("row %d is owned by more than one transaction", row),
		})
	}

	// Structural pattern: a negative balance at the very first checkpoint
	// implies funding the ledger never saw.
	if cps := Checkpoints(r.Book); len(cps) > 0 && cps[0].Calculated.IsNegative() && !cps[0].Source.IsNegative() {
		found = append(found, Discrepancy{
			ID:       uuid.NewString(),
			Kind:     NegativeOpening,
			Severity: SeverityError,
			Date:     cps[0].Date,
			Rows:     []int{cps[0].Row},
			Detail: fmt.Sprintf("calculated opening balance %s is negative, a funding transaction is likely missing",
				cps[0].Calculated),
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Severity > found[j].Severity })
	return found
}

// Run executes the reconciliation state machine until the book reconciles,
// an iteration makes no progress, or the iteration bound is hit.
func (r *Reconciler) Run(ctx context.Context) (*RunReport, error) {
	maxIterations := r.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}
	threshold := r.Threshold
	if threshold == 0 {
		threshold = defaultThreshold
	}

	report := &RunReport{}
	for report.Iterations = 1; report.Iterations <= maxIterations; report.Iterations++ {
		discrepancies := r.Detect()
		if len(discrepancies) == 0 {
			report.Outcome = Reconciled
			return report, nil
		}

		applied := 0
		for _, d := range discrepancies {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			investigation, err := r.Investigator.Investigate(ctx, d, r.contextWindow(d))
			if err != nil {
				return report, fmt.Errorf("investigating %s discrepancy %s: %w", d.Kind, d.ID, err)
			}
			if investigation == nil || len(investigation.Fixes) == 0 {
				log.Printf("discrepancy %s: no fix proposed", d.ID)
				continue
			}

			best := bestFix(investigation.Fixes)
			if best.Confidence < threshold {
				// Below the acceptance gate: record for a manual decision.
				report.Deferred = append(report.Deferred, DeferredFix{Discrepancy: d, Fix: best})
				continue
			}

			engine := &ReviewEngine{Book: r.Book, Resolver: r.Resolver}
			results := engine.Apply(best.Deltas)
			if !anyLanded(results) {
				// Every delta was rejected and the book is unchanged, so this
				// is not progress; the discrepancy stays unresolved.
				log.Printf("discrepancy %s: fix %q rejected in full", d.ID, best.Summary)
				report.Failed = append(report.Failed, AppliedFix{Discrepancy: d, Fix: best, Results: results})
				continue
			}
			d.Resolved = true
			report.Applied = append(report.Applied, AppliedFix{Discrepancy: d, Fix: best, Results: results})
			applied++
		}

		if applied == 0 {
			// No progress this iteration; looping again would spin.
			report.Outcome = Stalled
			report.Remaining = r.Detect()
			return report, nil
		}
	}

	report.Iterations = maxIterations
	report.Outcome = MaxIterationsReached
	report.Remaining = r.Detect()
	return report, nil
}

// contextWindow assembles the discrepancy's date range ± ContextDays of rows
// and transactions.
func (r *Reconciler) contextWindow(d Discrepancy) ReconcileContext {
	days := r.ContextDays
	if days == 0 {
		days = defaultContextDays
	}
	on := d.Date
	if on.IsZero() {
		on = Today()
	}
	from, to := on.Add(-days), on.Add(days)
	return ReconcileContext{
		From:         from,
		To:           to,
		Rows:         r.Book.RowsBetween(from, to),
		Transactions: r.Book.TransactionsBetween(from, to),
	}
}

// anyLanded reports whether at least one delta of the batch was applied.
func anyLanded(results []DeltaResult) bool {
	for _, res := range results {
		if res.Err == nil {
			return true
		}
	}
	return false
}

// bestFix returns the highest-confidence fix; ties keep the investigator's
// original ranking.
func bestFix(fixes []ProposedFix) ProposedFix {
	best := fixes[0]
	for _, f := range fixes[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}
