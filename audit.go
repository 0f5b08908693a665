package ledgerline

import (
	"fmt"
	"time"
)

// Audit event kinds.
const (
	AuditDiscrepancy = "discrepancy"
	AuditFixApplied  = "fixApplied"
	AuditFixFailed   = "fixFailed"
	AuditFixDeferred = "fixDeferred"
	AuditOutcome     = "outcome"
)

// AuditEvent is one line of a book's append-only audit trail. Reconciliation
// runs record what they found and what they changed, so an autonomous fix is
// always traceable after the fact.
type AuditEvent struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Detail  string    `json:"detail,omitempty"`
	TxID    string    `json:"txId,omitempty"`
	Rows    []int     `json:"rows,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty"`
}

// AuditTrail flattens a reconciliation report into audit events, ending with
// the run's outcome.
func AuditTrail(report *RunReport, at time.Time) []AuditEvent {
	var events []AuditEvent
	for _, a := range report.Applied {
		events = append(events, AuditEvent{
			At:     at,
			Kind:   AuditFixApplied,
			Detail: fmt.Sprintf("%s: %s (confidence %.2f)", a.Discrepancy.Detail, a.Fix.Summary, a.Fix.Confidence),
			TxID:   a.Discrepancy.TxID,
			Rows:   a.Discrepancy.Rows,
		})
	}
	for _, f := range report.Failed {
		events = append(events, AuditEvent{
			At:     at,
			Kind:   AuditFixFailed,
			Detail: fmt.Sprintf("%s: %s (confidence %.2f, every delta rejected)", f.Discrepancy.Detail, f.Fix.Summary, f.Fix.Confidence),
			TxID:   f.Discrepancy.TxID,
			Rows:   f.Discrepancy.Rows,
		})
	}
	for _, d := range report.Deferred {
		events = append(events, AuditEvent{
			At:     at,
			Kind:   AuditFixDeferred,
			Detail: fmt.Sprintf("%s: %s (confidence %.2f below threshold)", d.Discrepancy.Detail, d.Fix.Summary, d.Fix.Confidence),
			TxID:   d.Discrepancy.TxID,
			Rows:   d.Discrepancy.Rows,
		})
	}
	for _, r := range report.Remaining {
		events = append(events, AuditEvent{
			At:     at,
			Kind:   AuditDiscrepancy,
			Detail: r.Detail,
			TxID:   r.TxID,
			Rows:   r.Rows,
		})
	}
	events = append(events, AuditEvent{
		At:      at,
		Kind:    AuditOutcome,
		Detail:  fmt.Sprintf("%d iterations, %d applied, %d failed, %d deferred, %d remaining", report.Iterations, len(report.Applied), len(report.Failed), len(report.Deferred), len(report.Remaining)),
		Outcome: report.Outcome,
	})
	return events
}
