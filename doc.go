// Package ledgerline builds a validated, balanced double-entry ledger from
// semi-structured brokerage export rows, and reconciles it against the
// ground-truth balances embedded in the source data.
//
// The pipeline is: source rows are grouped into economic transactions
// (GroupRows), each group is turned into a balanced set of journal entries
// (Builder), row ownership is tracked (CoverageIndex), the whole book is
// checked against its invariants (Validate), and residual discrepancies are
// investigated and fixed through externally proposed Deltas (Reconciler).
//
// Every mutation keeps two invariants non-negotiable: debits equal credits
// within a fixed tolerance, and every source row is owned by exactly one
// transaction or explicitly excluded.
package ledgerline
