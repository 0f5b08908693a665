package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"

	"github.com/ledgerline/ledgerline"
)

// ReconcileMarkdown renders the outcome of a reconciliation run.
func ReconcileMarkdown(r *ledgerline.RunReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Reconciliation Report")
	doc.PlainText(fmt.Sprintf("Outcome: **%s** after %d iteration(s)", r.Outcome, r.Iterations))
	doc.PlainText("")

	if len(r.Applied) > 0 {
		doc.H2("Applied Fixes")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
			Header:    []string{"Discrepancy", "Fix", "Confidence"},
		}
		for _, a := range r.Applied {
			table.Rows = append(table.Rows, []string{
				a.Discrepancy.Detail, a.Fix.Summary, fmt.Sprintf("%.2f", a.Fix.Confidence),
			})
		}
		doc.Table(table)
		for _, a := range r.Applied {
			for _, res := range a.Results {
				if res.Err != nil {
					doc.PlainText(fmt.Sprintf("- delta %s failed: %v", res.Delta.Kind, res.Err))
				}
			}
		}
	}

	if len(r.Failed) > 0 {
		doc.H2("Failed Fixes")
		doc.PlainText("Every delta of these fixes was rejected; the book is unchanged.")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
			Header:    []string{"Discrepancy", "Fix", "Confidence"},
		}
		for _, f := range r.Failed {
			table.Rows = append(table.Rows, []string{
				f.Discrepancy.Detail, f.Fix.Summary, fmt.Sprintf("%.2f", f.Fix.Confidence),
			})
		}
		doc.Table(table)
		for _, f := range r.Failed {
			for _, res := range f.Results {
				if res.Err != nil {
					doc.PlainText(fmt.Sprintf("- delta %s failed: %v", res.Delta.Kind, res.Err))
				}
			}
		}
	}

	if len(r.Deferred) > 0 {
		doc.H2("Deferred Fixes")
		doc.PlainText("These fixes were below the confidence threshold and need a manual decision.")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
			Header:    []string{"Discrepancy", "Proposed Fix", "Confidence"},
		}
		for _, d := range r.Deferred {
			table.Rows = append(table.Rows, []string{
				d.Discrepancy.Detail, d.Fix.Summary, fmt.Sprintf("%.2f", d.Fix.Confidence),
			})
		}
		doc.Table(table)
	}

	if len(r.Remaining) > 0 {
		doc.H2("Remaining Discrepancies")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft},
			Header:    []string{"Kind", "Severity", "Detail"},
		}
		for _, d := range r.Remaining {
			table.Rows = append(table.Rows, []string{string(d.Kind), d.Severity.String(), d.Detail})
		}
		doc.Table(table)
	}

	return doc.String()
}

// SessionMarkdown renders the outcome of one ingestion step.
func SessionMarkdown(r *ledgerline.StepResult) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Ingestion Step")
	doc.PlainText(fmt.Sprintf("Rows %d-%d: **%s**", r.From, r.To, r.Status))
	doc.PlainText("")

	rows := [][]string{
		{"Built deterministically", fmt.Sprint(r.Built)},
		{"Categorizer deltas", fmt.Sprint(len(r.Results))},
	}
	if r.Status == ledgerline.StepWaiting {
		rows = append(rows, []string{"Retry after", r.RetryAfter.String()})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Metric", "Value"},
		Rows:      rows,
	})

	for _, res := range r.Results {
		if res.Err != nil {
			doc.PlainText(fmt.Sprintf("- %s delta rejected: %v", res.Delta.Kind, res.Err))
		}
	}
	if len(r.Remaining) > 0 {
		doc.PlainText(fmt.Sprintf("Rows still uncovered: %s", intList(r.Remaining)))
	}

	return doc.String()
}
