package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerline/ledgerline"
)

const investigatorInstruction = `
You are a forensic accountant. You receive one discrepancy between a ledger
and the brokerage statement it was built from, together with the source rows
and transactions surrounding it in time. Work out the most likely cause and
propose fixes.

Respond with one JSON object:
  {"hypothesis":"...",
   "evidence":["..."],
   "fixes":[
     {"summary":"...","confidence":0.0,
      "deltas":[{"kind":"create|update|delete|exclude",...}]}]}

Delta objects follow the same schema as categorization: create and update
carry a full "tx" payload, update and delete name a "txId", exclude lists
"rows". Confidence is your honest probability in [0,1] that applying the fix
resolves the discrepancy; only propose a high confidence when the surrounding
rows clearly support the hypothesis. An empty "fixes" array is a valid answer
when the cause cannot be determined from the given context.
`

// Investigator asks a Gemini chat to analyse one reconciliation discrepancy.
// It implements ledgerline.Investigator.
type Investigator struct {
	chat *genai.Chat
}

// NewInvestigator creates the chat session backing the investigator.
func NewInvestigator(ctx context.Context, client *genai.Client) (*Investigator, error) {
	chat, err := client.Chats.Create(ctx, model, jsonConfig(investigatorInstruction), nil)
	if err != nil {
		return nil, fmt.Errorf("creating investigator chat: %w", err)
	}
	return &Investigator{chat: chat}, nil
}

// Investigate submits the discrepancy with its context window and parses the
// model's analysis.
func (v *Investigator) Investigate(ctx context.Context, d ledgerline.Discrepancy, rc ledgerline.ReconcileContext) (*ledgerline.Investigation, error) {
	prompt, err := investigatePrompt(d, rc)
	if err != nil {
		return nil, err
	}
	reply, err := ask(ctx, v.chat, prompt)
	if err != nil {
		return nil, err
	}

	repaired, err := ledgerline.RepairJSON([]byte(reply))
	if err != nil {
		return nil, fmt.Errorf("investigator reply: %w", err)
	}
	var investigation ledgerline.Investigation
	if err := json.Unmarshal(repaired, &investigation); err != nil {
		return nil, fmt.Errorf("investigator reply: %w", err)
	}
	for i, fix := range investigation.Fixes {
		if fix.Confidence < 0 || fix.Confidence > 1 {
			return nil, fmt.Errorf("investigator reply: fix %d confidence %v out of range", i, fix.Confidence)
		}
		for j, delta := range fix.Deltas {
			if err := delta.Check(); err != nil {
				return nil, fmt.Errorf("investigator reply: fix %d delta %d: %w", i, j, err)
			}
		}
	}
	return &investigation, nil
}

func investigatePrompt(d ledgerline.Discrepancy, rc ledgerline.ReconcileContext) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Discrepancy (%s, %s): %s\n", d.Kind, d.Severity, d.Detail)
	if !d.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", d.Date)
	}
	if d.TxID != "" {
		fmt.Fprintf(&b, "Transaction: %s\n", d.TxID)
	}

	fmt.Fprintf(&b, "\nSource rows from %s to %s:\n", rc.From, rc.To)
	for _, row := range rc.Rows {
		buf, err := json.Marshal(row.Fields)
		if err != nil {
			return "", fmt.Errorf("encoding row %d: %w", row.Num, err)
		}
		fmt.Fprintf(&b, "row %d: %s\n", row.Num, buf)
	}

	b.WriteString("\nLedger transactions in the same window:\n")
	for _, tx := range rc.Transactions {
		buf, err := json.Marshal(tx)
		if err != nil {
			return "", fmt.Errorf("encoding transaction %s: %w", tx.ID, err)
		}
		b.Write(buf)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// NewClient builds the Gemini client the advisors share, reading credentials
// from the environment the way the genai SDK documents.
func NewClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, nil)
}
