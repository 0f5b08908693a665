package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ledgerline/ledgerline"
)

const categorizerInstruction = `
You are a brokerage accountant. You receive source rows from an account
statement that automatic rules could not classify, and you answer with the
double-entry transactions they represent.

Respond with a JSON array of deltas. Each delta is an object:
  {"kind":"create","reason":"...","tx":{...}} to build a transaction,
  {"kind":"exclude","reason":"...","rows":[...]} to mark rows as noise
  (headers, disclaimers, subtotal lines).

A transaction payload is:
  {"date":"YYYY-MM-DD","class":"...","description":"...",
   "sourceRows":[...],"entries":[
     {"account":"...","class":"asset|cash|income|expense|liability|equity",
      "debit":0,"credit":0,"quantity":0,"unit":"...","symbol":"..."}]}

Rules you must never break:
 - every source row number you were given appears in exactly one delta,
 - each transaction has at least two entries,
 - each entry carries a debit or a credit, never both,
 - total debits equal total credits,
 - purchases debit an asset account and credit Cash; sales do the reverse,
 - dividends and interest credit an income account and debit Cash.
`

// Categorizer asks a Gemini chat to classify source rows into ledger deltas.
// It implements ledgerline.Categorizer.
type Categorizer struct {
	chat *genai.Chat
}

// NewCategorizer creates the chat session backing the categorizer.
func NewCategorizer(ctx context.Context, client *genai.Client) (*Categorizer, error) {
	chat, err := client.Chats.Create(ctx, model, jsonConfig(categorizerInstruction), nil)
	if err != nil {
		return nil, fmt.Errorf("creating categorizer chat: %w", err)
	}
	return &Categorizer{chat: chat}, nil
}

// Categorize submits the window's rows with account context and parses the
// model's reply into checked deltas.
func (c *Categorizer) Categorize(ctx context.Context, req ledgerline.CategorizeRequest) ([]ledgerline.Delta, error) {
	prompt, err := categorizePrompt(req)
	if err != nil {
		return nil, err
	}
	reply, err := ask(ctx, c.chat, prompt)
	if err != nil {
		return nil, err
	}
	deltas, err := ledgerline.ParseDeltas([]byte(reply))
	if err != nil {
		return nil, fmt.Errorf("categorizer reply: %w", err)
	}
	return deltas, nil
}

func categorizePrompt(req ledgerline.CategorizeRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Account currency: %s\n", req.Currency)
	fmt.Fprintf(&b, "Institution: %s (action column %q, amount column %q, balance column %q)\n\n",
		req.Institution.ID, req.Institution.ActionField, req.Institution.AmountField, req.Institution.BalanceField)

	b.WriteString("Rows to classify:\n")
	for _, row := range req.Rows {
		buf, err := json.Marshal(row.Fields)
		if err != nil {
			return "", fmt.Errorf("encoding row %d: %w", row.Num, err)
		}
		fmt.Fprintf(&b, "row %d: %s\n", row.Num, buf)
	}

	// The most recent transactions give the model the account's naming and
	// classification habits.
	if n := len(req.Transactions); n > 0 {
		b.WriteString("\nRecent transactions in this ledger, for context only:\n")
		for _, tx := range req.Transactions[max(0, n-10):] {
			buf, err := json.Marshal(tx)
			if err != nil {
				return "", fmt.Errorf("encoding transaction %s: %w", tx.ID, err)
			}
			b.Write(buf)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
