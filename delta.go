package ledgerline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeltaKind discriminates the tagged Delta variant.
type DeltaKind string

const (
	DeltaCreate  DeltaKind = "create"
	DeltaUpdate  DeltaKind = "update"
	DeltaDelete  DeltaKind = "delete"
	DeltaExclude DeltaKind = "exclude"
)

// EntryPayload is one proposed journal entry, pre-validation.
type EntryPayload struct {
	Account  string          `json:"account"`
	Class    string          `json:"class"`
	Debit    decimal.Decimal `json:"debit"`
	Credit   decimal.Decimal `json:"credit"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Symbol   string          `json:"symbol"`
}

// TxPayload is a fully-specified proposed transaction, pre-validation. It is
// what external collaborators hand us for create and update deltas.
type TxPayload struct {
	Date        string         `json:"date"`
	Class       string         `json:"class"`
	Description string         `json:"description"`
	SourceRows  []int          `json:"sourceRows"`
	Entries     []EntryPayload `json:"entries"`
}

// Delta is one proposed ledger mutation. Deltas arrive from untrusted
// external collaborators and are parsed into this tagged variant right at
// the boundary; anything that does not map cleanly is rejected there.
// Each delta is individually atomic: it fully applies or it is rejected.
type Delta struct {
	Kind   DeltaKind  `json:"kind"`
	Reason string     `json:"reason,omitempty"` // human-readable justification
	TxID   string     `json:"txId,omitempty"`   // update and delete target
	Tx     *TxPayload `json:"tx,omitempty"`     // create and update payload
	Rows   []int      `json:"rows,omitempty"`   // exclude row numbers
}

// Check verifies the delta carries the fields its kind requires.
func (d Delta) Check() error {
	switch d.Kind {
	case DeltaCreate:
		if d.Tx == nil {
			return errors.New("create delta without a transaction payload")
		}
	case DeltaUpdate:
		if d.TxID == "" {
			return errors.New("update delta without a target transaction id")
		}
		if d.Tx == nil {
			return errors.New("update delta without a transaction payload")
		}
	case DeltaDelete:
		if d.TxID == "" {
			return errors.New("delete delta without a target transaction id")
		}
	case DeltaExclude:
		if len(d.Rows) == 0 {
			return errors.New("exclude delta without row numbers")
		}
	default:
		return fmt.Errorf("unknown delta kind %q", d.Kind)
	}
	return nil
}

// ParseDeltas decodes a raw collaborator payload into deltas. The payload may
// be a bare JSON array or an object wrapping it under "deltas"; truncated
// output goes through the bounded bracket repair first. Anything that still
// does not decode is an error; loosely-typed data never travels inward.
func ParseDeltas(raw []byte) ([]Delta, error) {
	repaired, err := RepairJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed delta payload: %w", err)
	}

	var doc any
	if err := json.Unmarshal(repaired, &doc); err != nil {
		return nil, fmt.Errorf("malformed delta payload: %w", err)
	}

	list := doc
	if _, isObj := doc.(map[string]any); isObj {
		// Models frequently wrap the list; accept {"deltas": [...]}.
		if wrapped, err := jsonpath.Get("$.deltas", doc); err == nil {
			list = wrapped
		}
	}
	items, ok := list.([]any)
	if !ok {
		return nil, fmt.Errorf("delta payload is %T, want a JSON array", list)
	}

	deltas := make([]Delta, 0, len(items))
	for i, item := range items {
		buf, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		var d Delta
		if err := json.Unmarshal(buf, &d); err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		if err := d.Check(); err != nil {
			return nil, fmt.Errorf("delta %d: %w", i, err)
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

// buildFromPayload turns a validated payload into a Transaction, resolving
// asset references and enforcing the same invariants as the row builder.
func buildFromPayload(p *TxPayload, currency string, resolver AssetResolver) (*Transaction, error) {
	date, err := ParseDate(p.Date)
	if err != nil {
		return nil, fmt.Errorf("payload date: %w", err)
	}
	class, err := ParseTxClass(p.Class)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Class:       class,
		Description: p.Description,
		SourceRows:  append([]int(nil), p.SourceRows...),
	}
	for i, ep := range p.Entries {
		accountClass, err := ParseAccountClass(ep.Class)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		e := JournalEntry{
			Account: ep.Account,
			Class:   accountClass,
			Debit:   M(ep.Debit, currency),
			Credit:  M(ep.Credit, currency),
			Unit:    ep.Unit,
		}
		if ep.Debit.IsZero() {
			e.Debit = Money{}
		}
		if ep.Credit.IsZero() {
			e.Credit = Money{}
		}
		if !ep.Quantity.IsZero() {
			e.Quantity = Q(ep.Quantity)
			if ep.Symbol != "" && resolver != nil {
				id, err := resolver.Resolve(ep.Symbol)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", i, err)
				}
				e.Asset = id
			}
		}
		tx.Entries = append(tx.Entries, e)
	}
	if err := tx.Check(); err != nil {
		return nil, err
	}
	return tx, nil
}

// DeltaResult records the outcome of applying one delta.
type DeltaResult struct {
	Delta Delta
	TxID  string // id of the created transaction, for create and update
	Err   error
}

// ReviewEngine applies externally proposed deltas to a book.
//
// Batches are best-effort: a failing delta is reported in its result and does
// not roll back the deltas already applied, so callers can retry or report
// exactly the changes that did not land.
type ReviewEngine struct {
	Book     *Book
	Resolver AssetResolver
}

// Apply processes the deltas in order and returns one result per delta.
func (e *ReviewEngine) Apply(deltas []Delta) []DeltaResult {
	results := make([]DeltaResult, 0, len(deltas))
	for _, d := range deltas {
		results = append(results, e.applyOne(d))
	}
	return results
}

func (e *ReviewEngine) applyOne(d Delta) DeltaResult {
	res := DeltaResult{Delta: d}
	if res.Err = d.Check(); res.Err != nil {
		return res
	}

	switch d.Kind {
	case DeltaCreate:
		tx, err := buildFromPayload(d.Tx, e.Book.Currency(), e.Resolver)
		if err != nil {
			res.Err = err
			return res
		}
		if err := e.Book.Insert(tx); err != nil {
			res.Err = err
			return res
		}
		res.TxID = tx.ID

	case DeltaUpdate:
		// Update is delete-then-create on purpose: replacing the whole
		// transaction cannot leave it half-mutated, unlike in-place edits.
		old, ok := e.Book.Transaction(d.TxID)
		if !ok {
			res.Err = fmt.Errorf("transaction %s does not exist", d.TxID)
			return res
		}
		replacement, err := buildFromPayload(d.Tx, e.Book.Currency(), e.Resolver)
		if err != nil {
			res.Err = err
			return res
		}
		if err := e.Book.Remove(old.ID); err != nil {
			res.Err = err
			return res
		}
		if err := e.Book.Insert(replacement); err != nil {
			// Put the original back so a bad replacement loses nothing.
			if restoreErr := e.Book.Insert(old); restoreErr != nil {
				res.Err = errors.Join(err, restoreErr)
				return res
			}
			res.Err = err
			return res
		}
		res.TxID = replacement.ID

	case DeltaDelete:
		res.Err = e.Book.Remove(d.TxID)

	case DeltaExclude:
		// Never creates or removes transactions; idempotent.
		e.Book.Coverage().Exclude(d.Rows, d.Reason)
	}
	return res
}
