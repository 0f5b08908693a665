package ledgerline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Standard account names used by the leg templates.
const (
	CashAccount       = "Cash"
	DividendAccount   = "Dividend Income"
	InterestAccount   = "Interest Income"
	FeeAccount        = "Fees & Commissions"
	TaxAccount        = "Tax Withheld"
	TransferAccount   = "Transfers"
	UnclassifiedAccnt = "Unclassified"
)

// BuildError is the structured rejection a Builder returns when a row group
// cannot become a valid transaction. The rows stay uncovered and visible.
type BuildError struct {
	Rows   []int
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("rows %v: %s", e.Rows, e.Reason)
}

// actionPattern maps substrings of the raw action text to a transaction
// class. Matching is case-insensitive and first-match wins, so the more
// specific vocabulary comes first (a "reinvestment" line also contains
// "dividend").
type actionPattern struct {
	keywords []string
	class    TxClass
	reinvest bool
}

var actionVocabulary = []actionPattern{
	{keywords: []string{"reinvest"}, class: ClassDividend, reinvest: true},
	{keywords: []string{"dividend", "div ", "cash div"}, class: ClassDividend},
	{keywords: []string{"bought", "buy", "purchase"}, class: ClassBuy},
	{keywords: []string{"sold", "sell", "redemption"}, class: ClassSell},
	{keywords: []string{"transfer in", "wire in", "deposit", "contribution", "moneylink transfer", "journaled shares in"}, class: ClassTransferIn},
	{keywords: []string{"transfer out", "wire out", "withdrawal", "distribution"}, class: ClassTransferOut},
	{keywords: []string{"fee", "commission", "adr mgmt"}, class: ClassFee},
	{keywords: []string{"interest", "int "}, class: ClassInterest},
	{keywords: []string{"tax", "withholding"}, class: ClassTax},
}

// classify matches action text against the vocabulary. It returns ClassOther
// when nothing matches.
func classify(action string) (TxClass, bool) {
	lower := strings.ToLower(action)
	for _, p := range actionVocabulary {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.class, p.reinvest
			}
		}
	}
	return ClassOther, false
}

// Builder converts row groups into balanced transactions for one
// institution. Asset legs resolve their identity through the injected
// resolver.
type Builder struct {
	Institution Institution
	Resolver    AssetResolver
	Currency    string // book currency applied to all legs
}

// Build converts one row group into a balanced Transaction.
//
// It never returns an unbalanced or under-legged transaction: any template
// that cannot close (missing amount, settlement-only group) is a *BuildError.
func (b *Builder) Build(g RowGroup) (*Transaction, error) {
	if len(g.Rows) == 0 {
		return nil, &BuildError{Reason: "empty row group"}
	}
	nums := g.Nums()

	primary, ok := g.Primary()
	if !ok {
		return nil, &BuildError{Rows: nums, Reason: "settlement-only group has no action row, would yield fewer than 2 journal entries"}
	}

	inst := b.Institution
	action := primary.Field(inst.ActionField)
	if action == "" {
		action = primary.Field(inst.DescriptionField)
	}
	symbol := primary.Field(inst.SymbolField)
	desc := primary.Field(inst.DescriptionField)
	if desc == "" {
		desc = action
	}

	date, ok := primary.Date(inst.DateField)
	if !ok {
		return nil, &BuildError{Rows: nums, Reason: fmt.Sprintf("no parsable date in field %q", inst.DateField)}
	}

	amount, haveAmount := g.amount(inst)
	if !haveAmount {
		return nil, &BuildError{Rows: nums, Reason: "no parsable amount, cannot balance"}
	}
	abs := M(amount.Abs(), b.Currency)

	var qty Quantity
	if q, ok := primary.Decimal(inst.QuantityField); ok {
		qty = Q(q)
	}

	class, reinvested := classify(action)

	tx := &Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Class:       class,
		Description: desc,
		SourceRows:  nums,
	}

	switch class {
	case ClassBuy:
		asset, err := b.assetLeg(symbol, nums)
		if err != nil {
			return nil, err
		}
		tx.Entries = []JournalEntry{
			Debit(AccountAsset, assetAccount(symbol), abs).WithQuantity(qty.Abs(), "shares", asset),
			Credit(AccountCash, CashAccount, abs),
		}
	case ClassSell:
		asset, err := b.assetLeg(symbol, nums)
		if err != nil {
			return nil, err
		}
		tx.Entries = []JournalEntry{
			Debit(AccountCash, CashAccount, abs),
			Credit(AccountAsset, assetAccount(symbol), abs).WithQuantity(qty.Abs(), "shares", asset),
		}
	case ClassDividend:
		if reinvested && symbol != "" {
			asset, err := b.assetLeg(symbol, nums)
			if err != nil {
				return nil, err
			}
			tx.Entries = []JournalEntry{
				Debit(AccountAsset, assetAccount(symbol), abs).WithQuantity(qty.Abs(), "shares", asset),
				Credit(AccountIncome, DividendAccount, abs),
			}
		} else {
			tx.Entries = []JournalEntry{
				Debit(AccountCash, CashAccount, abs),
				Credit(AccountIncome, DividendAccount, abs),
			}
		}
	case ClassTransferIn:
		tx.Entries = []JournalEntry{
			Debit(AccountCash, CashAccount, abs),
			Credit(AccountEquity, TransferAccount, abs),
		}
	case ClassTransferOut:
		tx.Entries = []JournalEntry{
			Debit(AccountEquity, TransferAccount, abs),
			Credit(AccountCash, CashAccount, abs),
		}
	case ClassFee:
		tx.Entries = []JournalEntry{
			Debit(AccountExpense, FeeAccount, abs),
			Credit(AccountCash, CashAccount, abs),
		}
	case ClassInterest:
		tx.Entries = []JournalEntry{
			Debit(AccountCash, CashAccount, abs),
			Credit(AccountIncome, InterestAccount, abs),
		}
	case ClassTax:
		tx.Entries = []JournalEntry{
			Debit(AccountExpense, TaxAccount, abs),
			Credit(AccountCash, CashAccount, abs),
		}
	default:
		// Unknown vocabulary: best-effort cash movement against an
		// unclassified equity account, flagged for review.
		tx.LowConfidence = true
		if amount.IsNegative() {
			tx.Entries = []JournalEntry{
				Debit(AccountEquity, UnclassifiedAccnt, abs),
				Credit(AccountCash, CashAccount, abs),
			}
		} else {
			tx.Entries = []JournalEntry{
				Debit(AccountCash, CashAccount, abs),
				Credit(AccountEquity, UnclassifiedAccnt, abs),
			}
		}
	}

	if err := tx.Check(); err != nil {
		// A template that cannot balance is a build failure; callers never
		// receive an invalid transaction from here.
		return nil, &BuildError{Rows: nums, Reason: err.Error()}
	}
	return tx, nil
}

// amount extracts the monetary amount of the group: the primary row's amount
// field, falling back to the first settlement row that carries one.
func (g RowGroup) amount(inst Institution) (d decimal.Decimal, ok bool) {
	if primary, hasPrimary := g.Primary(); hasPrimary {
		if v, ok := primary.Decimal(inst.AmountField); ok {
			return v, true
		}
	}
	for _, r := range g.Rows {
		if v, ok := r.Decimal(inst.AmountField); ok {
			return v, true
		}
	}
	return d, false
}

func (b *Builder) assetLeg(symbol string, rows []int) (AssetID, error) {
	if symbol == "" {
		return "", &BuildError{Rows: rows, Reason: "asset transaction without a symbol"}
	}
	if b.Resolver == nil {
		return "", &BuildError{Rows: rows, Reason: "no asset resolver configured"}
	}
	id, err := b.Resolver.Resolve(symbol)
	if err != nil {
		return "", &BuildError{Rows: rows, Reason: fmt.Sprintf("cannot resolve asset %q: %v", symbol, err)}
	}
	return id, nil
}

// assetAccount names the asset account for a symbol.
func assetAccount(symbol string) string {
	return "Securities:" + strings.ToUpper(strings.TrimSpace(symbol))
}
