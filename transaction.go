package ledgerline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountClass classifies a journal account. The sign convention follows
// standard double-entry accounting: asset and expense accounts increase on
// debit, liability, equity and income accounts increase on credit.
type AccountClass string

const (
	AccountAsset     AccountClass = "asset"
	AccountCash      AccountClass = "cash"
	AccountIncome    AccountClass = "income"
	AccountExpense   AccountClass = "expense"
	AccountLiability AccountClass = "liability"
	AccountEquity    AccountClass = "equity"
)

// ParseAccountClass parses a string into an AccountClass.
func ParseAccountClass(s string) (AccountClass, error) {
	switch AccountClass(s) {
	case AccountAsset, AccountCash, AccountIncome, AccountExpense, AccountLiability, AccountEquity:
		return AccountClass(s), nil
	default:
		return "", fmt.Errorf("unknown account class: %q", s)
	}
}

// TxClass tags the economic nature of a transaction.
type TxClass string

const (
	ClassBuy         TxClass = "buy"
	ClassSell        TxClass = "sell"
	ClassDividend    TxClass = "dividend"
	ClassTransferIn  TxClass = "transfer-in"
	ClassTransferOut TxClass = "transfer-out"
	ClassFee         TxClass = "fee"
	ClassInterest    TxClass = "interest"
	ClassTax         TxClass = "tax"
	ClassOther       TxClass = "other"
)

// ParseTxClass parses a string into a TxClass.
func ParseTxClass(s string) (TxClass, error) {
	switch TxClass(s) {
	case ClassBuy, ClassSell, ClassDividend, ClassTransferIn, ClassTransferOut,
		ClassFee, ClassInterest, ClassTax, ClassOther:
		return TxClass(s), nil
	default:
		return "", fmt.Errorf("unknown transaction class: %q", s)
	}
}

// JournalEntry is one debit-or-credit leg of a Transaction. Exactly one of
// Debit and Credit is non-zero. Non-cash legs may carry a quantity and the
// identity of the asset they move.
type JournalEntry struct {
	Account  string
	Class    AccountClass
	Debit    Money
	Credit   Money
	Quantity Quantity
	Unit     string // e.g. "shares"
	Asset    AssetID
}

// Debit builds a debit leg.
func Debit(class AccountClass, account string, amount Money) JournalEntry {
	return JournalEntry{Account: account, Class: class, Debit: amount}
}

// Credit builds a credit leg.
func Credit(class AccountClass, account string, amount Money) JournalEntry {
	return JournalEntry{Account: account, Class: class, Credit: amount}
}

// WithQuantity returns a copy of the entry carrying a quantity and asset reference.
func (e JournalEntry) WithQuantity(q Quantity, unit string, asset AssetID) JournalEntry {
	e.Quantity, e.Unit, e.Asset = q, unit, asset
	return e
}

// Amount returns the single amount of the leg, whichever side it is on.
func (e JournalEntry) Amount() Money {
	if !e.Debit.IsZero() {
		return e.Debit
	}
	return e.Credit
}

// NetEffect is debit minus credit. For cash accounts, summing net effects in
// date order yields the running cash balance the source reports.
func (e JournalEntry) NetEffect() Money { return e.Debit.Sub(e.Credit) }

// Check verifies the one-sided-amount rule for the leg.
func (e JournalEntry) Check() error {
	if e.Account == "" {
		return errors.New("journal entry has no account name")
	}
	if _, err := ParseAccountClass(string(e.Class)); err != nil {
		return err
	}
	switch {
	case e.Debit.IsZero() && e.Credit.IsZero():
		return fmt.Errorf("journal entry %q has neither debit nor credit", e.Account)
	case !e.Debit.IsZero() && !e.Credit.IsZero():
		return fmt.Errorf("journal entry %q has both debit and credit", e.Account)
	case e.Debit.IsNegative() || e.Credit.IsNegative():
		return fmt.Errorf("journal entry %q has a negative amount", e.Account)
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for JournalEntry.
func (e JournalEntry) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("account", e.Account)
	w.Append("class", e.Class)
	if !e.Debit.IsZero() {
		w.Append("debit", e.Debit.Decimal())
	}
	if !e.Credit.IsZero() {
		w.Append("credit", e.Credit.Decimal())
	}
	if !e.Quantity.IsZero() {
		w.Append("quantity", e.Quantity)
		w.Optional("unit", e.Unit)
		w.Optional("asset", string(e.Asset))
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for JournalEntry.
func (e *JournalEntry) UnmarshalJSON(data []byte) error {
	var temp struct {
		Account  string          `json:"account"`
		Class    AccountClass    `json:"class"`
		Debit    decimal.Decimal `json:"debit"`
		Credit   decimal.Decimal `json:"credit"`
		Quantity Quantity        `json:"quantity"`
		Unit     string          `json:"unit"`
		Asset    string          `json:"asset"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	e.Account = temp.Account
	e.Class = temp.Class
	e.Debit = M(temp.Debit, "")
	e.Credit = M(temp.Credit, "")
	e.Quantity = temp.Quantity
	e.Unit = temp.Unit
	e.Asset = AssetID(temp.Asset)
	return nil
}

// Transaction is a date-stamped economic event made of at least two journal
// entries whose debits and credits balance within the fixed tolerance. It
// remembers the global numbers of the source rows that produced it.
type Transaction struct {
	ID            string         `json:"id"`
	Date          Date           `json:"date"`
	Class         TxClass        `json:"class"`
	Description   string         `json:"description,omitempty"`
	Entries       []JournalEntry `json:"entries"`
	SourceRows    []int          `json:"sourceRows,omitempty"`
	LowConfidence bool           `json:"lowConfidence,omitempty"`
}

// Totals returns the sum of debit amounts and the sum of credit amounts.
func (t *Transaction) Totals() (debits, credits Money) {
	for _, e := range t.Entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	return debits, credits
}

// IsBalanced reports whether debits equal credits within the tolerance.
func (t *Transaction) IsBalanced() bool {
	debits, credits := t.Totals()
	return debits.WithinTolerance(credits)
}

// CashEffect is the net effect of the transaction on cash accounts.
func (t *Transaction) CashEffect() Money {
	var net Money
	for _, e := range t.Entries {
		if e.Class == AccountCash {
			net = net.Add(e.NetEffect())
		}
	}
	return net
}

// Check verifies the transaction's structural invariants: a date, at least
// two legs, each leg well formed, and debits equal to credits within the
// tolerance. Callers must reject a transaction that fails Check before it
// reaches a book.
func (t *Transaction) Check() error {
	if t.Date.IsZero() {
		return errors.New("transaction has no date")
	}
	if len(t.Entries) < 2 {
		return fmt.Errorf("transaction has %d journal entries, need at least 2", len(t.Entries))
	}
	var errs error
	for _, e := range t.Entries {
		if err := e.Check(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	if debits, credits := t.Totals(); !debits.WithinTolerance(credits) {
		return fmt.Errorf("transaction is unbalanced: debits %s != credits %s", debits, credits)
	}
	return nil
}
