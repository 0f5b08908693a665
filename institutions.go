package ledgerline

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Institution describes how one brokerage lays out its export rows: which
// field carries what, and whether the institution splits economic events
// into an action row plus a separate cash-settlement row.
type Institution struct {
	ID               string `yaml:"id"`
	ActionField      string `yaml:"action"`
	SymbolField      string `yaml:"symbol"`
	QuantityField    string `yaml:"quantity"`
	AmountField      string `yaml:"amount"`
	BalanceField     string `yaml:"balance"` // running balance column, "" when absent
	DateField        string `yaml:"date"`
	DescriptionField string `yaml:"description"`

	// SettlementRows is true when the institution emits settlement rows
	// (no action, no symbol, zero quantity) that pair with the preceding
	// action row. Without it the default grouping policy is one group per row.
	SettlementRows bool `yaml:"settlementRows"`
}

// IsSettlement reports whether a row is a cash-settlement row for this
// institution: action, symbol and quantity all empty or zero.
func (inst Institution) IsSettlement(r SourceRow) bool {
	if !inst.SettlementRows {
		return false
	}
	if r.Field(inst.ActionField) != "" || r.Field(inst.SymbolField) != "" {
		return false
	}
	if q, ok := r.Decimal(inst.QuantityField); ok && !q.IsZero() {
		return false
	}
	return true
}

// builtinInstitutions are the profiles known out of the box. "generic" is the
// fallback for unknown institutions: plain column names, no settlement rows.
var builtinInstitutions = map[string]Institution{
	"generic": {
		ID:          "generic",
		ActionField: "action", SymbolField: "symbol", QuantityField: "quantity",
		AmountField: "amount", BalanceField: "balance", DateField: "date",
		DescriptionField: "description",
	},
	"schwab": {
		ID:          "schwab",
		ActionField: "Action", SymbolField: "Symbol", QuantityField: "Quantity",
		AmountField: "Amount", BalanceField: "Balance", DateField: "Date",
		DescriptionField: "Description",
		SettlementRows:   true,
	},
	"fidelity": {
		ID:          "fidelity",
		ActionField: "Action", SymbolField: "Symbol", QuantityField: "Quantity",
		AmountField: "Amount ($)", BalanceField: "Cash Balance ($)", DateField: "Run Date",
		DescriptionField: "Description",
	},
}

// LookupInstitution returns the profile for an institution identifier, or the
// generic profile when the identifier is unknown or empty.
func LookupInstitution(id string) Institution {
	if inst, ok := builtinInstitutions[strings.ToLower(strings.TrimSpace(id))]; ok {
		return inst
	}
	return builtinInstitutions["generic"]
}

// DecodeInstitutions reads additional institution profiles from a YAML
// document and merges them over the builtin ones for this process.
func DecodeInstitutions(r io.Reader) ([]Institution, error) {
	var doc struct {
		Institutions []Institution `yaml:"institutions"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not decode institutions file: %w", err)
	}
	for _, inst := range doc.Institutions {
		if inst.ID == "" {
			return nil, fmt.Errorf("institution profile without an id")
		}
		builtinInstitutions[strings.ToLower(inst.ID)] = inst
	}
	return doc.Institutions, nil
}
