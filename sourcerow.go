package ledgerline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SourceRow is one already-tokenized record from a brokerage export.
//
// Rows are immutable once ingested. Num is the global row number assigned at
// ingestion; it is the unit of provenance and stays stable across incremental
// appends, so a transaction can always point back at the exact rows that
// produced it.
type SourceRow struct {
	Num    int               `json:"num"`            // global row number, 1-based
	File   string            `json:"file,omitempty"` // originating export file
	Line   int               `json:"line,omitempty"` // row number within File
	Fields map[string]string `json:"fields"`
}

// Field returns the trimmed value of a named field, or "" when absent.
func (r SourceRow) Field(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(r.Fields[name])
}

// Decimal parses a named field as a decimal amount. Currency symbols, commas
// and accounting-style parentheses for negatives are tolerated; a missing or
// empty field returns ok=false.
func (r SourceRow) Decimal(name string) (d decimal.Decimal, ok bool) {
	raw := r.Field(name)
	if raw == "" {
		return decimal.Zero, false
	}
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		raw = raw[1 : len(raw)-1]
	}
	raw = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// Date parses a named field as a Date.
func (r SourceRow) Date(name string) (Date, bool) {
	raw := r.Field(name)
	if raw == "" {
		return Date{}, false
	}
	d, err := ParseDate(raw)
	if err != nil {
		return Date{}, false
	}
	return d, true
}

// sortRowsByNum orders rows by their global number, in place.
func sortRowsByNum(rows []SourceRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Num < rows[j].Num })
}
