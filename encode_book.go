package ledgerline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// recordType tags each JSONL line of a book file.
type recordType string

const (
	recBook      recordType = "book"
	recRow       recordType = "row"
	recTx        recordType = "tx"
	recExclusion recordType = "exclusion"
)

// bookRecord is the header line: one per file, always first.
type bookRecord struct {
	Record      recordType `json:"record"`
	Name        string     `json:"name"`
	Currency    string     `json:"currency"`
	Institution string     `json:"institution"`
	Cursor      int        `json:"cursor"`
}

type rowRecord struct {
	Record recordType        `json:"record"`
	Num    int               `json:"num"`
	File   string            `json:"file,omitempty"`
	Line   int               `json:"line,omitempty"`
	Fields map[string]string `json:"fields"`
}

type exclusionRecord struct {
	Record recordType `json:"record"`
	Rows   []int      `json:"rows"`
	Reason string     `json:"reason,omitempty"`
}

// EncodeBook persists a book to an io.Writer in JSONL form: the header first,
// then rows in global order, transactions in date order, and exclusions last.
// Output is canonical, so two encodes of the same book are byte-identical and
// the files diff cleanly under version control.
func EncodeBook(w io.Writer, b *Book) error {
	decimal.MarshalJSONWithoutQuotes = true

	write := func(v any) error {
		buf, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(append(buf, '\n'))
		return err
	}

	header := bookRecord{
		Record:      recBook,
		Name:        b.Name(),
		Currency:    b.Currency(),
		Institution: b.Institution().ID,
		Cursor:      b.Cursor(),
	}
	if err := write(header); err != nil {
		return fmt.Errorf("writing book header: %w", err)
	}

	for row := range b.Rows() {
		rec := rowRecord{Record: recRow, Num: row.Num, File: row.File, Line: row.Line, Fields: row.Fields}
		if err := write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", row.Num, err)
		}
	}

	for _, tx := range b.Transactions() {
		buf, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("marshaling transaction %s: %w", tx.ID, err)
		}
		// Tag the line without disturbing the transaction's canonical encoding.
		line := append([]byte(`{"record":"tx",`), buf[1:]...)
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("writing transaction %s: %w", tx.ID, err)
		}
	}

	for _, num := range b.Coverage().ExcludedRows() {
		reason, _ := b.Coverage().ExclusionReason(num)
		rec := exclusionRecord{Record: recExclusion, Rows: []int{num}, Reason: reason}
		if err := write(rec); err != nil {
			return fmt.Errorf("writing exclusion of row %d: %w", num, err)
		}
	}
	return nil
}

// DecodeBook reads a JSONL book stream back into a Book. The header line must
// come first; the remaining lines may arrive in any order.
func DecodeBook(r io.Reader, lookup func(id string) Institution) (*Book, error) {
	if lookup == nil {
		lookup = LookupInstitution
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var book *Book
	var cursor int
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var tag struct {
			Record recordType `json:"record"`
		}
		if err := json.Unmarshal(line, &tag); err != nil {
			return nil, fmt.Errorf("line %d: unidentifiable record: %w", lineNo, err)
		}

		if tag.Record != recBook && book == nil {
			return nil, fmt.Errorf("line %d: %q record before the book header", lineNo, tag.Record)
		}

		switch tag.Record {
		case recBook:
			if book != nil {
				return nil, fmt.Errorf("line %d: duplicate book header", lineNo)
			}
			var rec bookRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			book = NewBook(rec.Name, rec.Currency, lookup(rec.Institution))
			cursor = rec.Cursor

		case recRow:
			var rec rowRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			book.AppendRows(SourceRow{Num: rec.Num, File: rec.File, Line: rec.Line, Fields: rec.Fields})

		case recTx:
			var tx Transaction
			if err := json.Unmarshal(line, &tx); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := book.Insert(&tx); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}

		case recExclusion:
			var rec exclusionRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			book.Coverage().Exclude(rec.Rows, rec.Reason)

		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", lineNo, tag.Record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading book stream: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("empty book stream")
	}
	book.SetCursor(cursor)
	return book, nil
}
