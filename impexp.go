package ledgerline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// this file contains functions to handle the statement import/export format.
// It should remain human readable, single file and easy to diff.

// ImportCSV reads a brokerage statement in CSV form into source rows. The
// first record with more than one non-empty cell is the header; each record
// below it becomes one SourceRow keyed by those headers. name labels the
// rows' provenance.
func ImportCSV(r io.Reader, name string) ([]SourceRow, error) {
	cr := csv.NewReader(r)
	// Statements are sloppy: disclaimers span a single cell, trailing
	// columns come and go.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var headers []string
	var rows []SourceRow
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q: %w", name, err)
		}
		line++

		filled := 0
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
		if headers == nil {
			if filled > 1 {
				headers = make([]string, len(record))
				for i, cell := range record {
					headers[i] = strings.TrimSpace(cell)
				}
			}
			continue
		}
		if filled == 0 {
			continue
		}

		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(record) {
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				fields[h] = v
			}
		}
		rows = append(rows, SourceRow{File: name, Line: line, Fields: fields})
	}
	if headers == nil {
		return nil, fmt.Errorf("%q has no header record", name)
	}
	return rows, nil
}

// ExportCSV writes source rows back out as CSV with the given column order.
// Columns absent from a row are left empty.
func ExportCSV(w io.Writer, rows []SourceRow, columns []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("cannot write header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row.Fields[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("cannot write row %d: %w", row.Num, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
